package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("content")
	uri, err := store.PutObject(context.Background(), "pages/abc.html", "text/html", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if uri != "memory://pages/abc.html" {
		t.Fatalf("unexpected uri %s", uri)
	}
	payload[0] = 'C'

	body, contentType, ok := store.Get("pages/abc.html")
	require.True(t, ok)
	require.Equal(t, "content", string(body))
	require.Equal(t, "text/html", contentType)

	body[0] = 'X'
	again, _, _ := store.Get("pages/abc.html")
	require.Equal(t, "content", string(again), "Get returns a copy")
}

func TestBlobStorePaths(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	for _, p := range []string{"pages/b.html", "pages/a.html", "pages/b.html"} {
		_, err := store.PutObject(context.Background(), p, "", bytes.NewReader(nil))
		require.NoError(t, err)
	}
	require.Equal(t, []string{"pages/a.html", "pages/b.html"}, store.Paths())
	_, _, ok := store.Get("pages/c.html")
	require.False(t, ok)
}
