package sha256

import "testing"

func TestHasherHashDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	got, err := h.Hash([]byte("hello world"))
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestHasherDistinguishesURLs(t *testing.T) {
	t.Parallel()

	h := New()
	a, _ := h.Hash([]byte("https://www.refuge.org.uk/"))
	b, _ := h.Hash([]byte("https://www.refuge.org.uk"))
	if a == b {
		t.Fatal("expected trailing slash to change the digest")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}
