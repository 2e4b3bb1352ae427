// Package storage keeps raw HTML snapshots of relevant pages.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/JakeFAU/dvsvc-crawler/internal/crawler"
)

// DefaultPrefix is the object prefix for page snapshots.
const DefaultPrefix = "pages"

// Snapshotter writes page bodies to a blob store under a content-independent
// key derived from the URL, so a re-crawl overwrites the previous snapshot.
type Snapshotter struct {
	store  crawler.BlobStore
	hasher crawler.Hasher
	prefix string
}

// NewSnapshotter wires a blob store and hasher. An empty prefix uses
// DefaultPrefix.
func NewSnapshotter(store crawler.BlobStore, hasher crawler.Hasher, prefix string) *Snapshotter {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Snapshotter{store: store, hasher: hasher, prefix: prefix}
}

// Key returns the object path for rawURL.
func (s *Snapshotter) Key(rawURL string) (string, error) {
	sum, err := s.hasher.Hash([]byte(rawURL))
	if err != nil {
		return "", fmt.Errorf("hash url: %w", err)
	}
	return s.prefix + "/" + sum + ".html", nil
}

// Save stores body for rawURL and returns the object URI.
func (s *Snapshotter) Save(ctx context.Context, rawURL string, body []byte) (string, error) {
	if s == nil || s.store == nil {
		return "", nil
	}
	key, err := s.Key(rawURL)
	if err != nil {
		return "", err
	}
	uri, err := s.store.PutObject(ctx, key, "text/html; charset=utf-8", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("save snapshot %s: %w", rawURL, err)
	}
	return uri, nil
}
