package artifact

import (
	"context"
	"errors"
)

// Store is a key/blob store addressed by hierarchical keys ("<id>/<name>").
// Put overwrites by key; calling it again with the same key and body leaves
// the same observable state.
type Store interface {
	Put(ctx context.Context, key string, body []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

var ErrNotFound = errors.New("artifact not found")
