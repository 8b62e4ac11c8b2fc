package storage

import (
	"context"
	"io"
)

type Object struct {
	Name string
	Size int64
}

type ObjectIterator func(yield func(obj Object, err error) bool)

// ObjectStore is a read-only view over the location the shared corpus is
// loaded from. A store is scoped to one root (directory, or bucket plus
// prefix) at construction.
type ObjectStore interface {
	IterObjects(ctx context.Context) ObjectIterator

	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
}
