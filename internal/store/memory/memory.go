// Package memory is an in-process store backend.
package memory

import (
	"context"
	"sync"

	"github.com/kiliankoe/parodyparty/internal/store"
)

type Backend struct {
	mu   sync.RWMutex
	docs map[string]store.Record
}

func New() *Backend {
	return &Backend{docs: make(map[string]store.Record)}
}

func (b *Backend) Load(ctx context.Context, code string) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return store.Record{}, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.docs[code]
	if !ok {
		return store.Record{}, store.ErrNotFound
	}
	return rec, nil
}

func (b *Backend) Insert(ctx context.Context, code string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.docs[code]; ok {
		return store.ErrAlreadyExists
	}
	b.docs[code] = store.Record{Version: 1, Data: data}
	return nil
}

func (b *Backend) CompareAndSwap(ctx context.Context, code string, version int64, data []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.docs[code]
	if !ok {
		return 0, store.ErrNotFound
	}
	if rec.Version != version {
		return 0, store.ErrContention
	}
	next := store.Record{Version: version + 1, Data: data}
	b.docs[code] = next
	return next.Version, nil
}

func (b *Backend) Close() error { return nil }

var _ store.Backend = (*Backend)(nil)
