package utils

import (
	"context"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
)

// Savepoint will isolate all data inside of the call,
// and commit/rollback to savepoint based on if error
type Savepoint struct{}

var _ Decorator = Savepoint{}

// NewSavepoint creates a Savepoint decorator.
func NewSavepoint() Savepoint {
	return Savepoint{}
}

// Handle runs next on a cache of the store. The cache is written only when
// next succeeds.
func (Savepoint) Handle(ctx context.Context, db mesh.KVStore, next Handler) error {
	return InSavepoint(db, func(db mesh.KVStore) error {
		return next.Handle(ctx, db)
	})
}

// InSavepoint calls fn with a cache wrap of db and writes the cache back if
// fn returned no error. Stores that cannot be cached are passed through.
func InSavepoint(db mesh.KVStore, fn func(mesh.KVStore) error) error {
	cstore, ok := db.(mesh.CacheableKVStore)
	if !ok {
		return fn(db)
	}

	cache := cstore.CacheWrap()
	if err := fn(cache); err != nil {
		cache.Discard()
		return err
	}
	if err := cache.Write(); err != nil {
		return errors.Wrap(err, "writing savepoint")
	}
	return nil
}
