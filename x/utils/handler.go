package utils

import (
	"context"

	"github.com/iov-one/mesh"
)

// Handler is a unit of work run against a store.
type Handler interface {
	Handle(ctx context.Context, db mesh.KVStore) error
}

// HandlerFunc is an adapter to use a function as a Handler.
type HandlerFunc func(ctx context.Context, db mesh.KVStore) error

// Handle calls fn.
func (fn HandlerFunc) Handle(ctx context.Context, db mesh.KVStore) error {
	return fn(ctx, db)
}

// Decorator wraps a Handler call with extra behavior.
type Decorator interface {
	Handle(ctx context.Context, db mesh.KVStore, next Handler) error
}

// Chain returns a handler that passes every call through the decorators, in
// the given order, before reaching h.
func Chain(h Handler, decorators ...Decorator) Handler {
	for i := len(decorators) - 1; i >= 0; i-- {
		h = decorated{decorator: decorators[i], next: h}
	}
	return h
}

type decorated struct {
	decorator Decorator
	next      Handler
}

func (d decorated) Handle(ctx context.Context, db mesh.KVStore) error {
	return d.decorator.Handle(ctx, db, d.next)
}
