package runtime

import (
	"context"

	"github.com/iov-one/mesh"
)

type contextKey int

const contextKeySigners contextKey = iota

func withSigners(ctx context.Context, signers []mesh.Address) context.Context {
	return context.WithValue(ctx, contextKeySigners, signers)
}

// Authenticator exposes the signers of the operation being processed. It
// implements x.Authenticator.
type Authenticator struct{}

// GetSigners returns the signers of the current operation.
func (Authenticator) GetSigners(ctx mesh.Context) []mesh.Address {
	signers, _ := ctx.Value(contextKeySigners).([]mesh.Address)
	return signers
}

// HasAddress returns true if addr signed the current operation.
func (a Authenticator) HasAddress(ctx mesh.Context, addr mesh.Address) bool {
	return containsAddress(a.GetSigners(ctx), addr)
}
