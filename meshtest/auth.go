package meshtest

import (
	"context"
	"fmt"

	"github.com/iov-one/mesh"
)

// Auth is a mock implementing x.Authenticator interface.
//
// This structure authenticates any of referenced addresses.
// You can use either Signer or Signers (or both) attributes to reference
// addresses. Each time all signers (regardless which attribute) are
// considered.
type Auth struct {
	// Signer represents an authentication of a single signer.
	Signer mesh.Address

	// Signers represents an authentication of multiple signers.
	Signers []mesh.Address
}

func (a *Auth) GetSigners(mesh.Context) []mesh.Address {
	if a.Signer != nil {
		return append(append([]mesh.Address{}, a.Signers...), a.Signer)
	}
	return a.Signers
}

func (a *Auth) HasAddress(ctx mesh.Context, addr mesh.Address) bool {
	for _, s := range a.GetSigners(ctx) {
		if addr.Equals(s) {
			return true
		}
	}
	return false
}

// CtxAuth is a mock implementing x.Authenticator interface.
//
// This implementation is using context to store and retrieve signers.
type CtxAuth struct {
	// Key used to set and retrieve signers from the context. For
	// convenience only string type keys are allowed.
	Key string
}

func (a *CtxAuth) SetSigners(ctx mesh.Context, signers ...mesh.Address) mesh.Context {
	return context.WithValue(ctx, a.Key, signers)
}

func (a *CtxAuth) GetSigners(ctx mesh.Context) []mesh.Address {
	val := ctx.Value(a.Key)
	if val == nil {
		return nil
	}
	signers, ok := val.([]mesh.Address)
	if !ok {
		panic(fmt.Sprintf("instead of []mesh.Address got %T", val))
	}
	return signers
}

func (a *CtxAuth) HasAddress(ctx mesh.Context, addr mesh.Address) bool {
	for _, s := range a.GetSigners(ctx) {
		if addr.Equals(s) {
			return true
		}
	}
	return false
}
