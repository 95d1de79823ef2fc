package sigs

import (
	"context"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/x"
)

type signersKey struct{}

// withSigners records verified keys on ctx. Keys recorded by an outer
// decorator are kept, duplicates are dropped.
func withSigners(ctx mesh.Context, verified []mesh.Address) mesh.Context {
	all := append([]mesh.Address(nil), signersOf(ctx)...)
	for _, addr := range verified {
		if !contains(all, addr) {
			all = append(all, addr)
		}
	}
	return context.WithValue(ctx, signersKey{}, all)
}

func signersOf(ctx mesh.Context) []mesh.Address {
	addrs, _ := ctx.Value(signersKey{}).([]mesh.Address)
	return addrs
}

func contains(addrs []mesh.Address, addr mesh.Address) bool {
	for _, a := range addrs {
		if a.Equals(addr) {
			return true
		}
	}
	return false
}

// Authenticate reports the keys whose signatures the decorator verified.
type Authenticate struct{}

var _ x.Authenticator = Authenticate{}

func (Authenticate) GetSigners(ctx mesh.Context) []mesh.Address {
	return signersOf(ctx)
}

func (Authenticate) HasAddress(ctx mesh.Context, addr mesh.Address) bool {
	return contains(signersOf(ctx), addr)
}

type requestKey struct{}

// WithRequest attaches a signed request to ctx. Nothing is verified here:
// the call performing the request runs the Decorator.
func WithRequest(ctx mesh.Context, req SignedRequest) mesh.Context {
	return context.WithValue(ctx, requestKey{}, req)
}

// RequestOf returns the request attached with WithRequest.
func RequestOf(ctx mesh.Context) (SignedRequest, bool) {
	req, ok := ctx.Value(requestKey{}).(SignedRequest)
	return req, ok && req != nil
}
