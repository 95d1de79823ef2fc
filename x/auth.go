package x

import (
	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
)

// Authenticator tells which keys authorized the current request.
// Controllers receive one in their constructor, so signed requests and
// program signers can share the same code paths.
type Authenticator interface {
	// GetSigners lists every key that authorized the request.
	GetSigners(mesh.Context) []mesh.Address
	HasAddress(mesh.Context, mesh.Address) bool
}

// MultiAuth accepts a key if any of its members does.
type MultiAuth []Authenticator

var _ Authenticator = MultiAuth(nil)

// ChainAuth combines authenticators. The first one lists its signers first.
func ChainAuth(impls ...Authenticator) MultiAuth {
	return MultiAuth(impls)
}

// GetSigners merges the signers of every member, first seen wins.
func (m MultiAuth) GetSigners(ctx mesh.Context) []mesh.Address {
	var all []mesh.Address
	for _, impl := range m {
		for _, addr := range impl.GetSigners(ctx) {
			if !hasAddress(all, addr) {
				all = append(all, addr)
			}
		}
	}
	return all
}

func (m MultiAuth) HasAddress(ctx mesh.Context, addr mesh.Address) bool {
	for _, impl := range m {
		if impl.HasAddress(ctx, addr) {
			return true
		}
	}
	return false
}

// MainSigner is the first signer, or nil for an unsigned request.
func MainSigner(ctx mesh.Context, auth Authenticator) mesh.Address {
	if signers := auth.GetSigners(ctx); len(signers) > 0 {
		return signers[0]
	}
	return nil
}

// RequireSigner returns ErrUnauthorized unless addr signed the request.
// role names addr in the error, for example "creator".
func RequireSigner(ctx mesh.Context, auth Authenticator, addr mesh.Address, role string) error {
	if auth.HasAddress(ctx, addr) {
		return nil
	}
	return errors.Wrapf(errors.ErrUnauthorized, "%s %s did not sign", role, addr)
}

// HasAllAddresses reports whether every address in required signed.
func HasAllAddresses(ctx mesh.Context, auth Authenticator, required []mesh.Address) bool {
	for _, addr := range required {
		if !auth.HasAddress(ctx, addr) {
			return false
		}
	}
	return true
}

func hasAddress(list []mesh.Address, addr mesh.Address) bool {
	for _, a := range list {
		if a.Equals(addr) {
			return true
		}
	}
	return false
}
