package crypto

import (
	"fmt"

	"github.com/iov-one/mesh/errors"
	"github.com/stellar/go/exp/crypto/derivation"
)

// DerivationPath returns the hardened bip44 path of the n-th member key.
func DerivationPath(n uint32) string {
	return fmt.Sprintf("m/44'/234'/%d'", n)
}

// DeriveKey creates a private key from a master seed and a bip44 style
// derivation path (SLIP-0010 for ed25519).
func DeriveKey(seed []byte, path string) (PrivateKey, error) {
	k, err := derivation.DeriveForPath(path, seed)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "derive %q: %s", path, err)
	}
	return PrivateKeyFromSeed(k.Key)
}
