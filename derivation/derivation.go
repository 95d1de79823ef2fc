/*
Package derivation computes the addresses of registries, transactions,
instructions and the authorities the engine signs for.

An address is the sha256 digest of its seeds, a bump byte and the owning
program id. Only digests that are not a valid ed25519 point are accepted, so
no private key can exist for a derived address. The bump is the first value,
counting down from 255, that yields such a digest.
*/
package derivation

import (
	"crypto/sha256"

	"filippo.io/edwards25519"
	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
)

const (
	// MaxSeeds is the maximum number of seeds, bump included.
	MaxSeeds = 16
	// MaxSeedLength is the maximum length of a single seed.
	MaxSeedLength = 32
)

var marker = []byte("ProgramDerivedAddress")

// CreateProgramAddress returns the address for given seeds and program. The
// last seed is usually the bump. It fails with ErrDerivation if the result is
// a valid curve point.
func CreateProgramAddress(seeds [][]byte, program mesh.Address) (mesh.Address, error) {
	if err := validateSeeds(seeds); err != nil {
		return nil, err
	}
	addr := hashSeeds(seeds, program)
	if IsOnCurve(addr) {
		return nil, errors.Wrap(errors.ErrDerivation, "address is on curve")
	}
	return addr, nil
}

// FindProgramAddress searches for the first bump, starting at 255, that
// together with seeds gives a valid derived address.
func FindProgramAddress(seeds [][]byte, program mesh.Address) (mesh.Address, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	if err := validateSeeds(withBump[:len(seeds)]); err != nil {
		return nil, 0, err
	}
	if len(withBump) > MaxSeeds {
		return nil, 0, errors.Wrapf(errors.ErrDerivation, "%d seeds, max %d", len(withBump), MaxSeeds)
	}
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{uint8(bump)}
		if addr := hashSeeds(withBump, program); !IsOnCurve(addr) {
			return addr, uint8(bump), nil
		}
	}
	return nil, 0, errors.Wrap(errors.ErrDerivation, "no viable bump")
}

func validateSeeds(seeds [][]byte) error {
	if len(seeds) > MaxSeeds {
		return errors.Wrapf(errors.ErrDerivation, "%d seeds, max %d", len(seeds), MaxSeeds)
	}
	for i, s := range seeds {
		if len(s) > MaxSeedLength {
			return errors.Wrapf(errors.ErrDerivation, "seed %d is %d bytes long", i, len(s))
		}
	}
	return nil
}

func hashSeeds(seeds [][]byte, program mesh.Address) mesh.Address {
	h := sha256.New()
	for _, s := range seeds {
		h.Write(s)
	}
	h.Write(program)
	h.Write(marker)
	return h.Sum(nil)
}

// Verify checks that the address derived from seeds and bump is want.
func Verify(seeds [][]byte, bump uint8, program, want mesh.Address) error {
	withBump := append(append([][]byte{}, seeds...), []byte{bump})
	got, err := CreateProgramAddress(withBump, program)
	if err != nil {
		return err
	}
	if !got.Equals(want) {
		return errors.Wrapf(errors.ErrDerivation, "bump %d derives %s, not %s", bump, got, want)
	}
	return nil
}

// IsOnCurve returns true if b is the encoding of an ed25519 point.
func IsOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
