package sigs

import (
	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/crypto"
	"github.com/iov-one/mesh/errors"
	"github.com/iov-one/mesh/orm"
)

// BucketName is where we store the accounts
const BucketName = "sigs"

// maxSequenceValue keeps nonces representable as JSON numbers.
const maxSequenceValue = (1 << 53) - 1

// UserData is the replay protection state of a single key.
type UserData struct {
	Sequence uint64
}

var _ orm.Model = (*UserData)(nil)

func (u *UserData) Validate() error {
	if u.Sequence > maxSequenceValue {
		return errors.Wrap(ErrInvalidSequence, "out of range")
	}
	return nil
}

// CheckAndIncrementSequence implements check and increment operation.
// If current sequence value is the same as given expected value then it is
// incremented. Otherwise an error is returned.
func (u *UserData) CheckAndIncrementSequence(expected uint64) error {
	if u.Sequence != expected {
		return errors.Wrapf(ErrInvalidSequence, "mismatch expected %d, got %d", expected, u.Sequence)
	}
	next := u.Sequence + 1
	if next > maxSequenceValue {
		return errors.Wrap(errors.ErrOverflow, "sequence out of range")
	}
	u.Sequence = next
	return nil
}

// Signature is one signature over a request.
type Signature struct {
	Pubkey    crypto.PublicKey
	Signature []byte
	Sequence  uint64
}

// Validate ensures the signature is well formed. It is not verified.
func (s *Signature) Validate() error {
	if err := mesh.Address(s.Pubkey).Validate(); err != nil {
		return errors.Wrap(err, "pubkey")
	}
	if len(s.Signature) == 0 {
		return errors.Wrap(errors.ErrUnauthorized, "missing signature")
	}
	if s.Sequence > maxSequenceValue {
		return errors.Wrap(ErrInvalidSequence, "out of range")
	}
	return nil
}

// Bucket stores UserData under the key address.
type Bucket struct {
	orm.Bucket
}

// NewBucket returns a bucket for nonces.
func NewBucket() Bucket {
	return Bucket{Bucket: orm.NewBucket(BucketName)}
}

// GetOrCreate returns the state of given key. Unknown keys start with
// sequence zero.
func (b Bucket) GetOrCreate(db mesh.ReadOnlyKVStore, addr mesh.Address) (*UserData, error) {
	var u UserData
	switch err := b.One(db, addr, &u); {
	case err == nil:
		return &u, nil
	case errors.ErrNotFound.Is(err):
		return &UserData{}, nil
	default:
		return nil, err
	}
}

// NextSequence returns the sequence the next signature of addr must use.
func NextSequence(db mesh.ReadOnlyKVStore, addr mesh.Address) (uint64, error) {
	u, err := NewBucket().GetOrCreate(db, addr)
	if err != nil {
		return 0, err
	}
	return u.Sequence, nil
}
