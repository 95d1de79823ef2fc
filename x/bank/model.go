package bank

import (
	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
	"github.com/iov-one/mesh/orm"
)

// BucketName is where we store the balances.
const BucketName = "balance"

// ProgramID is the address of the transfer program.
var ProgramID = mesh.NewProgramID("bank")

// Balance is the amount owned by an address.
type Balance struct {
	Amount uint64
}

var _ orm.Model = (*Balance)(nil)

func (b *Balance) Validate() error {
	return nil
}

// TransferMsg is the payload of a transfer instruction.
type TransferMsg struct {
	Amount uint64
}

func (m *TransferMsg) Validate() error {
	if m.Amount == 0 {
		return errors.Wrap(errors.ErrAmount, "amount must be positive")
	}
	return nil
}

// Bucket stores balances under the owner address.
type Bucket struct {
	orm.Bucket
}

// NewBucket returns a bucket for balances.
func NewBucket() Bucket {
	return Bucket{Bucket: orm.NewBucket(BucketName)}
}

// Balance returns the amount owned by addr. Unknown addresses own nothing.
func (b Bucket) Balance(db mesh.ReadOnlyKVStore, addr mesh.Address) (uint64, error) {
	var bal Balance
	switch err := b.One(db, addr, &bal); {
	case errors.ErrNotFound.Is(err):
		return 0, nil
	case err != nil:
		return 0, err
	}
	return bal.Amount, nil
}

func (b Bucket) setBalance(db mesh.KVStore, addr mesh.Address, amount uint64) error {
	if amount == 0 {
		switch err := b.Delete(db, addr); {
		case errors.ErrNotFound.Is(err):
			return nil
		default:
			return err
		}
	}
	return b.Put(db, addr, &Balance{Amount: amount})
}
