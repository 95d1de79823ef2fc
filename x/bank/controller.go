package bank

import (
	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
)

// Issue creates amount and credits it to addr.
func Issue(db mesh.KVStore, addr mesh.Address, amount uint64) error {
	if err := addr.Validate(); err != nil {
		return err
	}
	b := NewBucket()
	bal, err := b.Balance(db, addr)
	if err != nil {
		return err
	}
	if bal+amount < bal {
		return errors.Wrap(errors.ErrOverflow, "balance")
	}
	return b.setBalance(db, addr, bal+amount)
}

// BalanceOf returns the amount owned by addr.
func BalanceOf(db mesh.ReadOnlyKVStore, addr mesh.Address) (uint64, error) {
	return NewBucket().Balance(db, addr)
}

// Transfer moves amount from one address to another.
func Transfer(db mesh.KVStore, from, to mesh.Address, amount uint64) error {
	b := NewBucket()
	src, err := b.Balance(db, from)
	if err != nil {
		return err
	}
	if src < amount {
		return errors.Wrapf(errors.ErrAmount, "balance %d, need %d", src, amount)
	}
	if err := b.setBalance(db, from, src-amount); err != nil {
		return err
	}
	dst, err := b.Balance(db, to)
	if err != nil {
		return err
	}
	if dst+amount < dst {
		return errors.Wrap(errors.ErrOverflow, "balance")
	}
	return b.setBalance(db, to, dst+amount)
}
