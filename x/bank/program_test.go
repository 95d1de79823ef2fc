package bank

import (
	"context"
	"testing"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
	"github.com/iov-one/mesh/meshtest"
	"github.com/iov-one/mesh/meshtest/assert"
	"github.com/iov-one/mesh/runtime"
	"github.com/iov-one/mesh/store"
)

func TestIssueAndTransfer(t *testing.T) {
	db := store.MemStore()
	alice := meshtest.SequenceAddr(1)
	bob := meshtest.SequenceAddr(2)

	assert.Nil(t, Issue(db, alice, 100))
	assert.IsErr(t, errors.ErrOverflow, Issue(db, alice, ^uint64(0)))
	assert.IsErr(t, errors.ErrAmount, Transfer(db, alice, bob, 101))

	assert.Nil(t, Transfer(db, alice, bob, 100))
	got, err := BalanceOf(db, alice)
	assert.Nil(t, err)
	assert.Equal(t, uint64(0), got)
	got, err = BalanceOf(db, bob)
	assert.Nil(t, err)
	assert.Equal(t, uint64(100), got)

	// Empty balances are not stored.
	ok, err := NewBucket().Has(db, alice)
	assert.Nil(t, err)
	assert.Equal(t, false, ok)
}

func TestProgram(t *testing.T) {
	alice := meshtest.SequenceAddr(1)
	bob := meshtest.SequenceAddr(2)

	router := runtime.NewRouter()
	router.Register(ProgramID, NewProgram())

	accounts, data, err := TransferInstruction(alice, bob, 40)
	assert.Nil(t, err)

	cases := map[string]struct {
		op      runtime.Operation
		wantErr *errors.Error
	}{
		"signed transfer": {
			op: runtime.Operation{Program: ProgramID, Accounts: accounts, Data: data, Signers: []mesh.Address{alice}},
		},
		"unsigned transfer": {
			op:      runtime.Operation{Program: ProgramID, Accounts: accounts, Data: data},
			wantErr: errors.ErrUnauthorized,
		},
		"missing destination": {
			op:      runtime.Operation{Program: ProgramID, Accounts: accounts[:1], Data: data, Signers: []mesh.Address{alice}},
			wantErr: errors.ErrInput,
		},
		"broken payload": {
			op:      runtime.Operation{Program: ProgramID, Accounts: accounts, Data: []byte{0xff, 0xff}, Signers: []mesh.Address{alice}},
			wantErr: errors.ErrModel,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			assert.Nil(t, Issue(db, alice, 100))

			err := router.Execute(context.Background(), db, []runtime.Operation{tc.op})
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
			want := uint64(100)
			if tc.wantErr == nil {
				want = 60
			}
			got, err := BalanceOf(db, alice)
			assert.Nil(t, err)
			assert.Equal(t, want, got)
		})
	}

	_, _, err = TransferInstruction(alice, bob, 0)
	assert.IsErr(t, errors.ErrAmount, err)
}
