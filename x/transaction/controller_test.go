package transaction

import (
	"context"
	"testing"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/derivation"
	"github.com/iov-one/mesh/errors"
	"github.com/iov-one/mesh/meshtest"
	"github.com/iov-one/mesh/meshtest/assert"
	"github.com/iov-one/mesh/runtime"
	"github.com/iov-one/mesh/store"
	"github.com/iov-one/mesh/x/multisig"
)

type fixture struct {
	db       mesh.CacheableKVStore
	auth     *meshtest.CtxAuth
	deriver  *derivation.Deriver
	ctrl     *Controller
	msCtrl   *multisig.Controller
	registry mesh.Address
	members  []mesh.Address
	admin    mesh.Address
}

// newFixture creates a registry of n members and given threshold, governed
// by an admin key.
func newFixture(t testing.TB, n int, threshold uint32) *fixture {
	t.Helper()
	deriver, err := derivation.NewDeriver(multisig.ProgramID, 256)
	assert.Nil(t, err)

	f := &fixture{
		db:      store.MemStore(),
		auth:    &meshtest.CtxAuth{Key: "auth"},
		deriver: deriver,
		admin:   meshtest.SequenceAddr(1000),
	}
	for i := 0; i < n; i++ {
		f.members = append(f.members, meshtest.SequenceAddr(uint64(i+1)))
	}
	f.ctrl = NewController(f.auth, deriver)
	f.msCtrl = multisig.NewController(f.auth, deriver)

	f.registry, _, err = f.msCtrl.Create(f.as(f.admin), f.db, multisig.CreateRequest{
		ExternalAuthority: f.admin,
		Threshold:         threshold,
		CreateKey:         meshtest.RandomBytes(t, 32),
		Members:           f.members,
	})
	assert.Nil(t, err)
	return f
}

func (f *fixture) as(signer mesh.Address) mesh.Context {
	return f.auth.SetSigners(context.Background(), signer)
}

func (f *fixture) placeholderTransfer() InstructionRequest {
	return InstructionRequest{
		ProgramID: mesh.NewProgramID("bank"),
		Keys: []runtime.AccountMeta{
			{Pubkey: make(mesh.Address, mesh.AddressLength), IsSigner: true, IsWritable: true},
			{Pubkey: meshtest.SequenceAddr(99), IsWritable: true},
		},
		Data: []byte{1},
	}
}

func TestCreateAllocatesIndexes(t *testing.T) {
	f := newFixture(t, 3, 2)
	alice := f.members[0]

	seen := make(map[string]bool)
	for want := uint32(1); want <= 3; want++ {
		addr, tx, err := f.ctrl.Create(f.as(alice), f.db, f.registry, 1)
		assert.Nil(t, err)
		assert.Equal(t, want, tx.TransactionIndex)
		assert.Equal(t, StatusDraft, tx.Status)
		if seen[string(addr)] {
			t.Fatalf("transaction address %s reused", addr)
		}
		seen[string(addr)] = true

		derived, err := f.deriver.Transaction(f.registry, want)
		assert.Nil(t, err)
		assert.Equal(t, derived.Address, addr)
	}

	ms, err := f.msCtrl.Get(f.db, f.registry)
	assert.Nil(t, err)
	assert.Equal(t, uint32(3), ms.TransactionIndex)

	_, _, err = f.ctrl.Create(f.as(f.admin), f.db, f.registry, 1)
	assert.IsErr(t, errors.ErrUnauthorized, err)

	_, _, err = f.ctrl.Create(f.as(alice), f.db, f.registry, 1<<20)
	assert.IsErr(t, errors.ErrInput, err)
}

func TestLifecycle(t *testing.T) {
	f := newFixture(t, 3, 2)
	alice, bob, carol := f.members[0], f.members[1], f.members[2]

	addr, _, err := f.ctrl.Create(f.as(alice), f.db, f.registry, 1)
	assert.Nil(t, err)

	// Only the creator can append.
	_, _, err = f.ctrl.AddInstruction(f.as(bob), f.db, addr, f.placeholderTransfer())
	assert.IsErr(t, errors.ErrUnauthorized, err)

	for want := uint32(1); want <= 2; want++ {
		seq, ix, err := f.ctrl.AddInstruction(f.as(alice), f.db, addr, f.placeholderTransfer())
		assert.Nil(t, err)
		assert.Equal(t, want, seq)
		assert.Equal(t, uint32(1), ix.AuthorityIndex)
	}

	// Votes are not accepted before activation.
	_, err = f.ctrl.Approve(f.as(bob), f.db, addr)
	assert.IsErr(t, errors.ErrState, err)

	_, err = f.ctrl.Activate(f.as(bob), f.db, addr)
	assert.IsErr(t, errors.ErrUnauthorized, err)
	tx, err := f.ctrl.Activate(f.as(alice), f.db, addr)
	assert.Nil(t, err)
	assert.Equal(t, StatusActive, tx.Status)

	_, _, err = f.ctrl.AddInstruction(f.as(alice), f.db, addr, f.placeholderTransfer())
	assert.IsErr(t, errors.ErrState, err)

	// Approving twice does not count twice.
	tx, err = f.ctrl.Approve(f.as(alice), f.db, addr)
	assert.Nil(t, err)
	tx, err = f.ctrl.Approve(f.as(alice), f.db, addr)
	assert.Nil(t, err)
	assert.Equal(t, StatusActive, tx.Status)
	assert.Equal(t, 1, len(tx.Approved))

	// Non members cannot vote.
	_, err = f.ctrl.Approve(f.as(f.admin), f.db, addr)
	assert.IsErr(t, errors.ErrUnauthorized, err)

	// Rejection withdraws the approval.
	tx, err = f.ctrl.Reject(f.as(alice), f.db, addr)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(tx.Approved))
	assert.Equal(t, 1, len(tx.Rejected))
	assert.Equal(t, StatusActive, tx.Status)

	tx, err = f.ctrl.Approve(f.as(bob), f.db, addr)
	assert.Nil(t, err)
	assert.Equal(t, StatusActive, tx.Status)
	tx, err = f.ctrl.Approve(f.as(carol), f.db, addr)
	assert.Nil(t, err)
	assert.Equal(t, StatusExecuteReady, tx.Status)
	assert.Equal(t, 2, len(tx.Approved))

	_, err = f.ctrl.Cancel(f.as(alice), f.db, addr)
	assert.IsErr(t, errors.ErrState, err)
	_, err = f.ctrl.Reject(f.as(alice), f.db, addr)
	assert.IsErr(t, errors.ErrState, err)

	stored, err := f.ctrl.Get(f.db, addr)
	assert.Nil(t, err)
	assert.Equal(t, tx, stored)
}

func TestReject(t *testing.T) {
	// With 4 members and threshold 3 a single rejection leaves the
	// quorum reachable, two do not.
	f := newFixture(t, 4, 3)
	addr, _, err := f.ctrl.Create(f.as(f.members[0]), f.db, f.registry, 1)
	assert.Nil(t, err)
	_, err = f.ctrl.Activate(f.as(f.members[0]), f.db, addr)
	assert.Nil(t, err)

	tx, err := f.ctrl.Reject(f.as(f.members[1]), f.db, addr)
	assert.Nil(t, err)
	assert.Equal(t, StatusActive, tx.Status)

	tx, err = f.ctrl.Reject(f.as(f.members[2]), f.db, addr)
	assert.Nil(t, err)
	assert.Equal(t, StatusRejected, tx.Status)

	_, err = f.ctrl.Approve(f.as(f.members[3]), f.db, addr)
	assert.IsErr(t, errors.ErrState, err)
}

func TestCancel(t *testing.T) {
	f := newFixture(t, 2, 1)
	alice, bob := f.members[0], f.members[1]

	draft, _, err := f.ctrl.Create(f.as(alice), f.db, f.registry, 1)
	assert.Nil(t, err)
	_, err = f.ctrl.Cancel(f.as(bob), f.db, draft)
	assert.IsErr(t, errors.ErrUnauthorized, err)
	tx, err := f.ctrl.Cancel(f.as(alice), f.db, draft)
	assert.Nil(t, err)
	assert.Equal(t, StatusCancelled, tx.Status)
	_, err = f.ctrl.Cancel(f.as(alice), f.db, draft)
	assert.IsErr(t, errors.ErrState, err)

	active, _, err := f.ctrl.Create(f.as(alice), f.db, f.registry, 1)
	assert.Nil(t, err)
	_, err = f.ctrl.Activate(f.as(alice), f.db, active)
	assert.Nil(t, err)
	tx, err = f.ctrl.Cancel(f.as(alice), f.db, active)
	assert.Nil(t, err)
	assert.Equal(t, StatusCancelled, tx.Status)
}

func TestMembershipChangeDeprecatesPendingTransactions(t *testing.T) {
	f := newFixture(t, 3, 2)
	alice := f.members[0]

	pending, _, err := f.ctrl.Create(f.as(alice), f.db, f.registry, 1)
	assert.Nil(t, err)
	_, err = f.ctrl.Activate(f.as(alice), f.db, pending)
	assert.Nil(t, err)

	_, err = f.msCtrl.ChangeThreshold(f.as(f.admin), f.db, f.registry, 3)
	assert.Nil(t, err)

	_, err = f.ctrl.Approve(f.as(alice), f.db, pending)
	assert.IsErr(t, errors.ErrState, err)

	fresh, _, err := f.ctrl.Create(f.as(alice), f.db, f.registry, 1)
	assert.Nil(t, err)
	_, err = f.ctrl.Activate(f.as(alice), f.db, fresh)
	assert.Nil(t, err)
	_, err = f.ctrl.Approve(f.as(alice), f.db, fresh)
	assert.Nil(t, err)
}

func TestCheckQuorum(t *testing.T) {
	a := meshtest.SequenceAddr(1)
	b := meshtest.SequenceAddr(2)
	c := meshtest.SequenceAddr(3)

	ms := &multisig.Multisig{Keys: multisig.SortMembers([]mesh.Address{a, b}), Threshold: 2}
	tx := &Transaction{}
	tx.Approved, _ = insert(tx.Approved, a)
	tx.Approved, _ = insert(tx.Approved, c)
	assert.IsErr(t, errors.ErrUnauthorized, CheckQuorum(tx, ms))

	tx.Approved, _ = insert(tx.Approved, b)
	assert.Nil(t, CheckQuorum(tx, ms))
}
