package execution

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
	"github.com/iov-one/mesh/x/bank"
	"github.com/iov-one/mesh/x/multisig"
	"github.com/iov-one/mesh/x/transaction"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fixture struct {
	db       mesh.CacheableKVStore
	auth     *meshtest.CtxAuth
	deriver  *derivation.Deriver
	txs      *transaction.Controller
	msCtrl   *multisig.Controller
	engine   *Engine
	registry mesh.Address
	members  []mesh.Address
}

// newFixture creates a registry of n members. When admin is nil the
// registry governs itself through its vault 0.
func newFixture(t testing.TB, n int, threshold uint32, admin mesh.Address) *fixture {
	t.Helper()
	deriver, err := derivation.NewDeriver(multisig.ProgramID, 256)
	assert.Nil(t, err)

	router := runtime.NewRouter()
	router.Register(bank.ProgramID, bank.NewProgram())
	router.Register(multisig.ProgramID, multisig.NewProgram(deriver))

	f := &fixture{
		db:      store.MemStore(),
		auth:    &meshtest.CtxAuth{Key: "auth"},
		deriver: deriver,
	}
	for i := 0; i < n; i++ {
		f.members = append(f.members, meshtest.SequenceAddr(uint64(i+1)))
	}
	f.txs = transaction.NewController(f.auth, deriver)
	f.msCtrl = multisig.NewController(f.auth, deriver)
	f.engine, err = NewEngine(f.auth, f.txs, router, prometheus.NewRegistry())
	assert.Nil(t, err)

	f.registry, _, err = f.msCtrl.Create(f.as(f.members[0]), f.db, multisig.CreateRequest{
		ExternalAuthority: admin,
		Threshold:         threshold,
		CreateKey:         meshtest.RandomBytes(t, 32),
		Members:           f.members,
	})
	assert.Nil(t, err)
	return f
}

func (f *fixture) as(signers ...mesh.Address) mesh.Context {
	return f.auth.SetSigners(context.Background(), signers...)
}

func (f *fixture) vault(t testing.TB, index uint32) mesh.Address {
	t.Helper()
	v, err := f.deriver.Vault(f.registry, index)
	assert.Nil(t, err)
	return v.Address
}

// propose creates a transaction with given instructions and votes it to
// ExecuteReady.
func (f *fixture) propose(t testing.TB, authorityIndex uint32, reqs ...transaction.InstructionRequest) mesh.Address {
	t.Helper()
	creator := f.members[0]
	addr, _, err := f.txs.Create(f.as(creator), f.db, f.registry, authorityIndex)
	assert.Nil(t, err)
	for _, r := range reqs {
		_, _, err := f.txs.AddInstruction(f.as(creator), f.db, addr, r)
		assert.Nil(t, err)
	}
	f.approve(t, addr)
	return addr
}

func (f *fixture) approve(t testing.TB, addr mesh.Address) {
	t.Helper()
	_, err := f.txs.Activate(f.as(f.members[0]), f.db, addr)
	assert.Nil(t, err)
	ms, err := f.msCtrl.Get(f.db, f.registry)
	assert.Nil(t, err)
	for _, m := range f.members[:ms.Threshold] {
		_, err := f.txs.Approve(f.as(m), f.db, addr)
		assert.Nil(t, err)
	}
}

func transfer(t testing.TB, from, to mesh.Address, amount uint64) transaction.InstructionRequest {
	t.Helper()
	keys, data, err := bank.TransferInstruction(from, to, amount)
	assert.Nil(t, err)
	return transaction.InstructionRequest{ProgramID: bank.ProgramID, Keys: keys, Data: data}
}

func u32(n uint32) *uint32 { return &n }

func balance(t testing.TB, db mesh.ReadOnlyKVStore, addr mesh.Address) uint64 {
	t.Helper()
	b, err := bank.BalanceOf(db, addr)
	assert.Nil(t, err)
	return b
}

func TestExecuteVaultTransfer(t *testing.T) {
	f := newFixture(t, 3, 2, nil)
	vault := f.vault(t, 1)
	recipient := meshtest.SequenceAddr(99)
	assert.Nil(t, bank.Issue(f.db, vault, 100))

	txAddr := f.propose(t, 1, transfer(t, bank.Placeholder(), recipient, 30))

	tx, err := f.engine.Execute(f.as(f.members[2]), f.db, txAddr)
	assert.Nil(t, err)
	assert.Equal(t, transaction.StatusExecuted, tx.Status)
	assert.Equal(t, uint64(70), balance(t, f.db, vault))
	assert.Equal(t, uint64(30), balance(t, f.db, recipient))

	_, ix, err := f.txs.Instruction(f.db, txAddr, 1)
	assert.Nil(t, err)
	assert.Equal(t, true, ix.Executed)

	// Executing twice is not possible.
	_, err = f.engine.Execute(f.as(f.members[2]), f.db, txAddr)
	assert.IsErr(t, errors.ErrState, err)
	assert.Equal(t, uint64(30), balance(t, f.db, recipient))

	assert.Equal(t, float64(1), testutil.ToFloat64(f.engine.metrics.executions.WithLabelValues(outcomeExecuted)))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.engine.metrics.executions.WithLabelValues(outcomeRefused)))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.engine.metrics.instructions))
}

func TestExecuteTwoVaults(t *testing.T) {
	f := newFixture(t, 2, 2, nil)
	v1, v2 := f.vault(t, 1), f.vault(t, 2)
	recipient := meshtest.SequenceAddr(99)
	assert.Nil(t, bank.Issue(f.db, v1, 10))
	assert.Nil(t, bank.Issue(f.db, v2, 20))

	second := transfer(t, bank.Placeholder(), recipient, 20)
	second.AuthorityIndex = u32(2)
	txAddr := f.propose(t, 1, transfer(t, bank.Placeholder(), recipient, 10), second)

	_, err := f.engine.Execute(f.as(f.members[0]), f.db, txAddr)
	assert.Nil(t, err)
	assert.Equal(t, uint64(0), balance(t, f.db, v1))
	assert.Equal(t, uint64(0), balance(t, f.db, v2))
	assert.Equal(t, uint64(30), balance(t, f.db, recipient))
}

func TestExecuteCustomAuthority(t *testing.T) {
	f := newFixture(t, 2, 1, nil)
	vault, target := f.vault(t, 1), f.vault(t, 2)
	assert.Nil(t, bank.Issue(f.db, vault, 100))

	creator := f.members[0]
	txAddr, _, err := f.txs.Create(f.as(creator), f.db, f.registry, 1)
	assert.Nil(t, err)
	custom, err := f.deriver.InstructionAuthority(txAddr, 2)
	assert.Nil(t, err)

	// Vault 1 funds the authority of the second instruction, which then
	// pays vault 2.
	_, _, err = f.txs.AddInstruction(f.as(creator), f.db, txAddr, transfer(t, bank.Placeholder(), custom.Address, 60))
	assert.Nil(t, err)
	chained := transfer(t, bank.Placeholder(), target, 60)
	chained.AuthorityType = transaction.AuthorityCustom
	chained.AuthorityIndex = u32(2)
	_, _, err = f.txs.AddInstruction(f.as(creator), f.db, txAddr, chained)
	assert.Nil(t, err)
	f.approve(t, txAddr)

	_, err = f.engine.Execute(f.as(creator), f.db, txAddr)
	assert.Nil(t, err)
	assert.Equal(t, uint64(40), balance(t, f.db, vault))
	assert.Equal(t, uint64(0), balance(t, f.db, custom.Address))
	assert.Equal(t, uint64(60), balance(t, f.db, target))
}

func TestExecuteIsAllOrNothing(t *testing.T) {
	f := newFixture(t, 2, 1, nil)
	vault := f.vault(t, 1)
	recipient := meshtest.SequenceAddr(99)
	assert.Nil(t, bank.Issue(f.db, vault, 50))

	txAddr := f.propose(t, 1,
		transfer(t, bank.Placeholder(), recipient, 50),
		transfer(t, bank.Placeholder(), recipient, 1),
	)

	_, err := f.engine.Execute(f.as(f.members[0]), f.db, txAddr)
	assert.IsErr(t, errors.ErrExecution, err)
	assert.IsErr(t, errors.ErrAmount, errors.Reason(err))
	assert.Equal(t, errors.ErrExecution.Code(), errors.Code(err))
	assert.Equal(t, uint64(50), balance(t, f.db, vault))
	assert.Equal(t, uint64(0), balance(t, f.db, recipient))

	tx, err := f.txs.Get(f.db, txAddr)
	assert.Nil(t, err)
	assert.Equal(t, transaction.StatusExecuteReady, tx.Status)
	_, ix, err := f.txs.Instruction(f.db, txAddr, 1)
	assert.Nil(t, err)
	assert.Equal(t, false, ix.Executed)

	// Once the vault is funded the same transaction can be executed.
	assert.Nil(t, bank.Issue(f.db, vault, 1))
	_, err = f.engine.Execute(f.as(f.members[0]), f.db, txAddr)
	assert.Nil(t, err)
	assert.Equal(t, uint64(51), balance(t, f.db, recipient))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.engine.metrics.executions.WithLabelValues(outcomeFailed)))
}

func TestExecuteCancelledContext(t *testing.T) {
	f := newFixture(t, 2, 1, nil)
	vault := f.vault(t, 1)
	assert.Nil(t, bank.Issue(f.db, vault, 10))
	txAddr := f.propose(t, 1, transfer(t, bank.Placeholder(), meshtest.SequenceAddr(99), 10))

	ctx, cancel := context.WithCancel(f.as(f.members[0]))
	cancel()
	_, err := f.engine.Execute(ctx, f.db, txAddr)
	assert.IsErr(t, errors.ErrExecution, err)
	assert.IsErr(t, errors.ErrTimeout, err)

	tx, err := f.txs.Get(f.db, txAddr)
	assert.Nil(t, err)
	assert.Equal(t, transaction.StatusExecuteReady, tx.Status)
	assert.Equal(t, uint64(10), balance(t, f.db, vault))
}

func TestExecuteAuthorization(t *testing.T) {
	f := newFixture(t, 3, 2, nil)
	outsider := meshtest.SequenceAddr(500)
	txAddr := f.propose(t, 1)

	_, err := f.engine.Execute(f.as(outsider), f.db, txAddr)
	assert.IsErr(t, errors.ErrUnauthorized, err)

	draft, _, err := f.txs.Create(f.as(f.members[0]), f.db, f.registry, 1)
	assert.Nil(t, err)
	_, err = f.engine.Execute(f.as(f.members[0]), f.db, draft)
	assert.IsErr(t, errors.ErrState, err)

	// Registries may open execution to anyone.
	ms, err := f.msCtrl.Get(f.db, f.registry)
	assert.Nil(t, err)
	ms.AllowExternalExecute = true
	assert.Nil(t, f.msCtrl.Save(f.db, f.registry, ms))

	tx, err := f.engine.Execute(f.as(outsider), f.db, txAddr)
	assert.Nil(t, err)
	assert.Equal(t, transaction.StatusExecuted, tx.Status)
}

func TestExecuteRevalidatesQuorum(t *testing.T) {
	admin := meshtest.SequenceAddr(1000)
	f := newFixture(t, 3, 2, admin)
	txAddr := f.propose(t, 1)

	// One of the approvers leaves before execution.
	_, err := f.msCtrl.RemoveMember(f.as(admin), f.db, f.registry, f.members[1])
	assert.Nil(t, err)

	_, err = f.engine.Execute(f.as(f.members[0]), f.db, txAddr)
	assert.IsErr(t, errors.ErrUnauthorized, err)
	tx, err := f.txs.Get(f.db, txAddr)
	assert.Nil(t, err)
	assert.Equal(t, transaction.StatusExecuteReady, tx.Status)

	_, err = f.msCtrl.ChangeThreshold(f.as(admin), f.db, f.registry, 1)
	assert.Nil(t, err)
	_, err = f.engine.Execute(f.as(f.members[0]), f.db, txAddr)
	assert.Nil(t, err)
}

func TestGovernanceThroughQuorum(t *testing.T) {
	f := newFixture(t, 3, 2, nil)
	leaving := f.members[2]

	keys, data, err := multisig.Instruction(f.registry, &multisig.RemoveMemberMsg{Member: leaving})
	assert.Nil(t, err)
	removal := transaction.InstructionRequest{ProgramID: multisig.ProgramID, Keys: keys, Data: data}

	// Only vault 0 is the external authority of the registry.
	wrongVault, _, err := f.txs.Create(f.as(f.members[0]), f.db, f.registry, 1)
	assert.Nil(t, err)
	_, _, err = f.txs.AddInstruction(f.as(f.members[0]), f.db, wrongVault, removal)
	assert.IsErr(t, errors.ErrUnauthorized, err)

	txAddr := f.propose(t, 0, removal)
	_, err = f.engine.Execute(f.as(f.members[0]), f.db, txAddr)
	assert.Nil(t, err)

	ms, err := f.msCtrl.Get(f.db, f.registry)
	assert.Nil(t, err)
	assert.Equal(t, 2, len(ms.Keys))
	assert.Equal(t, false, ms.IsMember(leaving))
	tx, err := f.txs.Get(f.db, txAddr)
	assert.Nil(t, err)
	assert.Equal(t, tx.TransactionIndex, ms.ChangeIndex)
}

func TestExecuteInstruction(t *testing.T) {
	f := newFixture(t, 2, 1, nil)
	vault := f.vault(t, 1)
	recipient := meshtest.SequenceAddr(99)
	assert.Nil(t, bank.Issue(f.db, vault, 30))

	txAddr := f.propose(t, 1,
		transfer(t, bank.Placeholder(), recipient, 10),
		transfer(t, bank.Placeholder(), recipient, 20),
	)
	ctx := f.as(f.members[0])

	tx, err := f.engine.ExecuteInstruction(ctx, f.db, txAddr)
	assert.Nil(t, err)
	assert.Equal(t, uint32(1), tx.ExecutedIndex)
	assert.Equal(t, transaction.StatusExecuteReady, tx.Status)
	assert.Equal(t, uint64(10), balance(t, f.db, recipient))

	// A batch execution cannot take over a started sequence.
	_, err = f.engine.Execute(ctx, f.db, txAddr)
	assert.IsErr(t, errors.ErrState, err)

	tx, err = f.engine.ExecuteInstruction(ctx, f.db, txAddr)
	assert.Nil(t, err)
	assert.Equal(t, uint32(2), tx.ExecutedIndex)
	assert.Equal(t, transaction.StatusExecuted, tx.Status)
	assert.Equal(t, uint64(30), balance(t, f.db, recipient))

	_, err = f.engine.ExecuteInstruction(ctx, f.db, txAddr)
	assert.IsErr(t, errors.ErrState, err)
}

func TestExecuteInstructionAfterGovernanceChange(t *testing.T) {
	f := newFixture(t, 3, 2, nil)
	vault := f.vault(t, 0)
	recipient := meshtest.SequenceAddr(99)
	assert.Nil(t, bank.Issue(f.db, vault, 10))

	keys, data, err := multisig.Instruction(f.registry, &multisig.ChangeThresholdMsg{Threshold: 3})
	assert.Nil(t, err)
	raise := transaction.InstructionRequest{ProgramID: multisig.ProgramID, Keys: keys, Data: data}
	txAddr := f.propose(t, 0, raise, transfer(t, bank.Placeholder(), recipient, 10))
	ctx := f.as(f.members[0])

	tx, err := f.engine.ExecuteInstruction(ctx, f.db, txAddr)
	assert.Nil(t, err)
	assert.Equal(t, uint32(1), tx.ExecutedIndex)
	ms, err := f.msCtrl.Get(f.db, f.registry)
	assert.Nil(t, err)
	assert.Equal(t, uint32(3), ms.Threshold)

	// Two approvals no longer meet the threshold, but the sequence already
	// started under the old one and must be able to finish.
	tx, err = f.engine.ExecuteInstruction(ctx, f.db, txAddr)
	assert.Nil(t, err)
	assert.Equal(t, transaction.StatusExecuted, tx.Status)
	assert.Equal(t, uint64(10), balance(t, f.db, recipient))
	assert.Equal(t, uint64(0), balance(t, f.db, vault))
}

func TestExecuteEmptyTransaction(t *testing.T) {
	f := newFixture(t, 1, 1, nil)
	txAddr := f.propose(t, 1)

	tx, err := f.engine.ExecuteInstruction(f.as(f.members[0]), f.db, txAddr)
	assert.Nil(t, err)
	assert.Equal(t, transaction.StatusExecuted, tx.Status)
}

func TestSubstitute(t *testing.T) {
	signer := meshtest.SequenceAddr(1)
	other := meshtest.SequenceAddr(2)

	op := runtime.Operation{
		Program: bank.ProgramID,
		Accounts: []runtime.AccountMeta{
			{Pubkey: bank.Placeholder(), IsSigner: true, IsWritable: true},
			{Pubkey: other, IsWritable: true},
		},
	}
	got, err := Substitute(op, []mesh.Address{signer})
	assert.Nil(t, err)
	assert.Equal(t, signer, got.Accounts[0].Pubkey)
	assert.Equal(t, other, got.Accounts[1].Pubkey)
	assert.Equal(t, []mesh.Address{signer}, got.Signers)

	op.Accounts[1].IsSigner = true
	_, err = Substitute(op, []mesh.Address{signer})
	assert.IsErr(t, errors.ErrUnauthorized, err)

	_, err = Substitute(op, nil)
	assert.IsErr(t, errors.ErrDerivation, err)
}
