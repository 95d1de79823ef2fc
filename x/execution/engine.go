package execution

import (
	"time"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
	"github.com/iov-one/mesh/runtime"
	"github.com/iov-one/mesh/x"
	"github.com/iov-one/mesh/x/multisig"
	"github.com/iov-one/mesh/x/transaction"
	"github.com/iov-one/mesh/x/utils"
	"github.com/prometheus/client_golang/prometheus"
)

// Engine executes transactions that reached their quorum.
type Engine struct {
	auth       x.Authenticator
	txs        *transaction.Controller
	registries multisig.Bucket
	runtime    runtime.Runtime
	metrics    *metrics
}

// NewEngine returns an engine that runs instructions with rt. Metrics are
// registered with registerer.
func NewEngine(auth x.Authenticator, txs *transaction.Controller, rt runtime.Runtime, registerer prometheus.Registerer) (*Engine, error) {
	m, err := newMetrics(registerer)
	if err != nil {
		return nil, errors.Wrap(errors.ErrHuman, err.Error())
	}
	return &Engine{
		auth:       auth,
		txs:        txs,
		registries: multisig.NewBucket(),
		runtime:    rt,
		metrics:    m,
	}, nil
}

// Execute runs all instructions of the transaction as one batch. The
// transaction is marked Executed only if every instruction succeeded. A
// failed batch, including one interrupted by ctx, writes nothing and is
// reported as ErrExecution. The runtime error stays reachable with
// errors.Reason and is matched by Is.
func (e *Engine) Execute(ctx mesh.Context, db mesh.KVStore, txAddr mesh.Address) (*transaction.Transaction, error) {
	tx, ixs, err := e.prepare(ctx, db, txAddr)
	if err != nil {
		e.metrics.refused()
		return nil, err
	}
	if tx.ExecutedIndex != 0 {
		e.metrics.refused()
		return nil, errors.Wrapf(errors.ErrState, "sequential execution at instruction %d", tx.ExecutedIndex)
	}

	ops := make([]runtime.Operation, 0, len(ixs))
	for _, ix := range ixs {
		op, err := e.operation(txAddr, tx, ix)
		if err != nil {
			e.metrics.refused()
			return nil, err
		}
		ops = append(ops, op)
	}

	start := time.Now()
	err = utils.InSavepoint(db, func(db mesh.KVStore) error {
		if err := e.runtime.Execute(ctx, db, ops); err != nil {
			return errors.WrapReason(errors.ErrExecution, err)
		}
		for _, ix := range ixs {
			ix.Executed = true
			if err := e.txs.SaveInstruction(db, txAddr, ix); err != nil {
				return err
			}
		}
		tx.ExecutedIndex = tx.InstructionIndex
		tx.Status = transaction.StatusExecuted
		return e.txs.Save(db, txAddr, tx)
	})
	e.metrics.observe(start, len(ops), err)
	if err != nil {
		mesh.GetLogger(ctx).Error("execution failed", "transaction", txAddr, "err", err)
		return nil, err
	}
	mesh.GetLogger(ctx).Info("transaction executed", "transaction", txAddr, "instructions", len(ops))
	return tx, nil
}

// ExecuteInstruction runs the next not yet executed instruction of the
// transaction. The transaction is marked Executed together with its last
// instruction. A transaction without instructions is marked Executed
// straight away.
func (e *Engine) ExecuteInstruction(ctx mesh.Context, db mesh.KVStore, txAddr mesh.Address) (*transaction.Transaction, error) {
	tx, _, err := e.prepare(ctx, db, txAddr)
	if err != nil {
		e.metrics.refused()
		return nil, err
	}

	start := time.Now()
	var executed int
	err = utils.InSavepoint(db, func(db mesh.KVStore) error {
		if tx.ExecutedIndex < tx.InstructionIndex {
			_, ix, err := e.txs.Instruction(db, txAddr, tx.ExecutedIndex+1)
			if err != nil {
				return err
			}
			op, err := e.operation(txAddr, tx, ix)
			if err != nil {
				return err
			}
			if err := e.runtime.Execute(ctx, db, []runtime.Operation{op}); err != nil {
				return errors.Wrapf(errors.WrapReason(errors.ErrExecution, err), "instruction %d", ix.InstructionIndex)
			}
			ix.Executed = true
			if err := e.txs.SaveInstruction(db, txAddr, ix); err != nil {
				return err
			}
			tx.ExecutedIndex = ix.InstructionIndex
			executed = 1
		}
		if tx.ExecutedIndex == tx.InstructionIndex {
			tx.Status = transaction.StatusExecuted
		}
		return e.txs.Save(db, txAddr, tx)
	})
	e.metrics.observe(start, executed, err)
	if err != nil {
		return nil, err
	}
	mesh.GetLogger(ctx).Info("instruction executed",
		"transaction", txAddr,
		"instruction", tx.ExecutedIndex,
		"status", tx.Status)
	return tx, nil
}

// prepare loads the transaction and checks that it may be executed by the
// current signers.
func (e *Engine) prepare(ctx mesh.Context, db mesh.KVStore, txAddr mesh.Address) (*transaction.Transaction, []*transaction.Instruction, error) {
	tx, err := e.txs.Get(db, txAddr)
	if err != nil {
		return nil, nil, err
	}
	if tx.Status != transaction.StatusExecuteReady {
		return nil, nil, errors.Wrapf(errors.ErrState, "transaction is %s", tx.Status)
	}
	ms, err := e.registries.GetMultisig(db, tx.Multisig)
	if err != nil {
		return nil, nil, err
	}
	if !ms.AllowExternalExecute && !e.isMemberSigned(ctx, ms) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "executor is not a member")
	}
	// The quorum is consumed when execution starts. Later steps of a
	// sequential execution must not depend on governance changes made by
	// earlier instructions.
	if tx.ExecutedIndex == 0 {
		if err := transaction.CheckQuorum(tx, ms); err != nil {
			return nil, nil, err
		}
	}
	ixs, err := e.txs.Instructions(db, txAddr, tx)
	if err != nil {
		return nil, nil, err
	}
	return tx, ixs, nil
}

func (e *Engine) isMemberSigned(ctx mesh.Context, ms *multisig.Multisig) bool {
	for _, s := range e.auth.GetSigners(ctx) {
		if ms.IsMember(s) {
			return true
		}
	}
	return false
}

// operation builds the signed runtime operation of an instruction.
func (e *Engine) operation(txAddr mesh.Address, tx *transaction.Transaction, ix *transaction.Instruction) (runtime.Operation, error) {
	signers, err := e.txs.Signers(txAddr, tx, ix)
	if err != nil {
		return runtime.Operation{}, err
	}
	op, err := Substitute(ix.Operation(), signers)
	if err != nil {
		return runtime.Operation{}, errors.Wrapf(err, "instruction %d", ix.InstructionIndex)
	}
	return op, nil
}

// Substitute replaces every placeholder account of op with the first
// signer and attaches the signers. Any other account that must sign has to
// be one of the signers.
func Substitute(op runtime.Operation, signers []mesh.Address) (runtime.Operation, error) {
	if len(signers) == 0 {
		return op, errors.Wrap(errors.ErrDerivation, "no signers")
	}
	accounts := make([]runtime.AccountMeta, len(op.Accounts))
	for i, a := range op.Accounts {
		if transaction.IsPlaceholder(a.Pubkey) {
			a.Pubkey = signers[0].Clone()
		} else if a.IsSigner && !hasAddress(signers, a.Pubkey) {
			return op, errors.Wrapf(errors.ErrUnauthorized, "account %d cannot be signed for", i)
		}
		accounts[i] = a
	}
	op.Accounts = accounts
	op.Signers = signers
	return op, nil
}

func hasAddress(list []mesh.Address, a mesh.Address) bool {
	for _, l := range list {
		if l.Equals(a) {
			return true
		}
	}
	return false
}
