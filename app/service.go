package app

import (
	"context"
	"sync"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/derivation"
	"github.com/iov-one/mesh/errors"
	"github.com/iov-one/mesh/runtime"
	"github.com/iov-one/mesh/x"
	"github.com/iov-one/mesh/x/bank"
	"github.com/iov-one/mesh/x/execution"
	"github.com/iov-one/mesh/x/multisig"
	"github.com/iov-one/mesh/x/sigs"
	"github.com/iov-one/mesh/x/transaction"
	"github.com/iov-one/mesh/x/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendermint/tendermint/libs/log"
)

// derivationCacheSize bounds the number of memoised authorities.
const derivationCacheSize = 4096

// Operation names. A signed request is accepted only by the operation it
// names, on the target it names.
const (
	OpCreateRegistry     = "create registry"
	OpAddMember          = "add member"
	OpRemoveMember       = "remove member"
	OpChangeThreshold    = "change threshold"
	OpApplyGovernance    = "apply governance"
	OpProposeTransaction = "propose transaction"
	OpAppendInstruction  = "append instruction"
	OpActivate           = "activate"
	OpApprove            = "approve"
	OpReject             = "reject"
	OpCancel             = "cancel"
	OpExecute            = "execute"
	OpExecuteInstruction = "execute instruction"
)

// Service serves requests against a single store.
type Service struct {
	logger log.Logger

	// mu serializes all requests.
	mu      sync.Mutex
	db      mesh.CacheableKVStore
	chainID string

	// inflight holds transactions being executed.
	inflightMu sync.Mutex
	inflight   map[string]struct{}

	deriver    *derivation.Deriver
	router     *runtime.Router
	registries *multisig.Controller
	txs        *transaction.Controller
	engine     *execution.Engine
}

// NewService returns a service using db. Signers of requests are taken
// from auth; pass nil to use signature verification only. The bank and
// governance programs are registered with the runtime.
func NewService(db mesh.CacheableKVStore, auth x.Authenticator, registerer prometheus.Registerer) (*Service, error) {
	if auth == nil {
		auth = sigs.Authenticate{}
	} else {
		auth = x.ChainAuth(sigs.Authenticate{}, auth)
	}
	deriver, err := derivation.NewDeriver(multisig.ProgramID, derivationCacheSize)
	if err != nil {
		return nil, err
	}
	chainID, err := loadChainID(db)
	if err != nil {
		return nil, err
	}

	router := runtime.NewRouter()
	router.Register(bank.ProgramID, bank.NewProgram())
	router.Register(multisig.ProgramID, multisig.NewProgram(deriver))

	txs := transaction.NewController(auth, deriver)
	engine, err := execution.NewEngine(auth, txs, router, registerer)
	if err != nil {
		return nil, err
	}
	return &Service{
		logger:     log.NewNopLogger(),
		db:         db,
		chainID:    chainID,
		inflight:   make(map[string]struct{}),
		deriver:    deriver,
		router:     router,
		registries: multisig.NewController(auth, deriver),
		txs:        txs,
		engine:     engine,
	}, nil
}

// WithLogger sets the logger on the Service and returns it,
// to make it easy to chain in initialization
func (s *Service) WithLogger(logger log.Logger) *Service {
	s.logger = logger
	return s
}

// Router returns the runtime so that more programs can be registered.
func (s *Service) Router() *runtime.Router {
	return s.router
}

// ChainID returns the chain id set at genesis.
func (s *Service) ChainID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chainID
}

// InitChain writes the genesis state. It fails if the store was already
// initialised.
func (s *Service) InitChain(ctx context.Context, gen Genesis) error {
	err := s.write(ctx, "init chain", nil, func(ctx context.Context, db mesh.KVStore) error {
		return initState(db, gen)
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.chainID = gen.ChainID
	s.mu.Unlock()
	return nil
}

// Authenticate attaches req to ctx. The signatures are verified by the
// call performing the operation req names, inside its savepoint: a refused
// call consumes no nonce, and a successful one consumes it, so the
// request cannot authorize a second call.
func (s *Service) Authenticate(ctx context.Context, req sigs.SignedRequest) (context.Context, error) {
	if req == nil || len(req.GetSignatures()) == 0 {
		return nil, errors.Wrap(errors.ErrUnauthorized, "missing signature")
	}
	if _, err := req.GetSignBytes(); err != nil {
		return nil, err
	}
	return sigs.WithRequest(ctx, req), nil
}

// CreateRegistry creates a new registry.
func (s *Service) CreateRegistry(ctx context.Context, req multisig.CreateRequest) (mesh.Address, *multisig.Multisig, error) {
	var (
		addr mesh.Address
		ms   *multisig.Multisig
	)
	err := s.write(ctx, OpCreateRegistry, req.CreateKey, func(ctx context.Context, db mesh.KVStore) (err error) {
		addr, ms, err = s.registries.Create(ctx, db, req)
		return err
	})
	return addr, ms, err
}

// AddMember adds a member to the registry. It must be signed by the
// external authority.
func (s *Service) AddMember(ctx context.Context, registry, member mesh.Address) (*multisig.Multisig, error) {
	return s.applyRegistry(ctx, OpAddMember, registry, func(ctx context.Context, db mesh.KVStore) (*multisig.Multisig, error) {
		return s.registries.AddMember(ctx, db, registry, member)
	})
}

// RemoveMember removes a member from the registry. It must be signed by
// the external authority.
func (s *Service) RemoveMember(ctx context.Context, registry, member mesh.Address) (*multisig.Multisig, error) {
	return s.applyRegistry(ctx, OpRemoveMember, registry, func(ctx context.Context, db mesh.KVStore) (*multisig.Multisig, error) {
		return s.registries.RemoveMember(ctx, db, registry, member)
	})
}

// ChangeThreshold sets the number of approvals required. It must be
// signed by the external authority.
func (s *Service) ChangeThreshold(ctx context.Context, registry mesh.Address, threshold uint32) (*multisig.Multisig, error) {
	return s.applyRegistry(ctx, OpChangeThreshold, registry, func(ctx context.Context, db mesh.KVStore) (*multisig.Multisig, error) {
		return s.registries.ChangeThreshold(ctx, db, registry, threshold)
	})
}

// ApplyGovernance applies any governance message signed by the external
// authority.
func (s *Service) ApplyGovernance(ctx context.Context, registry mesh.Address, msg multisig.Msg) (*multisig.Multisig, error) {
	return s.applyRegistry(ctx, OpApplyGovernance, registry, func(ctx context.Context, db mesh.KVStore) (*multisig.Multisig, error) {
		return s.registries.Apply(ctx, db, registry, msg)
	})
}

func (s *Service) applyRegistry(ctx context.Context, name string, registry mesh.Address, fn func(context.Context, mesh.KVStore) (*multisig.Multisig, error)) (*multisig.Multisig, error) {
	var ms *multisig.Multisig
	err := s.write(ctx, name, registry, func(ctx context.Context, db mesh.KVStore) (err error) {
		ms, err = fn(ctx, db)
		return err
	})
	return ms, err
}

// ProposeTransaction creates a Draft transaction of the registry whose
// instructions default to the vault of given index.
func (s *Service) ProposeTransaction(ctx context.Context, registry mesh.Address, authorityIndex uint32) (mesh.Address, *transaction.Transaction, error) {
	var (
		addr mesh.Address
		tx   *transaction.Transaction
	)
	err := s.write(ctx, OpProposeTransaction, registry, func(ctx context.Context, db mesh.KVStore) (err error) {
		addr, tx, err = s.txs.Create(ctx, db, registry, authorityIndex)
		return err
	})
	return addr, tx, err
}

// AppendInstruction adds an instruction to a Draft transaction and returns
// its sequence number.
func (s *Service) AppendInstruction(ctx context.Context, txAddr mesh.Address, req transaction.InstructionRequest) (uint32, error) {
	var seq uint32
	err := s.write(ctx, OpAppendInstruction, txAddr, func(ctx context.Context, db mesh.KVStore) (err error) {
		seq, _, err = s.txs.AddInstruction(ctx, db, txAddr, req)
		return err
	})
	return seq, err
}

// Activate opens a Draft transaction for voting.
func (s *Service) Activate(ctx context.Context, txAddr mesh.Address) (*transaction.Transaction, error) {
	return s.transition(ctx, OpActivate, txAddr, s.txs.Activate)
}

// Approve records the approval of the signing member.
func (s *Service) Approve(ctx context.Context, txAddr mesh.Address) (*transaction.Transaction, error) {
	return s.transition(ctx, OpApprove, txAddr, s.txs.Approve)
}

// Reject records the rejection of the signing member.
func (s *Service) Reject(ctx context.Context, txAddr mesh.Address) (*transaction.Transaction, error) {
	return s.transition(ctx, OpReject, txAddr, s.txs.Reject)
}

// Cancel withdraws a Draft or Active transaction.
func (s *Service) Cancel(ctx context.Context, txAddr mesh.Address) (*transaction.Transaction, error) {
	return s.transition(ctx, OpCancel, txAddr, s.txs.Cancel)
}

// Execute runs all instructions of an ExecuteReady transaction.
func (s *Service) Execute(ctx context.Context, txAddr mesh.Address) (*transaction.Transaction, error) {
	return s.execute(ctx, OpExecute, txAddr, s.engine.Execute)
}

// ExecuteInstruction runs the next instruction of an ExecuteReady
// transaction.
func (s *Service) ExecuteInstruction(ctx context.Context, txAddr mesh.Address) (*transaction.Transaction, error) {
	return s.execute(ctx, OpExecuteInstruction, txAddr, s.engine.ExecuteInstruction)
}

type transitionFn func(mesh.Context, mesh.KVStore, mesh.Address) (*transaction.Transaction, error)

func (s *Service) transition(ctx context.Context, name string, txAddr mesh.Address, fn transitionFn) (*transaction.Transaction, error) {
	var tx *transaction.Transaction
	err := s.write(ctx, name, txAddr, func(ctx context.Context, db mesh.KVStore) (err error) {
		tx, err = fn(ctx, db, txAddr)
		return err
	})
	return tx, err
}

// execute runs fn bounded by the configured timeout. A second execution
// of the same transaction is refused while one is in flight.
func (s *Service) execute(ctx context.Context, name string, txAddr mesh.Address, fn transitionFn) (*transaction.Transaction, error) {
	key := string(txAddr)
	s.inflightMu.Lock()
	if _, ok := s.inflight[key]; ok {
		s.inflightMu.Unlock()
		return nil, errors.Wrap(errors.ErrState, "execution in progress")
	}
	s.inflight[key] = struct{}{}
	s.inflightMu.Unlock()
	defer func() {
		s.inflightMu.Lock()
		delete(s.inflight, key)
		s.inflightMu.Unlock()
	}()

	var tx *transaction.Transaction
	err := s.write(ctx, name, txAddr, func(ctx context.Context, db mesh.KVStore) error {
		conf, err := multisig.LoadConfiguration(db)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(ctx, conf.ExecutionTimeout())
		defer cancel()
		tx, err = fn(ctx, db, txAddr)
		return err
	})
	return tx, err
}

// Registry returns the registry stored under addr.
func (s *Service) Registry(ctx context.Context, addr mesh.Address) (*multisig.Multisig, error) {
	var ms *multisig.Multisig
	err := s.read(ctx, "registry", func(ctx context.Context, db mesh.KVStore) (err error) {
		ms, err = s.registries.Get(db, addr)
		return err
	})
	return ms, err
}

// Transaction returns the transaction stored under addr.
func (s *Service) Transaction(ctx context.Context, addr mesh.Address) (*transaction.Transaction, error) {
	var tx *transaction.Transaction
	err := s.read(ctx, "transaction", func(ctx context.Context, db mesh.KVStore) (err error) {
		tx, err = s.txs.Get(db, addr)
		return err
	})
	return tx, err
}

// Instructions returns the instructions of a transaction in sequence order.
func (s *Service) Instructions(ctx context.Context, txAddr mesh.Address) ([]*transaction.Instruction, error) {
	var ixs []*transaction.Instruction
	err := s.read(ctx, "instructions", func(ctx context.Context, db mesh.KVStore) error {
		tx, err := s.txs.Get(db, txAddr)
		if err != nil {
			return err
		}
		ixs, err = s.txs.Instructions(db, txAddr, tx)
		return err
	})
	return ixs, err
}

// Vault returns the vault authority of given index of a registry.
func (s *Service) Vault(registry mesh.Address, index uint32) (derivation.Authority, error) {
	return s.deriver.Vault(registry, index)
}

// TransactionAddress returns the address of the transaction of given index.
func (s *Service) TransactionAddress(registry mesh.Address, index uint32) (mesh.Address, error) {
	a, err := s.deriver.Transaction(registry, index)
	return a.Address, err
}

// Balance returns the bank balance of addr.
func (s *Service) Balance(ctx context.Context, addr mesh.Address) (uint64, error) {
	var amount uint64
	err := s.read(ctx, "balance", func(ctx context.Context, db mesh.KVStore) (err error) {
		amount, err = bank.BalanceOf(db, addr)
		return err
	})
	return amount, err
}

// NextSequence returns the nonce the next signature of addr must use.
func (s *Service) NextSequence(ctx context.Context, addr mesh.Address) (uint64, error) {
	var seq uint64
	err := s.read(ctx, "sequence", func(ctx context.Context, db mesh.KVStore) (err error) {
		seq, err = sigs.NextSequence(db, addr)
		return err
	})
	return seq, err
}

// write runs fn in a savepoint and commits the store on success. A signed
// request attached to ctx is verified inside the savepoint and must name
// this operation and target.
func (s *Service) write(ctx context.Context, name string, target []byte, fn utils.HandlerFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = mesh.WithRequest(mesh.WithLogger(ctx, s.logger), name)
	decorators := []utils.Decorator{utils.NewLogging(name), utils.NewRecovery(), utils.NewSavepoint()}
	if req, ok := sigs.RequestOf(ctx); ok {
		if s.chainID == "" {
			return errors.Wrap(errors.ErrState, "signed request before chain initialisation")
		}
		if mesh.GetChainID(ctx) == "" {
			ctx = mesh.WithChainID(ctx, s.chainID)
		}
		decorators = append(decorators, sigs.NewDecorator(req).For(name, target))
	}
	h := utils.Chain(fn, decorators...)
	if err := h.Handle(ctx, s.db); err != nil {
		return err
	}
	id, ok, err := commit(s.db)
	if err != nil {
		return err
	}
	if ok {
		s.logger.Debug("committed", "version", id.Version)
	}
	return nil
}

// read runs fn on a cache of the store that is always discarded.
func (s *Service) read(ctx context.Context, name string, fn utils.HandlerFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = mesh.WithRequest(mesh.WithLogger(ctx, s.logger), name)
	cache := s.db.CacheWrap()
	defer cache.Discard()
	h := utils.Chain(fn, utils.NewLogging(name).Quiet(), utils.NewRecovery())
	return h.Handle(ctx, cache)
}
