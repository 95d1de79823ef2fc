package transaction

import (
	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/derivation"
	"github.com/iov-one/mesh/errors"
	"github.com/iov-one/mesh/x"
	"github.com/iov-one/mesh/x/multisig"
)

// Controller implements the transaction state machine and the instruction
// ledger.
type Controller struct {
	auth         x.Authenticator
	deriver      *derivation.Deriver
	registries   multisig.Bucket
	transactions TransactionBucket
	instructions InstructionBucket
}

// NewController returns a controller authenticating requests with auth.
func NewController(auth x.Authenticator, deriver *derivation.Deriver) *Controller {
	return &Controller{
		auth:         auth,
		deriver:      deriver,
		registries:   multisig.NewBucket(),
		transactions: NewTransactionBucket(),
		instructions: NewInstructionBucket(),
	}
}

// Deriver returns the deriver used to address records and authorities.
func (c *Controller) Deriver() *derivation.Deriver {
	return c.deriver
}

// Create allocates the next transaction index of the registry and stores a
// new transaction in Draft. The signer must be a member.
func (c *Controller) Create(ctx mesh.Context, db mesh.KVStore, registry mesh.Address, authorityIndex uint32) (mesh.Address, *Transaction, error) {
	ms, err := c.registries.GetMultisig(db, registry)
	if err != nil {
		return nil, nil, err
	}
	creator, err := c.member(ctx, ms)
	if err != nil {
		return nil, nil, err
	}
	conf, err := multisig.LoadConfiguration(db)
	if err != nil {
		return nil, nil, err
	}
	if authorityIndex > conf.MaxAuthorityIndex {
		return nil, nil, errors.Wrapf(errors.ErrInput, "authority index %d, max %d", authorityIndex, conf.MaxAuthorityIndex)
	}
	if ms.TransactionIndex+1 == 0 {
		return nil, nil, errors.Wrap(errors.ErrOverflow, "transaction index")
	}

	vault, err := c.deriver.Vault(registry, authorityIndex)
	if err != nil {
		return nil, nil, err
	}
	ms.TransactionIndex++
	addr, err := c.deriver.Transaction(registry, ms.TransactionIndex)
	if err != nil {
		return nil, nil, err
	}

	tx := &Transaction{
		Multisig:         registry.Clone(),
		TransactionIndex: ms.TransactionIndex,
		Creator:          creator,
		AuthorityIndex:   authorityIndex,
		AuthorityBump:    uint32(vault.Bump),
		Status:           StatusDraft,
		Bump:             uint32(addr.Bump),
	}
	if err := c.transactions.Create(db, addr.Address, tx); err != nil {
		return nil, nil, err
	}
	if err := c.registries.Put(db, registry, ms); err != nil {
		return nil, nil, err
	}
	return addr.Address, tx, nil
}

// Get returns the transaction stored under addr.
func (c *Controller) Get(db mesh.ReadOnlyKVStore, addr mesh.Address) (*Transaction, error) {
	return c.transactions.GetTransaction(db, addr)
}

// Save writes back a transaction changed by the execution engine.
func (c *Controller) Save(db mesh.KVStore, addr mesh.Address, tx *Transaction) error {
	return c.transactions.Put(db, addr, tx)
}

// Activate freezes the instruction set. Only the creator can activate.
func (c *Controller) Activate(ctx mesh.Context, db mesh.KVStore, addr mesh.Address) (*Transaction, error) {
	tx, ms, err := c.load(db, addr)
	if err != nil {
		return nil, err
	}
	if err := x.RequireSigner(ctx, c.auth, tx.Creator, "creator"); err != nil {
		return nil, err
	}
	if tx.Status != StatusDraft {
		return nil, errors.Wrapf(errors.ErrState, "cannot activate %s transaction", tx.Status)
	}
	if err := checkDeprecated(tx, ms); err != nil {
		return nil, err
	}
	tx.Status = StatusActive
	return tx, c.Save(db, addr, tx)
}

// Approve records the approval of the signing member. A previous rejection
// by the same member is withdrawn. Once the number of approvals reaches the
// threshold of the registry the transaction becomes ExecuteReady.
func (c *Controller) Approve(ctx mesh.Context, db mesh.KVStore, addr mesh.Address) (*Transaction, error) {
	tx, ms, err := c.load(db, addr)
	if err != nil {
		return nil, err
	}
	member, err := c.voter(ctx, tx, ms)
	if err != nil {
		return nil, err
	}
	tx.Rejected = remove(tx.Rejected, member)
	tx.Approved, _ = insert(tx.Approved, member)
	if len(tx.Approved) >= int(ms.Threshold) {
		tx.Status = StatusExecuteReady
	}
	return tx, c.Save(db, addr, tx)
}

// Reject records the rejection of the signing member. A previous approval
// by the same member is withdrawn. Once more members rejected than can be
// missing from a quorum the transaction becomes Rejected.
func (c *Controller) Reject(ctx mesh.Context, db mesh.KVStore, addr mesh.Address) (*Transaction, error) {
	tx, ms, err := c.load(db, addr)
	if err != nil {
		return nil, err
	}
	member, err := c.voter(ctx, tx, ms)
	if err != nil {
		return nil, err
	}
	tx.Approved = remove(tx.Approved, member)
	tx.Rejected, _ = insert(tx.Rejected, member)
	cutoff := len(ms.Keys) - int(ms.Threshold)
	if len(tx.Rejected) > cutoff {
		tx.Status = StatusRejected
	}
	return tx, c.Save(db, addr, tx)
}

// Cancel moves a Draft or Active transaction to Cancelled. Only the creator
// can cancel.
func (c *Controller) Cancel(ctx mesh.Context, db mesh.KVStore, addr mesh.Address) (*Transaction, error) {
	tx, err := c.Get(db, addr)
	if err != nil {
		return nil, err
	}
	if err := x.RequireSigner(ctx, c.auth, tx.Creator, "creator"); err != nil {
		return nil, err
	}
	if tx.Status != StatusDraft && tx.Status != StatusActive {
		return nil, errors.Wrapf(errors.ErrState, "cannot cancel %s transaction", tx.Status)
	}
	tx.Status = StatusCancelled
	return tx, c.Save(db, addr, tx)
}

// CheckQuorum returns an error unless the approvals of current members meet
// the current threshold of the registry.
func CheckQuorum(tx *Transaction, ms *multisig.Multisig) error {
	var n uint32
	for _, a := range tx.Approved {
		if ms.IsMember(a) {
			n++
		}
	}
	if n < ms.Threshold {
		return errors.Wrapf(errors.ErrUnauthorized, "%d of %d required approvals", n, ms.Threshold)
	}
	return nil
}

func (c *Controller) load(db mesh.ReadOnlyKVStore, addr mesh.Address) (*Transaction, *multisig.Multisig, error) {
	tx, err := c.Get(db, addr)
	if err != nil {
		return nil, nil, err
	}
	ms, err := c.registries.GetMultisig(db, tx.Multisig)
	if err != nil {
		return nil, nil, err
	}
	return tx, ms, nil
}

// voter returns the member voting on an Active, not deprecated transaction.
func (c *Controller) voter(ctx mesh.Context, tx *Transaction, ms *multisig.Multisig) (mesh.Address, error) {
	member, err := c.member(ctx, ms)
	if err != nil {
		return nil, err
	}
	if tx.Status != StatusActive {
		return nil, errors.Wrapf(errors.ErrState, "cannot vote on %s transaction", tx.Status)
	}
	if err := checkDeprecated(tx, ms); err != nil {
		return nil, err
	}
	return member, nil
}

// member returns the first signer that is a member of ms.
func (c *Controller) member(ctx mesh.Context, ms *multisig.Multisig) (mesh.Address, error) {
	for _, s := range c.auth.GetSigners(ctx) {
		if ms.IsMember(s) {
			return s.Clone(), nil
		}
	}
	return nil, errors.Wrap(errors.ErrUnauthorized, "signer is not a member")
}

func checkDeprecated(tx *Transaction, ms *multisig.Multisig) error {
	if tx.TransactionIndex <= ms.ChangeIndex {
		return errors.Wrapf(errors.ErrState, "transaction %d deprecated by registry change at %d", tx.TransactionIndex, ms.ChangeIndex)
	}
	return nil
}
