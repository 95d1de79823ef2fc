package multisig

import (
	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/derivation"
	"github.com/iov-one/mesh/errors"
	"github.com/iov-one/mesh/x"
)

// Controller implements the registry operations. All mutating operations
// except Create require a signature of the registry external authority.
type Controller struct {
	auth    x.Authenticator
	deriver *derivation.Deriver
	bucket  Bucket
}

// NewController returns a controller authenticating requests with auth.
func NewController(auth x.Authenticator, deriver *derivation.Deriver) *Controller {
	return &Controller{
		auth:    auth,
		deriver: deriver,
		bucket:  NewBucket(),
	}
}

// CreateRequest describes a new registry.
type CreateRequest struct {
	// ExternalAuthority is optional. It defaults to the vault authority 0
	// of the new registry.
	ExternalAuthority mesh.Address
	Threshold         uint32
	CreateKey         []byte
	Members           []mesh.Address
}

// Create stores a new registry and returns its address. The request must be
// signed by someone but the creator does not have to be a member.
func (c *Controller) Create(ctx mesh.Context, db mesh.KVStore, req CreateRequest) (mesh.Address, *Multisig, error) {
	if x.MainSigner(ctx, c.auth) == nil {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "unsigned request")
	}
	conf, err := LoadConfiguration(db)
	if err != nil {
		return nil, nil, err
	}

	members := SortMembers(req.Members)
	switch n := len(members); {
	case n == 0:
		return nil, nil, errors.Wrap(errors.ErrInput, "no members")
	case n > int(conf.MaxMembers):
		return nil, nil, errors.Wrapf(errors.ErrOverflow, "%d members, max %d", n, conf.MaxMembers)
	}
	for i, m := range members {
		if err := m.Validate(); err != nil {
			return nil, nil, errors.Wrapf(err, "member %d", i)
		}
		if i > 0 && members[i-1].Equals(m) {
			return nil, nil, errors.Wrapf(errors.ErrDuplicate, "member %s", m)
		}
	}
	if req.Threshold < 1 || int(req.Threshold) > len(members) {
		return nil, nil, errors.Wrapf(errors.ErrInput, "threshold %d for %d members", req.Threshold, len(members))
	}
	if n := len(req.CreateKey); n == 0 || n > mesh.AddressLength {
		return nil, nil, errors.Wrapf(errors.ErrInput, "create key length %d", n)
	}

	reg, err := c.deriver.Registry(req.CreateKey)
	if err != nil {
		return nil, nil, err
	}
	external := req.ExternalAuthority
	if external == nil {
		vault, err := c.deriver.Vault(reg.Address, 0)
		if err != nil {
			return nil, nil, err
		}
		external = vault.Address
	}

	ms := &Multisig{
		ExternalAuthority: external,
		CreateKey:         append([]byte{}, req.CreateKey...),
		Keys:              members,
		Threshold:         req.Threshold,
		AuthorityIndex:    1,
		Bump:              uint32(reg.Bump),
	}
	if err := c.bucket.Create(db, reg.Address, ms); err != nil {
		return nil, nil, err
	}
	return reg.Address, ms, nil
}

// Get returns the registry stored under addr.
func (c *Controller) Get(db mesh.ReadOnlyKVStore, addr mesh.Address) (*Multisig, error) {
	return c.bucket.GetMultisig(db, addr)
}

// Save writes back a registry that was changed by another component, for
// example when a transaction index was allocated.
func (c *Controller) Save(db mesh.KVStore, addr mesh.Address, ms *Multisig) error {
	return c.bucket.Put(db, addr, ms)
}

// AddMember adds a member. The threshold is not changed.
func (c *Controller) AddMember(ctx mesh.Context, db mesh.KVStore, registry, member mesh.Address) (*Multisig, error) {
	return c.Apply(ctx, db, registry, &AddMemberMsg{Member: member})
}

// RemoveMember removes a member. It fails if the registry would be left
// without members or with a threshold higher than the number of members.
func (c *Controller) RemoveMember(ctx mesh.Context, db mesh.KVStore, registry, member mesh.Address) (*Multisig, error) {
	return c.Apply(ctx, db, registry, &RemoveMemberMsg{Member: member})
}

// ChangeThreshold sets a new threshold.
func (c *Controller) ChangeThreshold(ctx mesh.Context, db mesh.KVStore, registry mesh.Address, threshold uint32) (*Multisig, error) {
	return c.Apply(ctx, db, registry, &ChangeThresholdMsg{Threshold: threshold})
}

// Apply executes a governance message on the registry.
func (c *Controller) Apply(ctx mesh.Context, db mesh.KVStore, registry mesh.Address, msg Msg) (*Multisig, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	ms, err := c.Get(db, registry)
	if err != nil {
		return nil, err
	}
	if err := x.RequireSigner(ctx, c.auth, ms.ExternalAuthority, "external authority"); err != nil {
		return nil, err
	}
	conf, err := LoadConfiguration(db)
	if err != nil {
		return nil, err
	}

	membershipChange := true
	switch msg := msg.(type) {
	case *AddMemberMsg:
		err = addMember(ms, conf, msg.Member)
	case *RemoveMemberMsg:
		err = removeMember(ms, msg.Member, ms.Threshold)
	case *ChangeThresholdMsg:
		err = changeThreshold(ms, msg.Threshold)
	case *AddMemberAndChangeThresholdMsg:
		if err = addMember(ms, conf, msg.Member); err == nil {
			err = changeThreshold(ms, msg.Threshold)
		}
	case *RemoveMemberAndChangeThresholdMsg:
		err = removeMember(ms, msg.Member, msg.Threshold)
		if err == nil {
			err = changeThreshold(ms, msg.Threshold)
		}
	case *AddAuthorityMsg:
		membershipChange = false
		if ms.AuthorityIndex >= conf.MaxAuthorityIndex {
			err = errors.Wrapf(errors.ErrOverflow, "authority index %d", ms.AuthorityIndex)
		} else {
			ms.AuthorityIndex++
		}
	case *SetExternalExecuteMsg:
		membershipChange = false
		ms.AllowExternalExecute = msg.Allow
	case *ChangeExternalAuthorityMsg:
		membershipChange = false
		ms.ExternalAuthority = msg.Authority.Clone()
	default:
		err = errors.Wrapf(errors.ErrType, "unknown message %T", msg)
	}
	if err != nil {
		return nil, err
	}

	// Pending transactions were approved for the old member set.
	if membershipChange {
		ms.ChangeIndex = ms.TransactionIndex
	}
	if err := c.bucket.Put(db, registry, ms); err != nil {
		return nil, err
	}
	return ms, nil
}

func addMember(ms *Multisig, conf Configuration, member mesh.Address) error {
	if len(ms.Keys) >= int(conf.MaxMembers) {
		return errors.Wrapf(errors.ErrOverflow, "max members %d reached", conf.MaxMembers)
	}
	return ms.addMember(member)
}

// removeMember removes member if the resulting registry can satisfy
// threshold.
func removeMember(ms *Multisig, member mesh.Address, threshold uint32) error {
	if len(ms.Keys) == 1 {
		return errors.Wrap(errors.ErrInput, "cannot remove the only member")
	}
	if int(threshold) > len(ms.Keys)-1 {
		return errors.Wrapf(errors.ErrInput, "threshold %d would exceed %d members", threshold, len(ms.Keys)-1)
	}
	return ms.removeMember(member)
}

func changeThreshold(ms *Multisig, threshold uint32) error {
	if threshold < 1 || int(threshold) > len(ms.Keys) {
		return errors.Wrapf(errors.ErrInput, "threshold %d for %d members", threshold, len(ms.Keys))
	}
	ms.Threshold = threshold
	return nil
}
