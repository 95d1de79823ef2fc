package multisig

import (
	"bytes"
	"sort"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
	"github.com/iov-one/mesh/orm"
)

// BucketName is where we store the registries.
const BucketName = "multisig"

// ProgramID is the address of the governance program. It also owns all
// addresses derived by the engine.
var ProgramID = mesh.NewProgramID("multisig")

// Multisig is the state of a registry.
type Multisig struct {
	// ExternalAuthority is the only address allowed to change membership
	// and threshold.
	ExternalAuthority mesh.Address
	// CreateKey is the seed of the registry address.
	CreateKey []byte
	// Keys is the sorted set of members.
	Keys []mesh.Address
	// Threshold is the number of approvals a transaction needs.
	Threshold uint32
	// TransactionIndex is the index of the latest transaction.
	TransactionIndex uint32
	// AuthorityIndex counts vault authorities in use. It is informational
	// only, any vault index can be used.
	AuthorityIndex uint32
	// ChangeIndex is the transaction index at the time of the last
	// membership or threshold change. Transactions with an index lower or
	// equal to it are deprecated.
	ChangeIndex uint32
	// AllowExternalExecute allows non-members to execute approved
	// transactions.
	AllowExternalExecute bool
	Bump                 uint32
}

var _ orm.Model = (*Multisig)(nil)

// Validate checks the registry invariants.
func (m *Multisig) Validate() error {
	if err := m.ExternalAuthority.Validate(); err != nil {
		return errors.Wrap(err, "external authority")
	}
	if n := len(m.CreateKey); n == 0 || n > mesh.AddressLength {
		return errors.Wrapf(errors.ErrModel, "create key length %d", n)
	}
	if len(m.Keys) == 0 {
		return errors.Wrap(errors.ErrModel, "no members")
	}
	for i, k := range m.Keys {
		if err := k.Validate(); err != nil {
			return errors.Wrapf(err, "member %d", i)
		}
		if i > 0 && bytes.Compare(m.Keys[i-1], k) >= 0 {
			return errors.Wrap(errors.ErrModel, "members not sorted or not unique")
		}
	}
	if m.Threshold < 1 || int(m.Threshold) > len(m.Keys) {
		return errors.Wrapf(errors.ErrModel, "threshold %d for %d members", m.Threshold, len(m.Keys))
	}
	if m.AuthorityIndex < 1 {
		return errors.Wrap(errors.ErrModel, "authority index must be at least 1")
	}
	if m.ChangeIndex > m.TransactionIndex {
		return errors.Wrap(errors.ErrModel, "change index ahead of transaction index")
	}
	if m.Bump > 255 {
		return errors.Wrap(errors.ErrModel, "bump")
	}
	return nil
}

// IsMember returns true if addr is one of the members.
func (m *Multisig) IsMember(addr mesh.Address) bool {
	_, ok := m.memberIndex(addr)
	return ok
}

func (m *Multisig) memberIndex(addr mesh.Address) (int, bool) {
	i := sort.Search(len(m.Keys), func(i int) bool {
		return bytes.Compare(m.Keys[i], addr) >= 0
	})
	return i, i < len(m.Keys) && m.Keys[i].Equals(addr)
}

// addMember inserts addr keeping the members sorted.
func (m *Multisig) addMember(addr mesh.Address) error {
	i, ok := m.memberIndex(addr)
	if ok {
		return errors.Wrapf(errors.ErrDuplicate, "member %s", addr)
	}
	keys := make([]mesh.Address, 0, len(m.Keys)+1)
	keys = append(keys, m.Keys[:i]...)
	keys = append(keys, addr.Clone())
	m.Keys = append(keys, m.Keys[i:]...)
	return nil
}

func (m *Multisig) removeMember(addr mesh.Address) error {
	i, ok := m.memberIndex(addr)
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "member %s", addr)
	}
	keys := make([]mesh.Address, 0, len(m.Keys)-1)
	keys = append(keys, m.Keys[:i]...)
	m.Keys = append(keys, m.Keys[i+1:]...)
	return nil
}

// SortMembers returns a sorted copy of members. Duplicates are kept so that
// validation can reject them.
func SortMembers(members []mesh.Address) []mesh.Address {
	res := make([]mesh.Address, len(members))
	for i, m := range members {
		res[i] = m.Clone()
	}
	sort.Slice(res, func(i, j int) bool {
		return bytes.Compare(res[i], res[j]) < 0
	})
	return res
}

// Bucket stores registries under their derived address.
type Bucket struct {
	orm.Bucket
}

// NewBucket returns a bucket for registries.
func NewBucket() Bucket {
	return Bucket{Bucket: orm.NewBucket(BucketName)}
}

// GetMultisig returns the registry stored under given address.
func (b Bucket) GetMultisig(db mesh.ReadOnlyKVStore, addr mesh.Address) (*Multisig, error) {
	var m Multisig
	if err := b.One(db, addr, &m); err != nil {
		return nil, errors.Wrapf(err, "registry %s", addr)
	}
	return &m, nil
}
