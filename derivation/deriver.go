package derivation

import (
	"encoding/binary"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
)

// Namespaces separate the derivation families.
const (
	prefix = "mesh"

	NamespaceRegistry             = "multisig"
	NamespaceTransaction          = "transaction"
	NamespaceInstruction          = "instruction"
	NamespaceVault                = "vault"
	NamespaceInstructionAuthority = "ix-authority"
)

// Authority is a derived address together with the bump that produced it.
type Authority struct {
	Address mesh.Address
	Bump    uint8
}

// Deriver derives the addresses owned by one program. Results are cached, a
// Deriver is safe for concurrent use.
type Deriver struct {
	program mesh.Address
	cache   *lru.Cache
}

// NewDeriver returns a deriver for program that remembers up to cacheSize
// results.
func NewDeriver(program mesh.Address, cacheSize int) (*Deriver, error) {
	if err := program.Validate(); err != nil {
		return nil, errors.Wrap(err, "program")
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "cache: %s", err)
	}
	return &Deriver{program: program.Clone(), cache: cache}, nil
}

// Program returns the id of the program that owns the derived addresses.
func (d *Deriver) Program() mesh.Address {
	return d.program
}

// Registry returns the address of the registry created with createKey.
func (d *Deriver) Registry(createKey []byte) (Authority, error) {
	return d.derive(RegistrySeeds(createKey))
}

// Transaction returns the address of the transaction with given index.
func (d *Deriver) Transaction(registry mesh.Address, index uint32) (Authority, error) {
	return d.derive(TransactionSeeds(registry, index))
}

// Instruction returns the address of the instruction with given sequence
// number.
func (d *Deriver) Instruction(tx mesh.Address, seq uint32) (Authority, error) {
	return d.derive(InstructionSeeds(tx, seq))
}

// Vault returns the default authority with given index.
func (d *Deriver) Vault(registry mesh.Address, index uint32) (Authority, error) {
	return d.derive(VaultSeeds(registry, index))
}

// InstructionAuthority returns the custom authority of an instruction.
func (d *Deriver) InstructionAuthority(tx mesh.Address, seq uint32) (Authority, error) {
	return d.derive(InstructionAuthoritySeeds(tx, seq))
}

// Verify checks that bump together with seeds derives want.
func (d *Deriver) Verify(seeds [][]byte, bump uint8, want mesh.Address) error {
	return Verify(seeds, bump, d.program, want)
}

func (d *Deriver) derive(seeds [][]byte) (Authority, error) {
	var b strings.Builder
	for _, s := range seeds {
		b.WriteByte(byte(len(s)))
		b.Write(s)
	}
	key := b.String()
	if v, ok := d.cache.Get(key); ok {
		a := v.(Authority)
		return Authority{Address: a.Address.Clone(), Bump: a.Bump}, nil
	}

	addr, bump, err := FindProgramAddress(seeds, d.program)
	if err != nil {
		return Authority{}, err
	}
	a := Authority{Address: addr, Bump: bump}
	d.cache.Add(key, Authority{Address: addr.Clone(), Bump: bump})
	return a, nil
}

// RegistrySeeds returns the seeds of a registry address.
func RegistrySeeds(createKey []byte) [][]byte {
	return [][]byte{[]byte(prefix), createKey, []byte(NamespaceRegistry)}
}

// TransactionSeeds returns the seeds of a transaction address.
func TransactionSeeds(registry mesh.Address, index uint32) [][]byte {
	return [][]byte{[]byte(prefix), registry, le32(index), []byte(NamespaceTransaction)}
}

// InstructionSeeds returns the seeds of an instruction address.
func InstructionSeeds(tx mesh.Address, seq uint32) [][]byte {
	return [][]byte{[]byte(prefix), tx, le32(seq), []byte(NamespaceInstruction)}
}

// VaultSeeds returns the seeds of a default authority.
func VaultSeeds(registry mesh.Address, index uint32) [][]byte {
	return [][]byte{[]byte(prefix), registry, le32(index), []byte(NamespaceVault)}
}

// InstructionAuthoritySeeds returns the seeds of a custom authority.
func InstructionAuthoritySeeds(tx mesh.Address, seq uint32) [][]byte {
	return [][]byte{[]byte(prefix), tx, le32(seq), []byte(NamespaceInstructionAuthority)}
}

func le32(n uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, n)
	return b
}
