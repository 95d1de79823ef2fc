package multisig

import (
	"time"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
	"github.com/iov-one/mesh/gconf"
)

// ConfigPackage is the gconf package name of the engine configuration.
const ConfigPackage = "mesh"

// Configuration holds the limits of the engine.
type Configuration struct {
	// MaxMembers is the maximum size of a registry.
	MaxMembers uint32 `json:"max_members"`
	// MaxInstructions is the maximum number of instructions of a single
	// transaction.
	MaxInstructions uint32 `json:"max_instructions"`
	// MaxInstructionData is the maximum payload size of an instruction.
	MaxInstructionData uint32 `json:"max_instruction_data"`
	// MaxAuthorityIndex is the highest vault index that can be used.
	MaxAuthorityIndex uint32 `json:"max_authority_index"`
	// ExecutionTimeoutMs bounds a single execution, in milliseconds.
	ExecutionTimeoutMs int64 `json:"execution_timeout_ms"`
}

// DefaultConfiguration is used when no configuration was saved.
func DefaultConfiguration() Configuration {
	return Configuration{
		MaxMembers:         65535,
		MaxInstructions:    64,
		MaxInstructionData: 1232,
		MaxAuthorityIndex:  1024,
		ExecutionTimeoutMs: 10000,
	}
}

// Validate checks that all limits are set.
func (c *Configuration) Validate() error {
	switch {
	case c.MaxMembers == 0:
		return errors.Wrap(errors.ErrInput, "max members")
	case c.MaxInstructions == 0:
		return errors.Wrap(errors.ErrInput, "max instructions")
	case c.MaxInstructionData == 0:
		return errors.Wrap(errors.ErrInput, "max instruction data")
	case c.MaxAuthorityIndex == 0:
		return errors.Wrap(errors.ErrInput, "max authority index")
	case c.ExecutionTimeoutMs <= 0:
		return errors.Wrap(errors.ErrInput, "execution timeout")
	}
	return nil
}

// ExecutionTimeout returns the execution timeout as a duration.
func (c *Configuration) ExecutionTimeout() time.Duration {
	return time.Duration(c.ExecutionTimeoutMs) * time.Millisecond
}

// InitConfig saves the configuration found in opts, or the defaults.
func InitConfig(db gconf.Store, opts mesh.Options) error {
	conf := DefaultConfiguration()
	return gconf.InitConfig(db, opts, ConfigPackage, &conf)
}

// LoadConfiguration returns the saved configuration or the defaults if
// none was saved.
func LoadConfiguration(db gconf.ReadStore) (Configuration, error) {
	var conf Configuration
	switch err := gconf.Load(db, ConfigPackage, &conf); {
	case errors.ErrNotFound.Is(err):
		return DefaultConfiguration(), nil
	case err != nil:
		return conf, err
	}
	return conf, nil
}
