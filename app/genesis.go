package app

import (
	"encoding/json"
	"io/ioutil"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
	"github.com/iov-one/mesh/x/bank"
	"github.com/iov-one/mesh/x/multisig"
)

// Genesis file format
type Genesis struct {
	ChainID  string       `json:"chain_id"`
	AppState mesh.Options `json:"app_state"`
}

// GenesisBalance funds an address at genesis.
type GenesisBalance struct {
	Address mesh.Address `json:"address"`
	Amount  uint64       `json:"amount"`
}

// LoadGenesis tries to load a given file into a Genesis struct
func LoadGenesis(filePath string) (Genesis, error) {
	var gen Genesis

	bytes, err := ioutil.ReadFile(filePath)
	if err != nil {
		return gen, errors.Wrapf(errors.ErrInput, "loading genesis file: %s", err)
	}
	if err := json.Unmarshal(bytes, &gen); err != nil {
		return gen, errors.Wrapf(errors.ErrInput, "unmarshaling genesis file: %s", err)
	}
	return gen, nil
}

// initState writes the genesis state: the chain id, the engine
// configuration under "conf" and the balances under "balances".
func initState(db mesh.KVStore, gen Genesis) error {
	if err := saveChainID(db, gen.ChainID); err != nil {
		return err
	}
	if err := multisig.InitConfig(db, gen.AppState); err != nil {
		return err
	}
	var balances []GenesisBalance
	if err := gen.AppState.ReadOptions("balances", &balances); err != nil {
		return errors.Wrapf(errors.ErrInput, "balances: %s", err)
	}
	for i, b := range balances {
		if err := bank.Issue(db, b.Address, b.Amount); err != nil {
			return errors.Wrapf(err, "balance %d", i)
		}
	}
	return nil
}
