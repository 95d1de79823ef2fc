package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/iov-one/mesh/crypto"
	"github.com/spf13/cobra"
)

const seedSize = 32

func addKeyFlags(c *cobra.Command) {
	c.Flags().String("key", env("MESHCLI_KEY", ""),
		"Path to the seed file that requests are signed with. You can use MESHCLI_KEY environment variable to set it.")
	c.Flags().Uint32("index", 0, "Derivation index of the member key.")
}

func keygenCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new seed file",
		Long: `Generate a new seed file.

Member keys are derived from the seed with SLIP-0010. This command fails if
the seed file already exists.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			path, _ := c.Flags().GetString("key")
			if path == "" {
				return fmt.Errorf("key path required")
			}
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				// Do not allow to overwrite an existing seed by an
				// accident.
				return fmt.Errorf("seed file %q already exists, delete this file and try again", path)
			}
			seed := make([]byte, seedSize)
			if _, err := rand.Read(seed); err != nil {
				return fmt.Errorf("cannot generate seed: %s", err)
			}
			if err := ioutil.WriteFile(path, []byte(hex.EncodeToString(seed)), 0600); err != nil {
				return fmt.Errorf("cannot write seed file: %s", err)
			}
			key, err := loadKey(c)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.OutOrStdout(), key.Address())
			return err
		},
	}
	addKeyFlags(c)
	return c
}

func keyaddrCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "keyaddr",
		Short: "Print the member address of a key",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			key, err := loadKey(c)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.OutOrStdout(), key.Address())
			return err
		},
	}
	addKeyFlags(c)
	return c
}

// loadKey derives the member key selected by the key and index flags.
func loadKey(c *cobra.Command) (crypto.PrivateKey, error) {
	path, _ := c.Flags().GetString("key")
	if path == "" {
		return nil, fmt.Errorf("key path required")
	}
	index, err := c.Flags().GetUint32("index")
	if err != nil {
		return nil, err
	}
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read seed file: %s", err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("cannot decode seed file: %s", err)
	}
	if len(seed) != seedSize {
		return nil, fmt.Errorf("invalid seed length: %d", len(seed))
	}
	return crypto.DeriveKey(seed, crypto.DerivationPath(index))
}
