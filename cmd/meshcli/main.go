/*
Command meshcli drives a multisig engine backed by an iavl store on disk.

Every command opens the store, runs a single request and commits it. Write
requests are signed with a member key derived from a seed file.

	$ meshcli keygen --key alice.seed
	$ meshcli init --genesis genesis.json
	$ meshcli create-registry --key alice.seed --threshold 2 --members A,B,C
	$ meshcli propose --key alice.seed --registry R
	$ meshcli transfer --key alice.seed --tx T --to D --amount 10
	$ meshcli approve --key bob.seed --tx T
	$ meshcli execute --key bob.seed --tx T
*/
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/app"
	"github.com/iov-one/mesh/store/iavl"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tendermint/tendermint/libs/log"
)

const storeName = "mesh"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	c := &cobra.Command{
		Use:           "meshcli",
		Short:         "Quorum gated multisig engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := c.PersistentFlags()
	flags.String("home", env("MESHCLI_HOME", filepath.Join(os.Getenv("HOME"), ".meshcli")),
		"Directory of the state database. You can use MESHCLI_HOME environment variable to set it.")
	flags.Bool("verbose", false, "Log requests to stderr.")

	c.AddCommand(
		keygenCmd(),
		keyaddrCmd(),
		initCmd(),
		createRegistryCmd(),
		governanceCmd(),
		proposeCmd(),
		transferCmd(),
		transitionCmd("activate", "Open a draft transaction for voting."),
		transitionCmd("approve", "Approve an active transaction."),
		transitionCmd("reject", "Reject an active transaction."),
		transitionCmd("cancel", "Withdraw a draft or active transaction."),
		transitionCmd("execute", "Execute all instructions of an approved transaction."),
		transitionCmd("execute-next", "Execute the next instruction of an approved transaction."),
		showCmd(),
		vaultCmd(),
		versionCmd(),
	)
	return c
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the program version",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(c.OutOrStdout(), mesh.Version())
			return err
		},
	}
}

// env returns the value of an environment variable if set and non empty,
// otherwise the fallback value.
func env(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// withService opens the store in the home directory and calls fn with a
// service using it.
func withService(c *cobra.Command, fn func(ctx context.Context, svc *app.Service) error) error {
	home, err := c.Flags().GetString("home")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(home, 0700); err != nil {
		return fmt.Errorf("cannot create home directory: %s", err)
	}
	db, err := iavl.NewCommitStore(home, storeName)
	if err != nil {
		return err
	}
	defer db.Close()
	svc, err := app.NewService(db, nil, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	if verbose, _ := c.Flags().GetBool("verbose"); verbose {
		svc = svc.WithLogger(log.NewTMLogger(log.NewSyncWriter(c.ErrOrStderr())))
	}
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, svc)
}

// payload returns the bytes signed for a command invocation.
func payload(c *cobra.Command, args []string) []byte {
	parts := []string{c.CommandPath()}
	c.Flags().Visit(func(f *pflag.Flag) {
		parts = append(parts, "--"+f.Name+"="+f.Value.String())
	})
	return []byte(strings.Join(append(parts, args...), " "))
}

func printJSON(w io.Writer, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return fmt.Errorf("cannot serialize: %s", err)
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}
