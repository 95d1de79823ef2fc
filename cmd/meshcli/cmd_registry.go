package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/app"
	"github.com/iov-one/mesh/x/multisig"
	"github.com/iov-one/mesh/x/sigs"
	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "init",
		Short: "Initialise the state from a genesis file",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			path, _ := c.Flags().GetString("genesis")
			gen, err := app.LoadGenesis(path)
			if err != nil {
				return err
			}
			return withService(c, func(ctx context.Context, svc *app.Service) error {
				if err := svc.InitChain(ctx, gen); err != nil {
					return err
				}
				_, err := fmt.Fprintln(c.OutOrStdout(), svc.ChainID())
				return err
			})
		},
	}
	c.Flags().String("genesis", "genesis.json", "Path to the genesis file.")
	return c
}

func createRegistryCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "create-registry",
		Short: "Create a new registry",
		Long: `Create a new registry.

Without an external authority the registry is governed by its vault 0, so
that membership changes require an approved transaction.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			threshold, _ := c.Flags().GetUint32("threshold")
			createKey, _ := c.Flags().GetString("create-key")
			members, err := addressesFlag(c, "members")
			if err != nil {
				return err
			}
			req := multisig.CreateRequest{
				Threshold: threshold,
				CreateKey: []byte(createKey),
				Members:   members,
			}
			if req.ExternalAuthority, err = optionalAddressFlag(c, "authority"); err != nil {
				return err
			}
			return signed(c, args, app.OpCreateRegistry, req.CreateKey, func(ctx context.Context, svc *app.Service) error {
				addr, ms, err := svc.CreateRegistry(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(c.OutOrStdout(), struct {
					Address  mesh.Address       `json:"address"`
					Registry *multisig.Multisig `json:"registry"`
				}{addr, ms})
			})
		},
	}
	addKeyFlags(c)
	c.Flags().Uint32("threshold", 1, "Number of approvals required to execute a transaction.")
	c.Flags().String("create-key", "", "Unique value the registry address is derived from.")
	c.Flags().String("members", "", "Comma separated member addresses.")
	c.Flags().String("authority", "", "External authority allowed to change the registry. Defaults to vault 0.")
	return c
}

func governanceCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "governance",
		Short: "Change a registry as its external authority",
		Long: `Change a registry as its external authority.

Registries governed by their own vault must be changed with a governance
instruction appended to a transaction, see the --tx flag.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			registry, err := addressFlag(c, "registry")
			if err != nil {
				return err
			}
			msg, err := governanceMsg(c)
			if err != nil {
				return err
			}
			txAddr, err := optionalAddressFlag(c, "tx")
			if err != nil {
				return err
			}
			op, target := app.OpApplyGovernance, registry
			if txAddr != nil {
				op, target = app.OpAppendInstruction, txAddr
			}
			return signed(c, args, op, target, func(ctx context.Context, svc *app.Service) error {
				if txAddr != nil {
					return appendGovernance(ctx, c, svc, txAddr, registry, msg)
				}
				ms, err := svc.ApplyGovernance(ctx, registry, msg)
				if err != nil {
					return err
				}
				return printJSON(c.OutOrStdout(), ms)
			})
		},
	}
	addKeyFlags(c)
	c.Flags().String("registry", "", "Registry address.")
	c.Flags().String("tx", "", "Append the change to this transaction instead of applying it.")
	c.Flags().String("add-member", "", "Member to add.")
	c.Flags().String("remove-member", "", "Member to remove.")
	c.Flags().Uint32("threshold", 0, "New threshold.")
	c.Flags().Bool("add-authority", false, "Track one more vault authority.")
	c.Flags().String("allow-external-execute", "", "Allow non members to execute, true or false.")
	c.Flags().String("set-authority", "", "New external authority.")
	return c
}

// governanceMsg builds the message selected by the governance flags.
func governanceMsg(c *cobra.Command) (multisig.Msg, error) {
	add, err := optionalAddressFlag(c, "add-member")
	if err != nil {
		return nil, err
	}
	rm, err := optionalAddressFlag(c, "remove-member")
	if err != nil {
		return nil, err
	}
	authority, err := optionalAddressFlag(c, "set-authority")
	if err != nil {
		return nil, err
	}
	threshold, _ := c.Flags().GetUint32("threshold")
	addAuthority, _ := c.Flags().GetBool("add-authority")
	external, _ := c.Flags().GetString("allow-external-execute")

	var msg multisig.Msg
	switch {
	case add != nil && threshold != 0:
		msg = &multisig.AddMemberAndChangeThresholdMsg{Member: add, Threshold: threshold}
	case rm != nil && threshold != 0:
		msg = &multisig.RemoveMemberAndChangeThresholdMsg{Member: rm, Threshold: threshold}
	case add != nil:
		msg = &multisig.AddMemberMsg{Member: add}
	case rm != nil:
		msg = &multisig.RemoveMemberMsg{Member: rm}
	case threshold != 0:
		msg = &multisig.ChangeThresholdMsg{Threshold: threshold}
	case addAuthority:
		msg = &multisig.AddAuthorityMsg{}
	case external != "":
		msg = &multisig.SetExternalExecuteMsg{Allow: external == "true"}
	case authority != nil:
		msg = &multisig.ChangeExternalAuthorityMsg{Authority: authority}
	default:
		return nil, fmt.Errorf("no change requested")
	}
	return msg, msg.Validate()
}

// signed signs the invocation for operation op on target with the member
// key and calls fn with the authenticated context.
func signed(c *cobra.Command, args []string, op string, target []byte, fn func(ctx context.Context, svc *app.Service) error) error {
	key, err := loadKey(c)
	if err != nil {
		return err
	}
	return withService(c, func(ctx context.Context, svc *app.Service) error {
		seq, err := svc.NextSequence(ctx, key.Address())
		if err != nil {
			return err
		}
		req := sigs.NewRequest(op, target, payload(c, args))
		sig, err := sigs.Sign(key, req, svc.ChainID(), seq)
		if err != nil {
			return err
		}
		req.AddSignature(sig)
		ctx, err = svc.Authenticate(ctx, req)
		if err != nil {
			return err
		}
		return fn(ctx, svc)
	})
}

func addressFlag(c *cobra.Command, name string) (mesh.Address, error) {
	a, err := optionalAddressFlag(c, name)
	if err == nil && a == nil {
		err = fmt.Errorf("--%s is required", name)
	}
	return a, err
}

func optionalAddressFlag(c *cobra.Command, name string) (mesh.Address, error) {
	raw, err := c.Flags().GetString(name)
	if err != nil || raw == "" {
		return nil, err
	}
	a, err := mesh.ParseAddress(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: %s", name, err)
	}
	return a, nil
}

func addressesFlag(c *cobra.Command, name string) ([]mesh.Address, error) {
	raw, err := c.Flags().GetString(name)
	if err != nil {
		return nil, err
	}
	var res []mesh.Address
	for _, chunk := range strings.Split(raw, ",") {
		if chunk = strings.TrimSpace(chunk); chunk == "" {
			continue
		}
		a, err := mesh.ParseAddress(chunk)
		if err != nil {
			return nil, fmt.Errorf("--%s: %s", name, err)
		}
		res = append(res, a)
	}
	return res, nil
}
