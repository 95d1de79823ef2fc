package main

import (
	"context"
	"fmt"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/app"
	"github.com/iov-one/mesh/x/bank"
	"github.com/iov-one/mesh/x/multisig"
	"github.com/iov-one/mesh/x/transaction"
	"github.com/spf13/cobra"
)

func proposeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "propose",
		Short: "Create a draft transaction",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			registry, err := addressFlag(c, "registry")
			if err != nil {
				return err
			}
			vault, _ := c.Flags().GetUint32("vault")
			return signed(c, args, app.OpProposeTransaction, registry, func(ctx context.Context, svc *app.Service) error {
				addr, tx, err := svc.ProposeTransaction(ctx, registry, vault)
				if err != nil {
					return err
				}
				return printJSON(c.OutOrStdout(), struct {
					Address     mesh.Address             `json:"address"`
					Transaction *transaction.Transaction `json:"transaction"`
				}{addr, tx})
			})
		},
	}
	addKeyFlags(c)
	c.Flags().String("registry", "", "Registry address.")
	c.Flags().Uint32("vault", 1, "Index of the vault that signs instructions by default.")
	return c
}

func transferCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "transfer",
		Short: "Append a transfer from a vault to a draft transaction",
		Long: `Append a transfer from a vault to a draft transaction.

The source is left as a placeholder that is signed for by the vault of the
transaction, or by the vault given with --vault.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			txAddr, err := addressFlag(c, "tx")
			if err != nil {
				return err
			}
			to, err := addressFlag(c, "to")
			if err != nil {
				return err
			}
			amount, _ := c.Flags().GetUint64("amount")
			keys, data, err := bank.TransferInstruction(bank.Placeholder(), to, amount)
			if err != nil {
				return err
			}
			req := transaction.InstructionRequest{ProgramID: bank.ProgramID, Keys: keys, Data: data}
			if c.Flags().Changed("vault") {
				vault, _ := c.Flags().GetUint32("vault")
				req.AuthorityIndex = &vault
			}
			return signed(c, args, app.OpAppendInstruction, txAddr, func(ctx context.Context, svc *app.Service) error {
				seq, err := svc.AppendInstruction(ctx, txAddr, req)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(c.OutOrStdout(), seq)
				return err
			})
		},
	}
	addKeyFlags(c)
	c.Flags().String("tx", "", "Transaction address.")
	c.Flags().String("to", "", "Recipient address.")
	c.Flags().Uint64("amount", 0, "Amount to transfer.")
	c.Flags().Uint32("vault", 0, "Index of the vault to transfer from.")
	return c
}

// appendGovernance appends a governance instruction signed by the default
// vault of the transaction.
func appendGovernance(ctx context.Context, c *cobra.Command, svc *app.Service, txAddr, registry mesh.Address, msg multisig.Msg) error {
	keys, data, err := multisig.Instruction(registry, msg)
	if err != nil {
		return err
	}
	seq, err := svc.AppendInstruction(ctx, txAddr, transaction.InstructionRequest{
		ProgramID: multisig.ProgramID,
		Keys:      keys,
		Data:      data,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.OutOrStdout(), seq)
	return err
}

// transitionOps maps transition commands to the operation they sign for.
var transitionOps = map[string]string{
	"activate":     app.OpActivate,
	"approve":      app.OpApprove,
	"reject":       app.OpReject,
	"cancel":       app.OpCancel,
	"execute":      app.OpExecute,
	"execute-next": app.OpExecuteInstruction,
}

func transitionCmd(name, short string) *cobra.Command {
	c := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			txAddr, err := addressFlag(c, "tx")
			if err != nil {
				return err
			}
			op, ok := transitionOps[name]
			if !ok {
				return fmt.Errorf("unknown transition %q", name)
			}
			return signed(c, args, op, txAddr, func(ctx context.Context, svc *app.Service) error {
				var fn func(context.Context, mesh.Address) (*transaction.Transaction, error)
				switch op {
				case app.OpActivate:
					fn = svc.Activate
				case app.OpApprove:
					fn = svc.Approve
				case app.OpReject:
					fn = svc.Reject
				case app.OpCancel:
					fn = svc.Cancel
				case app.OpExecute:
					fn = svc.Execute
				case app.OpExecuteInstruction:
					fn = svc.ExecuteInstruction
				}
				tx, err := fn(ctx, txAddr)
				if err != nil {
					return err
				}
				return printJSON(c.OutOrStdout(), tx)
			})
		},
	}
	addKeyFlags(c)
	c.Flags().String("tx", "", "Transaction address.")
	return c
}
