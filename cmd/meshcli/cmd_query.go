package main

import (
	"context"
	"fmt"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/app"
	"github.com/spf13/cobra"
)

func showCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "show <registry|tx|instructions|balance> <address>",
		Short: "Print the state of an address",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			addr, err := mesh.ParseAddress(args[1])
			if err != nil {
				return err
			}
			return withService(c, func(ctx context.Context, svc *app.Service) error {
				var (
					res interface{}
					err error
				)
				switch args[0] {
				case "registry":
					res, err = svc.Registry(ctx, addr)
				case "tx":
					res, err = svc.Transaction(ctx, addr)
				case "instructions":
					res, err = svc.Instructions(ctx, addr)
				case "balance":
					res, err = svc.Balance(ctx, addr)
				default:
					return fmt.Errorf("unknown kind %q", args[0])
				}
				if err != nil {
					return err
				}
				return printJSON(c.OutOrStdout(), res)
			})
		},
	}
	return c
}

func vaultCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "vault",
		Short: "Print the address of a registry vault",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			registry, err := addressFlag(c, "registry")
			if err != nil {
				return err
			}
			index, _ := c.Flags().GetUint32("index")
			return withService(c, func(ctx context.Context, svc *app.Service) error {
				v, err := svc.Vault(registry, index)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(c.OutOrStdout(), v.Address)
				return err
			})
		},
	}
	c.Flags().String("registry", "", "Registry address.")
	c.Flags().Uint32("index", 1, "Vault index.")
	return c
}
