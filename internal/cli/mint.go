package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/editions/internal/host"
	"github.com/roach88/editions/internal/ir"
)

// NewMintCommand creates the mint command.
func NewMintCommand(opts *RootOptions) *cobra.Command {
	cmd := editionCommand(opts, "mint <edition> <to>", "Mint one token",
		host.MethodMint, 1, func(args []string) (ir.IRObject, error) {
			to, err := addrArg("recipient", args[0])
			if err != nil {
				return nil, err
			}
			return ir.IRObject{"to": to}, nil
		})
	cmd.Long = `Mint the next token id to a recipient. The caller must be the owner or an
approved minter, the mint period must be open and the supply cap not reached.`
	return cmd
}

// NewMintBatchCommand creates the mint-batch command.
func NewMintBatchCommand(opts *RootOptions) *cobra.Command {
	cmd := editionCommand(opts, "mint-batch <edition> <pointer>", "Mint one token per address in a recipient blob",
		host.MethodMintBatch, 1, func(args []string) (ir.IRObject, error) {
			return ir.IRObject{"pointer": ir.IRString(args[0])}, nil
		})
	cmd.Long = `Mint one token to every address stored in a recipient blob, in blob order.
Write the blob first with "editions blob write --addresses". Only the owner
may batch mint; the batch is all or nothing.

Examples:
  editions blob write --as @artist --addresses-file recipients.txt
  editions mint-batch --as @artist 0x5d3a... bafkrei...`
	return cmd
}
