package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/editions/internal/host"
	"github.com/roach88/editions/internal/ir"
)

// NewApproveCommand creates the approve command.
func NewApproveCommand(opts *RootOptions) *cobra.Command {
	return editionCommand(opts, "approve <edition> <operator> <token-id>",
		"Approve an operator for one token (operator filter applies)",
		host.MethodApprove, 2, func(args []string) (ir.IRObject, error) {
			operator, err := addrArg("operator", args[0])
			if err != nil {
				return nil, err
			}
			tokenID, err := tokenArg(args[1])
			if err != nil {
				return nil, err
			}
			return ir.IRObject{"operator": operator, "token_id": tokenID}, nil
		})
}

// NewApproveAllCommand creates the approve-all command.
func NewApproveAllCommand(opts *RootOptions) *cobra.Command {
	var revoke bool
	cmd := editionCommand(opts, "approve-all <edition> <operator>",
		"Approve or revoke an operator for all of the caller's tokens",
		host.MethodSetApprovalForAll, 1, func(args []string) (ir.IRObject, error) {
			operator, err := addrArg("operator", args[0])
			if err != nil {
				return nil, err
			}
			return ir.IRObject{"operator": operator, "approved": ir.IRBool(!revoke)}, nil
		})
	cmd.Long = `Approve an operator for all of the caller's tokens. Granting is checked
against the edition's operator filter; revoking always succeeds.`
	cmd.Flags().BoolVar(&revoke, "revoke", false, "revoke instead of approve")
	return cmd
}

// NewTransferCommand creates the transfer command.
func NewTransferCommand(opts *RootOptions) *cobra.Command {
	var from string
	cmd := editionCommand(opts, "transfer <edition> <to> <token-id>", "Transfer a token",
		host.MethodTransferFrom, 2, func(args []string) (ir.IRObject, error) {
			to, err := addrArg("recipient", args[0])
			if err != nil {
				return nil, err
			}
			tokenID, err := tokenArg(args[1])
			if err != nil {
				return nil, err
			}
			callArgs := ir.IRObject{"to": to, "token_id": tokenID}
			if from != "" {
				if callArgs["from"], err = addrArg("--from", from); err != nil {
					return nil, err
				}
			}
			return callArgs, nil
		})
	cmd.Flags().StringVar(&from, "from", "", "current holder (defaults to the caller)")
	return cmd
}

// NewTransferOwnershipCommand creates the transfer-ownership command.
func NewTransferOwnershipCommand(opts *RootOptions) *cobra.Command {
	return editionCommand(opts, "transfer-ownership <edition> <new-owner>", "Hand the edition to a new owner",
		host.MethodTransferOwnership, 1, func(args []string) (ir.IRObject, error) {
			owner, err := addrArg("new owner", args[0])
			if err != nil {
				return nil, err
			}
			return ir.IRObject{"new_owner": owner}, nil
		})
}

// NewMinterCommand creates the minter command.
func NewMinterCommand(opts *RootOptions) *cobra.Command {
	var revoke bool
	cmd := editionCommand(opts, "minter <edition> <minter>", "Allow or disallow an approved minter",
		host.MethodSetApprovedMinter, 1, func(args []string) (ir.IRObject, error) {
			minter, err := addrArg("minter", args[0])
			if err != nil {
				return nil, err
			}
			return ir.IRObject{"minter": minter, "allowed": ir.IRBool(!revoke)}, nil
		})
	cmd.Flags().BoolVar(&revoke, "revoke", false, "remove the minter")
	return cmd
}
