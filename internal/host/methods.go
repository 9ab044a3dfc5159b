package host

// Method names accepted by Submit.
const (
	MethodFactoryCreate   = "factory.create"
	MethodBlobWrite       = "blob.write"
	MethodRegistryBlock   = "registry.block"
	MethodRegistryUnblock = "registry.unblock"

	MethodMintBatch                   = "edition.mintBatch"
	MethodMint                        = "edition.mint"
	MethodSetApprovalForAll           = "edition.setApprovalForAll"
	MethodApprove                     = "edition.approve"
	MethodTransferFrom                = "edition.transferFrom"
	MethodSetOperatorFilter           = "edition.setOperatorFilter"
	MethodEnableDefaultOperatorFilter = "edition.enableDefaultOperatorFilter"
	MethodDisableOperatorFilter       = "edition.disableOperatorFilter"
	MethodTransferOwnership           = "edition.transferOwnership"
	MethodSetApprovedMinter           = "edition.setApprovedMinter"
)

// Methods lists every accepted method name.
func Methods() []string {
	return []string{
		MethodFactoryCreate,
		MethodBlobWrite,
		MethodRegistryBlock,
		MethodRegistryUnblock,
		MethodMintBatch,
		MethodMint,
		MethodSetApprovalForAll,
		MethodApprove,
		MethodTransferFrom,
		MethodSetOperatorFilter,
		MethodEnableDefaultOperatorFilter,
		MethodDisableOperatorFilter,
		MethodTransferOwnership,
		MethodSetApprovedMinter,
	}
}
