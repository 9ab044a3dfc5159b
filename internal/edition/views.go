package edition

import (
	"maps"

	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/initguard"
)

// Address returns the edition's identity.
func (e *Edition) Address() ident.Address { return e.addr }

// State returns the initialization state.
func (e *Edition) State() initguard.State { return e.guard.State() }

// Name returns the edition name set at initialization.
func (e *Edition) Name() string { return e.name }

// Symbol returns the edition symbol.
func (e *Edition) Symbol() string { return e.symbol }

// Owner returns the current owner.
func (e *Edition) Owner() ident.Address { return e.auth.Owner() }

// ActiveFilter returns the operator filter in force; zero when disabled.
func (e *Edition) ActiveFilter() ident.Address { return e.gate.Filter() }

// TotalSupply returns the number of tokens minted so far.
func (e *Edition) TotalSupply() int64 { return e.totalSupply }

// MaxSupply returns the supply cap; 0 means unlimited.
func (e *Edition) MaxSupply() int64 { return e.maxSupply }

// RoyaltyBPS returns the royalty in basis points.
func (e *Edition) RoyaltyBPS() int64 { return e.royaltyBPS }

// EndOfMintPeriod returns the unix second minting ends at; 0 means never.
func (e *Edition) EndOfMintPeriod() int64 { return e.endOfMintPeriod }

// Metadata returns a copy of the metadata field bag.
func (e *Edition) Metadata() map[string]string { return maps.Clone(e.metadata) }

// IsMintingEnded reports whether the mint period has passed.
func (e *Edition) IsMintingEnded() bool {
	return e.endOfMintPeriod != 0 && e.deps.Now().Unix() >= e.endOfMintPeriod
}

// OwnerOf returns the holder of tokenID.
func (e *Edition) OwnerOf(tokenID int64) (ident.Address, error) {
	holder, ok := e.owners[tokenID]
	if !ok {
		return ident.Zero, ErrTokenNotFound.With("token_id", formatInt(tokenID))
	}
	return holder, nil
}

// BalanceOf returns the number of tokens holder owns.
func (e *Edition) BalanceOf(holder ident.Address) int64 {
	return e.balances[holder]
}

// GetApproved returns the single-unit approval for tokenID.
func (e *Edition) GetApproved(tokenID int64) (ident.Address, error) {
	if _, err := e.OwnerOf(tokenID); err != nil {
		return ident.Zero, err
	}
	return e.tokenApprovals[tokenID], nil
}

// IsApprovedForAll reports whether operator may move all of holder's tokens.
func (e *Edition) IsApprovedForAll(holder, operator ident.Address) bool {
	return e.operatorApprovals[holder][operator]
}

// IsApprovedMinter reports whether minter may call Mint.
func (e *Edition) IsApprovedMinter(minter ident.Address) bool {
	return e.minters[minter]
}

// Info is a point-in-time summary of an edition.
type Info struct {
	Address         ident.Address     `json:"address"`
	Name            string            `json:"name"`
	Symbol          string            `json:"symbol"`
	Owner           ident.Address     `json:"owner"`
	ActiveFilter    ident.Address     `json:"active_filter"`
	TotalSupply     int64             `json:"total_supply"`
	MaxSupply       int64             `json:"max_supply"`
	RoyaltyBPS      int64             `json:"royalty_bps"`
	EndOfMintPeriod int64             `json:"end_of_mint_period"`
	MintingEnded    bool              `json:"minting_ended"`
	Metadata        map[string]string `json:"metadata"`
}

// Info returns a summary of the edition.
func (e *Edition) Info() Info {
	return Info{
		Address:         e.addr,
		Name:            e.name,
		Symbol:          e.symbol,
		Owner:           e.Owner(),
		ActiveFilter:    e.ActiveFilter(),
		TotalSupply:     e.totalSupply,
		MaxSupply:       e.maxSupply,
		RoyaltyBPS:      e.royaltyBPS,
		EndOfMintPeriod: e.endOfMintPeriod,
		MintingEnded:    e.IsMintingEnded(),
		Metadata:        e.Metadata(),
	}
}
