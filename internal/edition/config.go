package edition

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/roach88/editions/internal/blobstore"
	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ledger"
	"github.com/roach88/editions/internal/opfilter"
)

// MaxRoyaltyBPS is 100% in basis points.
const MaxRoyaltyBPS = 10_000

// Config is the caller-supplied configuration passed through Initialize.
type Config struct {
	Name   string
	Symbol string
	Owner  ident.Address

	// Metadata is an opaque field bag (description, media URLs, external URL).
	Metadata map[string]string

	RoyaltyBPS int64

	// MaxSupply caps total minted units; 0 means unlimited.
	MaxSupply int64

	// MintPeriod is measured from initialization; 0 means minting never ends.
	MintPeriod time.Duration

	// OperatorFilter is the initial filter; zero disables filtering.
	OperatorFilter ident.Address
}

func (c Config) validate() error {
	fail := func(msg string) *faults.Error {
		return faults.New(faults.CodeInitializationFailed, msg)
	}
	switch {
	case c.Name == "":
		return fail("name is required")
	case c.Owner.IsZero():
		return fail("owner is required")
	case c.RoyaltyBPS < 0 || c.RoyaltyBPS > MaxRoyaltyBPS:
		return fail("royalty out of range").With("royalty_bps", strconv.FormatInt(c.RoyaltyBPS, 10))
	case c.MaxSupply < 0:
		return fail("max supply must not be negative")
	case c.MintPeriod < 0:
		return fail("mint period must not be negative")
	}
	return nil
}

// Deps are the collaborators an edition consumes.
type Deps struct {
	// Blobs serves recipient lists for MintBatch.
	Blobs blobstore.Store

	// Registry answers operator filter queries. Nil means unreachable.
	Registry opfilter.Registry

	// Policy overrides opfilter.DefaultPolicy when set.
	Policy *opfilter.Policy

	// Events receives emitted events. Nil discards them.
	Events ledger.Emitter

	// Now supplies the current time; defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}
