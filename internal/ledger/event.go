package ledger

import (
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
)

// Kind names an event type.
type Kind string

const (
	KindEditionCreated        Kind = "EditionCreated"
	KindOwnershipTransferred  Kind = "OwnershipTransferred"
	KindOperatorFilterChanged Kind = "OperatorFilterChanged"
	KindBatchMintCompleted    Kind = "BatchMintCompleted"
	KindTransfer              Kind = "Transfer"
	KindApproval              Kind = "Approval"
	KindApprovalForAll        Kind = "ApprovalForAll"
	KindApprovedMinterChanged Kind = "ApprovedMinterChanged"
	KindBlobWritten           Kind = "BlobWritten"
)

// Event is one entry of the audit trail.
type Event struct {
	// ID is the content-addressed identity (ir.EventID).
	ID string `json:"id"`

	// Seq is the logical clock value at commit.
	Seq int64 `json:"seq"`

	// CallID identifies the call that produced the event.
	CallID string `json:"call_id"`

	// Source is the emitting resource (edition, factory or blob writer).
	Source ident.Address `json:"source"`

	// Kind is the event type.
	Kind Kind `json:"kind"`

	// Data is the event payload.
	Data ir.IRObject `json:"data"`
}

// Emitter accepts events from components.
type Emitter interface {
	Emit(source ident.Address, kind Kind, data ir.IRObject)
}
