// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

// Status is the verdict on a submitted block.
type Status uint8

const (
	// Accepted blocks were applied. They may or may not be the head.
	Accepted Status = iota + 1
	// Orphaned blocks wait for an unknown ancestor.
	Orphaned
	// Invalid blocks were rejected permanently.
	Invalid
	// PendingChunks blocks were validated and wait for chunks or for their
	// parent to be applied.
	PendingChunks
	// PendingExecution blocks wait for the VM to become available.
	PendingExecution
)

func (s Status) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Orphaned:
		return "orphaned"
	case Invalid:
		return "invalid"
	case PendingChunks:
		return "pending_chunks"
	case PendingExecution:
		return "pending_execution"
	default:
		return "unknown"
	}
}

type Outcome struct {
	Status Status
	// NewHead is set when an accepted block became the head.
	NewHead bool
	// Reason explains why an invalid block was rejected.
	Reason string
}
