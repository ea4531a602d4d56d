// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import "fmt"

// State is the terminal verdict recorded for a block.
type State uint8

const (
	Unknown State = iota
	Applied
	Rejected
)

func (s State) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Applied:
		return "applied"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Status is persisted once per block so that re-submissions are answered
// without being validated or executed again.
type Status struct {
	State State
	// HeadMoved is set for applied blocks that became the head when they
	// were applied.
	HeadMoved bool
	// Reason is set for rejected blocks.
	Reason string
}
