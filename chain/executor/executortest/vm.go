// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package executortest provides a deterministic in-memory VM.
package executortest

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/ava-labs/shardchain/chain/block"
	"github.com/ava-labs/shardchain/chain/executor"
	"github.com/ava-labs/shardchain/ids"
	"github.com/ava-labs/shardchain/utils/hashing"
)

var _ executor.VM = (*VM)(nil)

// NextStateRoot is the state root the VM reaches by applying [body] to shard
// [shardID] at [priorStateRoot].
func NextStateRoot(shardID uint32, priorStateRoot ids.ID, body *block.Body) ids.ID {
	shard := binary.BigEndian.AppendUint32(nil, shardID)
	return hashing.ComputeHash256Ranges(shard, priorStateRoot[:], body.Bytes())
}

// VM derives shard state roots by hashing. Every transaction's outcome is its
// own hash.
type VM struct {
	// OnApply, if set, runs before every application. A non-nil error is
	// returned instead of a result.
	OnApply func(shardID uint32, priorStateRoot ids.ID) error

	lock  sync.Mutex
	calls int
}

func (vm *VM) ApplyChunk(_ context.Context, shardID uint32, priorStateRoot ids.ID, body *block.Body) (*executor.ChunkResult, error) {
	vm.lock.Lock()
	vm.calls++
	onApply := vm.OnApply
	vm.lock.Unlock()

	if onApply != nil {
		if err := onApply(shardID, priorStateRoot); err != nil {
			return nil, err
		}
	}

	outcomes := make([][]byte, len(body.Transactions))
	for i, tx := range body.Transactions {
		outcomes[i] = hashing.ComputeHash256(tx)
	}
	return &executor.ChunkResult{
		StateRoot: NextStateRoot(shardID, priorStateRoot, body),
		Outcomes:  outcomes,
	}, nil
}

// Calls returns how many chunks were handed to the VM.
func (vm *VM) Calls() int {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	return vm.calls
}
