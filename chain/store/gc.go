// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import "github.com/ava-labs/shardchain/ids"

// GCResult describes a garbage collection pass over the heights
// [From, To).
type GCResult struct {
	From   uint64
	To     uint64
	Pruned []ids.ID
}

// CollectGarbage prunes the forks of at most [batchSize] heights, starting at
// the GC tail and stopping [horizon] heights below the final block. The
// pruning and the new tail are committed together.
func (s *Store) CollectGarbage(horizon uint64, batchSize uint64) (GCResult, error) {
	finalID, err := s.GetFinal()
	if err != nil {
		return GCResult{}, err
	}
	final, err := s.GetBlock(finalID)
	if err != nil {
		return GCResult{}, err
	}
	tail, err := s.GetGCTail()
	if err != nil {
		return GCResult{}, err
	}

	result := GCResult{
		From: tail,
		To:   tail,
	}
	if final.Height() <= horizon || tail >= final.Height()-horizon {
		return result, nil
	}
	result.To = min(final.Height()-horizon, tail+batchSize)

	u := s.NewUpdate()
	for height := result.From; height < result.To; height++ {
		pruned, err := u.Prune(height)
		if err != nil {
			u.Abort()
			return GCResult{}, err
		}
		result.Pruned = append(result.Pruned, pruned...)
	}
	if err := u.SetGCTail(result.To); err != nil {
		u.Abort()
		return GCResult{}, err
	}
	return result, u.Commit()
}
