// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chaintest

import (
	"context"
	"sync"

	"github.com/ava-labs/shardchain/chain/network"
	"github.com/ava-labs/shardchain/ids"
)

var _ network.Sender = (*Sender)(nil)

// Sender records every request instead of sending it.
type Sender struct {
	lock   sync.Mutex
	blocks []ids.ID
	parts  []network.PartRequest
}

func (s *Sender) RequestBlock(_ context.Context, blkID ids.ID) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.blocks = append(s.blocks, blkID)
	return nil
}

func (s *Sender) RequestChunkPart(_ context.Context, request network.PartRequest) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.parts = append(s.parts, request)
	return nil
}

// TakeBlockRequests returns and forgets the recorded block requests.
func (s *Sender) TakeBlockRequests() []ids.ID {
	s.lock.Lock()
	defer s.lock.Unlock()

	blocks := s.blocks
	s.blocks = nil
	return blocks
}

// TakePartRequests returns and forgets the recorded part requests.
func (s *Sender) TakePartRequests() []network.PartRequest {
	s.lock.Lock()
	defer s.lock.Unlock()

	parts := s.parts
	s.parts = nil
	return parts
}
