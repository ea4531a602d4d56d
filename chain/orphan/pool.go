// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package orphan holds blocks whose parent is not known yet.
package orphan

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ava-labs/shardchain/chain/block"
	"github.com/ava-labs/shardchain/ids"
	"github.com/ava-labs/shardchain/utils/logging"
	"github.com/ava-labs/shardchain/utils/set"
	"github.com/ava-labs/shardchain/utils/timer/mockable"
)

const treeDegree = 2

var ErrPoolFull = errors.New("orphan pool is full")

type entry struct {
	blk     *block.Block
	arrival time.Time
	// seq orders entries that arrived at the same time.
	seq uint64
}

func (e *entry) Less(other *entry) bool {
	if !e.arrival.Equal(other.arrival) {
		return e.arrival.Before(other.arrival)
	}
	return e.seq < other.seq
}

// Pool is a bounded set of orphans indexed by the parent they are missing.
// It is safe for concurrent use.
type Pool struct {
	config  Config
	clock   *mockable.Clock
	log     logging.Logger
	metrics *metrics

	lock     sync.Mutex
	byID     map[ids.ID]*entry
	byParent map[ids.ID]set.Set[ids.ID]
	// arrivals orders the orphans from oldest to newest.
	arrivals *btree.BTreeG[*entry]
	// requested maps a missing ancestor to the time it was last requested.
	requested map[ids.ID]time.Time
	nextSeq   uint64
}

func New(
	config Config,
	clock *mockable.Clock,
	log logging.Logger,
	reg prometheus.Registerer,
) (*Pool, error) {
	m, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}
	return &Pool{
		config:    config,
		clock:     clock,
		log:       log,
		metrics:   m,
		byID:      make(map[ids.ID]*entry),
		byParent:  make(map[ids.ID]set.Set[ids.ID]),
		arrivals:  btree.NewG(treeDegree, (*entry).Less),
		requested: make(map[ids.ID]time.Time),
	}, nil
}

// Add inserts [blk]. If the pool is full the oldest orphan that is not
// protected by a recent ancestor request is evicted. If every orphan is
// protected, [blk] is refused with ErrPoolFull. Adding a present orphan is a
// no-op.
func (p *Pool) Add(blk *block.Block) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	blkID := blk.ID()
	if _, ok := p.byID[blkID]; ok {
		return nil
	}
	if len(p.byID) >= p.config.MaxSize {
		victim, ok := p.evictionCandidate()
		if !ok {
			p.metrics.refused.Inc()
			return ErrPoolFull
		}
		p.log.Debug("evicting orphan",
			zap.Stringer("blkID", victim.blk.ID()),
			zap.Uint64("height", victim.blk.Height()),
		)
		p.remove(victim)
		p.metrics.evicted.Inc()
	}

	e := &entry{
		blk:     blk,
		arrival: p.clock.Time(),
		seq:     p.nextSeq,
	}
	p.nextSeq++

	parentID := blk.Parent()
	p.byID[blkID] = e
	children := p.byParent[parentID]
	children.Add(blkID)
	p.byParent[parentID] = children
	p.arrivals.ReplaceOrInsert(e)
	p.metrics.numOrphans.Set(float64(len(p.byID)))
	return nil
}

func (p *Pool) evictionCandidate() (*entry, bool) {
	var (
		now    = p.clock.Time()
		victim *entry
	)
	p.arrivals.Ascend(func(e *entry) bool {
		if p.isProtected(e, now) {
			return true
		}
		victim = e
		return false
	})
	return victim, victim != nil
}

func (p *Pool) isProtected(e *entry, now time.Time) bool {
	ancestorID := p.missingAncestor(e)
	requestedAt, ok := p.requested[ancestorID]
	return ok && now.Sub(requestedAt) < p.config.RequestProtection
}

func (p *Pool) Has(blkID ids.ID) bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	_, ok := p.byID[blkID]
	return ok
}

func (p *Pool) Get(blkID ids.ID) (*block.Block, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()

	e, ok := p.byID[blkID]
	if !ok {
		return nil, false
	}
	return e.blk, true
}

func (p *Pool) Len() int {
	p.lock.Lock()
	defer p.lock.Unlock()

	return len(p.byID)
}

// Take removes and returns the orphans whose parent is [parentID], sorted by
// id.
func (p *Pool) Take(parentID ids.ID) []*block.Block {
	p.lock.Lock()
	defer p.lock.Unlock()

	delete(p.requested, parentID)
	childIDs := set.Sorted(p.byParent[parentID], ids.ID.Compare)
	blks := make([]*block.Block, 0, len(childIDs))
	for _, childID := range childIDs {
		e := p.byID[childID]
		blks = append(blks, e.blk)
		p.remove(e)
	}
	return blks
}

// MissingAncestor follows the parents of the orphan [blkID] through the pool
// and returns the first ancestor that is not an orphan. Returns false if
// [blkID] is not an orphan.
func (p *Pool) MissingAncestor(blkID ids.ID) (ids.ID, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()

	e, ok := p.byID[blkID]
	if !ok {
		return ids.Empty, false
	}
	return p.missingAncestor(e), true
}

func (p *Pool) missingAncestor(e *entry) ids.ID {
	for {
		parentID := e.blk.Parent()
		parent, ok := p.byID[parentID]
		if !ok {
			return parentID
		}
		e = parent
	}
}

// MarkRequested records that [blkID] was just requested from the network.
func (p *Pool) MarkRequested(blkID ids.ID) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.requested[blkID] = p.clock.Time()
}

// RequestSatisfied records that [blkID] is no longer outstanding.
func (p *Pool) RequestSatisfied(blkID ids.ID) {
	p.lock.Lock()
	defer p.lock.Unlock()

	delete(p.requested, blkID)
}

// PendingRequests returns, sorted, the missing ancestors of the pool that
// have not been requested within the last RequestProtection.
func (p *Pool) PendingRequests() []ids.ID {
	p.lock.Lock()
	defer p.lock.Unlock()

	var (
		now     = p.clock.Time()
		missing set.Set[ids.ID]
	)
	for parentID := range p.byParent {
		if _, ok := p.byID[parentID]; ok {
			continue
		}
		requestedAt, ok := p.requested[parentID]
		if ok && now.Sub(requestedAt) < p.config.RequestProtection {
			continue
		}
		missing.Add(parentID)
	}
	return set.Sorted(missing, ids.ID.Compare)
}

// Expire drops every orphan that has been held for at least TTL and returns
// their ids.
func (p *Pool) Expire() []ids.ID {
	p.lock.Lock()
	defer p.lock.Unlock()

	var (
		deadline = p.clock.Time().Add(-p.config.TTL)
		expired  []*entry
	)
	p.arrivals.Ascend(func(e *entry) bool {
		if e.arrival.After(deadline) {
			return false
		}
		expired = append(expired, e)
		return true
	})

	expiredIDs := make([]ids.ID, len(expired))
	for i, e := range expired {
		expiredIDs[i] = e.blk.ID()
		p.remove(e)
	}
	for blkID := range p.requested {
		if len(p.byParent[blkID]) == 0 {
			delete(p.requested, blkID)
		}
	}
	p.metrics.expired.Add(float64(len(expired)))
	return expiredIDs
}

// RemoveAtOrBelow drops every orphan at or below [height] and returns their
// ids sorted.
func (p *Pool) RemoveAtOrBelow(height uint64) []ids.ID {
	p.lock.Lock()
	defer p.lock.Unlock()

	var removed []ids.ID
	for blkID, e := range p.byID {
		if e.blk.Height() > height {
			continue
		}
		removed = append(removed, blkID)
		p.remove(e)
	}
	slices.SortFunc(removed, ids.ID.Compare)
	return removed
}

func (p *Pool) remove(e *entry) {
	var (
		blkID    = e.blk.ID()
		parentID = e.blk.Parent()
	)
	delete(p.byID, blkID)
	children := p.byParent[parentID]
	children.Remove(blkID)
	if children.Len() == 0 {
		delete(p.byParent, parentID)
	}
	p.arrivals.Delete(e)
	p.metrics.numOrphans.Set(float64(len(p.byID)))
}
