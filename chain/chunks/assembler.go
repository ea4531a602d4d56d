// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chunks collects the parts of chunks referenced by blocks and
// reassembles them into verified chunk bodies.
package chunks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ava-labs/shardchain/chain/block"
	"github.com/ava-labs/shardchain/chain/network"
	"github.com/ava-labs/shardchain/ids"
	"github.com/ava-labs/shardchain/utils/logging"
	"github.com/ava-labs/shardchain/utils/set"
	"github.com/ava-labs/shardchain/utils/timer"
	"github.com/ava-labs/shardchain/utils/timer/mockable"
)

const treeDegree = 2

var (
	// ErrCorruptChunk is returned for data that contradicts the chunk header.
	// The part's source is excluded from further requests for the chunk.
	ErrCorruptChunk = errors.New("corrupt chunk data")
	ErrUnknownChunk = errors.New("chunk is not being assembled")
)

// Request is the handle of an outstanding assembly.
type Request struct {
	chunkID   ids.ID
	assembler *Assembler
}

func (r *Request) ChunkID() ids.ID {
	return r.chunkID
}

// Cancel stops the assembly and discards any parts received so far.
func (r *Request) Cancel() {
	r.assembler.Cancel(r.chunkID)
}

type assembly struct {
	chunkID ids.ID
	header  block.ChunkHeader
	request *Request

	data    map[uint32][]byte
	sources map[uint32]ids.NodeID
	// excluded are peers that served corrupt data for this chunk.
	excluded set.Set[ids.NodeID]

	started   time.Time
	attempt   int
	nextRetry time.Time
}

func (a *assembly) Less(other *assembly) bool {
	if !a.nextRetry.Equal(other.nextRetry) {
		return a.nextRetry.Before(other.nextRetry)
	}
	return a.chunkID.Compare(other.chunkID) < 0
}

// missing returns the part requests for every part not yet received.
func (a *assembly) missing() []network.PartRequest {
	requests := make([]network.PartRequest, 0, int(a.header.NumParts)-len(a.data))
	for i := uint32(0); i < a.header.NumParts; i++ {
		if _, ok := a.data[i]; ok {
			continue
		}
		exclude := set.NewSet[ids.NodeID](a.excluded.Len())
		exclude.Union(a.excluded)
		requests = append(requests, network.PartRequest{
			ChunkID: a.chunkID,
			ShardID: a.header.ShardID,
			Height:  a.header.Height,
			Index:   i,
			Exclude: exclude,
		})
	}
	return requests
}

// Assembler is safe for concurrent use. Part proofs are verified without
// holding its lock.
type Assembler struct {
	config  Config
	backoff timer.Backoff
	sender  network.Sender
	clock   *mockable.Clock
	log     logging.Logger
	metrics *metrics

	lock       sync.Mutex
	assemblies map[ids.ID]*assembly
	// retries orders assemblies by their next retry time.
	retries *btree.BTreeG[*assembly]
}

func New(
	config Config,
	sender network.Sender,
	clock *mockable.Clock,
	log logging.Logger,
	reg prometheus.Registerer,
) (*Assembler, error) {
	m, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}
	return &Assembler{
		config: config,
		backoff: timer.Backoff{
			Initial: config.InitialBackoff,
			Max:     config.MaxBackoff,
		},
		sender:     sender,
		clock:      clock,
		log:        log,
		metrics:    m,
		assemblies: make(map[ids.ID]*assembly),
		retries:    btree.NewG(treeDegree, (*assembly).Less),
	}, nil
}

// RequestMissing starts assembling the chunk described by [header] and
// requests all of its parts. If the chunk is already being assembled, the
// existing handle is returned and nothing is sent.
func (a *Assembler) RequestMissing(ctx context.Context, header block.ChunkHeader) (*Request, error) {
	if header.NumParts == 0 {
		return nil, block.ErrNoParts
	}
	chunkID := header.ID()

	a.lock.Lock()
	if existing, ok := a.assemblies[chunkID]; ok {
		a.lock.Unlock()
		return existing.request, nil
	}
	now := a.clock.Time()
	as := &assembly{
		chunkID:   chunkID,
		header:    header,
		data:      make(map[uint32][]byte, header.NumParts),
		sources:   make(map[uint32]ids.NodeID, header.NumParts),
		started:   now,
		nextRetry: now.Add(a.backoff.Delay(1)),
	}
	as.request = &Request{
		chunkID:   chunkID,
		assembler: a,
	}
	a.assemblies[chunkID] = as
	a.retries.ReplaceOrInsert(as)
	a.metrics.assemblies.Set(float64(len(a.assemblies)))
	requests := as.missing()
	a.lock.Unlock()

	a.log.Debug("requesting chunk",
		zap.Stringer("chunkID", chunkID),
		zap.Uint32("shardID", header.ShardID),
		zap.Uint64("height", header.Height),
		zap.Uint32("numParts", header.NumParts),
	)
	a.send(ctx, requests)
	return as.request, nil
}

func (a *Assembler) send(ctx context.Context, requests []network.PartRequest) {
	for _, request := range requests {
		a.metrics.partRequests.Inc()
		if err := a.sender.RequestChunkPart(ctx, request); err != nil {
			a.metrics.requestFailures.Inc()
			a.log.Debug("failed to request chunk part",
				zap.Stringer("chunkID", request.ChunkID),
				zap.Uint32("index", request.Index),
				zap.Error(err),
			)
		}
	}
}

// OnPartReceived records [part]. Once every part of the chunk is present and
// the body matches the header's commitments, the chunk is returned and the
// assembly ends.
//
// A part that fails verification returns ErrCorruptChunk and excludes its
// source. A complete body that fails verification discards every part,
// excludes every source that contributed and returns ErrCorruptChunk.
func (a *Assembler) OnPartReceived(part *block.ChunkPart) (*block.Chunk, error) {
	a.lock.Lock()
	as, ok := a.assemblies[part.ChunkID]
	if !ok {
		a.lock.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownChunk, part.ChunkID)
	}
	if _, ok := as.data[part.Index]; ok {
		a.lock.Unlock()
		return nil, nil
	}
	header := as.header
	a.lock.Unlock()

	verifyErr := header.VerifyPart(part)

	a.lock.Lock()
	defer a.lock.Unlock()

	// The assembly may have completed or been cancelled while the part was
	// being verified.
	as, ok = a.assemblies[part.ChunkID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChunk, part.ChunkID)
	}
	if verifyErr != nil {
		as.excluded.Add(part.Source)
		a.metrics.corruptParts.Inc()
		return nil, fmt.Errorf("%w: part %d of %s from %s: %w",
			ErrCorruptChunk, part.Index, part.ChunkID, part.Source, verifyErr)
	}
	if _, ok := as.data[part.Index]; ok {
		return nil, nil
	}
	as.data[part.Index] = part.Data
	as.sources[part.Index] = part.Source
	if uint32(len(as.data)) < as.header.NumParts {
		return nil, nil
	}

	data := make([][]byte, as.header.NumParts)
	for i := range data {
		data[i] = as.data[uint32(i)]
	}
	body, err := block.AssembleBody(&as.header, data)
	if err != nil {
		for _, source := range as.sources {
			as.excluded.Add(source)
		}
		clear(as.data)
		clear(as.sources)
		a.metrics.corruptBodies.Inc()

		// Ask the remaining peers again on the next sweep.
		a.retries.Delete(as)
		as.nextRetry = a.clock.Time()
		a.retries.ReplaceOrInsert(as)
		return nil, fmt.Errorf("%w: body of %s: %w", ErrCorruptChunk, part.ChunkID, err)
	}

	a.remove(as)
	a.metrics.completed.Inc()
	return &block.Chunk{
		Header: as.header,
		Body:   body,
	}, nil
}

// Retry re-requests the missing parts of every assembly whose backoff has
// elapsed. Assemblies older than Timeout are dropped instead and their ids
// returned.
func (a *Assembler) Retry(ctx context.Context) []ids.ID {
	a.lock.Lock()
	var (
		now      = a.clock.Time()
		due      []*assembly
		timedOut []ids.ID
		requests []network.PartRequest
	)
	a.retries.Ascend(func(as *assembly) bool {
		if as.nextRetry.After(now) {
			return false
		}
		due = append(due, as)
		return true
	})
	for _, as := range due {
		if now.Sub(as.started) >= a.config.Timeout {
			a.remove(as)
			a.metrics.timeouts.Inc()
			timedOut = append(timedOut, as.chunkID)
			continue
		}
		a.retries.Delete(as)
		as.attempt++
		as.nextRetry = now.Add(a.backoff.Delay(as.attempt + 1))
		a.retries.ReplaceOrInsert(as)
		requests = append(requests, as.missing()...)
	}
	a.lock.Unlock()

	for _, chunkID := range timedOut {
		a.log.Debug("chunk assembly timed out",
			zap.Stringer("chunkID", chunkID),
		)
	}
	a.send(ctx, requests)
	return timedOut
}

// Cancel drops the assembly of [chunkID], if any.
func (a *Assembler) Cancel(chunkID ids.ID) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if as, ok := a.assemblies[chunkID]; ok {
		a.remove(as)
	}
}

// Has returns true if [chunkID] is being assembled.
func (a *Assembler) Has(chunkID ids.ID) bool {
	a.lock.Lock()
	defer a.lock.Unlock()

	_, ok := a.assemblies[chunkID]
	return ok
}

func (a *Assembler) Len() int {
	a.lock.Lock()
	defer a.lock.Unlock()

	return len(a.assemblies)
}

func (a *Assembler) remove(as *assembly) {
	delete(a.assemblies, as.chunkID)
	a.retries.Delete(as)
	a.metrics.assemblies.Set(float64(len(a.assemblies)))
}
