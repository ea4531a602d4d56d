// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ava-labs/shardchain/chain/block"
	"github.com/ava-labs/shardchain/chain/store"
	"github.com/ava-labs/shardchain/config"
	"github.com/ava-labs/shardchain/ids"
)

const (
	horizonFlag = "horizon"
	batchFlag   = "batch"
	onceFlag    = "once"
)

type pointer struct {
	ID     ids.ID `json:"id"`
	Height uint64 `json:"height"`
}

type headView struct {
	Head       pointer `json:"head"`
	HeaderHead pointer `json:"headerHead"`
	Final      pointer `json:"final"`
	GCTail     uint64  `json:"gcTail"`
}

type blockView struct {
	ID           ids.ID     `json:"id"`
	Height       uint64     `json:"height"`
	ParentID     ids.ID     `json:"parentID"`
	Epoch        uint64     `json:"epoch"`
	Timestamp    uint64     `json:"timestamp"`
	StateRoot    ids.ID     `json:"stateRoot"`
	Producer     ids.NodeID `json:"producer"`
	Status       string     `json:"status"`
	HeadMoved    bool       `json:"headMoved"`
	Canonical    bool       `json:"canonical"`
	Chunks       []ids.ID   `json:"chunks"`
	Endorsements int        `json:"endorsements"`
}

type heightView struct {
	Height    uint64   `json:"height"`
	Canonical ids.ID   `json:"canonical"`
	Blocks    []ids.ID `json:"blocks"`
}

type gcView struct {
	From   uint64   `json:"from"`
	To     uint64   `json:"to"`
	Pruned []ids.ID `json:"pruned"`
}

func (a *app) headCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "head",
		Short: "Prints the head, header head and final block",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, _ []string) error {
			var (
				view     headView
				pointers = []struct {
					get func() (ids.ID, error)
					to  *pointer
				}{
					{get: a.store.GetHead, to: &view.Head},
					{get: a.store.GetHeaderHead, to: &view.HeaderHead},
					{get: a.store.GetFinal, to: &view.Final},
				}
			)
			for _, p := range pointers {
				blkID, err := p.get()
				if err != nil {
					return err
				}
				p.to.ID = blkID
				// The header head may not be applied.
				if blk, err := a.store.GetBlock(blkID); err == nil {
					p.to.Height = blk.Height()
				}
			}

			var err error
			view.GCTail, err = a.store.GetGCTail()
			if err != nil {
				return err
			}
			return printJSON(cmd, view)
		}),
	}
}

func (a *app) blockCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "block <blockID>",
		Short: "Prints an applied block and its status",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			blkID, err := ids.FromString(args[0])
			if err != nil {
				return fmt.Errorf("couldn't parse block id: %w", err)
			}
			blk, err := a.store.GetBlock(blkID)
			if err != nil {
				return fmt.Errorf("couldn't get block %s: %w", blkID, err)
			}
			status, err := a.store.GetStatus(blkID)
			if err != nil {
				return err
			}
			canonicalID, err := a.store.GetCanonicalBlockID(blk.Height())
			if err != nil {
				return err
			}
			return printJSON(cmd, newBlockView(blk, status, canonicalID == blkID))
		}),
	}
}

func newBlockView(blk *block.Block, status store.Status, canonical bool) blockView {
	return blockView{
		ID:           blk.ID(),
		Height:       blk.Height(),
		ParentID:     blk.Parent(),
		Epoch:        blk.Header.Epoch,
		Timestamp:    blk.Header.Timestamp,
		StateRoot:    blk.Header.StateRoot,
		Producer:     blk.Header.Producer,
		Status:       status.State.String(),
		HeadMoved:    status.HeadMoved,
		Canonical:    canonical,
		Chunks:       blk.ChunkIDs(),
		Endorsements: len(blk.Endorsements),
	}
}

func (a *app) heightCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "height <height>",
		Short: "Prints the blocks stored at a height",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			height, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("couldn't parse height: %w", err)
			}
			canonicalID, err := a.store.GetCanonicalBlockID(height)
			if err != nil {
				return fmt.Errorf("couldn't get canonical block at %d: %w", height, err)
			}
			blkIDs, err := a.store.GetBlockIDsAtHeight(height)
			if err != nil {
				return err
			}
			return printJSON(cmd, heightView{
				Height:    height,
				Canonical: canonicalID,
				Blocks:    blkIDs,
			})
		}),
	}
}

func (a *app) gcCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Prunes forks behind the final block",
		Args:  cobra.NoArgs,
	}
	flags := cmd.Flags()
	flags.Uint64(horizonFlag, 0, fmt.Sprintf("Heights below the final block whose forks are kept. Defaults to --%s", config.GCHorizonKey))
	flags.Uint64(batchFlag, 0, fmt.Sprintf("Heights pruned per commit. Defaults to --%s", config.GCBatchSizeKey))
	flags.Bool(onceFlag, false, "If true, only a single batch is pruned")

	cmd.RunE = a.withStore(func(cmd *cobra.Command, _ []string) error {
		horizon, batchSize := a.config.Chain.GCHorizon, a.config.Chain.GCBatchSize
		if flags.Changed(horizonFlag) {
			horizon, _ = flags.GetUint64(horizonFlag)
		}
		if flags.Changed(batchFlag) {
			batchSize, _ = flags.GetUint64(batchFlag)
		}
		once, _ := flags.GetBool(onceFlag)
		if batchSize == 0 {
			return fmt.Errorf("--%s must be positive", batchFlag)
		}

		var view gcView
		for first := true; ; first = false {
			result, err := a.store.CollectGarbage(horizon, batchSize)
			if err != nil {
				return err
			}
			if first {
				view.From = result.From
			}
			view.To = result.To
			if result.To == result.From {
				break
			}
			view.Pruned = append(view.Pruned, result.Pruned...)
			a.log.Info("pruned forks",
				zap.Uint64("from", result.From),
				zap.Uint64("to", result.To),
				zap.Int("numPruned", len(result.Pruned)),
			)
			if once {
				break
			}
		}
		return printJSON(cmd, view)
	})
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}
