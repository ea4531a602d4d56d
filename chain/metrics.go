// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/shardchain/utils/wrappers"
)

type metrics struct {
	accepted         prometheus.Counter
	rejected         prometheus.Counter
	orphaned         prometheus.Counter
	reorgs           prometheus.Counter
	reorgDepth       prometheus.Histogram
	headHeight       prometheus.Gauge
	headerHeadHeight prometheus.Gauge
	finalHeight      prometheus.Gauge
	processing       prometheus.Gauge
	pendingExecution prometheus.Gauge
	pruned           prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blocks_accepted",
			Help: "Number of blocks applied",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blocks_rejected",
			Help: "Number of blocks rejected",
		}),
		orphaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blocks_orphaned",
			Help: "Number of blocks that arrived before their parent",
		}),
		reorgs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reorgs",
			Help: "Number of head switches that abandoned canonical blocks",
		}),
		reorgDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reorg_depth",
			Help:    "Number of canonical blocks abandoned per reorg",
			Buckets: prometheus.LinearBuckets(1, 1, 8),
		}),
		headHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "head_height",
			Help: "Height of the head",
		}),
		headerHeadHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "header_head_height",
			Help: "Height of the best validated header",
		}),
		finalHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "final_height",
			Help: "Height of the final block",
		}),
		processing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "processing",
			Help: "Number of validated blocks waiting to be applied",
		}),
		pendingExecution: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pending_execution",
			Help: "Number of blocks waiting for the vm",
		}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blocks_pruned",
			Help: "Number of non-canonical blocks deleted behind finality",
		}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		reg.Register(m.accepted),
		reg.Register(m.rejected),
		reg.Register(m.orphaned),
		reg.Register(m.reorgs),
		reg.Register(m.reorgDepth),
		reg.Register(m.headHeight),
		reg.Register(m.headerHeadHeight),
		reg.Register(m.finalHeight),
		reg.Register(m.processing),
		reg.Register(m.pendingExecution),
		reg.Register(m.pruned),
	)
	return m, errs.Err
}
