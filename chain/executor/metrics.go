// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/shardchain/utils/wrappers"
)

type metrics struct {
	applied      prometheus.Counter
	cached       prometheus.Counter
	vmCalls      prometheus.Counter
	vmFailures   prometheus.Counter
	applyLatency prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		applied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "applied",
			Help: "Number of blocks whose chunks were executed",
		}),
		cached: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cached",
			Help: "Number of applications answered from persisted results",
		}),
		vmCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vm_calls",
			Help: "Number of chunks handed to the vm",
		}),
		vmFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vm_failures",
			Help: "Number of vm calls that failed for a reason that may not persist",
		}),
		applyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "apply_duration_seconds",
			Help:    "Time spent executing the chunks of a block",
			Buckets: prometheus.DefBuckets,
		}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		reg.Register(m.applied),
		reg.Register(m.cached),
		reg.Register(m.vmCalls),
		reg.Register(m.vmFailures),
		reg.Register(m.applyLatency),
	)
	return m, errs.Err
}
