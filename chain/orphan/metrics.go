// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package orphan

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/shardchain/utils/wrappers"
)

type metrics struct {
	numOrphans prometheus.Gauge
	evicted    prometheus.Counter
	expired    prometheus.Counter
	refused    prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		numOrphans: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orphans",
			Help: "Number of blocks waiting for a missing ancestor",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orphans_evicted",
			Help: "Number of orphans evicted to make room for newer orphans",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orphans_expired",
			Help: "Number of orphans dropped after their ttl",
		}),
		refused: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orphans_refused",
			Help: "Number of orphans refused because nothing could be evicted",
		}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		reg.Register(m.numOrphans),
		reg.Register(m.evicted),
		reg.Register(m.expired),
		reg.Register(m.refused),
	)
	return m, errs.Err
}
