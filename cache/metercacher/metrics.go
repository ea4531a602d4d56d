// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metercacher

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/shardchain/utils/wrappers"
)

type metrics struct {
	hit,
	miss,
	put prometheus.Counter

	len,
	portionFilled prometheus.Gauge
}

func newMetrics(
	namespace string,
	reg prometheus.Registerer,
) (*metrics, error) {
	m := &metrics{
		hit: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hit",
			Help:      "Number of cache lookups that found a value",
		}),
		miss: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "miss",
			Help:      "Number of cache lookups that found nothing",
		}),
		put: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "put",
			Help:      "Number of cache insertions",
		}),
		len: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "len",
			Help:      "number of entries",
		}),
		portionFilled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portion_filled",
			Help:      "fraction of cache filled",
		}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		reg.Register(m.hit),
		reg.Register(m.miss),
		reg.Register(m.put),
		reg.Register(m.len),
		reg.Register(m.portionFilled),
	)
	return m, errs.Err
}
