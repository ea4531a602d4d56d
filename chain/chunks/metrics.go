// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chunks

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/shardchain/utils/wrappers"
)

type metrics struct {
	assemblies      prometheus.Gauge
	completed       prometheus.Counter
	corruptParts    prometheus.Counter
	corruptBodies   prometheus.Counter
	timeouts        prometheus.Counter
	partRequests    prometheus.Counter
	requestFailures prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		assemblies: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "assemblies",
			Help: "Number of chunks currently being assembled",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "completed",
			Help: "Number of chunks fully assembled",
		}),
		corruptParts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corrupt_parts",
			Help: "Number of parts whose proof did not match the parts root",
		}),
		corruptBodies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corrupt_bodies",
			Help: "Number of assembled bodies that did not match the body root",
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timeouts",
			Help: "Number of assemblies dropped after timing out",
		}),
		partRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "part_requests",
			Help: "Number of chunk part requests sent",
		}),
		requestFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "part_request_failures",
			Help: "Number of chunk part requests that could not be sent",
		}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		reg.Register(m.assemblies),
		reg.Register(m.completed),
		reg.Register(m.corruptParts),
		reg.Register(m.corruptBodies),
		reg.Register(m.timeouts),
		reg.Register(m.partRequests),
		reg.Register(m.requestFailures),
	)
	return m, errs.Err
}
