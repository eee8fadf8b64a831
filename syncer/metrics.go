// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package syncer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jax-protocol/jax-fs/utils/metric"
	"github.com/jax-protocol/jax-fs/utils/wrappers"
)

type metrics struct {
	jobsExecuted prometheus.Counter
	jobsDropped  prometheus.Counter
	jobsFailed   prometheus.Counter
	forks        prometheus.Counter

	syncDuration metric.Averager
	pingDuration metric.Averager
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		jobsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jax_sync",
			Name:      "jobs_executed",
			Help:      "jobs drained from the sync queue",
		}),
		jobsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jax_sync",
			Name:      "jobs_dropped",
			Help:      "jobs rejected because the queue was full",
		}),
		jobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jax_sync",
			Name:      "jobs_failed",
			Help:      "jobs that ended in a transient or fatal error",
		}),
		forks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jax_sync",
			Name:      "forks_observed",
			Help:      "appends that landed next to an existing entry at the same height",
		}),
		syncDuration: metric.NewAverager(),
		pingDuration: metric.NewAverager(),
	}

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(m.jobsExecuted),
		registerer.Register(m.jobsDropped),
		registerer.Register(m.jobsFailed),
		registerer.Register(m.forks),
	)
	return m, errs.Err()
}
