// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package projection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricNamePrefix = "projector_"

type projectorMetrics struct {
	events         *prometheus.CounterVec
	flushes        prometheus.Counter
	flushRetries   prometheus.Counter
	flushDuration  prometheus.Histogram
	rollbacks      *prometheus.CounterVec
	bufferLength   prometheus.Gauge
	checkpointSlot prometheus.Gauge
}

func (p *Projector) initMetrics() {
	promautoFactory := promauto.With(p.config.promRegistry)
	p.metrics = &projectorMetrics{}
	p.metrics.events = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricNamePrefix + "events_total",
			Help: "total number of chain-sync events received",
		},
		[]string{"type"},
	)
	p.metrics.flushes = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: metricNamePrefix + "flushes_total",
		Help: "total number of committed flushes",
	})
	p.metrics.flushRetries = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: metricNamePrefix + "flush_retries_total",
			Help: "total number of store transactions retried after a transient error",
		},
	)
	p.metrics.flushDuration = promautoFactory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    metricNamePrefix + "flush_duration_seconds",
			Help:    "time taken by a flush, retries included",
			Buckets: prometheus.DefBuckets,
		},
	)
	p.metrics.rollbacks = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricNamePrefix + "rollbacks_total",
			Help: "total number of rollbacks applied",
		},
		[]string{"scope"},
	)
	p.metrics.bufferLength = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: metricNamePrefix + "buffer_length",
		Help: "number of buffered events not committed yet",
	})
	p.metrics.checkpointSlot = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: metricNamePrefix + "checkpoint_slot",
		Help: "slot of the committed checkpoint",
	})
}
