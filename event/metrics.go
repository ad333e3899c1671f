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

package event

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const eventMetricNamePrefix = "projector_event_bus_"

// eventMetrics methods are no-ops on a nil receiver so the bus works
// without a registry
type eventMetrics struct {
	eventsTotal    *prometheus.CounterVec
	subscribers    *prometheus.GaugeVec
	deliveryErrors *prometheus.CounterVec
}

func newEventMetrics(promRegistry prometheus.Registerer) *eventMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &eventMetrics{
		eventsTotal: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: eventMetricNamePrefix + "events_total",
				Help: "total number of events published",
			},
			[]string{"type"},
		),
		subscribers: promautoFactory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: eventMetricNamePrefix + "subscribers",
				Help: "current number of subscribers",
			},
			[]string{"type", "kind"},
		),
		deliveryErrors: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: eventMetricNamePrefix + "delivery_errors_total",
				Help: "total number of failed or dropped deliveries",
			},
			[]string{"type", "kind"},
		),
	}
}

func (m *eventMetrics) published(eventType EventType) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(string(eventType)).Inc()
}

func (m *eventMetrics) subscriberAdded(eventType EventType, kind string) {
	if m == nil {
		return
	}
	m.subscribers.WithLabelValues(string(eventType), kind).Inc()
}

func (m *eventMetrics) subscriberRemoved(eventType EventType, kind string) {
	if m == nil {
		return
	}
	m.subscribers.WithLabelValues(string(eventType), kind).Dec()
}

func (m *eventMetrics) deliveryError(eventType EventType, kind string) {
	if m == nil {
		return
	}
	m.deliveryErrors.WithLabelValues(string(eventType), kind).Inc()
}

func (m *eventMetrics) reset() {
	if m == nil {
		return
	}
	m.subscribers.Reset()
}
