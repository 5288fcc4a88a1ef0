// Copyright 2025 walteh LLC
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

// Package metrics exposes rewrite and undo counters in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/walteh/copyedit/pkg/rewrite"
	"gitlab.com/tozd/go/errors"
)

// Result labels
const (
	ResultSuccess  = "success"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultStale    = "stale"
	ResultError    = "error"

	ResultPartial = "partial"
	ResultEmpty   = "empty"
)

// 📈 Metrics holds the collectors of one server. Each instance owns its
// registry so several servers can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	rewrites   *prometheus.CounterVec
	duration   prometheus.Histogram
	candidates prometheus.Histogram
	undos      *prometheus.CounterVec
	sessions   prometheus.Gauge
}

// 🏭 New creates and registers the copyedit collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		rewrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "copyedit_rewrites_total",
			Help: "Total rewrite attempts by result",
		}, []string{"result"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "copyedit_rewrite_duration_seconds",
			Help:    "Rewrite duration in seconds, scan included",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),
		candidates: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "copyedit_rewrite_candidates",
			Help:    "Number of candidate spans found per successful rewrite",
			Buckets: []float64{1, 2, 3, 5, 10, 20},
		}),
		undos: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "copyedit_undos_total",
			Help: "Total undo requests by result",
		}, []string{"result"}),
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "copyedit_sessions",
			Help: "Editing sessions currently holding a ledger",
		}),
	}
}

// Result maps an outcome to its result label
func Result(out rewrite.Outcome) string {
	if out.Success {
		return ResultSuccess
	}
	err := out.Err()
	switch {
	case errors.Is(err, rewrite.ErrNotFound):
		return ResultNotFound
	case errors.Is(err, rewrite.ErrInvalidRequest), errors.Is(err, rewrite.ErrConfiguration):
		return ResultInvalid
	case errors.Is(err, rewrite.ErrStaleSource):
		return ResultStale
	default:
		return ResultError
	}
}

// ObserveRewrite records one rewrite attempt
func (m *Metrics) ObserveRewrite(out rewrite.Outcome, took time.Duration) {
	m.rewrites.WithLabelValues(Result(out)).Inc()
	m.duration.Observe(took.Seconds())
	if out.Success {
		m.candidates.Observe(float64(out.MatchCount))
	}
}

// ObserveUndo records one undo request. found is false when there was
// nothing to undo.
func (m *Metrics) ObserveUndo(found, partial bool) {
	switch {
	case !found:
		m.undos.WithLabelValues(ResultEmpty).Inc()
	case partial:
		m.undos.WithLabelValues(ResultPartial).Inc()
	default:
		m.undos.WithLabelValues(ResultSuccess).Inc()
	}
}

// SetSessions records how many sessions hold a ledger
func (m *Metrics) SetSessions(n int) {
	m.sessions.Set(float64(n))
}

// Handler serves the registry in the exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
