// Copyright 2026 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsIngestion holds Prometheus metrics for the ingestion subsystem.
type metricsIngestion struct {
	once sync.Once

	filesByResult    *prometheus.CounterVec
	walkSkipped      *prometheus.CounterVec
	runsByState      *prometheus.CounterVec
	deliveryAttempts prometheus.Counter

	parseDuration    prometheus.Histogram
	deliveryDuration prometheus.Histogram
	runDuration      prometheus.Histogram
}

var ingMetrics metricsIngestion

func (m *metricsIngestion) init() {
	m.once.Do(func() {
		m.filesByResult = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mira_ingest_files_total",
			Help: "Files handled by the ingestion pipeline, by result",
		}, []string{"result"})
		m.walkSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mira_ingest_walk_skipped_total",
			Help: "Paths skipped while walking the root, by reason",
		}, []string{"reason"})
		m.runsByState = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mira_ingest_runs_total",
			Help: "Ingestion runs, by terminal state",
		}, []string{"state"})
		m.deliveryAttempts = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mira_ingest_delivery_attempts_total",
			Help: "Parse results handed to the delivery boundary",
		})

		buckets := []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
		m.parseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "mira_ingest_parse_seconds", Help: "Time spent parsing and normalizing one file", Buckets: buckets})
		m.deliveryDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "mira_ingest_delivery_seconds", Help: "Time spent delivering one parse result", Buckets: buckets})
		m.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "mira_ingest_run_seconds", Help: "Total duration of an ingestion run", Buckets: prometheus.ExponentialBuckets(0.1, 2, 12)})

		prometheus.MustRegister(
			m.filesByResult, m.walkSkipped, m.runsByState, m.deliveryAttempts,
			m.parseDuration, m.deliveryDuration, m.runDuration,
		)
	})
}

// record helpers - used by the pipeline
func recordFile(result string) { ingMetrics.init(); ingMetrics.filesByResult.WithLabelValues(result).Inc() }
func recordDeliveryAttempt()    { ingMetrics.init(); ingMetrics.deliveryAttempts.Inc() }

func recordWalkSkips(reasons map[string]int) {
	ingMetrics.init()
	for reason, n := range reasons {
		ingMetrics.walkSkipped.WithLabelValues(reason).Add(float64(n))
	}
}

func recordRun(state RunState, d time.Duration) {
	ingMetrics.init()
	ingMetrics.runsByState.WithLabelValues(string(state)).Inc()
	ingMetrics.runDuration.Observe(d.Seconds())
}

func observeParse(d time.Duration)    { ingMetrics.init(); ingMetrics.parseDuration.Observe(d.Seconds()) }
func observeDelivery(d time.Duration) { ingMetrics.init(); ingMetrics.deliveryDuration.Observe(d.Seconds()) }
