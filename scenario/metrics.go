// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package scenario

import (
	"github.com/prometheus/client_golang/prometheus"
)

var runsCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mqtt",
		Subsystem: "scenario",
		Name:      "runs_total",
		Help:      "Total number of scenario runs.",
	}, []string{"style", "outcome"},
)

var publishedCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mqtt",
		Subsystem: "scenario",
		Name:      "messages_published_total",
		Help:      "Total number of messages published.",
	}, []string{"style"},
)

var publishFailedCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mqtt",
		Subsystem: "scenario",
		Name:      "publish_failures_total",
		Help:      "Total number of publishes that were not acknowledged.",
	}, []string{"style"},
)

var receivedCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mqtt",
		Subsystem: "scenario",
		Name:      "messages_received_total",
		Help:      "Total number of expected messages received.",
	}, []string{"style"},
)

var runDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "mqtt",
		Subsystem: "scenario",
		Name:      "run_duration_seconds",
		Help:      "Duration of scenario runs.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"style", "outcome"},
)

func registerRun(style string, outcome Outcome, seconds float64) {
	runsCounter.WithLabelValues(style, outcome.String()).Inc()
	runDuration.WithLabelValues(style, outcome.String()).Observe(seconds)
}

func registerPublished(style string) {
	publishedCounter.WithLabelValues(style).Inc()
}

func registerPublishFailed(style string) {
	publishFailedCounter.WithLabelValues(style).Inc()
}

func registerReceived(style string) {
	receivedCounter.WithLabelValues(style).Inc()
}

func init() {
	prometheus.MustRegister(runsCounter)
	prometheus.MustRegister(publishedCounter)
	prometheus.MustRegister(publishFailedCounter)
	prometheus.MustRegister(receivedCounter)
	prometheus.MustRegister(runDuration)
}
