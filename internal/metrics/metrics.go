// Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied. See the License for the
// specific language governing permissions and limitations
// under the License.

// Package metrics holds the gateway's mutable counters. Each instance owns
// its own state so multiple gateways can coexist in one test process; the
// same atomics back both GetStatus snapshots and the Prometheus scrape.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wso2/biometric-platform/gateway/capture-gateway/pkg/core"
)

type Metrics struct {
	framesProcessed  atomic.Int64
	framesRejected   atomic.Int64
	handlerErrors    atomic.Int64
	connectedDevices atomic.Int64
	inFlight         atomic.Int64
	totalLatencyUS   atomic.Int64

	descProcessed *prometheus.Desc
	descRejected  *prometheus.Desc
	descErrors    *prometheus.Desc
	descDevices   *prometheus.Desc
	descInFlight  *prometheus.Desc
	descLatency   *prometheus.Desc
}

func New() *Metrics {
	return &Metrics{
		descProcessed: prometheus.NewDesc(
			"capture_gateway_frames_processed_total",
			"Frames accepted and published to the analysis bus.",
			nil, nil),
		descRejected: prometheus.NewDesc(
			"capture_gateway_frames_rejected_total",
			"Frames rejected by the breaker or by a failed publish.",
			nil, nil),
		descErrors: prometheus.NewDesc(
			"capture_gateway_handler_errors_total",
			"Malformed or unarchivable inbound bus messages.",
			nil, nil),
		descDevices: prometheus.NewDesc(
			"capture_gateway_connected_devices",
			"Currently open device streaming sessions.",
			nil, nil),
		descInFlight: prometheus.NewDesc(
			"capture_gateway_frames_in_flight",
			"Published analyze requests with no result seen yet.",
			nil, nil),
		descLatency: prometheus.NewDesc(
			"capture_gateway_publish_latency_seconds_total",
			"Cumulative bus publish latency for accepted frames.",
			nil, nil),
	}
}

// FrameProcessed records a successful forward and its publish latency.
func (m *Metrics) FrameProcessed(latency time.Duration) {
	m.framesProcessed.Add(1)
	m.inFlight.Add(1)
	m.totalLatencyUS.Add(latency.Microseconds())
}

func (m *Metrics) FrameRejected() { m.framesRejected.Add(1) }
func (m *Metrics) HandlerError()  { m.handlerErrors.Add(1) }

func (m *Metrics) DeviceConnected()    { m.connectedDevices.Add(1) }
func (m *Metrics) DeviceDisconnected() { m.connectedDevices.Add(-1) }

// ResultReceived drains the in-flight gauge. Results correlate to requests
// only best-effort, so the gauge is clamped at zero.
func (m *Metrics) ResultReceived() {
	if m.inFlight.Add(-1) < 0 {
		m.inFlight.Store(0)
	}
}

func (m *Metrics) FramesProcessed() int64 { return m.framesProcessed.Load() }
func (m *Metrics) FramesRejected() int64  { return m.framesRejected.Load() }
func (m *Metrics) HandlerErrors() int64   { return m.handlerErrors.Load() }
func (m *Metrics) InFlight() int64        { return m.inFlight.Load() }

// Snapshot computes the read-only status aggregate on demand.
func (m *Metrics) Snapshot() core.ServerStatus {
	processed := m.framesProcessed.Load()
	var avgMS float64
	if processed > 0 {
		avgMS = float64(m.totalLatencyUS.Load()) / float64(processed) / 1000.0
	}
	return core.ServerStatus{
		Alive:            true,
		ConnectedDevices: int(m.connectedDevices.Load()),
		AvgLatencyMS:     avgMS,
		FramesProcessed:  processed,
	}
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.descProcessed
	ch <- m.descRejected
	ch <- m.descErrors
	ch <- m.descDevices
	ch <- m.descInFlight
	ch <- m.descLatency
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(m.descProcessed, prometheus.CounterValue, float64(m.framesProcessed.Load()))
	ch <- prometheus.MustNewConstMetric(m.descRejected, prometheus.CounterValue, float64(m.framesRejected.Load()))
	ch <- prometheus.MustNewConstMetric(m.descErrors, prometheus.CounterValue, float64(m.handlerErrors.Load()))
	ch <- prometheus.MustNewConstMetric(m.descDevices, prometheus.GaugeValue, float64(m.connectedDevices.Load()))
	ch <- prometheus.MustNewConstMetric(m.descInFlight, prometheus.GaugeValue, float64(m.inFlight.Load()))
	ch <- prometheus.MustNewConstMetric(m.descLatency, prometheus.CounterValue, float64(m.totalLatencyUS.Load())/1e6)
}
