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

// Package health serves the liveness and readiness probes.
package health

import (
	"encoding/json"
	"net/http"

	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/breaker"
)

// Bus is the connectivity view the readiness probe needs.
type Bus interface {
	IsConnected() bool
}

type Handler struct {
	bus     Bus
	gate    *breaker.Breaker
	version string
}

func NewHandler(bus Bus, gate *breaker.Breaker, version string) *Handler {
	return &Handler{bus: bus, gate: gate, version: version}
}

type report struct {
	Alive          bool   `json:"alive"`
	Ready          bool   `json:"ready"`
	BusConnected   bool   `json:"bus_connected"`
	CircuitBreaker string `json:"circuit_breaker"`
	Version        string `json:"version"`
}

// Alive answers 200 whenever the process can serve HTTP at all.
func (h *Handler) Alive(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"alive": true})
}

// Ready answers 200 only when the gateway can usefully accept frames: the
// bus is connected and the breaker is closed. Otherwise 503 with the same
// body, so probes and humans see the same diagnosis.
func (h *Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	state := h.gate.CurrentState()
	r := report{
		Alive:          true,
		BusConnected:   h.bus.IsConnected(),
		CircuitBreaker: state.String(),
		Version:        h.version,
	}
	r.Ready = r.BusConnected && state == breaker.Closed

	w.Header().Set("Content-Type", "application/json")
	if !r.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(r)
}

// Register mounts the probe routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health/alive", h.Alive)
	mux.HandleFunc("/health/ready", h.Ready)
}
