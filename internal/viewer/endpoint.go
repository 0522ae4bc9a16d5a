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

// Package viewer exposes analysis results to browser observers over a
// WebSocket fan-out. Observers are read-only; anything they send is
// discarded.
package viewer

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/hub"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/pkg/core"
)

const observerGroup = "results"

type Endpoint struct {
	hub      *hub.Hub[*core.AnalyzeResponse]
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewEndpoint(logger *slog.Logger) *Endpoint {
	return &Endpoint{
		hub:    hub.New[*core.AnalyzeResponse](logger),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID := observerID(r)

	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.logger.Warn("result observer upgrade failed", "client_id", clientID, "error", err)
		return
	}

	e.hub.Join(observerGroup, conn)
	e.logger.Info("result observer connected",
		"client_id", clientID,
		"observers", e.hub.Count(observerGroup),
	)

	// Read pump: observers never send anything meaningful, but reading is
	// how we notice the peer going away and how pings get answered.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				e.hub.Leave(observerGroup, conn)
				e.logger.Info("result observer disconnected",
					"client_id", clientID,
					"observers", e.hub.Count(observerGroup),
				)
				return
			}
		}
	}()
}

// Broadcast pushes one analysis result to every connected observer and
// reports how many received it.
func (e *Endpoint) Broadcast(resp *core.AnalyzeResponse) int {
	return e.hub.Broadcast(observerGroup, resp)
}

func (e *Endpoint) Observers() int {
	return e.hub.Count(observerGroup)
}
