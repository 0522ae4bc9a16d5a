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

// Package signaling relays session negotiation messages between a capture
// device and the viewers watching it. The relay routes on the envelope
// alone and never inspects payloads.
package signaling

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/hub"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/pkg/core"
)

type Relay struct {
	hub      *hub.Hub[*core.SignalEnvelope]
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewRelay(logger *slog.Logger) *Relay {
	return &Relay{
		hub:    hub.New[*core.SignalEnvelope](logger),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// One group per device per side. Device messages fan out to the viewer
// group; viewer messages go to the device group, which holds at most one
// live connection in practice.
func viewersGroup(deviceID string) string { return "viewers:" + deviceID }
func deviceGroup(deviceID string) string  { return "device:" + deviceID }

func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("signaling upgrade failed", "remote", req.RemoteAddr, "error", err)
		return
	}

	join := &core.SignalEnvelope{}
	if err := conn.ReadJSON(join); err != nil || join.Type != core.SignalJoin || join.DeviceID == "" {
		r.logger.Warn("signaling session rejected, first message must be a join",
			"remote", req.RemoteAddr)
		conn.Close()
		return
	}

	// The device announces itself with from == device_id; anything else is
	// a viewer of that device.
	isDevice := join.From == join.DeviceID
	deviceID := join.DeviceID

	if isDevice {
		r.hub.Join(deviceGroup(deviceID), conn)
		r.logger.Info("capture device joined signaling", "device_id", deviceID)
	} else {
		r.hub.Join(viewersGroup(deviceID), conn)
		r.logger.Info("viewer joined signaling",
			"device_id", deviceID,
			"from", join.From,
			"viewers", r.hub.Count(viewersGroup(deviceID)),
		)
		// The device needs the join to know a peer wants an offer.
		r.hub.Broadcast(deviceGroup(deviceID), join)
	}

	r.readLoop(conn, deviceID, join.From, isDevice)
}

func (r *Relay) readLoop(conn *websocket.Conn, deviceID, from string, isDevice bool) {
	for {
		env := &core.SignalEnvelope{}
		if err := conn.ReadJSON(env); err != nil {
			r.drop(conn, deviceID, from, isDevice)
			return
		}

		if env.DeviceID != deviceID {
			r.logger.Warn("signal for foreign device dropped",
				"session_device", deviceID,
				"envelope_device", env.DeviceID,
				"from", from,
			)
			continue
		}

		if env.Type == core.SignalLeave {
			r.relay(env, isDevice)
			r.drop(conn, deviceID, from, isDevice)
			return
		}

		r.relay(env, isDevice)
	}
}

func (r *Relay) relay(env *core.SignalEnvelope, fromDevice bool) {
	if fromDevice {
		r.hub.Broadcast(viewersGroup(env.DeviceID), env)
	} else {
		r.hub.Broadcast(deviceGroup(env.DeviceID), env)
	}
}

// drop tears down one side of a session. A device going away ends the
// whole session, so its viewers are disconnected too.
func (r *Relay) drop(conn *websocket.Conn, deviceID, from string, isDevice bool) {
	if isDevice {
		r.hub.DropGroup(deviceGroup(deviceID))
		r.hub.DropGroup(viewersGroup(deviceID))
		r.logger.Info("capture device left signaling", "device_id", deviceID)
		return
	}
	r.hub.Leave(viewersGroup(deviceID), conn)
	r.logger.Info("viewer left signaling", "device_id", deviceID, "from", from)
}

// Viewers reports how many viewers are attached to a device session.
func (r *Relay) Viewers(deviceID string) int {
	return r.hub.Count(viewersGroup(deviceID))
}
