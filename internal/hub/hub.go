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

// Package hub is the shared fan-out registry behind the result broadcast
// and signaling endpoints: groups of connections, each with its own writer
// goroutine, so one slow or dead observer never blocks the rest.
package hub

import (
	"log/slog"
	"sync"
)

// Conn is satisfied by *websocket.Conn.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

const sendBuffer = 16

type member[M any] struct {
	conn Conn
	send chan M
}

type Hub[M any] struct {
	mu     sync.RWMutex
	groups map[string]map[Conn]*member[M]
	logger *slog.Logger
}

func New[M any](logger *slog.Logger) *Hub[M] {
	return &Hub[M]{
		groups: make(map[string]map[Conn]*member[M]),
		logger: logger,
	}
}

// Join registers conn in group and starts its writer. The hub owns the
// connection from here on: it is closed when the member leaves, is pruned,
// or its group is dropped.
func (h *Hub[M]) Join(group string, conn Conn) {
	m := &member[M]{conn: conn, send: make(chan M, sendBuffer)}

	h.mu.Lock()
	g, ok := h.groups[group]
	if !ok {
		g = make(map[Conn]*member[M])
		h.groups[group] = g
	}
	g[conn] = m
	h.mu.Unlock()

	go h.writeLoop(group, m)
}

func (h *Hub[M]) writeLoop(group string, m *member[M]) {
	for msg := range m.send {
		if err := m.conn.WriteJSON(msg); err != nil {
			h.logger.Debug("observer write failed, pruning",
				"group", group, "error", err)
			h.Leave(group, m.conn)
			for range m.send {
				// drain until Leave closes the channel
			}
			return
		}
	}
}

// Leave removes conn from group and closes it. Safe to call twice; only
// the call that actually removes the member closes its channel.
func (h *Hub[M]) Leave(group string, conn Conn) {
	h.mu.Lock()
	g := h.groups[group]
	m, ok := g[conn]
	if ok {
		delete(g, conn)
		if len(g) == 0 {
			delete(h.groups, group)
		}
		close(m.send)
	}
	h.mu.Unlock()

	if ok {
		conn.Close()
	}
}

// Broadcast queues msg for every member of group and reports how many
// accepted it. A member whose buffer is full is pruned rather than waited
// on; delivery to the others proceeds regardless.
func (h *Hub[M]) Broadcast(group string, msg M) int {
	var stale []Conn
	delivered := 0

	h.mu.RLock()
	for conn, m := range h.groups[group] {
		select {
		case m.send <- msg:
			delivered++
		default:
			stale = append(stale, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range stale {
		h.logger.Warn("observer too slow, pruning", "group", group)
		h.Leave(group, conn)
	}
	return delivered
}

// DropGroup disconnects every member of group at once.
func (h *Hub[M]) DropGroup(group string) {
	h.mu.Lock()
	g := h.groups[group]
	delete(h.groups, group)
	for _, m := range g {
		close(m.send)
	}
	h.mu.Unlock()

	for conn := range g {
		conn.Close()
	}
}

func (h *Hub[M]) Count(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
