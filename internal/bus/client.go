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

package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/metrics"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/pkg/core"
)

// Client is the typed message-bus client. Publish failures surface to the
// caller; malformed inbound payloads are logged, counted and dropped so a
// bad message never kills a subscription.
type Client struct {
	conn    core.Bus
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewClient(conn core.Bus, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{conn: conn, metrics: m, logger: logger}
}

// PublishAnalyze serializes the request and publishes it to the analyze
// topic. It fails only on serialization or transport error.
func (c *Client) PublishAnalyze(ctx context.Context, req *core.AnalyzeRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal analyze request: %w", err)
	}
	if err := c.conn.Publish(ctx, TopicAnalyzeRequest, data); err != nil {
		return fmt.Errorf("publish %s: %w", TopicAnalyzeRequest, err)
	}
	return nil
}

// SubscribeResults invokes fn once per well-formed inbound result.
func (c *Client) SubscribeResults(fn func(*core.AnalyzeResponse)) error {
	return c.conn.Subscribe(TopicAnalyzeResult, func(payload []byte) {
		var resp core.AnalyzeResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			c.dropped(TopicAnalyzeResult, len(payload), err)
			return
		}
		fn(&resp)
	})
}

// SubscribeArchive delivers raw archive payloads; the archive handler owns
// decoding so a parse failure is counted exactly once, on its side.
func (c *Client) SubscribeArchive(fn func([]byte)) error {
	return c.conn.Subscribe(TopicArchive, fn)
}

func (c *Client) IsConnected() bool { return c.conn.IsConnected() }

func (c *Client) dropped(topic string, size int, err error) {
	if c.metrics != nil {
		c.metrics.HandlerError()
	}
	c.logger.Error("dropping malformed bus message",
		"topic", topic,
		"payload_size", size,
		"error", err,
	)
}
