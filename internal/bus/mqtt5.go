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
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
)

// MQTT drives the bus over an MQTT 5 broker. autopaho owns reconnection.
type MQTT struct {
	cm        *autopaho.ConnectionManager
	router    *paho.StandardRouter
	runCtx    context.Context
	cancel    context.CancelFunc
	logger    *slog.Logger
	connected atomic.Bool
}

func DialMQTT(ctx context.Context, brokerURL string, logger *slog.Logger) (*MQTT, error) {
	serverURL, err := url.Parse(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("mqtt5 invalid URL: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m := &MQTT{
		router: paho.NewStandardRouter(),
		runCtx: runCtx,
		cancel: cancel,
		logger: logger,
	}

	cfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{serverURL},
		KeepAlive:                     30,
		CleanStartOnInitialConnection: true,
		SessionExpiryInterval:         60,
		OnConnectionUp: func(_ *autopaho.ConnectionManager, _ *paho.Connack) {
			m.connected.Store(true)
			logger.Info("mqtt5 connection up", "broker", brokerURL)
		},
		OnConnectError: func(err error) {
			m.connected.Store(false)
			logger.Warn("mqtt5 connect error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: "capture-gateway-" + uuid.New().String()[:8],
			Router:   m.router,
			OnServerDisconnect: func(_ *paho.Disconnect) {
				m.connected.Store(false)
			},
		},
	}

	m.cm, err = autopaho.NewConnection(runCtx, cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("mqtt5 connection: %w", err)
	}
	if err := m.cm.AwaitConnection(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("mqtt5 await connection: %w", err)
	}
	return m, nil
}

func (m *MQTT) Publish(ctx context.Context, topic string, payload []byte) error {
	_, err := m.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     1,
		Payload: payload,
	})
	return err
}

func (m *MQTT) Subscribe(topic string, handler func([]byte)) error {
	m.router.RegisterHandler(topic, func(p *paho.Publish) {
		handler(p.Payload)
	})
	_, err := m.cm.Subscribe(m.runCtx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{
			{Topic: topic, QoS: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("mqtt5 subscribe %s: %w", topic, err)
	}
	return nil
}

func (m *MQTT) IsConnected() bool { return m.connected.Load() }

func (m *MQTT) Close() error {
	defer m.cancel()
	return m.cm.Disconnect(m.runCtx)
}
