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
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
)

// Kafka drives the bus over one or more brokers (comma-separated in the
// bus URL). One shared writer publishes to per-message topics; each
// subscription owns a consumer-group reader.
type Kafka struct {
	brokers   []string
	writer    *kafka.Writer
	logger    *slog.Logger
	connected atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func DialKafka(ctx context.Context, url string, logger *slog.Logger) (*Kafka, error) {
	brokers := strings.Split(url, ",")

	// verify at least one broker answers before declaring the bus usable
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return nil, fmt.Errorf("kafka dial %s: %w", brokers[0], err)
	}
	conn.Close()

	runCtx, cancel := context.WithCancel(context.Background())
	k := &Kafka{
		brokers: brokers,
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
		logger: logger,
		ctx:    runCtx,
		cancel: cancel,
	}
	k.connected.Store(true)
	logger.Info("kafka bus connected", "brokers", url)
	return k, nil
}

func (k *Kafka) Publish(ctx context.Context, topic string, payload []byte) error {
	err := k.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Value: payload,
	})
	k.connected.Store(err == nil)
	return err
}

func (k *Kafka) Subscribe(topic string, handler func([]byte)) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.brokers,
		Topic:    topic,
		GroupID:  "capture-gateway-" + topic,
		MaxWait:  500 * time.Millisecond,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		defer reader.Close()
		for {
			msg, err := reader.ReadMessage(k.ctx)
			if err != nil {
				if k.ctx.Err() != nil {
					return
				}
				k.connected.Store(false)
				k.logger.Error("kafka read error", "topic", topic, "error", err)
				select {
				case <-k.ctx.Done():
					return
				case <-time.After(reconnectWait):
				}
				continue
			}
			k.connected.Store(true)
			handler(msg.Value)
		}
	}()
	return nil
}

func (k *Kafka) IsConnected() bool { return k.connected.Load() }

func (k *Kafka) Close() error {
	k.cancel()
	k.wg.Wait()
	return k.writer.Close()
}
