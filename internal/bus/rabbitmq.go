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
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/wso2/biometric-platform/gateway/capture-gateway/pkg/core"
)

// Rabbit maps each topic to a durable queue on the default exchange. A
// supervisor goroutine redials with a fixed backoff whenever the broker
// closes the connection, then re-establishes every subscription.
type Rabbit struct {
	url    string
	logger *slog.Logger

	mu    sync.Mutex
	conn  *amqp.Connection
	pubCh *amqp.Channel
	subs  []rabbitSub

	connected atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

type rabbitSub struct {
	topic   string
	handler func([]byte)
}

func DialRabbit(url string, logger *slog.Logger) (*Rabbit, error) {
	r := &Rabbit{
		url:    url,
		logger: logger,
		done:   make(chan struct{}),
	}
	if err := r.connect(); err != nil {
		return nil, err
	}
	go r.supervise()
	logger.Info("rabbitmq bus connected", "url", url)
	return r, nil
}

func (r *Rabbit) connect() error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	pubCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	r.mu.Lock()
	r.conn = conn
	r.pubCh = pubCh
	subs := make([]rabbitSub, len(r.subs))
	copy(subs, r.subs)
	r.mu.Unlock()

	for _, s := range subs {
		if err := r.startConsumer(s); err != nil {
			r.logger.Error("rabbitmq resubscribe failed", "topic", s.topic, "error", err)
		}
	}

	r.connected.Store(true)
	return nil
}

// supervise watches the live connection and redials forever.
func (r *Rabbit) supervise() {
	for {
		r.mu.Lock()
		conn := r.conn
		r.mu.Unlock()

		closed := conn.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-r.done:
			return
		case err := <-closed:
			r.connected.Store(false)
			r.logger.Warn("rabbitmq connection lost", "error", err)
		}

		for {
			select {
			case <-r.done:
				return
			case <-time.After(reconnectWait):
			}
			if err := r.connect(); err != nil {
				r.logger.Error("rabbitmq reconnect failed", "error", err)
				continue
			}
			r.logger.Info("rabbitmq reconnected", "url", r.url)
			break
		}
	}
}

func (r *Rabbit) declare(ch *amqp.Channel, topic string) error {
	_, err := ch.QueueDeclare(topic, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq queue declare %s: %w", topic, err)
	}
	return nil
}

func (r *Rabbit) Publish(ctx context.Context, topic string, payload []byte) error {
	r.mu.Lock()
	ch := r.pubCh
	r.mu.Unlock()

	if ch == nil || !r.connected.Load() {
		return core.ErrNotConnected
	}
	if err := r.declare(ch, topic); err != nil {
		return err
	}
	return ch.PublishWithContext(ctx,
		"",
		topic,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         payload,
			Timestamp:    time.Now().UTC(),
		},
	)
}

func (r *Rabbit) Subscribe(topic string, handler func([]byte)) error {
	sub := rabbitSub{topic: topic, handler: handler}

	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.mu.Unlock()

	return r.startConsumer(sub)
}

func (r *Rabbit) startConsumer(sub rabbitSub) error {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq consumer channel: %w", err)
	}
	if err := r.declare(ch, sub.topic); err != nil {
		ch.Close()
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return fmt.Errorf("rabbitmq qos: %w", err)
	}

	deliveries, err := ch.Consume(sub.topic, "capture-gateway-"+sub.topic, false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("rabbitmq consume %s: %w", sub.topic, err)
	}

	go func() {
		defer ch.Close()
		for {
			select {
			case <-r.done:
				return
			case d, ok := <-deliveries:
				if !ok {
					// channel died with the connection; the supervisor
					// starts a replacement consumer after redial
					return
				}
				sub.handler(d.Body)
				if err := d.Ack(false); err != nil {
					r.logger.Warn("rabbitmq ack failed", "topic", sub.topic, "error", err)
				}
			}
		}
	}()
	return nil
}

func (r *Rabbit) IsConnected() bool { return r.connected.Load() }

func (r *Rabbit) Close() error {
	r.closeOnce.Do(func() { close(r.done) })
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pubCh != nil {
		r.pubCh.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
