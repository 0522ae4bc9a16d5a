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

package core

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by a driver Publish during a reconnect
// window, before the supervisor has re-established the broker link.
var ErrNotConnected = errors.New("bus not connected")

// Bus is the low-level pub/sub transport. Drivers reconnect automatically
// and never give up on the broker for the life of the process; callers must
// tolerate transient IsConnected()==false windows.
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(topic string, handler func(payload []byte)) error
	IsConnected() bool
	Close() error
}

// ObjectStore owns a namespace of logical slash-separated keys. Put makes
// the object atomically visible at its final key or not at all.
type ObjectStore interface {
	Put(key string, data []byte) error
	Delete(key string) error
	Walk(fn func(key string) error) error
}
