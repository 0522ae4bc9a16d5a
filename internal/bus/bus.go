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

// Package bus connects the gateway to the analysis message bus. The typed
// Client sits on top of a driver selected by configuration; all drivers
// reconnect with a fixed backoff for the life of the process.
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wso2/biometric-platform/gateway/capture-gateway/pkg/core"
)

// Topics exchanged with the analysis engine and the storage side.
const (
	TopicAnalyzeRequest = "analyze.request"
	TopicAnalyzeResult  = "analyze.result"
	TopicArchive        = "archive"
)

const reconnectWait = 2 * time.Second

// Dial opens the configured driver. An error here is a startup-time
// failure (bad driver name or unreachable broker where the driver needs an
// initial handshake) and is fatal to the process.
func Dial(ctx context.Context, driver, url string, logger *slog.Logger) (core.Bus, error) {
	switch driver {
	case "nats":
		return DialNATS(url, logger)
	case "kafka":
		return DialKafka(ctx, url, logger)
	case "rabbitmq":
		return DialRabbit(url, logger)
	case "mqtt5":
		return DialMQTT(ctx, url, logger)
	default:
		return nil, fmt.Errorf("unknown bus driver %q", driver)
	}
}
