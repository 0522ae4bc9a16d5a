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

package logging

import (
	"log/slog"
	"os"

	"github.com/wso2/biometric-platform/gateway/capture-gateway/pkg/core"
)

// New builds the process logger: JSON to stdout at the configured level.
func New(level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FrameLogger emits one structured line per frame decision. A nil
// FrameLogger is valid and silent.
type FrameLogger struct {
	logger *slog.Logger
}

func NewFrameLogger(logger *slog.Logger) *FrameLogger {
	return &FrameLogger{logger: logger}
}

func (f *FrameLogger) Accepted(frame *core.CaptureFrame, latencyMS float64) {
	if f == nil {
		return
	}
	f.logger.Info("frame accepted",
		"frame_id", frame.FrameID,
		"device_id", frame.DeviceID,
		"eye_side", frame.EyeSide,
		"payload_size", len(frame.JPEG),
		"publish_latency_ms", latencyMS,
	)
}

func (f *FrameLogger) Rejected(frame *core.CaptureFrame, reason string) {
	if f == nil {
		return
	}
	f.logger.Info("frame rejected",
		"frame_id", frame.FrameID,
		"device_id", frame.DeviceID,
		"reason", reason,
	)
}
