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

// Package ingest implements the capture service: the breaker-gated path
// from a device frame to a published analyze request.
package ingest

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/breaker"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/capturerpc"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/logging"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/metrics"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/pkg/core"
)

// Publisher is the slice of the bus client the service needs.
type Publisher interface {
	PublishAnalyze(ctx context.Context, req *core.AnalyzeRequest) error
	IsConnected() bool
}

type Service struct {
	gate     *breaker.Breaker
	pub      Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	frameLog *logging.FrameLogger
}

func NewService(gate *breaker.Breaker, pub Publisher, m *metrics.Metrics, logger *slog.Logger, frameLog *logging.FrameLogger) *Service {
	return &Service{
		gate:     gate,
		pub:      pub,
		metrics:  m,
		logger:   logger,
		frameLog: frameLog,
	}
}

// SubmitFrame never returns a transport error for a well-formed frame;
// rejection is Accepted=false. A failed publish also acks negatively but
// does not touch the breaker — only absence of results trips it.
func (s *Service) SubmitFrame(ctx context.Context, frame *core.CaptureFrame) (*core.FrameAck, error) {
	if !s.gate.Allow() {
		s.metrics.FrameRejected()
		s.frameLog.Rejected(frame, "breaker open")
		return s.ack(frame, false), nil
	}

	req := toAnalyzeRequest(frame)
	start := time.Now()
	if err := s.pub.PublishAnalyze(ctx, req); err != nil {
		s.metrics.FrameRejected()
		s.frameLog.Rejected(frame, "publish failed")
		s.logger.Error("analyze publish failed",
			"frame_id", frame.FrameID,
			"device_id", frame.DeviceID,
			"error", err,
		)
		return s.ack(frame, false), nil
	}

	latency := time.Since(start)
	s.metrics.FrameProcessed(latency)
	s.frameLog.Accepted(frame, float64(latency.Microseconds())/1000.0)
	return s.ack(frame, true), nil
}

// StreamFrames services one device connection: each received frame runs
// through SubmitFrame and is acknowledged in order on the same stream.
func (s *Service) StreamFrames(stream capturerpc.FrameStream) error {
	s.metrics.DeviceConnected()
	defer s.metrics.DeviceDisconnected()

	for {
		frame, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		ack, err := s.SubmitFrame(stream.Context(), frame)
		if err != nil {
			return err
		}
		if err := stream.Send(ack); err != nil {
			return err
		}
	}
}

func (s *Service) GetStatus(_ context.Context, _ *core.StatusRequest) (*core.ServerStatus, error) {
	status := s.metrics.Snapshot()
	status.Ready = s.pub.IsConnected() && s.gate.CurrentState() == breaker.Closed
	return &status, nil
}

func (s *Service) ack(frame *core.CaptureFrame, accepted bool) *core.FrameAck {
	return &core.FrameAck{
		FrameID:    frame.FrameID,
		Accepted:   accepted,
		QueueDepth: int(s.metrics.InFlight()),
	}
}

func toAnalyzeRequest(frame *core.CaptureFrame) *core.AnalyzeRequest {
	return &core.AnalyzeRequest{
		FrameID:      frame.FrameID,
		DeviceID:     frame.DeviceID,
		JPEGBase64:   base64.StdEncoding.EncodeToString(frame.JPEG),
		QualityScore: frame.QualityScore,
		EyeSide:      frame.EyeSide,
		Timestamp:    time.UnixMicro(frame.TimestampUS).UTC().Format(time.RFC3339Nano),
	}
}
