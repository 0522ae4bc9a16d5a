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

// Package archive persists completed analyses from the archive topic into
// the object store, partitioned by capture day and device.
package archive

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/metrics"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/pkg/core"
)

type Handler struct {
	store   core.ObjectStore
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewHandler(store core.ObjectStore, m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		store:   store,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// HandleMessage consumes one archive-topic payload. Failures are counted
// and logged, never propagated: a bad message must not stall the
// subscription behind it.
func (h *Handler) HandleMessage(payload []byte) {
	var msg core.ArchiveMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		h.metrics.HandlerError()
		h.logger.Error("malformed archive message dropped", "error", err)
		return
	}

	if err := h.archive(&msg); err != nil {
		h.metrics.HandlerError()
		h.logger.Error("archive write failed",
			"frame_id", msg.FrameID,
			"device_id", msg.DeviceID,
			"error", err,
		)
	}
}

func (h *Handler) archive(msg *core.ArchiveMessage) error {
	prefix := h.partition(msg)

	if msg.RawJPEGBase64 != "" {
		jpeg, err := base64.StdEncoding.DecodeString(msg.RawJPEGBase64)
		if err != nil {
			return err
		}
		if err := h.store.Put(prefix+".jpg", jpeg); err != nil {
			return err
		}
	}

	meta, err := json.Marshal(metaDoc{
		FrameID:        msg.FrameID,
		DeviceID:       msg.DeviceID,
		Timestamp:      msg.Timestamp,
		QualityScore:   msg.QualityScore,
		Segmentation:   msg.Segmentation,
		Match:          msg.Match,
		TemplateBase64: msg.TemplateBase64,
		LatencyMS:      msg.LatencyMS,
		Error:          msg.Error,
	})
	if err != nil {
		return err
	}
	if err := h.store.Put(prefix+".meta.json", meta); err != nil {
		return err
	}

	h.logger.Debug("frame archived", "key", prefix, "device_id", msg.DeviceID)
	return nil
}

// metaDoc is the stored sidecar: everything but the raw image, with the
// analysis sub-documents passed through verbatim.
type metaDoc struct {
	FrameID        string          `json:"frame_id"`
	DeviceID       string          `json:"device_id"`
	Timestamp      string          `json:"timestamp"`
	QualityScore   float64         `json:"quality_score"`
	Segmentation   json.RawMessage `json:"segmentation,omitempty"`
	Match          json.RawMessage `json:"match,omitempty"`
	TemplateBase64 string          `json:"template_base64,omitempty"`
	LatencyMS      float64         `json:"latency_ms,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// partition derives the object key prefix raw/<date>/<device>/<frame>.
func (h *Handler) partition(msg *core.ArchiveMessage) string {
	return "raw/" + h.dateOf(msg.Timestamp) + "/" + sanitizeID(msg.DeviceID) + "/" + sanitizeID(msg.FrameID)
}

// dateOf takes the capture day from the message timestamp, falling back to
// the current day when the timestamp is absent or unparseable.
func (h *Handler) dateOf(timestamp string) string {
	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		ts = h.now().UTC()
	}
	return ts.UTC().Format("2006-01-02")
}

// sanitizeID keeps device and frame identifiers from escaping their
// partition. Identifiers come from the device unauthenticated.
func sanitizeID(id string) string {
	if id == "" {
		return "unknown"
	}
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	return r.Replace(id)
}

// ScanExisting counts the objects already archived. Runs once at startup
// so operators see the store size in the log.
func (h *Handler) ScanExisting() (int, error) {
	count := 0
	err := h.store.Walk(func(string) error {
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}
	h.logger.Info("archive store scanned", "objects", count)
	return count, nil
}
