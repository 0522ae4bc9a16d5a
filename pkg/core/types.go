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

import "encoding/json"

// CaptureFrame is a single biometric capture produced by an edge device.
// It is immutable after receipt.
type CaptureFrame struct {
	FrameID      string  `json:"frame_id"`
	DeviceID     string  `json:"device_id"`
	JPEG         []byte  `json:"jpeg_bytes"`
	QualityScore float64 `json:"quality_score"`
	EyeSide      string  `json:"eye_side"`
	TimestampUS  int64   `json:"timestamp_us"`
}

// FrameAck is the 1:1 answer to a submitted frame. Rejection is expressed
// as Accepted=false, never as a transport error.
type FrameAck struct {
	FrameID    string `json:"frame_id"`
	Accepted   bool   `json:"accepted"`
	QueueDepth int    `json:"queue_depth"`
}

// AnalyzeRequest is the bus-transport form of a CaptureFrame: the binary
// payload re-encoded text-safe, the timestamp as ISO-8601.
type AnalyzeRequest struct {
	FrameID      string  `json:"frame_id"`
	DeviceID     string  `json:"device_id"`
	JPEGBase64   string  `json:"jpeg_base64"`
	QualityScore float64 `json:"quality_score"`
	EyeSide      string  `json:"eye_side"`
	Timestamp    string  `json:"timestamp"`
}

type MatchInfo struct {
	HammingDistance   float64 `json:"hamming_distance"`
	IsMatch           bool    `json:"is_match"`
	MatchedIdentityID string  `json:"matched_identity_id,omitempty"`
	BestRotation      int     `json:"best_rotation"`
}

// AnalyzeResponse arrives asynchronously and unordered relative to
// requests; it correlates to a request only by frame id, best-effort.
type AnalyzeResponse struct {
	FrameID        string     `json:"frame_id"`
	DeviceID       string     `json:"device_id"`
	Match          *MatchInfo `json:"match,omitempty"`
	TemplateBase64 string     `json:"template_base64,omitempty"`
	LatencyMS      float64    `json:"latency_ms"`
	Error          string     `json:"error,omitempty"`
}

// ArchiveMessage is the archive-topic superset of AnalyzeResponse. The
// segmentation and match sub-documents are opaque to the gateway and are
// persisted verbatim.
type ArchiveMessage struct {
	FrameID        string          `json:"frame_id"`
	DeviceID       string          `json:"device_id"`
	Timestamp      string          `json:"timestamp"`
	QualityScore   float64         `json:"quality_score"`
	RawJPEGBase64  string          `json:"raw_jpeg_base64,omitempty"`
	Segmentation   json.RawMessage `json:"segmentation,omitempty"`
	Match          json.RawMessage `json:"match,omitempty"`
	TemplateBase64 string          `json:"template_base64,omitempty"`
	LatencyMS      float64         `json:"latency_ms,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// StatusRequest is the empty request message of the GetStatus RPC.
type StatusRequest struct{}

// ServerStatus is a point-in-time aggregate computed from the gateway's
// counters. It is never stored, always recomputed.
type ServerStatus struct {
	Alive            bool    `json:"alive"`
	Ready            bool    `json:"ready"`
	ConnectedDevices int     `json:"connected_devices"`
	AvgLatencyMS     float64 `json:"avg_latency_ms"`
	FramesProcessed  int64   `json:"frames_processed"`
}

// Signal message types relayed between a capture device and its viewers.
// The relay interprets only Join and Leave; everything else passes through.
const (
	SignalJoin         = "join"
	SignalOffer        = "offer"
	SignalAnswer       = "answer"
	SignalICECandidate = "ice-candidate"
	SignalLeave        = "leave"
)

// SignalEnvelope is the signaling relay wire format. Payload is opaque.
type SignalEnvelope struct {
	Type     string          `json:"type"`
	DeviceID string          `json:"device_id"`
	From     string          `json:"from"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}
