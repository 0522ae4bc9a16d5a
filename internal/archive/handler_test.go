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

package archive

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/metrics"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/objstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestHandler() (*Handler, *objstore.Memory, *metrics.Metrics) {
	store := objstore.NewMemory()
	m := metrics.New()
	h := NewHandler(store, m, testLogger())
	h.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return h, store, m
}

func archiveJSON(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	payload, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return payload
}

// Scenario: a completed analysis for device cam/01 is stored under a
// sanitized day/device partition.
func TestArchivePartitionedAndSanitized(t *testing.T) {
	h, store, m := newTestHandler()

	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0}
	h.HandleMessage(archiveJSON(t, map[string]any{
		"frame_id":       "42",
		"device_id":      "cam/01",
		"timestamp":      "2024-03-05T10:00:00Z",
		"quality_score":  0.91,
		"raw_jpeg_base64": base64.StdEncoding.EncodeToString(jpeg),
		"match":          map[string]any{"is_match": true, "hamming_distance": 0.2},
	}))

	media, ok := store.Get("raw/2024-03-05/cam_01/42.jpg")
	if !ok {
		t.Fatal("media object missing")
	}
	if len(media) != 4 || media[0] != 0xff {
		t.Fatalf("media content mismatch: %v", media)
	}

	metaRaw, ok := store.Get("raw/2024-03-05/cam_01/42.meta.json")
	if !ok {
		t.Fatal("metadata object missing")
	}
	var meta map[string]json.RawMessage
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		t.Fatalf("metadata not valid json: %v", err)
	}
	if _, ok := meta["raw_jpeg_base64"]; ok {
		t.Fatal("raw image must not be duplicated into metadata")
	}
	var match map[string]any
	if err := json.Unmarshal(meta["match"], &match); err != nil {
		t.Fatalf("match sub-document mangled: %v", err)
	}
	if match["is_match"] != true {
		t.Fatalf("match sub-document content: %v", match)
	}

	if m.HandlerErrors() != 0 {
		t.Fatalf("unexpected handler errors: %d", m.HandlerErrors())
	}
}

func TestArchiveWithoutImageWritesMetadataOnly(t *testing.T) {
	h, store, _ := newTestHandler()

	h.HandleMessage(archiveJSON(t, map[string]any{
		"frame_id":  "f1",
		"device_id": "cam01",
		"timestamp": "2024-03-05T10:00:00Z",
		"error":     "segmentation failed",
	}))

	if _, ok := store.Get("raw/2024-03-05/cam01/f1.jpg"); ok {
		t.Fatal("no media object expected")
	}
	metaRaw, ok := store.Get("raw/2024-03-05/cam01/f1.meta.json")
	if !ok {
		t.Fatal("metadata object missing")
	}
	var meta metaDoc
	json.Unmarshal(metaRaw, &meta)
	if meta.Error != "segmentation failed" {
		t.Fatalf("error field lost: %+v", meta)
	}
}

func TestArchiveFallsBackToCurrentDay(t *testing.T) {
	h, store, _ := newTestHandler()

	h.HandleMessage(archiveJSON(t, map[string]any{
		"frame_id":  "f1",
		"device_id": "cam01",
		"timestamp": "not-a-timestamp",
	}))

	if _, ok := store.Get("raw/2024-06-01/cam01/f1.meta.json"); !ok {
		t.Fatal("expected partition under the handler clock's day")
	}
}

func TestArchiveMissingIdentifiers(t *testing.T) {
	h, store, _ := newTestHandler()

	h.HandleMessage(archiveJSON(t, map[string]any{
		"timestamp": "2024-03-05T10:00:00Z",
	}))

	if _, ok := store.Get("raw/2024-03-05/unknown/unknown.meta.json"); !ok {
		t.Fatal("empty identifiers must map to unknown")
	}
}

func TestArchiveTraversalAttemptNeutralized(t *testing.T) {
	h, store, _ := newTestHandler()

	h.HandleMessage(archiveJSON(t, map[string]any{
		"frame_id":  "../../etc/passwd",
		"device_id": `..\..\boot`,
		"timestamp": "2024-03-05T10:00:00Z",
	}))

	found := ""
	store.Walk(func(key string) error {
		found = key
		return nil
	})
	if found != "raw/2024-03-05/____boot/____etc_passwd.meta.json" {
		t.Fatalf("traversal not neutralized: %q", found)
	}
}

func TestMalformedMessageCountedNotFatal(t *testing.T) {
	h, store, m := newTestHandler()

	h.HandleMessage([]byte("{not json"))

	if m.HandlerErrors() != 1 {
		t.Fatalf("expected handler_errors=1, got %d", m.HandlerErrors())
	}
	count := 0
	store.Walk(func(string) error { count++; return nil })
	if count != 0 {
		t.Fatal("nothing must be stored for a malformed message")
	}

	// the handler keeps working afterwards
	h.HandleMessage(archiveJSON(t, map[string]any{
		"frame_id": "f1", "device_id": "cam01", "timestamp": "2024-03-05T10:00:00Z",
	}))
	if _, ok := store.Get("raw/2024-03-05/cam01/f1.meta.json"); !ok {
		t.Fatal("handler must survive a malformed message")
	}
}

func TestInvalidBase64Counted(t *testing.T) {
	h, _, m := newTestHandler()

	h.HandleMessage(archiveJSON(t, map[string]any{
		"frame_id":        "f1",
		"device_id":       "cam01",
		"timestamp":       "2024-03-05T10:00:00Z",
		"raw_jpeg_base64": "!!!not base64!!!",
	}))

	if m.HandlerErrors() != 1 {
		t.Fatalf("expected handler_errors=1, got %d", m.HandlerErrors())
	}
}

func TestScanExisting(t *testing.T) {
	h, store, _ := newTestHandler()
	store.Put("raw/2024-03-05/cam01/1.jpg", []byte("a"))
	store.Put("raw/2024-03-05/cam01/1.meta.json", []byte("{}"))

	count, err := h.ScanExisting()
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 objects, got %d", count)
	}
}
