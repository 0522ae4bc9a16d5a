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

package objstore

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestFSPutCreatesPartitions(t *testing.T) {
	store, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("store init failed: %v", err)
	}

	key := "raw/2024-03-05/cam01/42.jpg"
	if err := store.Put(key, []byte{0xff, 0xd8, 0xff}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(store.Root(), "raw", "2024-03-05", "cam01", "42.jpg"))
	if err != nil {
		t.Fatalf("object not on disk: %v", err)
	}
	if len(data) != 3 || data[0] != 0xff {
		t.Fatalf("unexpected object content: %v", data)
	}
}

func TestFSPutOverwrites(t *testing.T) {
	store, _ := NewFS(t.TempDir())

	store.Put("k", []byte("old"))
	if err := store.Put("k", []byte("new")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(store.Root(), "k"))
	if string(data) != "new" {
		t.Fatalf("expected overwrite, got %q", data)
	}
}

func TestFSPutLeavesNoTempFiles(t *testing.T) {
	store, _ := NewFS(t.TempDir())
	store.Put("a/b/c.jpg", []byte("x"))

	var stray []string
	filepath.Walk(store.Root(), func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() && filepath.Base(path) != "c.jpg" {
			stray = append(stray, path)
		}
		return nil
	})
	if len(stray) != 0 {
		t.Fatalf("temp files left behind: %v", stray)
	}
}

func TestFSDeleteMissingIsNil(t *testing.T) {
	store, _ := NewFS(t.TempDir())
	if err := store.Delete("never/written"); err != nil {
		t.Fatalf("missing key must not error: %v", err)
	}
}

func TestFSWalk(t *testing.T) {
	store, _ := NewFS(t.TempDir())
	store.Put("raw/2024-03-05/cam01/1.jpg", []byte("a"))
	store.Put("raw/2024-03-05/cam01/1.meta.json", []byte("{}"))
	store.Put("raw/2024-03-06/cam02/2.jpg", []byte("b"))

	var keys []string
	err := store.Walk(func(key string) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	sort.Strings(keys)
	want := []string{
		"raw/2024-03-05/cam01/1.jpg",
		"raw/2024-03-05/cam01/1.meta.json",
		"raw/2024-03-06/cam02/2.jpg",
	}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %v", len(want), keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("key %d: want %s, got %s", i, want[i], keys[i])
		}
	}
}

func TestFSWalkSkipsInProgressWrites(t *testing.T) {
	store, _ := NewFS(t.TempDir())
	store.Put("done.jpg", []byte("x"))

	// simulate a writer that died mid-Put
	tmp, err := os.CreateTemp(store.Root(), ".put-*")
	if err != nil {
		t.Fatalf("temp setup failed: %v", err)
	}
	tmp.Write([]byte("partial"))
	tmp.Close()

	var keys []string
	store.Walk(func(key string) error {
		keys = append(keys, key)
		return nil
	})
	if len(keys) != 1 || keys[0] != "done.jpg" {
		t.Fatalf("walk must skip partial writes, got %v", keys)
	}
}

func TestFSWalkMissingRoot(t *testing.T) {
	store, _ := NewFS(t.TempDir())
	os.RemoveAll(store.Root())

	err := store.Walk(func(string) error {
		t.Fatal("no keys expected")
		return nil
	})
	if err != nil {
		t.Fatalf("missing root must walk nothing: %v", err)
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	store := NewMemory()
	store.Put("k", []byte("v"))

	data, ok := store.Get("k")
	if !ok || string(data) != "v" {
		t.Fatalf("unexpected get result: %q %v", data, ok)
	}

	// mutations of the returned slice must not reach the store
	data[0] = 'x'
	again, _ := store.Get("k")
	if string(again) != "v" {
		t.Fatal("store content aliased by caller slice")
	}

	store.Delete("k")
	if _, ok := store.Get("k"); ok {
		t.Fatal("expected key gone after delete")
	}
}

func TestMemoryWalk(t *testing.T) {
	store := NewMemory()
	store.Put("a", nil)
	store.Put("b", nil)

	seen := map[string]bool{}
	store.Walk(func(key string) error {
		seen[key] = true
		return nil
	})
	if !seen["a"] || !seen["b"] || len(seen) != 2 {
		t.Fatalf("unexpected walk: %v", seen)
	}
}
