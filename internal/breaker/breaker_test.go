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

package breaker

import (
	"sync"
	"testing"
	"time"
)

// fakeClock drives the breaker without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(timeout, probe time.Duration) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	b := New(timeout, probe)
	b.now = clock.now
	b.lastResult = clock.now()
	return b, clock
}

func TestStartsClosed(t *testing.T) {
	b, _ := newTestBreaker(time.Second, time.Second)
	if got := b.CurrentState(); got != Closed {
		t.Fatalf("expected closed, got %v", got)
	}
	if !b.Allow() {
		t.Fatal("expected first frame admitted")
	}
}

func TestTripsAfterSilence(t *testing.T) {
	b, clock := newTestBreaker(10*time.Second, 5*time.Second)

	if !b.Allow() {
		t.Fatal("expected admission while closed")
	}

	// silence shorter than timeout keeps the breaker closed
	clock.advance(9 * time.Second)
	if got := b.CurrentState(); got != Closed {
		t.Fatalf("expected closed before timeout, got %v", got)
	}

	clock.advance(2 * time.Second)
	if got := b.CurrentState(); got != Open {
		t.Fatalf("expected open after timeout, got %v", got)
	}
	if b.Allow() {
		t.Fatal("expected rejection while open")
	}
}

// A frame sent at exactly the last-result instant is still outstanding:
// only a strictly newer result may clear it.
func TestTripsWhenSendCoincidesWithLastResult(t *testing.T) {
	b, clock := newTestBreaker(10*time.Second, 5*time.Second)

	// lastResult and this send share the same timestamp
	if !b.Allow() {
		t.Fatal("expected admission while closed")
	}

	clock.advance(11 * time.Second)
	if got := b.CurrentState(); got != Open {
		t.Fatalf("expected open after silence, got %v", got)
	}
	if b.Allow() {
		t.Fatal("expected rejection while open")
	}

	b.RecordResult()
	if got := b.CurrentState(); got != Closed {
		t.Fatalf("expected closed after result, got %v", got)
	}
}

func TestNoTripWithoutTraffic(t *testing.T) {
	b, clock := newTestBreaker(time.Second, time.Second)
	clock.advance(time.Hour)
	if got := b.CurrentState(); got != Closed {
		t.Fatalf("idle breaker must stay closed, got %v", got)
	}
}

func TestResultPreventsTrip(t *testing.T) {
	b, clock := newTestBreaker(10*time.Second, 5*time.Second)

	b.Allow()
	clock.advance(5 * time.Second)
	b.RecordResult()
	clock.advance(20 * time.Second)

	// last result is newer than last sent, so no silence gap is open
	if got := b.CurrentState(); got != Closed {
		t.Fatalf("expected closed, got %v", got)
	}
}

func TestSingleProbeThenOpenAgain(t *testing.T) {
	b, clock := newTestBreaker(10*time.Second, 5*time.Second)

	b.Allow()
	clock.advance(11 * time.Second)
	if got := b.CurrentState(); got != Open {
		t.Fatalf("expected open, got %v", got)
	}

	// probe not yet allowed
	if b.Allow() {
		t.Fatal("expected rejection before probe interval")
	}

	clock.advance(6 * time.Second)
	if !b.Allow() {
		t.Fatal("expected exactly one probe admitted")
	}
	if b.Allow() {
		t.Fatal("expected rejection immediately after probe")
	}
	if got := b.CurrentState(); got != Open {
		t.Fatalf("expected open after probe, got %v", got)
	}

	// a second probe becomes available after another interval
	clock.advance(6 * time.Second)
	if !b.Allow() {
		t.Fatal("expected second probe admitted")
	}
}

func TestRecordResultClosesFromAnyState(t *testing.T) {
	b, clock := newTestBreaker(10*time.Second, 5*time.Second)

	b.Allow()
	clock.advance(11 * time.Second)
	if got := b.CurrentState(); got != Open {
		t.Fatalf("expected open, got %v", got)
	}

	b.RecordResult()
	if got := b.CurrentState(); got != Closed {
		t.Fatalf("expected closed after result, got %v", got)
	}
	if !b.Allow() {
		t.Fatal("expected admission after recovery")
	}
}

func TestCurrentStateIsIdempotent(t *testing.T) {
	b, clock := newTestBreaker(10*time.Second, 5*time.Second)

	b.Allow()
	clock.advance(11 * time.Second)
	first := b.CurrentState()
	for i := 0; i < 10; i++ {
		if got := b.CurrentState(); got != first {
			t.Fatalf("state changed from %v to %v on repeated reads", first, got)
		}
	}
}

func TestConcurrentAdmission(t *testing.T) {
	b, _ := newTestBreaker(time.Minute, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Allow()
			b.RecordResult()
			b.CurrentState()
		}()
	}
	wg.Wait()

	if got := b.CurrentState(); got != Closed {
		t.Fatalf("expected closed, got %v", got)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Closed, "closed"},
		{Open, "open"},
		{HalfOpen, "half-open"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
