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

// Package breaker implements the admission gate in front of the analysis
// pipeline. It is a single state machine with two external signals: Allow
// (a frame is about to be forwarded) and RecordResult (any result came
// back). Transitions are evaluated lazily against the clock, never by a
// background timer.
package breaker

import (
	"sync"
	"time"
)

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type Breaker struct {
	mu            sync.Mutex
	timeout       time.Duration
	probeInterval time.Duration
	state         State
	lastSent      time.Time
	lastResult    time.Time
	lastProbe     time.Time
	now           func() time.Time
}

// New returns a Closed breaker. lastResult starts at the creation time so
// a freshly started process does not trip for lack of traffic.
func New(timeout, probeInterval time.Duration) *Breaker {
	b := &Breaker{
		timeout:       timeout,
		probeInterval: probeInterval,
		state:         Closed,
		now:           time.Now,
	}
	b.lastResult = b.now()
	return b
}

// Allow reports whether a frame may be forwarded downstream. In Closed it
// records the attempt time and admits. In HalfOpen it admits exactly one
// probe and immediately reverts to Open: failure is assumed until
// RecordResult proves otherwise. In Open it rejects.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.evaluate()

	switch b.state {
	case Closed:
		b.lastSent = b.now()
		return true
	case HalfOpen:
		now := b.now()
		b.lastSent = now
		b.lastProbe = now
		b.state = Open
		return true
	default:
		return false
	}
}

// RecordResult treats any received result, success or analysis error, as
// evidence of downstream liveness and forces the breaker Closed.
func (b *Breaker) RecordResult() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.lastResult = b.now()
}

// CurrentState re-evaluates time-based transitions before returning.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evaluate()
	return b.state
}

// evaluate applies the lazy transitions. Callers hold b.mu.
func (b *Breaker) evaluate() {
	now := b.now()
	switch b.state {
	case Closed:
		// a send at exactly the last-result instant counts as unanswered;
		// only a strictly newer result clears it
		if !b.lastSent.IsZero() && !b.lastSent.Before(b.lastResult) && now.Sub(b.lastSent) > b.timeout {
			b.state = Open
			// the probe clock starts at the trip, so Open persists for
			// at least probeInterval before the first probe
			b.lastProbe = now
		}
	case Open:
		if now.Sub(b.lastProbe) > b.probeInterval {
			b.state = HalfOpen
		}
	}
}
