// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package scenario

import (
	"sort"
	"sync"

	"github.com/TheThingsNetwork/mqtt-scenario/client"
	"github.com/deckarep/golang-set"
)

// tracker counts down a latch for every expected payload that is received
type tracker struct {
	mu       sync.Mutex
	pending  mapset.Set
	received int
	latch    *Latch
}

func newTracker(payloads []string) *tracker {
	pending := mapset.NewThreadUnsafeSet()
	for _, payload := range payloads {
		pending.Add(payload)
	}
	return &tracker{
		pending: pending,
		latch:   NewLatch(pending.Cardinality()),
	}
}

// handle returns whether the message was expected. Retained messages, duplicates
// and foreign payloads are not.
func (t *tracker) handle(msg *client.Message) bool {
	if msg.Retained {
		return false
	}
	payload := string(msg.Payload)
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.pending.Contains(payload) {
		return false
	}
	t.pending.Remove(payload)
	t.received++
	t.latch.CountDown()
	return true
}

func (t *tracker) Received() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.received
}

// Pending returns the sorted payloads that were not received yet
func (t *tracker) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	pending := make([]string, 0, t.pending.Cardinality())
	for _, payload := range t.pending.ToSlice() {
		pending = append(pending, payload.(string))
	}
	sort.Strings(pending)
	return pending
}
