// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package scenario

import (
	"time"
)

// deadline is shared by all waits of a stage. It is not safe for concurrent use.
type deadline struct {
	*time.Timer
	expired bool
}

func newDeadline(d time.Duration) *deadline {
	if d < 0 {
		d = 0
	}
	return &deadline{
		Timer: time.NewTimer(d),
	}
}

// Wait for done until the deadline expires. Returns whether done was closed.
func (d *deadline) Wait(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
	}
	if d.expired {
		return false
	}
	select {
	case <-done:
		return true
	case <-d.C:
		d.expired = true
		return false
	}
}
