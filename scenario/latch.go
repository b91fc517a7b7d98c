// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package scenario

import (
	"sync/atomic"
)

// Latch counts down from n to zero. Waiters are released when zero is reached.
type Latch struct {
	count int64
	done  chan struct{}
}

// NewLatch returns a Latch that is released after n calls to CountDown. A Latch with n <= 0 is released immediately.
func NewLatch(n int) *Latch {
	l := &Latch{
		count: int64(n),
		done:  make(chan struct{}),
	}
	if n <= 0 {
		l.count = 0
		close(l.done)
	}
	return l
}

// CountDown decrements the count. It has no effect when the count already reached zero.
func (l *Latch) CountDown() {
	for {
		count := atomic.LoadInt64(&l.count)
		if count <= 0 {
			return
		}
		if atomic.CompareAndSwapInt64(&l.count, count, count-1) {
			if count == 1 {
				close(l.done)
			}
			return
		}
	}
}

// Count returns the current count
func (l *Latch) Count() int {
	return int(atomic.LoadInt64(&l.count))
}

// Done returns a channel that is closed when the count reached zero
func (l *Latch) Done() <-chan struct{} {
	return l.done
}
