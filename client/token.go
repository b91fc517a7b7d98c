// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package client

import (
	"sync"
	"time"
)

// PendingToken is a Token that is completed by calling Complete
type PendingToken struct {
	once sync.Once
	done chan struct{}
	err  error
}

// NewPendingToken returns a new uncompleted token
func NewPendingToken() *PendingToken {
	return &PendingToken{done: make(chan struct{})}
}

// CompletedToken returns a token that already completed with the given error
func CompletedToken(err error) *PendingToken {
	t := NewPendingToken()
	t.Complete(err)
	return t
}

// Complete the token. Only the first call has effect.
func (t *PendingToken) Complete(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

// Wait implements Token
func (t *PendingToken) Wait() bool {
	<-t.done
	return true
}

// WaitTimeout implements Token
func (t *PendingToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	default:
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-t.done:
		return true
	case <-timer.C:
		return false
	}
}

// Done implements Token
func (t *PendingToken) Done() <-chan struct{} {
	return t.done
}

// Error implements Token. It returns nil as long as the token did not complete.
func (t *PendingToken) Error() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}
