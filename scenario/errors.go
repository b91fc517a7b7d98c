// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package scenario

import (
	"errors"
	"fmt"
)

// ErrDeliveryTimeout is wrapped by the error of a run that did not receive all messages in time
var ErrDeliveryTimeout = errors.New("deadline exceeded")

// ErrNotAcknowledged is recorded for publishes that were not acknowledged before the deadline
var ErrNotAcknowledged = errors.New("not acknowledged before the deadline")

// Error is a failure of one of the stages of a run
type Error struct {
	Outcome Outcome
	// Index of the failed publish; only set for PublishFailed
	Index int
	Err   error
}

func (e *Error) Error() string {
	if e.Outcome == PublishFailed {
		return fmt.Sprintf("scenario: publish %d failed: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("scenario: %s: %v", outcomeDescriptions[e.Outcome], e.Err)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}
