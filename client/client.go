// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package client

import "time"

// Token is the deferred result of a client operation
type Token interface {
	// Wait blocks until the operation completed. It always returns true.
	Wait() bool
	// WaitTimeout blocks until the operation completed or the timeout passed, and returns whether it completed
	WaitTimeout(time.Duration) bool
	// Done returns a channel that is closed when the operation completed
	Done() <-chan struct{}
	// Error returns the error of a completed operation
	Error() error
}

// Message received on a subscription
type Message struct {
	Topic     string
	Payload   []byte
	Retained  bool
	Duplicate bool
}

// MessageHandler is called once for every message that matches a subscription
type MessageHandler func(msg *Message)

// Client is the capability used by a scenario. Implementations are not shared between scenarios.
type Client interface {
	Connect() Token
	Subscribe(filter string, qos byte, handler MessageHandler) Token
	Publish(topic string, qos byte, payload []byte) Token
	Disconnect() error
}

// Factory builds a fresh Client
type Factory func() (Client, error)

// Wait blocks until the token completed and returns its error
func Wait(token Token) error {
	token.Wait()
	return token.Error()
}

// WhenComplete calls fn with the error of the token as soon as it completed.
// The callback runs on its own goroutine.
func WhenComplete(token Token, fn func(err error)) {
	go func() {
		<-token.Done()
		fn(token.Error())
	}()
}
