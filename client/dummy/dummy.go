// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

// Package dummy implements a client that loops published messages back to its own subscriptions
// without touching the network. Failures can be injected through Options.
package dummy

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/TheThingsNetwork/mqtt-scenario/client"
	"github.com/apex/log"
)

// ErrNotConnected is returned when an operation is called before Connect succeeded
var ErrNotConnected = errors.New("dummy: not connected")

// Options control the behaviour of the Dummy
type Options struct {
	ConnectError    error
	SubscribeError  error
	DisconnectError error

	// PublishError is called with the 0-based index of every publish; a non-nil error fails that publish
	PublishError func(i int) error
	// Deliver is called with the index of every successful publish; false drops the message
	Deliver func(i int) bool
	// DeliveryDelay delays the loopback of every message
	DeliveryDelay time.Duration
}

// Calls counts how many times each operation was called
type Calls struct {
	Connect    int
	Subscribe  int
	Publish    int
	Disconnect int
}

type subscription struct {
	filter  string
	handler client.MessageHandler
}

// Dummy client
type Dummy struct {
	mu            sync.Mutex
	ctx           log.Interface
	opts          Options
	connected     bool
	calls         Calls
	subscriptions []subscription
}

// New returns a new Dummy client
func New(opts Options, ctx log.Interface) *Dummy {
	return &Dummy{
		ctx:  ctx.WithField("Client", "Dummy"),
		opts: opts,
	}
}

// Factory returns a client.Factory that builds Dummy clients with the given options
func Factory(opts Options, ctx log.Interface) client.Factory {
	return func() (client.Client, error) {
		return New(opts, ctx), nil
	}
}

// Calls returns a snapshot of the call counters
func (d *Dummy) Calls() Calls {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Connect implements client.Client
func (d *Dummy) Connect() client.Token {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls.Connect++
	if d.opts.ConnectError != nil {
		d.ctx.WithError(d.opts.ConnectError).Debug("Connect failed")
		return client.CompletedToken(d.opts.ConnectError)
	}
	d.connected = true
	d.ctx.Debug("Connected")
	return client.CompletedToken(nil)
}

// Subscribe implements client.Client
func (d *Dummy) Subscribe(filter string, qos byte, handler client.MessageHandler) client.Token {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls.Subscribe++
	if !d.connected {
		return client.CompletedToken(ErrNotConnected)
	}
	if d.opts.SubscribeError != nil {
		d.ctx.WithField("Filter", filter).WithError(d.opts.SubscribeError).Debug("Subscribe failed")
		return client.CompletedToken(d.opts.SubscribeError)
	}
	d.subscriptions = append(d.subscriptions, subscription{filter, handler})
	d.ctx.WithField("Filter", filter).Debug("Subscribed")
	return client.CompletedToken(nil)
}

// Publish implements client.Client
func (d *Dummy) Publish(topic string, qos byte, payload []byte) client.Token {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.calls.Publish
	d.calls.Publish++
	ctx := d.ctx.WithField("Topic", topic).WithField("Index", i)
	if !d.connected {
		return client.CompletedToken(ErrNotConnected)
	}
	if d.opts.PublishError != nil {
		if err := d.opts.PublishError(i); err != nil {
			ctx.WithError(err).Debug("Publish failed")
			return client.CompletedToken(err)
		}
	}
	if d.opts.Deliver != nil && !d.opts.Deliver(i) {
		ctx.Debug("Dropped message")
		return client.CompletedToken(nil)
	}
	msg := &client.Message{Topic: topic, Payload: append([]byte(nil), payload...)}
	var handlers []client.MessageHandler
	for _, sub := range d.subscriptions {
		if Match(sub.filter, topic) {
			handlers = append(handlers, sub.handler)
		}
	}
	go func(delay time.Duration) {
		if delay > 0 {
			time.Sleep(delay)
		}
		for _, handler := range handlers {
			handler(msg)
		}
	}(d.opts.DeliveryDelay)
	ctx.Debug("Published")
	return client.CompletedToken(nil)
}

// Disconnect implements client.Client
func (d *Dummy) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls.Disconnect++
	d.connected = false
	d.subscriptions = nil
	if d.opts.DisconnectError != nil {
		return d.opts.DisconnectError
	}
	d.ctx.Debug("Disconnected")
	return nil
}

// Match returns whether the topic matches the filter, with support for the + and # wildcards
func Match(filter, topic string) bool {
	filterLevels := strings.Split(filter, "/")
	topicLevels := strings.Split(topic, "/")
	for i, level := range filterLevels {
		if level == "#" {
			return true
		}
		if i >= len(topicLevels) {
			return false
		}
		if level != "+" && level != topicLevels[i] {
			return false
		}
	}
	return len(filterLevels) == len(topicLevels)
}
