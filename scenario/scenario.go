// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package scenario

import (
	"fmt"
	"sync"
	"time"

	"github.com/TheThingsNetwork/mqtt-scenario/client"
	"github.com/apex/log"
)

// Execution styles, used in logs and metrics
const (
	StyleAsync    = "async"
	StyleBlocking = "blocking"
)

// Result of a run
type Result struct {
	Outcome Outcome
	// Err is the cause of an unsuccessful outcome
	Err error
	// Published is the number of publishes that were issued
	Published int
	// PublishErrors are the publish failures that were known when the run ended
	PublishErrors []error
	// Received is the number of expected messages that were received
	Received int
	// Pending are the payloads that were not received
	Pending []string
	// DisconnectErr is logged only; it never changes the outcome
	DisconnectErr error
	// States visited by the run, starting with Idle and ending with Terminal
	States   []State
	Duration time.Duration
}

// Scenario connects, subscribes to a topic, publishes messages on that topic, waits for them to be
// delivered and disconnects. Every call to Run or Start uses a new client from the factory.
type Scenario struct {
	ctx    log.Interface
	config Config
}

// New returns a new Scenario
func New(config Config, ctx log.Interface) (*Scenario, error) {
	if config.PayloadFormat == "" {
		config.PayloadFormat = DefaultPayloadFormat
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Scenario{
		ctx:    ctx.WithField("Topic", config.Topic),
		config: config,
	}, nil
}

// Config returns the config of the scenario
func (s *Scenario) Config() Config {
	return s.config
}

type run struct {
	ctx     log.Interface
	config  Config
	style   string
	started time.Time
	tracker *tracker

	mu            sync.Mutex
	state         State
	states        []State
	client        client.Client
	published     int
	publishErrors []error

	disconnectOnce sync.Once
	disconnectErr  error
}

func (s *Scenario) newRun(style string) *run {
	r := &run{
		ctx:     s.ctx.WithField("Style", style),
		config:  s.config,
		style:   style,
		started: time.Now(),
		tracker: newTracker(s.config.payloads()),
		state:   Idle,
		states:  []State{Idle},
	}
	r.ctx.WithFields(log.Fields{
		"Messages": s.config.MessageCount,
		"Timeout":  s.config.Timeout,
	}).Info("Starting scenario")
	return r
}

func (r *run) transition(to State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !CanTransition(r.state, to) {
		panic(fmt.Sprintf("scenario: illegal transition from %s to %s", r.state, to))
	}
	r.ctx.WithField("From", r.state).WithField("To", to).Debug("Transition")
	r.state = to
	r.states = append(r.states, to)
}

func (r *run) build(factory client.Factory) (client.Client, error) {
	c, err := factory()
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.client = c
	r.mu.Unlock()
	r.ctx.Debug("Built client")
	return c, nil
}

func (r *run) handleMessage(msg *client.Message) {
	ctx := r.ctx.WithField("Payload", string(msg.Payload))
	if !r.tracker.handle(msg) {
		ctx.Debug("Ignored message")
		return
	}
	registerReceived(r.style)
	ctx.Debug("Received message")
}

// publish issues a publish without waiting for its acknowledgement
func (r *run) publish(c client.Client, i int) client.Token {
	payload := r.config.payload(i)
	token := c.Publish(r.config.Topic, r.config.QoS, []byte(payload))
	r.mu.Lock()
	r.published++
	r.mu.Unlock()
	registerPublished(r.style)
	return token
}

func (r *run) publishFailed(i int, err error) {
	r.mu.Lock()
	r.publishErrors = append(r.publishErrors, &Error{Outcome: PublishFailed, Index: i, Err: err})
	r.mu.Unlock()
	registerPublishFailed(r.style)
	r.ctx.WithField("Index", i).WithError(err).Warn("Could not publish message")
}

// awaitAcknowledgements waits for the publish tokens until the deadline expires. Failed and
// missing acknowledgements are recorded as publish failures.
func (r *run) awaitAcknowledgements(tokens []client.Token, deadline *deadline) {
	for i, token := range tokens {
		if !deadline.Wait(token.Done()) {
			r.publishFailed(i, ErrNotAcknowledged)
			continue
		}
		if err := token.Error(); err != nil {
			r.publishFailed(i, err)
		}
	}
}

// awaitDelivery waits for all expected messages until the deadline expires
func (r *run) awaitDelivery(deadline *deadline) (Outcome, error) {
	if !deadline.Wait(r.tracker.latch.Done()) {
		received := r.tracker.Received()
		err := fmt.Errorf("%w after %s: received %d of %d messages", ErrDeliveryTimeout, r.config.Timeout, received, r.config.MessageCount)
		r.ctx.WithFields(log.Fields{
			"Received": received,
			"Missing":  r.tracker.latch.Count(),
		}).Error("Did not receive all messages in time")
		return DeliveryTimeout, &Error{Outcome: DeliveryTimeout, Err: err}
	}
	r.ctx.WithField("Received", r.config.MessageCount).Info("Successfully received all messages")
	return Success, nil
}

// recoverDisconnect disconnects the client when a stage panics, and continues panicking. It must be
// deferred directly.
func (r *run) recoverDisconnect() {
	if p := recover(); p != nil {
		r.ctx.WithField("panic", p).Error("Disconnecting because of panic")
		r.disconnect()
		panic(p)
	}
}

func (r *run) disconnect() error {
	r.disconnectOnce.Do(func() {
		r.mu.Lock()
		c := r.client
		r.mu.Unlock()
		if c == nil {
			return
		}
		if err := c.Disconnect(); err != nil {
			r.disconnectErr = err
			r.ctx.WithError(err).Warn("Could not disconnect")
			return
		}
		r.ctx.Info("Disconnected")
	})
	return r.disconnectErr
}

// terminate disconnects and builds the result. It is called exactly once per run.
func (r *run) terminate(outcome Outcome, err error) *Result {
	r.transition(Disconnecting)
	disconnectErr := r.disconnect()
	r.transition(Terminal)

	duration := time.Since(r.started)
	registerRun(r.style, outcome, duration.Seconds())

	r.mu.Lock()
	defer r.mu.Unlock()
	res := &Result{
		Outcome:       outcome,
		Err:           err,
		Published:     r.published,
		PublishErrors: append([]error(nil), r.publishErrors...),
		Received:      r.tracker.Received(),
		Pending:       r.tracker.Pending(),
		DisconnectErr: disconnectErr,
		States:        append([]State(nil), r.states...),
		Duration:      duration,
	}
	r.ctx.WithField("Outcome", outcome).WithField("Duration", duration).Info("Finished scenario")
	return res
}

func (r *run) connectFailed(err error) (Outcome, error) {
	r.ctx.WithError(err).Error("Unable to connect to broker")
	return ConnectFailed, &Error{Outcome: ConnectFailed, Err: err}
}

func (r *run) subscribeFailed(err error) (Outcome, error) {
	r.ctx.WithError(err).Error("Failed to subscribe")
	return SubscribeFailed, &Error{Outcome: SubscribeFailed, Err: err}
}
