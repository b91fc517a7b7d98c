// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package scenario

import (
	"github.com/TheThingsNetwork/mqtt-scenario/client"
)

// Run the scenario in the blocking style: every stage is awaited before the next one starts.
// The client is disconnected on every return path, including panics.
func (s *Scenario) Run(factory client.Factory) *Result {
	r := s.newRun(StyleBlocking)
	r.transition(Connecting)
	c, err := r.build(factory)
	if err != nil {
		return r.terminate(r.connectFailed(err))
	}
	return r.terminate(r.runBlocking(c))
}

func (r *run) runBlocking(c client.Client) (Outcome, error) {
	defer r.recoverDisconnect()

	if err := client.Wait(c.Connect()); err != nil {
		return r.connectFailed(err)
	}
	r.transition(Connected)
	r.ctx.Info("Connected")

	r.transition(Subscribing)
	if err := client.Wait(c.Subscribe(r.config.Topic, r.config.QoS, r.handleMessage)); err != nil {
		return r.subscribeFailed(err)
	}
	r.transition(Subscribed)
	r.ctx.Info("Subscribed")

	r.transition(Publishing)
	tokens := make([]client.Token, r.config.MessageCount)
	for i := range tokens {
		tokens[i] = r.publish(c, i)
	}
	r.ctx.WithField("Published", len(tokens)).Info("Published messages")

	r.transition(AwaitingDelivery)
	deadline := newDeadline(r.config.Timeout)
	defer deadline.Stop()
	r.awaitAcknowledgements(tokens, deadline)
	return r.awaitDelivery(deadline)
}
