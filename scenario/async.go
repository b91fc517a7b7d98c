// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package scenario

import (
	"github.com/TheThingsNetwork/mqtt-scenario/client"
)

// Start the scenario in the callback style. Start does not block: every stage is started by the
// completion of the previous one. The result is sent on the returned channel.
func (s *Scenario) Start(factory client.Factory) <-chan *Result {
	results := make(chan *Result, 1)
	r := s.newRun(StyleAsync)
	finish := func(outcome Outcome, err error) {
		results <- r.terminate(outcome, err)
	}

	r.transition(Connecting)
	c, err := r.build(factory)
	if err != nil {
		finish(r.connectFailed(err))
		return results
	}

	client.WhenComplete(c.Connect(), func(err error) {
		defer r.recoverDisconnect()
		if err != nil {
			finish(r.connectFailed(err))
			return
		}
		r.transition(Connected)
		r.ctx.Info("Connected")
		r.subscribe(c, finish)
	})

	return results
}

func (r *run) subscribe(c client.Client, finish func(Outcome, error)) {
	r.transition(Subscribing)
	client.WhenComplete(c.Subscribe(r.config.Topic, r.config.QoS, r.handleMessage), func(err error) {
		defer r.recoverDisconnect()
		if err != nil {
			finish(r.subscribeFailed(err))
			return
		}
		r.transition(Subscribed)
		r.ctx.Info("Subscribed")
		r.publishAll(c, finish)
	})
}

// publishAll runs on the continuation of the subscription. Acknowledgements still outstanding when
// delivery ends are awaited within the same deadline, so late failures are part of the result.
func (r *run) publishAll(c client.Client, finish func(Outcome, error)) {
	r.transition(Publishing)
	tokens := make([]client.Token, r.config.MessageCount)
	for i := range tokens {
		tokens[i] = r.publish(c, i)
	}
	r.ctx.WithField("Published", len(tokens)).Info("Published messages")

	r.transition(AwaitingDelivery)
	deadline := newDeadline(r.config.Timeout)
	defer deadline.Stop()
	outcome, err := r.awaitDelivery(deadline)
	r.awaitAcknowledgements(tokens, deadline)
	finish(outcome, err)
}
