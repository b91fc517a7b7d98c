// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package scenario

import "fmt"

// Outcome is the terminal classification of a run
type Outcome int

// Outcomes of a run. PublishFailed is never the outcome of a complete run; it classifies the
// non-fatal errors in Result.PublishErrors.
const (
	Success Outcome = iota
	ConnectFailed
	SubscribeFailed
	PublishFailed
	DeliveryTimeout
)

var outcomeNames = map[Outcome]string{
	Success:         "Success",
	ConnectFailed:   "ConnectFailed",
	SubscribeFailed: "SubscribeFailed",
	PublishFailed:   "PublishFailed",
	DeliveryTimeout: "DeliveryTimeout",
}

var outcomeDescriptions = map[Outcome]string{
	Success:         "success",
	ConnectFailed:   "connect failed",
	SubscribeFailed: "subscribe failed",
	PublishFailed:   "publish failed",
	DeliveryTimeout: "delivery timeout",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// State of a run
type State int

// States of a run, in the order in which a successful run visits them
const (
	Idle State = iota
	Connecting
	Connected
	Subscribing
	Subscribed
	Publishing
	AwaitingDelivery
	Disconnecting
	Terminal
)

var stateNames = [...]string{
	Idle:             "Idle",
	Connecting:       "Connecting",
	Connected:        "Connected",
	Subscribing:      "Subscribing",
	Subscribed:       "Subscribed",
	Publishing:       "Publishing",
	AwaitingDelivery: "AwaitingDelivery",
	Disconnecting:    "Disconnecting",
	Terminal:         "Terminal",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Publishing is the only state that can not jump to Disconnecting
var transitions = map[State][]State{
	Idle:             {Connecting},
	Connecting:       {Connected, Disconnecting},
	Connected:        {Subscribing, Disconnecting},
	Subscribing:      {Subscribed, Disconnecting},
	Subscribed:       {Publishing, Disconnecting},
	Publishing:       {AwaitingDelivery},
	AwaitingDelivery: {Disconnecting},
	Disconnecting:    {Terminal},
}

// CanTransition returns whether a run may move from one state to the other
func CanTransition(from, to State) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
