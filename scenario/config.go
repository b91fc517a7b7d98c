// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package scenario

import (
	"errors"
	"fmt"
	"time"
)

// Defaults
const (
	DefaultTopic         = "test/topic"
	DefaultMessageCount  = 5
	DefaultTimeout       = 5 * time.Second
	DefaultPayloadFormat = "Test %d"
)

// Config of a scenario
type Config struct {
	// Topic that is subscribed to and published on
	Topic string
	// MessageCount is the number of messages that is published and awaited
	MessageCount int
	// Timeout is the maximum time to wait for all messages after the last one was published
	Timeout time.Duration
	QoS     byte
	// PayloadFormat is formatted with the 0-based index of each message
	PayloadFormat string
}

// DefaultConfig returns the default configuration: 5 messages "Test 0" to "Test 4" on test/topic within 5 seconds
func DefaultConfig() Config {
	return Config{
		Topic:         DefaultTopic,
		MessageCount:  DefaultMessageCount,
		Timeout:       DefaultTimeout,
		PayloadFormat: DefaultPayloadFormat,
	}
}

// Validate the config
func (c Config) Validate() error {
	if c.Topic == "" {
		return errors.New("scenario: topic must not be empty")
	}
	if c.MessageCount < 0 {
		return fmt.Errorf("scenario: message count must not be negative, got %d", c.MessageCount)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("scenario: timeout must not be negative, got %s", c.Timeout)
	}
	if c.QoS > 2 {
		return fmt.Errorf("scenario: invalid QoS %d", c.QoS)
	}
	if c.MessageCount > 1 && c.payload(0) == c.payload(1) {
		return fmt.Errorf("scenario: payload format %q does not produce distinct payloads", c.PayloadFormat)
	}
	return nil
}

func (c Config) payload(i int) string {
	format := c.PayloadFormat
	if format == "" {
		format = DefaultPayloadFormat
	}
	return fmt.Sprintf(format, i)
}

func (c Config) payloads() []string {
	payloads := make([]string, c.MessageCount)
	for i := range payloads {
		payloads[i] = c.payload(i)
	}
	return payloads
}
