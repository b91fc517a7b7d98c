// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package mqtt

import (
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TheThingsNetwork/mqtt-scenario/client"
	"github.com/apex/log"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// ErrSubscriptionRejected is returned when the broker refuses a subscription
var ErrSubscriptionRejected = errors.New("mqtt: subscription rejected by broker")

// subackFailure is the SUBACK return code for a refused subscription
const subackFailure byte = 0x80

// DisconnectQuiesce is the time in milliseconds the client waits for pending work when disconnecting
var DisconnectQuiesce uint = 250

// Config contains configuration for MQTT
type Config struct {
	Brokers   []string
	ClientID  string
	Username  string
	Password  string
	TLSConfig *tls.Config

	KeepAlive      time.Duration
	ConnectTimeout time.Duration

	// ConnectRetries says how many times the client should retry a failed connection
	ConnectRetries int
	// ConnectRetryDelay says how long the client should wait between retries
	ConnectRetryDelay time.Duration
}

type subscription struct {
	qos     byte
	handler paho.MessageHandler
}

// MQTT client
type MQTT struct {
	ctx           log.Interface
	config        Config
	client        paho.Client
	subscriptions map[string]subscription
	mu            sync.Mutex
	// set by the connection lost handler and cleared by the on-connect handler, which run on
	// different paho goroutines
	reconnecting atomic.Bool
}

// New returns a new MQTT client
func New(config Config, ctx log.Interface) (*MQTT, error) {
	if len(config.Brokers) == 0 {
		return nil, errors.New("mqtt: no brokers configured")
	}
	if config.ClientID == "" {
		config.ClientID = NewClientID()
	}
	if config.KeepAlive == 0 {
		config.KeepAlive = 30 * time.Second
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if config.ConnectRetryDelay == 0 {
		config.ConnectRetryDelay = time.Second
	}

	mqtt := &MQTT{
		ctx:           ctx.WithField("Client", "MQTT").WithField("ClientID", config.ClientID),
		config:        config,
		subscriptions: make(map[string]subscription),
	}

	mqttOpts := paho.NewClientOptions()
	for _, broker := range config.Brokers {
		mqttOpts.AddBroker(broker)
	}
	if config.TLSConfig != nil {
		mqttOpts.SetTLSConfig(config.TLSConfig)
	}
	mqttOpts.SetClientID(config.ClientID)
	mqttOpts.SetUsername(config.Username)
	mqttOpts.SetPassword(config.Password)
	mqttOpts.SetKeepAlive(config.KeepAlive)
	mqttOpts.SetPingTimeout(10 * time.Second)
	mqttOpts.SetConnectTimeout(config.ConnectTimeout)
	mqttOpts.SetCleanSession(true)
	mqttOpts.SetOrderMatters(false)
	mqttOpts.SetDefaultPublishHandler(func(_ paho.Client, msg paho.Message) {
		mqtt.ctx.WithField("Topic", msg.Topic()).Warn("Received unhandled message")
	})

	mqttOpts.SetConnectionLostHandler(mqtt.onConnectionLost)
	mqttOpts.SetOnConnectHandler(mqtt.onConnect)

	mqtt.client = paho.NewClient(mqttOpts)

	return mqtt, nil
}

// Factory returns a client.Factory that builds a new MQTT client with a fresh client ID for every call,
// unless the config sets a fixed one
func Factory(config Config, ctx log.Interface) client.Factory {
	return func() (client.Client, error) {
		return New(config, ctx)
	}
}

// NewClientID returns a random client ID
func NewClientID() string {
	return fmt.Sprintf("scenario-%s", uuid.New().String())
}

// Connect to MQTT. The returned token completes after the first successful attempt or after
// all retries failed.
func (c *MQTT) Connect() client.Token {
	if c.config.ConnectRetries <= 0 {
		return c.client.Connect()
	}
	token := client.NewPendingToken()
	go func() {
		var err error
		for attempt := 0; attempt <= c.config.ConnectRetries; attempt++ {
			if attempt > 0 {
				<-time.After(c.config.ConnectRetryDelay)
			}
			if err = client.Wait(c.client.Connect()); err == nil {
				break
			}
			c.ctx.WithError(err).WithField("Attempt", attempt+1).Warn("Could not connect to MQTT")
		}
		if err != nil {
			err = fmt.Errorf("could not connect to MQTT after %d attempts: %w", c.config.ConnectRetries+1, err)
		}
		token.Complete(err)
	}()
	return token
}

// Disconnect from MQTT
func (c *MQTT) Disconnect() error {
	c.client.Disconnect(DisconnectQuiesce)
	return nil
}

// Publish implements client.Client
func (c *MQTT) Publish(topic string, qos byte, payload []byte) client.Token {
	return c.client.Publish(topic, qos, false, payload)
}

// Subscribe implements client.Client. The token fails with ErrSubscriptionRejected when the broker
// returns a failure code for the filter.
func (c *MQTT) Subscribe(filter string, qos byte, handler client.MessageHandler) client.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	wrappedHandler := func(_ paho.Client, msg paho.Message) {
		handler(&client.Message{
			Topic:     msg.Topic(),
			Payload:   msg.Payload(),
			Retained:  msg.Retained(),
			Duplicate: msg.Duplicate(),
		})
	}
	c.subscriptions[filter] = subscription{qos, wrappedHandler}
	subToken := c.client.Subscribe(filter, qos, wrappedHandler)
	token := client.NewPendingToken()
	client.WhenComplete(subToken, func(err error) {
		if err == nil {
			if st, ok := subToken.(*paho.SubscribeToken); ok && st.Result()[filter] == subackFailure {
				err = ErrSubscriptionRejected
			}
		}
		if err != nil {
			c.mu.Lock()
			delete(c.subscriptions, filter)
			c.mu.Unlock()
		}
		token.Complete(err)
	})
	return token
}

func (c *MQTT) onConnectionLost(_ paho.Client, err error) {
	c.ctx.WithError(err).Warn("Disconnected. Reconnecting...")
	c.reconnecting.Store(true)
}

func (c *MQTT) onConnect(_ paho.Client) {
	c.ctx.Debug("Connected")
	if c.reconnecting.Swap(false) {
		c.resubscribe()
	}
}

func (c *MQTT) resubscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for filter, subscription := range c.subscriptions {
		c.client.Subscribe(filter, subscription.qos, subscription.handler)
	}
}
