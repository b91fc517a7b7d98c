// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

// Package broker runs an in-process MQTT broker, so that scenarios can be run
// without any infrastructure.
package broker

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/apex/log"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

// ErrAlreadyStarted is returned when Start is called on a running broker
var ErrAlreadyStarted = errors.New("broker: already started")

// Config contains configuration for the embedded broker
type Config struct {
	// Address to listen on. An empty address or port 0 selects a free port on localhost.
	Address string
}

// Broker is an embedded MQTT broker
type Broker struct {
	ctx     log.Interface
	config  Config
	mu      sync.Mutex
	server  *mochi.Server
	address string
}

// New returns a new embedded broker
func New(config Config, ctx log.Interface) *Broker {
	return &Broker{
		ctx:    ctx.WithField("Component", "Broker"),
		config: config,
	}
}

// Start the broker
func (b *Broker) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.server != nil {
		return ErrAlreadyStarted
	}

	address, err := resolveAddress(b.config.Address)
	if err != nil {
		return err
	}

	server := mochi.New(&mochi.Options{
		InlineClient: true,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return fmt.Errorf("broker: could not add auth hook: %w", err)
	}
	tcp := listeners.NewTCP(listeners.Config{
		ID:      "tcp",
		Address: address,
	})
	if err := server.AddListener(tcp); err != nil {
		return fmt.Errorf("broker: could not add listener on %s: %w", address, err)
	}
	if err := server.Serve(); err != nil {
		return fmt.Errorf("broker: could not serve: %w", err)
	}

	b.server = server
	b.address = address
	b.ctx.WithField("Address", address).Info("Started embedded broker")
	return nil
}

// Address returns the address the broker listens on, or an empty string if it is not started
func (b *Broker) Address() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.address
}

// Stop the broker
func (b *Broker) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.server == nil {
		return nil
	}
	err := b.server.Close()
	b.server = nil
	b.address = ""
	b.ctx.Info("Stopped embedded broker")
	return err
}

// resolveAddress picks a free port when the address does not contain one
func resolveAddress(address string) (string, error) {
	if address == "" {
		address = "127.0.0.1:0"
	}
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return "", fmt.Errorf("broker: invalid address %q: %w", address, err)
	}
	if port != "0" {
		return address, nil
	}
	if host == "" {
		host = "127.0.0.1"
	}
	lis, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return "", fmt.Errorf("broker: could not find a free port: %w", err)
	}
	defer lis.Close()
	return lis.Addr().String(), nil
}
