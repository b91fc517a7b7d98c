// Copyright © 2016 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

// Package mqtt implements client.Client on top of the Eclipse Paho MQTT client.
//
// Every operation returns the deferred result of the underlying library, so
// callers can either block on it (client.Wait) or chain a continuation
// (client.WhenComplete). Subscriptions are remembered and restored when the
// connection is re-established after a connection loss.
//
// Brokers are given as URIs ("tcp://localhost:1883", "ssl://host:8883"). The
// command line notation "[user[:pass]@]host:port" is converted by ParseBroker.
package mqtt
