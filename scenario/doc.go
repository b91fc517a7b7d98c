// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

// Package scenario runs a fixed sequence of operations against a client:
//
//  1. Build a fresh client
//  2. Connect
//  3. Subscribe to the topic
//  4. Publish the messages on the topic, without waiting for acknowledgements
//  5. Wait (at most the timeout) until every published message was received
//  6. Disconnect
//
// A failed connect or subscribe aborts the sequence. Failed publishes are
// recorded but do not stop the remaining ones. Whatever happens, the client is
// disconnected exactly once.
//
// Run executes the stages one after the other on the calling goroutine. Start
// chains every stage to the completion of the previous one and returns
// immediately; the result is delivered on a channel.
package scenario
