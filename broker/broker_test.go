// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package broker

import (
	"bytes"
	"net"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBroker(t *testing.T) {
	Convey("Given a new Context", t, func(c C) {

		var logs bytes.Buffer
		ctx := &log.Logger{
			Handler: text.New(&logs),
			Level:   log.DebugLevel,
		}
		defer func() {
			if logs.Len() > 0 {
				c.Printf("\n%s", logs.String())
			}
		}()

		Convey("When creating a new Broker without address", func() {
			b := New(Config{}, ctx)
			Reset(func() { b.Stop() })

			Convey("It should not have an address before starting", func() {
				So(b.Address(), ShouldBeEmpty)
			})

			Convey("When starting the Broker", func() {
				err := b.Start()
				Convey("There should be no error", func() {
					So(err, ShouldBeNil)
				})
				Convey("It should listen on a free port", func() {
					So(b.Address(), ShouldNotBeEmpty)
					conn, err := net.Dial("tcp", b.Address())
					So(err, ShouldBeNil)
					conn.Close()
				})
				Convey("Starting it again should fail", func() {
					So(b.Start(), ShouldEqual, ErrAlreadyStarted)
				})
				Convey("When stopping the Broker", func() {
					err := b.Stop()
					Convey("There should be no error", func() {
						So(err, ShouldBeNil)
					})
					Convey("The address should be cleared", func() {
						So(b.Address(), ShouldBeEmpty)
					})
				})
			})
		})

		Convey("When creating a Broker with an invalid address", func() {
			b := New(Config{Address: "no-port"}, ctx)
			Convey("Start should fail", func() {
				So(b.Start(), ShouldNotBeNil)
			})
		})
	})
}
