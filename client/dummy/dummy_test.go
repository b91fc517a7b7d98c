// Copyright © 2016 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package dummy

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/TheThingsNetwork/mqtt-scenario/client"
	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDummy(t *testing.T) {
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

		Convey("When creating a new Dummy", func() {
			dummy := New(Options{}, ctx)

			Convey("Subscribing before connecting should fail", func() {
				err := client.Wait(dummy.Subscribe("test/topic", 0, func(*client.Message) {}))
				So(err, ShouldEqual, ErrNotConnected)
			})

			Convey("When calling Connect on Dummy", func() {
				err := client.Wait(dummy.Connect())
				Convey("There should be no error", func() {
					So(err, ShouldBeNil)
				})

				Convey("When subscribing to a topic", func() {
					received := make(chan *client.Message, 10)
					err := client.Wait(dummy.Subscribe("test/+", 0, func(msg *client.Message) {
						received <- msg
					}))
					Convey("There should be no error", func() {
						So(err, ShouldBeNil)
					})

					Convey("When publishing on a matching topic", func() {
						err := client.Wait(dummy.Publish("test/topic", 0, []byte("Test 0")))
						Convey("There should be no error", func() {
							So(err, ShouldBeNil)
						})
						Convey("The message should be delivered to the handler", func() {
							select {
							case <-time.After(time.Second):
								So("Timeout Exceeded", ShouldBeFalse)
							case msg := <-received:
								So(msg.Topic, ShouldEqual, "test/topic")
								So(string(msg.Payload), ShouldEqual, "Test 0")
							}
						})
					})

					Convey("When publishing on another topic", func() {
						client.Wait(dummy.Publish("other/topic", 0, []byte("Test 0")))
						Convey("The message should not be delivered", func() {
							select {
							case <-received:
								So("Unexpected message", ShouldBeFalse)
							case <-time.After(20 * time.Millisecond):
							}
						})
					})

					Convey("When disconnecting", func() {
						err := dummy.Disconnect()
						Convey("There should be no error", func() {
							So(err, ShouldBeNil)
						})
						Convey("Publishing should fail", func() {
							So(client.Wait(dummy.Publish("test/topic", 0, nil)), ShouldEqual, ErrNotConnected)
						})
						Convey("The calls should be counted", func() {
							So(dummy.Calls(), ShouldResemble, Calls{Connect: 1, Subscribe: 1, Publish: 0, Disconnect: 1})
						})
					})
				})
			})
		})

		Convey("When creating a Dummy that fails to connect", func() {
			errConnect := errors.New("connection refused")
			dummy := New(Options{ConnectError: errConnect}, ctx)
			Convey("Connect should return the error", func() {
				So(client.Wait(dummy.Connect()), ShouldEqual, errConnect)
			})
		})

		Convey("When creating a Dummy that fails and drops some publishes", func() {
			errPublish := errors.New("not authorized")
			dummy := New(Options{
				PublishError: func(i int) error {
					if i == 1 {
						return errPublish
					}
					return nil
				},
				Deliver: func(i int) bool { return i != 2 },
			}, ctx)
			client.Wait(dummy.Connect())
			received := make(chan *client.Message, 10)
			client.Wait(dummy.Subscribe("test/#", 0, func(msg *client.Message) {
				received <- msg
			}))

			var errs []error
			for i := 0; i < 4; i++ {
				errs = append(errs, client.Wait(dummy.Publish("test/topic", 0, []byte{byte(i)})))
			}

			Convey("Only the failing publish should return an error", func() {
				So(errs, ShouldResemble, []error{nil, errPublish, nil, nil})
			})
			Convey("Only the delivered messages should arrive", func() {
				var payloads []byte
				for len(payloads) < 2 {
					select {
					case <-time.After(time.Second):
						So("Timeout Exceeded", ShouldBeFalse)
						return
					case msg := <-received:
						payloads = append(payloads, msg.Payload...)
					}
				}
				So(payloads, ShouldContain, byte(0))
				So(payloads, ShouldContain, byte(3))
			})
		})
	})
}

func TestMatch(t *testing.T) {
	Convey("Match should follow the MQTT wildcard rules", t, func() {
		So(Match("test/topic", "test/topic"), ShouldBeTrue)
		So(Match("test/topic", "test/other"), ShouldBeFalse)
		So(Match("test/+", "test/topic"), ShouldBeTrue)
		So(Match("test/+", "test/topic/sub"), ShouldBeFalse)
		So(Match("test/#", "test/topic/sub"), ShouldBeTrue)
		So(Match("test/#", "test"), ShouldBeTrue)
		So(Match("#", "anything/at/all"), ShouldBeTrue)
		So(Match("test/topic/sub", "test/topic"), ShouldBeFalse)
	})
}
