// Copyright © 2016 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/TheThingsNetwork/go-utils/handlers/cli"
	"github.com/TheThingsNetwork/mqtt-scenario/broker"
	"github.com/TheThingsNetwork/mqtt-scenario/client"
	"github.com/TheThingsNetwork/mqtt-scenario/client/dummy"
	"github.com/TheThingsNetwork/mqtt-scenario/client/mqtt"
	"github.com/TheThingsNetwork/mqtt-scenario/scenario"
	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/multi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ScenarioCmd is the main command that is executed when running mqtt-scenario
var ScenarioCmd = &cobra.Command{
	Use:   "mqtt-scenario",
	Short: "Connect, subscribe, publish and receive with an MQTT client",
	Long: `mqtt-scenario connects to an MQTT broker, subscribes to a topic, publishes messages
on that topic, waits until all of them were received and disconnects.

The async command chains every step to the completion of the previous one,
the blocking command waits for every step before starting the next one.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var logHandlers []log.Handler

		logHandlers = append(logHandlers, cli.New(os.Stdout))

		if logFileLocation := config.GetString("log-file"); logFileLocation != "" {
			absLogFileLocation, err := filepath.Abs(logFileLocation)
			if err != nil {
				panic(err)
			}
			logFile, err = os.OpenFile(absLogFileLocation, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
			if err != nil {
				panic(err)
			}
			logHandlers = append(logHandlers, json.New(logFile))
		}

		level := log.InfoLevel
		if config.GetBool("debug") {
			level = log.DebugLevel
		}

		ctx = &log.Logger{
			Level:   level,
			Handler: multi.New(logHandlers...),
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			time.Sleep(100 * time.Millisecond)
			logFile.Close()
		}
	},
}

// errUnsuccessful is returned by the commands when not every run succeeded
var errUnsuccessful = errors.New("not all scenario runs succeeded")

func scenarioConfig() scenario.Config {
	return scenario.Config{
		Topic:         config.GetString("topic"),
		MessageCount:  config.GetInt("count"),
		Timeout:       config.GetDuration("timeout"),
		QoS:           byte(config.GetInt("qos")),
		PayloadFormat: config.GetString("payload-format"),
	}
}

// clientFactory returns the factory for the configured client, and a function that releases
// everything that was started for it
func clientFactory() (client.Factory, func(), error) {
	switch kind := config.GetString("client"); kind {
	case "dummy":
		ctx.Info("Using dummy client")
		return dummy.Factory(dummy.Options{}, ctx), func() {}, nil
	case "mqtt":
	default:
		return nil, nil, fmt.Errorf("unknown client %q", kind)
	}

	release := func() {}
	brokerAddress := config.GetString("broker")
	if config.GetBool("embedded-broker") {
		embedded := broker.New(broker.Config{Address: config.GetString("embedded-broker-address")}, ctx)
		if err := embedded.Start(); err != nil {
			return nil, nil, err
		}
		release = func() {
			if err := embedded.Stop(); err != nil {
				ctx.WithError(err).Warn("Could not stop embedded broker")
			}
		}
		brokerAddress = embedded.Address()
	}

	b, err := mqtt.ParseBroker(brokerAddress)
	if err != nil {
		release()
		return nil, nil, err
	}
	ctx.WithField("Username", b.Username).WithField("Address", b.Address).Info("Using MQTT client")
	return mqtt.Factory(mqtt.Config{
		Brokers:        []string{b.URI(config.GetBool("tls"))},
		ClientID:       config.GetString("client-id"),
		Username:       b.Username,
		Password:       b.Password,
		ConnectRetries: config.GetInt("connect-retries"),
	}, ctx), release, nil
}

func serveMetrics() {
	addr := config.GetString("metrics-address")
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		ctx.WithField("Address", addr).Info("Serving metrics")
		if err := http.ListenAndServe(addr, mux); err != nil {
			ctx.WithError(err).Warn("Could not serve metrics")
		}
	}()
}

// runScenario runs the scenario the configured number of times with the given style
func runScenario(style string) error {
	s, err := scenario.New(scenarioConfig(), ctx)
	if err != nil {
		return err
	}
	factory, release, err := clientFactory()
	if err != nil {
		return err
	}
	defer release()

	serveMetrics()

	repeat := config.GetInt("repeat")
	if repeat < 1 {
		repeat = 1
	}
	interval := config.GetDuration("interval")

	var failed int
	for i := 0; i < repeat; i++ {
		if i > 0 && interval > 0 {
			time.Sleep(interval)
		}
		var res *scenario.Result
		switch style {
		case scenario.StyleAsync:
			res = <-s.Start(factory)
		default:
			res = s.Run(factory)
		}
		runCtx := ctx.WithFields(log.Fields{
			"Run":       i + 1,
			"Outcome":   res.Outcome,
			"Published": res.Published,
			"Received":  res.Received,
			"Duration":  res.Duration,
		})
		if res.Outcome != scenario.Success {
			failed++
			runCtx.WithError(res.Err).Error("Scenario failed")
			continue
		}
		runCtx.Info("Scenario succeeded")
	}

	if failed > 0 {
		ctx.WithField("Failed", failed).WithField("Runs", repeat).Error("Not all runs succeeded")
		return errUnsuccessful
	}
	return nil
}

func init() {
	defaults := scenario.DefaultConfig()

	flags := ScenarioCmd.PersistentFlags()
	flags.String("log-file", "", "Location of the log file")
	flags.Bool("debug", false, "Print debug logs")

	flags.String("client", "mqtt", "Client to use (mqtt or dummy)")
	flags.String("broker", "localhost:1883", "MQTT Broker to connect to ([user[:pass]@]host:port)")
	flags.Bool("tls", false, "Connect to the MQTT Broker with TLS")
	flags.String("client-id", "", "MQTT client ID (random if empty)")
	flags.Int("connect-retries", 0, "Number of times a failed connection is retried")
	flags.Bool("embedded-broker", false, "Start an embedded MQTT Broker and connect to it")
	flags.String("embedded-broker-address", "127.0.0.1:0", "Address of the embedded MQTT Broker")

	flags.String("topic", defaults.Topic, "Topic to subscribe and publish to")
	flags.Int("count", defaults.MessageCount, "Number of messages to publish")
	flags.Duration("timeout", defaults.Timeout, "Maximum time to wait for all messages")
	flags.Int("qos", int(defaults.QoS), "QoS for subscribing and publishing")
	flags.String("payload-format", defaults.PayloadFormat, "Format of the payloads, formatted with the index of the message")

	flags.Int("repeat", 1, "Number of times the scenario is run")
	flags.Duration("interval", 0, "Time between runs")
	flags.String("metrics-address", "", "Address to serve Prometheus metrics on (disabled if empty)")

	viper.BindPFlags(flags)
}
