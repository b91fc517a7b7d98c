// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/apex/log"
	"github.com/spf13/cobra"
)

var ctx *log.Logger

var logFile *os.File

// Execute is called by main.go
func Execute() {
	defer func() {
		thePanic := recover()
		if thePanic == nil {
			return
		}
		if ctx == nil {
			panic(thePanic)
		}
		ctx.WithFields(panicFields(thePanic)).WithField("stack", string(debug.Stack())).Fatal("Stopping because of panic")
	}()

	if err := ScenarioCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}

// panicFields describes the scenario that was running when the panic happened
func panicFields(thePanic interface{}) log.Fields {
	return log.Fields{
		"panic":  thePanic,
		"Args":   os.Args[1:],
		"Topic":  config.GetString("topic"),
		"Client": config.GetString("client"),
		"Broker": config.GetString("broker"),
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	ScenarioCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Location of the config file")
}
