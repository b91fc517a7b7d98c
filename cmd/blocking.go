// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package cmd

import (
	"github.com/TheThingsNetwork/mqtt-scenario/scenario"
	"github.com/spf13/cobra"
)

var blockingCmd = &cobra.Command{
	Use:   "blocking",
	Short: "Run the scenario waiting for every step",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScenario(scenario.StyleBlocking)
	},
}

func init() {
	ScenarioCmd.AddCommand(blockingCmd)
}
