// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package cmd

import (
	"github.com/TheThingsNetwork/mqtt-scenario/scenario"
	"github.com/spf13/cobra"
)

var asyncCmd = &cobra.Command{
	Use:   "async",
	Short: "Run the scenario with continuations on every step",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScenario(scenario.StyleAsync)
	},
}

func init() {
	ScenarioCmd.AddCommand(asyncCmd)
}
