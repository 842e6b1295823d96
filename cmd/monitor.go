// Copyright 2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pvfundamentals/healthcheck"
)

var monitorSchedule string

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Create a healthchecks.io check for the harvest schedule",
	Long: `The monitor sub-command registers a healthchecks.io check that the run
sub-command pings at start, success, and failure. Save the printed ping id to
the healthchecks.pingid configuration setting to enable monitoring.`,
	Run: func(cmd *cobra.Command, args []string) {
		checkID, err := healthcheck.Create("pvfundamentals harvest", []string{"pvfundamentals", "fundamentals"}, monitorSchedule)
		if err != nil {
			log.Fatal().Err(err).Msg("creating healthcheck failed")
		}

		log.Info().Str("PingID", checkID).Msg("healthcheck created; set healthchecks.pingid in your config file")
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringVar(&monitorSchedule, "schedule", "0 8 * * *", "cron schedule the harvest runs on")
}
