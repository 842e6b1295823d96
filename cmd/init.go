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
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/jackc/pgx/v5"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pvfundamentals/db"
)

type initSettings struct {
	DBUrl string `toml:"dbUrl"`
	EODHD struct {
		Token string `toml:"token"`
	} `toml:"eodhd"`
}

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Gather database configuration and setup schema",
	Run: func(cmd *cobra.Command, args []string) {
		settings := &initSettings{}

		form := huh.NewForm(
			// Get details about the database
			huh.NewGroup(
				huh.NewInput().
					Title("Provide the DSN for connecting to your PostgreSQL database (postgres://[user[:password]@][netloc][:port][/dbname][?param1=value1&...])").
					Value(&settings.DBUrl).
					Validate(func(dsn string) error {
						_, err := pgx.ParseConfig(dsn)
						return err
					}),
			),

			// Get the EODHD API token
			huh.NewGroup(
				huh.NewInput().
					Title("Provide your EOD Historical Data API token:").
					Value(&settings.EODHD.Token),
			),
		)

		err := form.Run()
		if err != nil {
			log.Fatal().Err(err).Msg("error gathering database settings")
		}

		log.Info().Msg("creating database tables")

		// run migration
		dbURL := strings.Replace(settings.DBUrl, "postgres://", "pgx5://", -1)
		err = db.Migrate(dbURL)
		if err != nil {
			log.Fatal().Err(err).Msg("error running database migration")
		}

		log.Info().Msg("database tables created")

		// save settings to config file
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal().Err(err).Msg("could not determine user home directory")
		}

		configFN := filepath.Join(home, ".pvfundamentals.toml")
		log.Info().Str("ConfigFile", configFN).Msg("Saving database connection info to config file")
		configData, err := toml.Marshal(settings)
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal configuration data")
		}

		err = os.WriteFile(configFN, configData, 0644)
		if err != nil {
			log.Fatal().Err(err).Str("FileName", configFN).Msg("could not save configuration to file")
		}

		log.Info().Msg("Your fundamentals database has been initialized")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
