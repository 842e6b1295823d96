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
	"context"
	"fmt"
	"time"

	"github.com/hako/durafmt"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/pvfundamentals/data"
	"github.com/penny-vault/pvfundamentals/eodhd"
	"github.com/penny-vault/pvfundamentals/etl"
	"github.com/penny-vault/pvfundamentals/fetch"
	"github.com/penny-vault/pvfundamentals/healthcheck"
	"github.com/penny-vault/pvfundamentals/library"
	"github.com/penny-vault/pvfundamentals/transform"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [ticker...]",
	Short: "Harvest fundamentals and load them into the database",
	Long: `The run sub-command downloads fundamentals for every configured security and
loads the flattened tables into the database. If ticker arguments are provided
only those securities are processed (the configured list is ignored).`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := log.Logger.WithContext(context.Background())

		pingID := viper.GetString("healthchecks.pingid")
		if pingID != "" {
			if err := healthcheck.PingStart(pingID); err != nil {
				log.Error().Err(err).Msg("could not ping healthcheck start")
			}
		}

		myLibrary, err := library.NewFromDB(ctx, viper.GetString("dbUrl"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to library")
		}
		defer myLibrary.Close()

		tickers, err := loadTickers(ctx, myLibrary, args)
		if err != nil {
			log.Fatal().Err(err).Msg("could not load ticker list")
		}

		client := eodhd.New(eodhd.Config{
			Token:     viper.GetString("eodhd.token"),
			RateLimit: viper.GetInt("eodhd.rate_limit"),
		})

		engine := fetch.NewEngine(client, viper.GetInt("fetch.workers"))

		producer, err := newProducer(viper.GetString("transform.strategy"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not create transform producer")
		}

		orchestrator := etl.New(engine, producer, myLibrary, etl.Config{
			BatchSize:      viper.GetInt("etl.batch_size"),
			ChunkThreshold: viper.GetInt("etl.chunk_threshold"),
		})

		startTime := time.Now()
		summary, err := orchestrator.Run(ctx, tickers)
		runTime := time.Since(startTime)

		if err != nil {
			log.Error().Err(err).Str("RunID", summary.RunID.String()).Msg("run aborted")
			if pingID != "" {
				if pingErr := healthcheck.PingFailure(pingID); pingErr != nil {
					log.Error().Err(pingErr).Msg("could not ping healthcheck failure")
				}
			}
			return
		}

		log.Info().Str("RunID", summary.RunID.String()).
			Str("RunTime", durafmt.Parse(runTime).String()).
			Int("NumTickers", summary.NumTickers).
			Int("NumFetched", summary.NumFetched).
			Int("NumNotFound", summary.NumNotFound).
			Int("NumFailed", summary.NumFailed).
			Int("NumRows", summary.NumRows).
			Int("NumTables", summary.NumTables).
			Msg("run finished")

		if pingID != "" {
			if err := healthcheck.PingSuccess(pingID); err != nil {
				log.Error().Err(err).Msg("could not ping healthcheck success")
			}
		}
	},
}

// loadTickers resolves the harvest list: explicit command-line tickers win,
// then a configured CSV, then the source-of-truth query.
func loadTickers(ctx context.Context, myLibrary *library.Library, args []string) ([]data.Ticker, error) {
	if len(args) > 0 {
		tickers := make([]data.Ticker, 0, len(args))
		for _, symbol := range args {
			tickers = append(tickers, data.Ticker{Symbol: symbol})
		}
		return tickers, nil
	}

	if csvPath := viper.GetString("tickers.csv"); csvPath != "" {
		return library.TickersFromCSV(csvPath)
	}

	return myLibrary.Tickers(ctx, viper.GetString("tickers.query"))
}

func newProducer(strategy string) (transform.Producer, error) {
	switch strategy {
	case "", "schema":
		return transform.NewFlattener(), nil
	case "statements":
		return transform.NewStatementProducer(), nil
	default:
		return nil, fmt.Errorf("unknown transform strategy: %s", strategy)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
}
