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
package fetch

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/alphadose/haxmap"
	"github.com/rs/zerolog"

	"github.com/penny-vault/pvfundamentals/data"
	"github.com/penny-vault/pvfundamentals/eodhd"
)

const DefaultWorkers = 10

// Client is the remote boundary the engine fetches through. eodhd.Client
// satisfies it; tests substitute their own.
type Client interface {
	Fundamentals(ctx context.Context, ticker string) (*data.Payload, error)
}

type Status int

const (
	// StatusPending marks a key claimed by a worker whose network call is
	// still in flight.
	StatusPending Status = iota
	StatusOK
	StatusNotFound
	StatusFailed
)

// Result tags each payload with how the fetch concluded. Downstream consumers
// only see the payload (nil for not-found and failed alike); the status is
// kept so a future retry pass can target transient failures.
type Result struct {
	Payload *data.Payload
	Status  Status
}

// ResultSet holds one Result per distinct non-empty ticker, along with the
// tickers in first-occurrence order so downstream processing is
// deterministic.
type ResultSet struct {
	Tickers []string

	results *haxmap.Map[string, *Result]
}

// Get returns the result recorded for a ticker.
func (rs *ResultSet) Get(ticker string) (*Result, bool) {
	return rs.results.Get(ticker)
}

// Payloads returns one payload per distinct ticker in first-occurrence order.
// Payloads for tickers that could not be fetched have a nil Body.
func (rs *ResultSet) Payloads() []*data.Payload {
	payloads := make([]*data.Payload, 0, len(rs.Tickers))
	for _, ticker := range rs.Tickers {
		result, ok := rs.results.Get(ticker)
		if !ok || result.Payload == nil {
			payloads = append(payloads, &data.Payload{Ticker: ticker})
			continue
		}
		payloads = append(payloads, result.Payload)
	}
	return payloads
}

// Count returns how many results carry the given status.
func (rs *ResultSet) Count(status Status) int {
	count := 0
	rs.results.ForEach(func(_ string, result *Result) bool {
		if result.Status == status {
			count++
		}
		return true
	})
	return count
}

// Engine drains a queue of tickers with a fixed-size worker pool, calling the
// remote client at most once per distinct ticker.
type Engine struct {
	client  Client
	workers int
}

func NewEngine(client Client, workers int) *Engine {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Engine{
		client:  client,
		workers: workers,
	}
}

// Run fetches a payload for every distinct non-empty ticker in the input.
// Duplicates are claimed once; a placeholder is reserved before the network
// call so two workers can never have the same ticker in flight. Fetch
// failures never abort the run: the ticker's payload stays nil and the
// failure is logged.
func (engine *Engine) Run(ctx context.Context, tickers []string) *ResultSet {
	logger := zerolog.Ctx(ctx)

	rs := &ResultSet{
		results: haxmap.New[string, *Result](),
	}

	seen := make(map[string]bool, len(tickers))
	queue := make(chan string, len(tickers))
	for _, ticker := range tickers {
		ticker = strings.TrimSpace(ticker)
		if ticker == "" {
			continue
		}

		// duplicates stay in the queue; workers discard them at claim time
		queue <- ticker

		// first-occurrence order for deterministic downstream output
		if !seen[ticker] {
			seen[ticker] = true
			rs.Tickers = append(rs.Tickers, ticker)
		}
	}
	close(queue)

	var wg sync.WaitGroup
	for ii := 0; ii < engine.workers; ii++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.work(ctx, queue, rs)
		}()
	}

	wg.Wait()

	logger.Debug().Int("NumTickers", len(rs.Tickers)).
		Int("NumFetched", rs.Count(StatusOK)).
		Int("NumNotFound", rs.Count(StatusNotFound)).
		Int("NumFailed", rs.Count(StatusFailed)).
		Msg("fetch engine finished")

	return rs
}

func (engine *Engine) work(ctx context.Context, queue <-chan string, rs *ResultSet) {
	logger := zerolog.Ctx(ctx)

	for ticker := range queue {
		// claim-and-reserve in a single atomic step; a second worker pulling
		// a duplicate ticker sees the placeholder and moves on
		if _, loaded := rs.results.GetOrSet(ticker, &Result{Status: StatusPending}); loaded {
			continue
		}

		payload, err := engine.client.Fundamentals(ctx, ticker)

		switch {
		case err == nil:
			rs.results.Set(ticker, &Result{Payload: payload, Status: StatusOK})
		case errors.Is(err, eodhd.ErrNotFound):
			rs.results.Set(ticker, &Result{Status: StatusNotFound})
		default:
			logger.Error().Err(err).Str("Ticker", ticker).Msg("could not fetch fundamentals")
			rs.results.Set(ticker, &Result{Status: StatusFailed})
		}
	}
}
