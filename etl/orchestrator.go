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
package etl

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/penny-vault/pvfundamentals/data"
	"github.com/penny-vault/pvfundamentals/fetch"
	"github.com/penny-vault/pvfundamentals/transform"
)

const (
	DefaultBatchSize      = 500
	DefaultChunkThreshold = 10
)

// Sink receives finished tables. library.Library satisfies it.
type Sink interface {
	Write(ctx context.Context, table *data.Table, replace bool, chunkSize int) error
}

type Config struct {
	// BatchSize is the maximum number of tickers fetched and transformed
	// together.
	BatchSize int

	// ChunkThreshold controls the chunk-size recommendation handed to the
	// sink: tables larger than the threshold are split into roughly
	// ChunkThreshold chunks.
	ChunkThreshold int
}

// Orchestrator drives the full ticker set through the fetch engine and a
// transform producer in contiguous batches and hands the resulting tables to
// the sink. It owns the run-scoped record of which destination tables have
// already received their replace-existing write.
type Orchestrator struct {
	engine   *fetch.Engine
	producer transform.Producer
	sink     Sink
	cfg      Config

	// inserted is mutated only between batches, never concurrently
	inserted map[string]bool
}

func New(engine *fetch.Engine, producer transform.Producer, sink Sink, cfg Config) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	if cfg.ChunkThreshold <= 0 {
		cfg.ChunkThreshold = DefaultChunkThreshold
	}

	return &Orchestrator{
		engine:   engine,
		producer: producer,
		sink:     sink,
		cfg:      cfg,
		inserted: make(map[string]bool),
	}
}

// Run processes every ticker. Fetch failures surface as null rows rather than
// errors; a sink failure aborts the run.
func (orch *Orchestrator) Run(ctx context.Context, tickers []data.Ticker) (*data.RunSummary, error) {
	logger := zerolog.Ctx(ctx)

	summary := &data.RunSummary{
		RunID:      uuid.New(),
		StartTime:  time.Now(),
		NumTickers: len(tickers),
	}
	defer func() {
		summary.EndTime = time.Now()
	}()

	symbols := make([]string, 0, len(tickers))
	for _, ticker := range tickers {
		ticker.Normalize()
		symbols = append(symbols, ticker.Symbol)
	}

	for start := 0; start < len(symbols); start += orch.cfg.BatchSize {
		end := start + orch.cfg.BatchSize
		if end > len(symbols) {
			end = len(symbols)
		}

		logger.Info().Str("RunID", summary.RunID.String()).
			Int("BatchStart", start).Int("BatchEnd", end).
			Msg("processing batch")

		if err := orch.runBatch(ctx, symbols[start:end], summary); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

func (orch *Orchestrator) runBatch(ctx context.Context, symbols []string, summary *data.RunSummary) error {
	logger := zerolog.Ctx(ctx)

	results := orch.engine.Run(ctx, symbols)
	summary.NumFetched += results.Count(fetch.StatusOK)
	summary.NumNotFound += results.Count(fetch.StatusNotFound)
	summary.NumFailed += results.Count(fetch.StatusFailed)

	tables := orch.producer.Produce(results.Payloads())

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		table := tables[name]
		if table.Empty() {
			continue
		}

		replace := !orch.inserted[name]
		orch.inserted[name] = true

		chunkSize := recommendChunkSize(len(table.Rows), orch.cfg.ChunkThreshold)

		logger.Debug().Str("Table", name).Int("NumRows", len(table.Rows)).
			Bool("Replace", replace).Int("ChunkSize", chunkSize).
			Msg("writing table")

		if err := orch.sink.Write(ctx, table, replace, chunkSize); err != nil {
			return err
		}

		summary.NumRows += len(table.Rows)
	}

	summary.NumTables = len(orch.inserted)

	return nil
}

// recommendChunkSize spreads insertion work across roughly threshold chunks:
// small tables load in a single chunk, larger ones in rows/threshold sized
// pieces.
func recommendChunkSize(rows int, threshold int) int {
	if rows <= threshold {
		return rows
	}

	return rows / threshold
}
