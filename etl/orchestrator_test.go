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
	"errors"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/penny-vault/pvfundamentals/data"
	"github.com/penny-vault/pvfundamentals/fetch"
)

type stubClient struct{}

func (client *stubClient) Fundamentals(_ context.Context, ticker string) (*data.Payload, error) {
	return &data.Payload{Ticker: ticker, Body: []byte(`{}`)}, nil
}

// rowProducer emits one row per payload into a single table, plus a table
// that never receives rows.
type rowProducer struct{}

func (producer *rowProducer) Produce(payloads []*data.Payload) map[string]*data.Table {
	table := data.NewTable("etl.test_rows")
	table.AddColumns("bbg_comp_ticker")
	for _, payload := range payloads {
		table.Append(data.Row{"bbg_comp_ticker": payload.Ticker})
	}

	return map[string]*data.Table{
		"etl.test_rows":  table,
		"etl.test_empty": data.NewTable("etl.test_empty"),
	}
}

type writeRecord struct {
	table     string
	rows      int
	replace   bool
	chunkSize int
}

type recordingSink struct {
	writes []writeRecord
	failOn string
}

func (sink *recordingSink) Write(_ context.Context, table *data.Table, replace bool, chunkSize int) error {
	if sink.failOn != "" && table.Name == sink.failOn {
		return errors.New("write failed")
	}

	sink.writes = append(sink.writes, writeRecord{
		table:     table.Name,
		rows:      len(table.Rows),
		replace:   replace,
		chunkSize: chunkSize,
	})

	return nil
}

func tickerList(symbols ...string) []data.Ticker {
	tickers := make([]data.Ticker, 0, len(symbols))
	for _, symbol := range symbols {
		tickers = append(tickers, data.Ticker{Symbol: symbol})
	}
	return tickers
}

func TestOrchestratorReplaceThenAppend(t *testing.T) {
	g := NewWithT(t)

	sink := &recordingSink{}
	orchestrator := New(
		fetch.NewEngine(&stubClient{}, 2),
		&rowProducer{},
		sink,
		Config{BatchSize: 2},
	)

	summary, err := orchestrator.Run(context.Background(),
		tickerList("AAPL US", "MSFT US", "IBM US", "GE US"))

	g.Expect(err).NotTo(HaveOccurred())

	// two batches of two tickers each
	g.Expect(sink.writes).To(HaveLen(2))
	g.Expect(sink.writes[0].table).To(Equal("etl.test_rows"))
	g.Expect(sink.writes[0].replace).To(BeTrue())
	g.Expect(sink.writes[0].rows).To(Equal(2))
	g.Expect(sink.writes[1].replace).To(BeFalse())
	g.Expect(sink.writes[1].rows).To(Equal(2))

	g.Expect(summary.NumTickers).To(Equal(4))
	g.Expect(summary.NumFetched).To(Equal(4))
	g.Expect(summary.NumRows).To(Equal(4))
	g.Expect(summary.NumTables).To(Equal(1))
}

func TestOrchestratorSkipsEmptyTables(t *testing.T) {
	g := NewWithT(t)

	sink := &recordingSink{}
	orchestrator := New(
		fetch.NewEngine(&stubClient{}, 2),
		&rowProducer{},
		sink,
		Config{},
	)

	_, err := orchestrator.Run(context.Background(), tickerList("AAPL US"))
	g.Expect(err).NotTo(HaveOccurred())

	for _, write := range sink.writes {
		g.Expect(write.table).NotTo(Equal("etl.test_empty"))
	}
}

func TestOrchestratorSinkFailureAborts(t *testing.T) {
	g := NewWithT(t)

	sink := &recordingSink{failOn: "etl.test_rows"}
	orchestrator := New(
		fetch.NewEngine(&stubClient{}, 2),
		&rowProducer{},
		sink,
		Config{},
	)

	_, err := orchestrator.Run(context.Background(), tickerList("AAPL US"))
	g.Expect(err).To(HaveOccurred())
}

func TestRecommendChunkSize(t *testing.T) {
	g := NewWithT(t)

	// tables at or under the threshold load in a single chunk
	g.Expect(recommendChunkSize(5, 10)).To(Equal(5))
	g.Expect(recommendChunkSize(10, 10)).To(Equal(10))

	// larger tables split into roughly threshold chunks
	g.Expect(recommendChunkSize(100, 10)).To(Equal(10))
	g.Expect(recommendChunkSize(105, 10)).To(Equal(10))
	g.Expect(recommendChunkSize(5000, 10)).To(Equal(500))
}

func TestOrchestratorDefaults(t *testing.T) {
	g := NewWithT(t)

	orchestrator := New(nil, nil, nil, Config{})
	g.Expect(orchestrator.cfg.BatchSize).To(Equal(DefaultBatchSize))
	g.Expect(orchestrator.cfg.ChunkThreshold).To(Equal(DefaultChunkThreshold))
}
