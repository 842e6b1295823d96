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
	"fmt"
	"sync"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/penny-vault/pvfundamentals/data"
	"github.com/penny-vault/pvfundamentals/eodhd"
)

type mockClient struct {
	mu    sync.Mutex
	calls map[string]int
}

func newMockClient() *mockClient {
	return &mockClient{calls: make(map[string]int)}
}

func (client *mockClient) Fundamentals(_ context.Context, ticker string) (*data.Payload, error) {
	client.mu.Lock()
	client.calls[ticker]++
	client.mu.Unlock()

	switch ticker {
	case "MISSING US":
		return nil, fmt.Errorf("%w: %s", eodhd.ErrNotFound, ticker)
	case "BROKEN US":
		return nil, errors.New("connection reset")
	default:
		return &data.Payload{Ticker: ticker, Body: []byte(`{}`)}, nil
	}
}

func (client *mockClient) callCount(ticker string) int {
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.calls[ticker]
}

func TestEngineDedupesTickers(t *testing.T) {
	g := NewWithT(t)

	client := newMockClient()
	engine := NewEngine(client, 4)

	results := engine.Run(context.Background(), []string{
		"AAPL US", "AAPL US", "MSFT US", "AAPL US", "MSFT US",
	})

	g.Expect(results.Tickers).To(Equal([]string{"AAPL US", "MSFT US"}))
	g.Expect(client.callCount("AAPL US")).To(Equal(1))
	g.Expect(client.callCount("MSFT US")).To(Equal(1))
	g.Expect(results.Count(StatusOK)).To(Equal(2))
}

func TestEngineSkipsEmptyTickers(t *testing.T) {
	g := NewWithT(t)

	client := newMockClient()
	engine := NewEngine(client, 2)

	results := engine.Run(context.Background(), []string{"", "  ", " AAPL US "})

	g.Expect(results.Tickers).To(Equal([]string{"AAPL US"}))
	g.Expect(client.callCount("AAPL US")).To(Equal(1))
}

func TestEngineContainsFailures(t *testing.T) {
	g := NewWithT(t)

	client := newMockClient()
	engine := NewEngine(client, 4)

	results := engine.Run(context.Background(), []string{
		"AAPL US", "MISSING US", "BROKEN US", "MSFT US",
	})

	g.Expect(results.Count(StatusOK)).To(Equal(2))
	g.Expect(results.Count(StatusNotFound)).To(Equal(1))
	g.Expect(results.Count(StatusFailed)).To(Equal(1))

	missing, ok := results.Get("MISSING US")
	g.Expect(ok).To(BeTrue())
	g.Expect(missing.Status).To(Equal(StatusNotFound))
	g.Expect(missing.Payload).To(BeNil())

	broken, ok := results.Get("BROKEN US")
	g.Expect(ok).To(BeTrue())
	g.Expect(broken.Status).To(Equal(StatusFailed))
}

func TestResultSetPayloadOrder(t *testing.T) {
	g := NewWithT(t)

	client := newMockClient()
	engine := NewEngine(client, 4)

	results := engine.Run(context.Background(), []string{
		"MSFT US", "MISSING US", "AAPL US",
	})

	payloads := results.Payloads()
	g.Expect(payloads).To(HaveLen(3))

	// payloads come back in first-occurrence order regardless of which worker
	// finished first
	g.Expect(payloads[0].Ticker).To(Equal("MSFT US"))
	g.Expect(payloads[1].Ticker).To(Equal("MISSING US"))
	g.Expect(payloads[2].Ticker).To(Equal("AAPL US"))

	// failed fetches yield a placeholder payload with no body
	g.Expect(payloads[1].Body).To(BeNil())
	g.Expect(payloads[0].Body).NotTo(BeNil())
}

func TestEngineDefaultWorkers(t *testing.T) {
	g := NewWithT(t)

	engine := NewEngine(newMockClient(), 0)
	g.Expect(engine.workers).To(Equal(DefaultWorkers))
}
