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
package library

import (
	"context"
	"os"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/gocarina/gocsv"

	"github.com/penny-vault/pvfundamentals/data"
)

// Tickers loads the harvest list from the source-of-truth table. The query
// must return symbol, bbg_comp_ticker and currency columns.
func (myLibrary *Library) Tickers(ctx context.Context, query string) ([]data.Ticker, error) {
	var tickers []data.Ticker
	if err := pgxscan.Select(ctx, myLibrary.Pool, &tickers, query); err != nil {
		return nil, err
	}

	for idx := range tickers {
		tickers[idx].Normalize()
	}

	return tickers, nil
}

// TickersFromCSV reads the harvest list from a CSV file with symbol,
// bbg_comp_ticker and currency columns. Useful for one-off backfills that
// bypass the source-of-truth table.
func TickersFromCSV(path string) ([]data.Ticker, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var tickers []data.Ticker
	if err := gocsv.UnmarshalFile(fh, &tickers); err != nil {
		return nil, err
	}

	for idx := range tickers {
		tickers[idx].Normalize()
	}

	return tickers, nil
}
