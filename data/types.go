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
package data

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ticker identifies a single company to harvest fundamentals for. The
// BBGCompTicker is an alias carried through to the output tables; it is not
// used when querying the remote API.
type Ticker struct {
	Symbol        string `csv:"symbol" db:"symbol"`
	BBGCompTicker string `csv:"bbg_comp_ticker" db:"bbg_comp_ticker"`
	Currency      string `csv:"currency" db:"currency"`
}

// Normalize strips whitespace from the ticker symbol. Symbols loaded from the
// source-of-truth table occasionally carry embedded spaces (e.g. "BF B").
func (ticker *Ticker) Normalize() {
	ticker.Symbol = strings.ReplaceAll(ticker.Symbol, " ", "")
}

// Payload is the raw fundamentals document returned for one ticker. Body is
// nil when the fetch was attempted but produced no usable payload.
type Payload struct {
	Ticker string
	Body   []byte
}

type RunSummary struct {
	RunID     uuid.UUID
	StartTime time.Time
	EndTime   time.Time

	NumTickers  int
	NumFetched  int
	NumNotFound int
	NumFailed   int
	NumRows     int
	NumTables   int
}
