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
package transform

import (
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/penny-vault/pvfundamentals/data"
)

// How many periods of each statement the history table keeps.
const (
	historyQuarters = 6
	historyYears    = 2
)

// statement describes one of the three financial statements pulled into the
// summary and history tables. Prefix namespaces its columns so the three
// statements can share a row.
type statement struct {
	Path   string
	Prefix string
	Fields []string
}

var statements = []statement{
	{
		Path:   "Financials.Balance_Sheet",
		Prefix: "bs_",
		Fields: []string{
			"date",
			"filing_date",
			"totalAssets",
			"totalLiab",
			"totalStockholderEquity",
			"totalCurrentAssets",
			"totalCurrentLiabilities",
			"cash",
			"shortTermDebt",
			"longTermDebt",
			"netDebt",
			"inventory",
			"netReceivables",
			"commonStockSharesOutstanding",
		},
	},
	{
		Path:   "Financials.Cash_Flow",
		Prefix: "cf_",
		Fields: []string{
			"date",
			"filing_date",
			"netIncome",
			"totalCashFromOperatingActivities",
			"totalCashflowsFromInvestingActivities",
			"totalCashFromFinancingActivities",
			"capitalExpenditures",
			"freeCashFlow",
			"dividendsPaid",
			"changeInCash",
		},
	},
	{
		Path:   "Financials.Income_Statement",
		Prefix: "is_",
		Fields: []string{
			"date",
			"filing_date",
			"totalRevenue",
			"costOfRevenue",
			"grossProfit",
			"totalOperatingExpenses",
			"operatingIncome",
			"netIncome",
			"ebit",
			"ebitda",
			"incomeTaxExpense",
			"interestExpense",
		},
	},
}

// summarySections lists the per-section field pulls for the summary table.
// General fields are renamed to snake_case; the rest keep their API names.
var summarySections = []struct {
	Section string
	Fields  []Field
}{
	{
		Section: "General",
		Fields: []Field{
			{Path: "Name", Column: "name"},
			{Path: "Sector", Column: "sector"},
			{Path: "Industry", Column: "industry"},
			{Path: "CurrencyCode", Column: "currency_code"},
			{Path: "UpdatedAt", Column: "updated_at", Date: true},
		},
	},
	{
		Section: "Highlights",
		Fields: []Field{
			{Path: "MarketCapitalization", Column: "MarketCapitalization"},
			{Path: "EBITDA", Column: "EBITDA"},
			{Path: "PERatio", Column: "PERatio"},
			{Path: "PEGRatio", Column: "PEGRatio"},
			{Path: "BookValue", Column: "BookValue"},
			{Path: "DividendYield", Column: "DividendYield"},
			{Path: "EarningsShare", Column: "EarningsShare"},
			{Path: "ProfitMargin", Column: "ProfitMargin"},
			{Path: "ReturnOnEquityTTM", Column: "ReturnOnEquityTTM"},
			{Path: "RevenueTTM", Column: "RevenueTTM"},
		},
	},
	{
		Section: "Valuation",
		Fields: []Field{
			{Path: "TrailingPE", Column: "TrailingPE"},
			{Path: "ForwardPE", Column: "ForwardPE"},
			{Path: "PriceSalesTTM", Column: "PriceSalesTTM"},
			{Path: "PriceBookMRQ", Column: "PriceBookMRQ"},
			{Path: "EnterpriseValueRevenue", Column: "EnterpriseValueRevenue"},
			{Path: "EnterpriseValueEbitda", Column: "EnterpriseValueEbitda"},
		},
	},
	{
		Section: "SplitsDividends",
		Fields: []Field{
			{Path: "ForwardAnnualDividendRate", Column: "ForwardAnnualDividendRate"},
			{Path: "ForwardAnnualDividendYield", Column: "ForwardAnnualDividendYield"},
			{Path: "PayoutRatio", Column: "PayoutRatio"},
		},
	},
	{
		Section: "SharesStats",
		Fields: []Field{
			{Path: "SharesOutstanding", Column: "SharesOutstanding"},
			{Path: "SharesFloat", Column: "SharesFloat"},
			{Path: "ShortRatio", Column: "ShortRatio"},
		},
	},
	{
		Section: "AnalystRatings",
		Fields: []Field{
			{Path: "Rating", Column: "Rating"},
			{Path: "TargetPrice", Column: "TargetPrice"},
			{Path: "StrongBuy", Column: "StrongBuy"},
			{Path: "Buy", Column: "Buy"},
			{Path: "Hold", Column: "Hold"},
			{Path: "Sell", Column: "Sell"},
			{Path: "StrongSell", Column: "StrongSell"},
		},
	},
}

// StatementProducer implements section-extractor flattening: one summary row
// per entity with the latest statement records, plus a history table holding
// the most recent quarterly and yearly periods of all three statements
// aligned positionally by recency rank.
type StatementProducer struct {
	now func() time.Time
}

func NewStatementProducer() *StatementProducer {
	return &StatementProducer{now: utcNow}
}

func (producer *StatementProducer) Produce(payloads []*data.Payload) map[string]*data.Table {
	summary := data.NewTable(TableSummary)
	summary.AddColumns(EntityColumn)
	for _, section := range summarySections {
		for _, field := range section.Fields {
			summary.AddColumns(field.Column)
		}
	}
	for _, stmt := range statements {
		for _, field := range stmt.Fields {
			summary.AddColumns(stmt.Prefix + field)
		}
	}
	summary.AddColumns(TimestampColumn)

	history := data.NewTable(TableHistory)
	history.AddColumns(EntityColumn, "period", "updated_at", "currency_code")
	for _, stmt := range statements {
		for _, field := range stmt.Fields {
			history.AddColumns(stmt.Prefix + field)
		}
	}
	history.AddColumns(TimestampColumn)

	for _, payload := range payloads {
		producer.summarize(summary, payload)
		producer.expandHistory(history, payload)
	}

	summary.Fill()
	history.Fill()

	return map[string]*data.Table{
		TableSummary: summary,
		TableHistory: history,
	}
}

// summarize emits exactly one row per entity. Entities without a payload
// still get a row: the entity column is populated and every financial field
// is null.
func (producer *StatementProducer) summarize(table *data.Table, payload *data.Payload) {
	row := data.Row{EntityColumn: payload.Ticker}

	doc := gjson.Result{}
	if payload.Body != nil {
		doc = gjson.ParseBytes(payload.Body)
	}

	for _, section := range summarySections {
		sectionDoc := doc.Get(section.Section)
		for _, field := range section.Fields {
			row[field.Column] = Normalize(sectionDoc.Get(field.Path), field.Date)
		}
	}

	for _, stmt := range statements {
		record := latestRecord(doc.Get(stmt.Path))
		for _, field := range stmt.Fields {
			row[stmt.Prefix+field] = Normalize(record.Get(field), strings.Contains(field, "date"))
		}
	}

	row[TimestampColumn] = producer.now()
	table.Append(row)
}

// latestRecord picks the dated sub-record with the lexicographically greatest
// date key from the statement's quarterly map, falling back to yearly. ISO
// dates sort correctly lexicographically.
func latestRecord(stmt gjson.Result) gjson.Result {
	if record, ok := latestIn(stmt.Get("quarterly")); ok {
		return record
	}

	if record, ok := latestIn(stmt.Get("yearly")); ok {
		return record
	}

	return gjson.Result{}
}

func latestIn(periods gjson.Result) (gjson.Result, bool) {
	if !periods.IsObject() {
		return gjson.Result{}, false
	}

	var (
		bestKey    string
		bestRecord gjson.Result
		found      bool
	)

	periods.ForEach(func(key, record gjson.Result) bool {
		if !record.IsObject() {
			return true
		}

		if !found || key.Str > bestKey {
			bestKey = key.Str
			bestRecord = record
			found = true
		}

		return true
	})

	return bestRecord, found
}

// datedEntry is a statement record stamped with its own date, or with its map
// key when the record lacks a date field.
type datedEntry struct {
	date   string
	record gjson.Result
}

func gatherPeriod(stmt gjson.Result, period string, limit int) []datedEntry {
	periods := stmt.Get(period)
	if !periods.IsObject() {
		return nil
	}

	entries := make([]datedEntry, 0, 8)
	periods.ForEach(func(key, record gjson.Result) bool {
		if !record.IsObject() {
			return true
		}

		date := record.Get("date").String()
		if date == "" {
			date = key.Str
		}

		entries = append(entries, datedEntry{date: date, record: record})
		return true
	})

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].date > entries[j].date
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}

	return entries
}

// expandHistory emits one row per recency rank, combining the i-th most
// recent entry of each statement. The three statement sections of a row can
// therefore come from different fiscal dates when the lists are not aligned;
// that positional behavior is intentional and fixtures depend on it.
func (producer *StatementProducer) expandHistory(table *data.Table, payload *data.Payload) {
	if payload.Body == nil {
		return
	}

	doc := gjson.ParseBytes(payload.Body)

	updatedAt := Normalize(doc.Get("General.UpdatedAt"), true)
	currency := Normalize(doc.Get("General.CurrencyCode"), false)

	for _, period := range []struct {
		label string
		limit int
	}{
		{label: "quarterly", limit: historyQuarters},
		{label: "yearly", limit: historyYears},
	} {
		lists := make([][]datedEntry, len(statements))
		maxLen := 0
		for idx, stmt := range statements {
			lists[idx] = gatherPeriod(doc.Get(stmt.Path), period.label, period.limit)
			if len(lists[idx]) > maxLen {
				maxLen = len(lists[idx])
			}
		}

		for ii := 0; ii < maxLen; ii++ {
			row := data.Row{
				EntityColumn:    payload.Ticker,
				"period":        period.label,
				"updated_at":    updatedAt,
				"currency_code": currency,
			}

			for idx, stmt := range statements {
				if ii >= len(lists[idx]) {
					for _, field := range stmt.Fields {
						row[stmt.Prefix+field] = nil
					}
					continue
				}

				entry := lists[idx][ii]
				for _, field := range stmt.Fields {
					if field == "date" {
						row[stmt.Prefix+field] = Normalize(dateResult(entry.date), true)
						continue
					}
					row[stmt.Prefix+field] = Normalize(entry.record.Get(field), strings.Contains(field, "date"))
				}
			}

			row[TimestampColumn] = producer.now()
			table.Append(row)
		}
	}
}

// dateResult wraps a stamped date string back into a gjson value so it flows
// through the same normalization as everything else.
func dateResult(date string) gjson.Result {
	return gjson.Result{Type: gjson.String, Str: date, Raw: `"` + date + `"`}
}
