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
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"

	"github.com/penny-vault/pvfundamentals/data"
)

func testStatementProducer() *StatementProducer {
	producer := NewStatementProducer()
	producer.now = func() time.Time { return fixedTime }
	return producer
}

const statementPayload = `{
	"General": {
		"Name": "Microsoft Corporation",
		"Sector": "Technology",
		"Industry": "Software",
		"CurrencyCode": "USD",
		"UpdatedAt": "2024-03-15"
	},
	"Highlights": {
		"MarketCapitalization": 3000000000000,
		"PERatio": 35.2
	},
	"Financials": {
		"Balance_Sheet": {
			"quarterly": {
				"2023-12-31": {"date": "2023-12-31", "filing_date": "2024-01-30", "totalAssets": 470558000000, "cash": 17305000000},
				"2023-09-30": {"date": "2023-09-30", "filing_date": "2023-10-24", "totalAssets": 445785000000, "cash": 80452000000},
				"2023-06-30": {"date": "2023-06-30", "filing_date": "2023-07-27", "totalAssets": 411976000000, "cash": 34704000000}
			}
		},
		"Cash_Flow": {
			"quarterly": {
				"2023-12-31": {"date": "2023-12-31", "filing_date": "2024-01-30", "netIncome": 21870000000, "freeCashFlow": 9118000000}
			}
		},
		"Income_Statement": {
			"yearly": {
				"2023-06-30": {"date": "2023-06-30", "filing_date": "2023-07-27", "totalRevenue": 211915000000, "netIncome": 72361000000}
			}
		}
	}
}`

func TestSummarizeLatestRecords(t *testing.T) {
	g := NewWithT(t)

	tables := testStatementProducer().Produce([]*data.Payload{
		{Ticker: "MSFT US", Body: []byte(statementPayload)},
	})

	summary := tables[TableSummary]
	g.Expect(summary.Rows).To(HaveLen(1))

	row := summary.Rows[0]
	g.Expect(row[EntityColumn]).To(Equal("MSFT US"))
	g.Expect(row["name"]).To(Equal("Microsoft Corporation"))
	g.Expect(row["currency_code"]).To(Equal("USD"))
	g.Expect(row["updated_at"]).To(Equal("2024-03-15"))
	g.Expect(row["PERatio"]).To(Equal(35.2))

	// the latest quarterly record wins for the balance sheet
	g.Expect(row["bs_date"]).To(Equal("2023-12-31"))
	g.Expect(row["bs_totalAssets"]).To(Equal(470558000000.0))

	// income statement has no quarterly records so yearly is the fallback
	g.Expect(row["is_date"]).To(Equal("2023-06-30"))
	g.Expect(row["is_totalRevenue"]).To(Equal(211915000000.0))
}

func TestSummarizeEmptyPayload(t *testing.T) {
	g := NewWithT(t)

	tables := testStatementProducer().Produce([]*data.Payload{
		{Ticker: "GONE US"},
	})

	// entities without a payload still get a summary row with null fields
	summary := tables[TableSummary]
	g.Expect(summary.Rows).To(HaveLen(1))
	g.Expect(summary.Rows[0][EntityColumn]).To(Equal("GONE US"))
	g.Expect(summary.Rows[0]["name"]).To(BeNil())
	g.Expect(summary.Rows[0]["bs_totalAssets"]).To(BeNil())

	// but no history rows
	g.Expect(tables[TableHistory].Rows).To(BeEmpty())
}

func TestExpandHistoryPositionalAlignment(t *testing.T) {
	g := NewWithT(t)

	tables := testStatementProducer().Produce([]*data.Payload{
		{Ticker: "MSFT US", Body: []byte(statementPayload)},
	})

	history := tables[TableHistory]

	// 3 quarterly ranks (balance sheet is the longest list) plus 1 yearly
	g.Expect(history.Rows).To(HaveLen(4))

	first := history.Rows[0]
	g.Expect(first["period"]).To(Equal("quarterly"))
	g.Expect(first["updated_at"]).To(Equal("2024-03-15"))
	g.Expect(first["currency_code"]).To(Equal("USD"))
	g.Expect(first["bs_date"]).To(Equal("2023-12-31"))
	g.Expect(first["cf_date"]).To(Equal("2023-12-31"))
	g.Expect(first["cf_netIncome"]).To(Equal(21870000000.0))

	// income statement has no quarterly records at all
	g.Expect(first["is_date"]).To(BeNil())

	// the cash flow list ran out after rank 0
	second := history.Rows[1]
	g.Expect(second["bs_date"]).To(Equal("2023-09-30"))
	g.Expect(second["cf_date"]).To(BeNil())
	g.Expect(second["cf_netIncome"]).To(BeNil())

	third := history.Rows[2]
	g.Expect(third["bs_date"]).To(Equal("2023-06-30"))

	yearly := history.Rows[3]
	g.Expect(yearly["period"]).To(Equal("yearly"))
	g.Expect(yearly["is_date"]).To(Equal("2023-06-30"))
	g.Expect(yearly["is_totalRevenue"]).To(Equal(211915000000.0))
	g.Expect(yearly["bs_date"]).To(BeNil())
}

func TestGatherPeriodSortsAndTruncates(t *testing.T) {
	g := NewWithT(t)

	doc := `{"quarterly": {
		"2022-03-31": {"date": "2022-03-31", "totalAssets": 1},
		"2023-12-31": {"date": "2023-12-31", "totalAssets": 2},
		"2022-06-30": {"date": "2022-06-30", "totalAssets": 3},
		"2022-09-30": {"date": "2022-09-30", "totalAssets": 4},
		"2022-12-31": {"date": "2022-12-31", "totalAssets": 5},
		"2023-03-31": {"date": "2023-03-31", "totalAssets": 6},
		"2023-06-30": {"date": "2023-06-30", "totalAssets": 7},
		"2023-09-30": {"date": "2023-09-30", "totalAssets": 8}
	}}`

	entries := gatherPeriod(gjson.Parse(doc), "quarterly", historyQuarters)

	g.Expect(entries).To(HaveLen(historyQuarters))
	g.Expect(entries[0].date).To(Equal("2023-12-31"))
	g.Expect(entries[historyQuarters-1].date).To(Equal("2022-09-30"))
}
