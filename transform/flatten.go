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
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/penny-vault/pvfundamentals/data"
)

// Producer turns a batch of payloads into destination tables. The two
// implementations correspond to the two payload flattening strategies; a run
// uses exactly one of them.
type Producer interface {
	Produce(payloads []*data.Payload) map[string]*data.Table
}

// Flattener implements schema-table flattening: one row per entity per
// destination table, driven by the static Schemas list, followed by the
// combine step.
type Flattener struct {
	now func() time.Time
}

func NewFlattener() *Flattener {
	return &Flattener{now: utcNow}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func (flattener *Flattener) Produce(payloads []*data.Payload) map[string]*data.Table {
	tables := make(map[string]*data.Table, len(Schemas))
	for _, schema := range Schemas {
		table := data.NewTable(schema.Table)
		table.AddColumns(EntityColumn)
		for _, field := range schema.Fields {
			table.AddColumns(field.Column)
		}
		tables[schema.Table] = table
	}

	for _, payload := range payloads {
		if payload.Body == nil {
			continue
		}

		doc := gjson.ParseBytes(payload.Body)

		for _, schema := range Schemas {
			table := tables[schema.Table]

			switch schema.Kind {
			case KindActivities:
				flattener.flattenActivities(table, payload.Ticker, doc, schema)
			case KindBalanceQuarterly:
				flattener.flattenBalanceQuarterly(table, payload.Ticker, doc)
			case KindRoot:
				flattener.flattenFields(table, payload.Ticker, doc, schema.Fields)
			case KindSection:
				section := doc.Get(schema.Section)
				if !section.IsObject() {
					// absent or "NA" section: the row is still emitted with
					// every field null
					section = gjson.Result{}
				}
				flattener.flattenFields(table, payload.Ticker, section, schema.Fields)
			}
		}
	}

	flattener.combine(tables)

	for _, table := range tables {
		table.Fill()
	}

	return tables
}

func (flattener *Flattener) flattenFields(table *data.Table, ticker string, doc gjson.Result, fields []Field) {
	row := data.Row{EntityColumn: ticker}

	for _, field := range fields {
		row[field.Column] = Normalize(doc.Get(field.Path), field.Date)
	}

	row[TimestampColumn] = flattener.now()
	table.Append(row)
}

// flattenActivities copies each ActivitiesInvolvement entry's Involvement
// value into the column named by its Activity. Activities outside the known
// column list are ignored.
func (flattener *Flattener) flattenActivities(table *data.Table, ticker string, doc gjson.Result, schema Schema) {
	row := data.Row{EntityColumn: ticker}

	known := make(map[string]bool, len(schema.Fields))
	for _, field := range schema.Fields {
		known[field.Column] = true
	}

	involvement := doc.Get(schema.Section + ".ActivitiesInvolvement")
	if involvement.IsObject() || involvement.IsArray() {
		involvement.ForEach(func(_, entry gjson.Result) bool {
			activity := entry.Get("Activity").String()
			if known[activity] {
				row[activity] = entry.Get("Involvement").Value()
			}
			return true
		})
	} else {
		for _, field := range schema.Fields {
			row[field.Column] = nil
		}
	}

	row[TimestampColumn] = flattener.now()
	table.Append(row)
}

// flattenBalanceQuarterly emits one row for each of the first two quarterly
// balance sheet entries in document order, copying every field verbatim
// through value normalization. Entries with fewer than two fields are
// dropped.
func (flattener *Flattener) flattenBalanceQuarterly(table *data.Table, ticker string, doc gjson.Result) {
	quarterly := doc.Get("Financials.Balance_Sheet.quarterly")
	if !quarterly.IsObject() {
		return
	}

	count := 0
	quarterly.ForEach(func(_, entry gjson.Result) bool {
		if count >= 2 {
			return false
		}
		count++

		if !entry.IsObject() {
			return true
		}

		row := data.Row{EntityColumn: ticker}
		entry.ForEach(func(key, value gjson.Result) bool {
			row[key.Str] = Normalize(value, strings.Contains(key.Str, "date"))
			return true
		})

		if len(row) > 2 {
			row[TimestampColumn] = flattener.now()
			table.Append(row)
		}

		return true
	})
}

// combine builds each derived table by seeding it with the rows of its first
// constituent and left-merging same-entity fields from the rest (first value
// wins per column). Constituents are removed from the output; the combined
// row gets a fresh timestamp.
func (flattener *Flattener) combine(tables map[string]*data.Table) {
	for combined, constituents := range CombineRules {
		if len(constituents) == 0 {
			continue
		}

		table := data.NewTable(combined)
		table.AddColumns(EntityColumn)

		base, ok := tables[constituents[0]]
		if !ok {
			continue
		}

		// register the combined column set up front so ordering follows the
		// constituent order rather than map iteration
		for _, col := range base.Columns {
			if col != TimestampColumn {
				table.AddColumns(col)
			}
		}
		for _, secondary := range constituents[1:] {
			if secondaryTable, ok := tables[secondary]; ok {
				for _, col := range secondaryTable.Columns {
					if col != TimestampColumn {
						table.AddColumns(col)
					}
				}
			}
		}
		table.AddColumns(TimestampColumn)

		for _, baseRow := range base.Rows {
			ticker, _ := baseRow[EntityColumn].(string)
			row := data.Row{EntityColumn: ticker}

			for col, value := range baseRow {
				if _, exists := row[col]; exists || col == TimestampColumn {
					continue
				}
				row[col] = value
			}

			for _, secondary := range constituents[1:] {
				secondaryTable, ok := tables[secondary]
				if !ok {
					continue
				}

				match := findTicker(ticker, secondaryTable.Rows)
				if match == nil {
					continue
				}

				for col, value := range match {
					if _, exists := row[col]; exists || col == TimestampColumn {
						continue
					}
					row[col] = value
				}
			}

			row[TimestampColumn] = flattener.now()
			table.Append(row)
		}

		for _, constituent := range constituents {
			delete(tables, constituent)
		}

		tables[combined] = table
	}
}

func findTicker(ticker string, rows []data.Row) data.Row {
	for _, row := range rows {
		if row[EntityColumn] == ticker {
			return row
		}
	}

	return nil
}
