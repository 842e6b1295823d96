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

import "sort"

// Row maps a column name to a scalar value. Missing values are stored as nil
// rather than omitted so every row in a table carries the full column set.
type Row map[string]any

// Table is an ordered collection of flat rows destined for a single database
// table. Columns records the column order as columns first appear.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row

	seen map[string]bool
}

func NewTable(name string) *Table {
	return &Table{
		Name: name,
		seen: make(map[string]bool),
	}
}

// Append adds a row to the table, extending the column set with any columns
// not seen before.
func (table *Table) Append(row Row) {
	if table.seen == nil {
		table.seen = make(map[string]bool)
	}

	for _, col := range rowColumns(row) {
		if !table.seen[col] {
			table.seen[col] = true
			table.Columns = append(table.Columns, col)
		}
	}

	table.Rows = append(table.Rows, row)
}

// Fill sets an explicit nil for every column a row is missing. Rows appended
// early can be missing columns introduced by later rows.
func (table *Table) Fill() {
	for _, row := range table.Rows {
		for _, col := range table.Columns {
			if _, ok := row[col]; !ok {
				row[col] = nil
			}
		}
	}
}

func (table *Table) Empty() bool {
	return len(table.Rows) == 0
}

// rowColumns returns the row's columns sorted, since map iteration order is
// not stable. Callers that need a specific ordering pre-register columns with
// AddColumns before appending rows.
func rowColumns(row Row) []string {
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// AddColumns pre-registers columns so their order is deterministic regardless
// of map iteration order in appended rows.
func (table *Table) AddColumns(cols ...string) {
	if table.seen == nil {
		table.seen = make(map[string]bool)
	}

	for _, col := range cols {
		if !table.seen[col] {
			table.seen[col] = true
			table.Columns = append(table.Columns, col)
		}
	}
}
