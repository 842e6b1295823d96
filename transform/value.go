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
	"math"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

const dateFormat = "2006-01-02"

// Normalize converts a raw payload value into its flat-table representation.
//
// The API uses several interchangeable markers for "no data": the strings
// "NA", "NaN", "" and "0", the number 0, and JSON null. All of them map to
// nil. Date-flagged fields must parse as an ISO calendar date with a year of
// 1900 or later; the original string passes through on success, anything else
// becomes nil. Numeric-looking strings are converted to float64 rounded to 4
// decimal places. Everything else passes through unchanged.
func Normalize(value gjson.Result, isDate bool) any {
	if isMissing(value) {
		return nil
	}

	if isDate {
		if value.Type != gjson.String {
			return nil
		}

		parsed, err := time.Parse(dateFormat, value.Str)
		if err != nil || parsed.Year() < 1900 {
			return nil
		}

		return value.Str
	}

	switch value.Type {
	case gjson.String:
		if num, err := strconv.ParseFloat(value.Str, 64); err == nil {
			return round4(num)
		}
		return value.Str
	case gjson.Number:
		return value.Num
	case gjson.True:
		return true
	default:
		return value.Value()
	}
}

// isMissing reports whether the value is one of the API's "no data" markers.
// false counts as missing because it is indistinguishable from 0 upstream.
func isMissing(value gjson.Result) bool {
	switch value.Type {
	case gjson.Null, gjson.False:
		return true
	case gjson.String:
		return value.Str == "NA" || value.Str == "NaN" || value.Str == "" || value.Str == "0"
	case gjson.Number:
		return value.Num == 0
	}

	return !value.Exists()
}

func round4(num float64) float64 {
	return math.Round(num*10000) / 10000
}
