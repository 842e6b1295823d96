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

// Destination table names. All output lands in the etl schema and is bulk
// loaded from there into the warehouse proper.
const (
	TableBasics        = "etl.eodhd_basics"
	TableESGScores     = "etl.eodhd_esg_scores"
	TableESGActivities = "etl.eodhd_esg_scores_activities"
	TableHighlights    = "etl.eodhd_highlights"
	TableValuation     = "etl.eodhd_valuation"
	TableSharesStats   = "etl.eodhd_shares_stats"
	TableDividends     = "etl.eodhd_dividends"
	TableBalance       = "etl.eodhd_balance"
	TableFundamentals  = "etl.eodhd_fundamentals"
	TableSummary       = "etl.eodhd_summary"
	TableHistory       = "etl.eodhd_history"
)

const (
	// EntityColumn carries the harvest key on every row of every table.
	EntityColumn = "bbg_comp_ticker"

	// TimestampColumn records when the row was generated.
	TimestampColumn = "timestamp_created_utc"
)

// Field maps a gjson path to an output column. Path is relative to the
// schema's section, or to the payload root for root schemas.
type Field struct {
	Path   string
	Column string
	Date   bool
}

// Kind selects the row-generation rule for a schema.
type Kind int

const (
	// KindSection emits one row per entity from a single named section.
	KindSection Kind = iota

	// KindRoot emits one row per entity from dotted paths off the payload
	// root.
	KindRoot

	// KindActivities emits one row per entity from the ESG
	// ActivitiesInvolvement map; Fields lists the recognized activities.
	KindActivities

	// KindBalanceQuarterly emits up to two rows per entity from the
	// quarterly balance sheet map, copying every field verbatim.
	KindBalanceQuarterly
)

type Schema struct {
	Table   string
	Kind    Kind
	Section string
	Fields  []Field
}

// Schemas drives the schema-table flattening strategy. The set of tables and
// their field lists are fixed; they mirror the etl.* destination tables.
var Schemas = []Schema{
	{
		Table: TableBasics,
		Kind:  KindRoot,
		Fields: []Field{
			{Path: "General.FullTimeEmployees", Column: "FullTimeEmployees"},
			{Path: "General.UpdatedAt", Column: "UpdatedAt", Date: true},
			{Path: "General.AddressData.ZIP", Column: "ZIP"},
			{Path: "General.AddressData.Country", Column: "Country"},
			{Path: "General.AddressData.City", Column: "City"},
			{Path: "General.Sector", Column: "Sector"},
			{Path: "General.Industry", Column: "Industry"},
			{Path: "General.GicSector", Column: "GicSector"},
			{Path: "General.GicIndustry", Column: "GicIndustry"},
		},
	},
	{
		Table:   TableESGScores,
		Kind:    KindSection,
		Section: "ESGScores",
		Fields: []Field{
			{Path: "RatingDate", Column: "RatingDate", Date: true},
			{Path: "TotalEsg", Column: "TotalEsg"},
			{Path: "TotalEsgPercentile", Column: "TotalEsgPercentile"},
			{Path: "EnvironmentScore", Column: "EnvironmentScore"},
			{Path: "EnvironmentScorePercentile", Column: "EnvironmentScorePercentile"},
			{Path: "GovernanceScore", Column: "GovernanceScore"},
			{Path: "GovernanceScorePercentile", Column: "GovernanceScorePercentile"},
			{Path: "ControversyLevel", Column: "ControversyLevel"},
			{Path: "SocialScore", Column: "SocialScore"},
			{Path: "SocialScorePercentile", Column: "SocialScorePercentile"},
		},
	},
	{
		Table:   TableESGActivities,
		Kind:    KindActivities,
		Section: "ESGScores",
		Fields: []Field{
			{Column: "adult"},
			{Column: "alcoholic"},
			{Column: "animalTesting"},
			{Column: "catholic"},
			{Column: "controversialWeapons"},
			{Column: "smallArms"},
			{Column: "furLeather"},
			{Column: "gambling"},
			{Column: "gmo"},
			{Column: "militaryContract"},
			{Column: "nuclear"},
			{Column: "pesticides"},
			{Column: "palmOil"},
			{Column: "coal"},
			{Column: "tobacco"},
		},
	},
	{
		Table:   TableHighlights,
		Kind:    KindSection,
		Section: "Highlights",
		Fields: []Field{
			{Path: "EBITDA", Column: "EBITDA"},
			{Path: "PERatio", Column: "PERatio"},
			{Path: "PEGRatio", Column: "PEGRatio"},
			{Path: "WallStreetTargetPrice", Column: "WallStreetTargetPrice"},
			{Path: "BookValue", Column: "BookValue"},
			{Path: "DividendShare", Column: "DividendShare"},
			{Path: "DividendYield", Column: "DividendYield"},
			{Path: "EarningsShare", Column: "EarningsShare"},
			{Path: "EPSEstimateCurrentYear", Column: "EPSEstimateCurrentYear"},
			{Path: "EPSEstimateNextYear", Column: "EPSEstimateNextYear"},
			{Path: "EPSEstimateNextQuarter", Column: "EPSEstimateNextQuarter"},
			{Path: "EPSEstimateCurrentQuarter", Column: "EPSEstimateCurrentQuarter"},
			{Path: "MostRecentQuarter", Column: "MostRecentQuarter", Date: true},
			{Path: "ProfitMargin", Column: "ProfitMargin"},
			{Path: "OperatingMarginTTM", Column: "OperatingMarginTTM"},
			{Path: "ReturnOnAssetsTTM", Column: "ReturnOnAssetsTTM"},
			{Path: "ReturnOnEquityTTM", Column: "ReturnOnEquityTTM"},
			{Path: "RevenueTTM", Column: "RevenueTTM"},
			{Path: "RevenuePerShareTTM", Column: "RevenuePerShareTTM"},
			{Path: "QuarterlyRevenueGrowthYOY", Column: "QuarterlyRevenueGrowthYOY"},
			{Path: "GrossProfitTTM", Column: "GrossProfitTTM"},
			{Path: "DilutedEpsTTM", Column: "DilutedEpsTTM"},
			{Path: "QuarterlyEarningsGrowthYOY", Column: "QuarterlyEarningsGrowthYOY"},
		},
	},
	{
		Table:   TableValuation,
		Kind:    KindSection,
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
		Table:   TableSharesStats,
		Kind:    KindSection,
		Section: "SharesStats",
		Fields: []Field{
			{Path: "SharesOutstanding", Column: "SharesOutstanding"},
			{Path: "SharesFloat", Column: "SharesFloat"},
			{Path: "SharesShortPriorMonth", Column: "SharesShortPriorMonth"},
			{Path: "ShortRatio", Column: "ShortRatio"},
			{Path: "ShortPercentOutstanding", Column: "ShortPercentOutstanding"},
			{Path: "ShortPercentFloat", Column: "ShortPercentFloat"},
		},
	},
	{
		Table: TableDividends,
		Kind:  KindRoot,
		Fields: []Field{
			{Path: "SplitsDividends.ForwardAnnualDividendRate", Column: "ForwardAnnualDividendRate"},
			{Path: "SplitsDividends.ForwardAnnualDividendYield", Column: "ForwardAnnualDividendYield"},
			{Path: "SplitsDividends.PayoutRatio", Column: "PayoutRatio"},
		},
	},
	{
		Table: TableBalance,
		Kind:  KindBalanceQuarterly,
	},
}

// CombineRules describes the post-processing merge step: the combined table is
// seeded from the first base table and left-merged with the rest, keyed by
// entity. The constituent tables are dropped from the output.
var CombineRules = map[string][]string{
	TableFundamentals: {TableDividends, TableValuation, TableHighlights},
}
