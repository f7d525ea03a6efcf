package config

import (
	"reserve_monitor/pkg/core/extract"
)

// =============================================================================
// DEFAULT BUNDLE - Weekly H.4.1 release
// =============================================================================

// Section names of the default bundle.
const (
	SectionSupplying = "supplying"
	SectionAbsorbing = "absorbing"
	SectionTotals    = "totals"
	SectionCondition = "condition"
)

// DefaultTolerance is the integrity tolerance in millions of dollars.
const DefaultTolerance = 10

var (
	factorsKeywords = []string{
		"Factors Affecting Reserve Balances of Depository Institutions",
		"Factors Affecting Reserve Balances",
		"Reserve Bank credit, related items, and reserve balances",
	}
	factorsAnchors = []string{
		"Reserve Bank credit",
		"Securities held outright",
		"Currency in circulation",
		"Total factors supplying reserve funds",
		"Reserve balances with Federal Reserve Banks",
	}
	supplyingTotalLabels = []string{"Total factors supplying reserve funds"}
	absorbingTotalLabels = []string{
		"Total factors, other than reserve balances, absorbing reserve funds",
		"Total factors absorbing reserve funds other than reserve balances",
	}
)

// Default returns the built-in bundle for the weekly release. Candidate
// label sets are listed highest priority first.
func Default() extract.Config {
	return extract.Config{
		Header: extract.DefaultHeaderRules(),
		Sections: []extract.SectionSpec{
			supplyingSection(),
			absorbingSection(),
			totalsSection(),
			conditionSection(),
		},
		Integrity: extract.IntegritySpec{
			SupplyingSection: SectionSupplying,
			SupplyingTotal:   "TOTAL_SUPPLYING",
			AbsorbingSection: SectionAbsorbing,
			AbsorbingTotal:   "TOTAL_ABSORBING",
			Balance:          "RESERVE_BALANCES",
			Tolerance:        DefaultTolerance,
		},
	}
}

func supplyingSection() extract.SectionSpec {
	return extract.SectionSpec{
		Name:       SectionSupplying,
		Title:      "Factors supplying reserve funds",
		Keywords:   factorsKeywords,
		Anchors:    factorsAnchors,
		MinRows:    10,
		Strategy:   extract.StrategyClassify,
		Expected:   13,
		StopBefore: supplyingTotalLabels,
		Fields: []extract.FieldSpec{
			{Key: "RESERVE_BANK_CREDIT", Title: "Reserve Bank credit", Candidates: []string{"Reserve Bank credit"}, Summable: true},
			{Key: "SECURITIES_HELD_OUTRIGHT", Title: "Securities held outright", Candidates: []string{"Securities held outright"}},
			{Key: "TREASURY_SECURITIES", Title: "U.S. Treasury securities", Candidates: []string{"U.S. Treasury securities", "Treasury securities"}},
			{Key: "AGENCY_DEBT", Title: "Federal agency debt securities", Candidates: []string{"Federal agency debt securities", "Federal agency debt"}},
			{Key: "MORTGAGE_BACKED_SECURITIES", Title: "Mortgage-backed securities", Candidates: []string{"Mortgage-backed securities", "Mortgage backed securities"}},
			{
				Key: "UNAMORTIZED_PREMIUMS", Title: "Unamortized premiums on securities held outright",
				Candidates: []string{"Unamortized premiums on securities held outright"},
				Patterns:   []string{`^unamortized premiums`},
			},
			{
				Key: "UNAMORTIZED_DISCOUNTS", Title: "Unamortized discounts on securities held outright",
				Candidates: []string{"Unamortized discounts on securities held outright"},
				Patterns:   []string{`^unamortized discounts`},
			},
			// Pattern only: the keyword rule would also take reverse repos.
			{Key: "REPURCHASE_AGREEMENTS", Title: "Repurchase agreements", Patterns: []string{`^repurchase agreements`}},
			{Key: "LOANS", Title: "Loans", Patterns: []string{`^loans$`}},
			{Key: "CENTRAL_BANK_LIQUIDITY_SWAPS", Title: "Central bank liquidity swaps", Candidates: []string{"Central bank liquidity swaps"}},
			{Key: "OTHER_FED_ASSETS", Title: "Other Federal Reserve assets", Candidates: []string{"Other Federal Reserve assets"}},
			{Key: "GOLD_STOCK", Title: "Gold stock", Candidates: []string{"Gold stock"}, Summable: true},
			{Key: "TREASURY_CURRENCY", Title: "Treasury currency outstanding", Candidates: []string{"Treasury currency outstanding"}, Summable: true},
		},
		// Known sub-rows and unreported items, classified so they are
		// dropped quietly instead of logged as unmatched.
		Rules: []extract.RuleSpec{
			{Key: "BILLS", Pattern: `^bills`},
			{Key: "NOTES_AND_BONDS", Pattern: `^notes and bonds`},
			{Key: "INFLATION_INDEXED", Pattern: `^inflation`},
			{Key: "FOREIGN_OFFICIAL", Pattern: `^foreign official`},
			{Key: "OTHERS", Pattern: `^others?$`},
			{Key: "PRIMARY_CREDIT", Pattern: `^primary credit`},
			{Key: "SECONDARY_CREDIT", Pattern: `^secondary credit`},
			{Key: "SEASONAL_CREDIT", Pattern: `^seasonal credit`},
			{Key: "BANK_TERM_FUNDING", Pattern: `^bank term funding`},
			{Key: "PPP_LIQUIDITY", Pattern: `paycheck protection`},
			{Key: "OTHER_CREDIT", Pattern: `^other credit extensions`},
			{Key: "FACILITY_HOLDINGS", Pattern: `^net portfolio holdings`},
			{Key: "FLOAT", Pattern: `^float$`},
			{Key: "FOREIGN_CURRENCY_ASSETS", Pattern: `^foreign currency denominated`},
			{Key: "SDR_CERTIFICATES", Pattern: `^special drawing rights`},
		},
	}
}

func absorbingSection() extract.SectionSpec {
	return extract.SectionSpec{
		Name:       SectionAbsorbing,
		Title:      "Factors absorbing reserve funds",
		Keywords:   factorsKeywords,
		Anchors:    factorsAnchors,
		MinRows:    10,
		Strategy:   extract.StrategyClassify,
		Expected:   4,
		StartAfter: supplyingTotalLabels,
		StopBefore: absorbingTotalLabels,
		Fields: []extract.FieldSpec{
			{Key: "CURRENCY_IN_CIRCULATION", Title: "Currency in circulation", Candidates: []string{"Currency in circulation"}, Summable: true},
			{Key: "REVERSE_REPOS", Title: "Reverse repurchase agreements", Candidates: []string{"Reverse repurchase agreements"}, Summable: true},
			{
				Key: "TGA", Title: "U.S. Treasury, General Account",
				Candidates: []string{"U.S. Treasury, General Account", "U.S. Treasury General Account", "Treasury General Account"},
				Summable:   true,
			},
			{Key: "OTHER_LIABILITIES_CAPITAL", Title: "Other liabilities and capital", Candidates: []string{"Other liabilities and capital"}, Summable: true},
		},
		Rules: []extract.RuleSpec{
			{Key: "FOREIGN_OFFICIAL", Pattern: `^foreign official`},
			{Key: "OTHERS", Pattern: `^others?$`},
			{Key: "TREASURY_CASH", Pattern: `^treasury cash`},
			{Key: "DEPOSITS_OTHER", Pattern: `^deposits with`},
			{Key: "TERM_DEPOSITS", Pattern: `^term deposits`},
			{Key: "SUPPLEMENTARY_FINANCING", Pattern: `supplementary financing`},
		},
	}
}

func totalsSection() extract.SectionSpec {
	return extract.SectionSpec{
		Name:     SectionTotals,
		Title:    "Totals",
		Keywords: factorsKeywords,
		Anchors:  factorsAnchors,
		MinRows:  10,
		Strategy: extract.StrategyLookup,
		Expected: 3,
		Fields: []extract.FieldSpec{
			{Key: "TOTAL_SUPPLYING", Title: "Total factors supplying reserve funds", Candidates: supplyingTotalLabels},
			{Key: "TOTAL_ABSORBING", Title: "Total factors, other than reserve balances, absorbing reserve funds", Candidates: absorbingTotalLabels},
			// No "F.R. Banks" variant: its keywords also match the deposits row.
			{Key: "RESERVE_BALANCES", Title: "Reserve balances with Federal Reserve Banks", Candidates: []string{"Reserve balances with Federal Reserve Banks"}},
		},
	}
}

func conditionSection() extract.SectionSpec {
	return extract.SectionSpec{
		Name:  SectionCondition,
		Title: "Consolidated statement of condition",
		Keywords: []string{
			"Consolidated Statement of Condition of All Federal Reserve Banks",
			"Statement of Condition",
		},
		Anchors:  []string{"Total assets", "Total liabilities", "Total capital", "Gold certificate account", "Capital paid in"},
		Strategy: extract.StrategyLookup,
		Expected: 3,
		Fields: []extract.FieldSpec{
			{Key: "TOTAL_ASSETS", Title: "Total assets", Candidates: []string{"Total assets"}},
			{Key: "TOTAL_LIABILITIES", Title: "Total liabilities", Candidates: []string{"Total liabilities"}},
			{Key: "TOTAL_CAPITAL", Title: "Total capital", Candidates: []string{"Total capital"}},
		},
	}
}
