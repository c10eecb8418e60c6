package reports

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// BalanceSheetInput holds the classified lines feeding a balance sheet.
type BalanceSheetInput struct {
	FixedAssets      []Line
	IntangibleAssets []Line
	Investments      []Line
	Inventory        []Line
	Receivables      []Line
	Cash             []Line
	LongTermLoans    []Line
	OtherLongTerm    []Line
	Payables         []Line
	ShortTermLoans   []Line
	OtherCurrent     []Line
	Capital          []Line
	Reserves         []Line
	RetainedEarnings []Line
	CurrentPeriodPL  []Line
	OtherEquity      []Line
}

// BalanceSheetSummary carries the reconciliation check.
type BalanceSheetSummary struct {
	TotalAssets               decimal.Decimal `json:"totalAssets"`
	TotalLiabilities          decimal.Decimal `json:"totalLiabilities"`
	TotalEquity               decimal.Decimal `json:"totalEquity"`
	TotalLiabilitiesAndEquity decimal.Decimal `json:"totalLiabilitiesAndEquity"`
	Difference                decimal.Decimal `json:"difference"`
	IsBalanced                bool            `json:"isBalanced"`
}

// BalanceSheet is the structured statement of financial position.
type BalanceSheet struct {
	Assets      Section             `json:"assets"`
	Liabilities Section             `json:"liabilities"`
	Equity      Section             `json:"equity"`
	Summary     BalanceSheetSummary `json:"summary"`
}

// BuildBalanceSheet totals the three sides and reports, without correcting, any
// difference between assets and liabilities plus equity.
func BuildBalanceSheet(in BalanceSheetInput) BalanceSheet {
	assets := Group("assets", "Assets",
		Group("non_current", "Non-Current Assets",
			NewSection("fixed_assets", "Fixed Assets", in.FixedAssets),
			NewSection("intangible_assets", "Intangible Assets", in.IntangibleAssets),
			NewSection("investments", "Investments", in.Investments),
		),
		Group("current", "Current Assets",
			NewSection("inventory", "Inventory", in.Inventory),
			NewSection("receivables", "Accounts Receivable", in.Receivables),
			NewSection("cash", "Cash & Bank", in.Cash),
		),
	)
	liabilities := Group("liabilities", "Liabilities",
		Group("non_current", "Non-Current Liabilities",
			NewSection("long_term_loans", "Long-Term Loans", in.LongTermLoans),
			NewSection("other_long_term", "Other Non-Current Liabilities", in.OtherLongTerm),
		),
		Group("current", "Current Liabilities",
			NewSection("payables", "Accounts Payable", in.Payables),
			NewSection("short_term_loans", "Short-Term Loans", in.ShortTermLoans),
			NewSection("other_current", "Other Current Liabilities", in.OtherCurrent),
		),
	)
	equity := Group("equity", "Equity",
		NewSection("capital", "Share Capital", in.Capital),
		NewSection("reserves", "Reserves", in.Reserves),
		NewSection("retained_earnings", "Retained Earnings", in.RetainedEarnings),
		NewSection("current_period", "Current Period Profit/Loss", in.CurrentPeriodPL),
		NewSection("other_equity", "Other Equity", in.OtherEquity),
	)
	return assembleBalanceSheet(assets, liabilities, equity)
}

func assembleBalanceSheet(assets, liabilities, equity Section) BalanceSheet {
	le := liabilities.Total.Add(equity.Total)
	diff := assets.Total.Sub(le)
	return BalanceSheet{
		Assets:      assets,
		Liabilities: liabilities,
		Equity:      equity,
		Summary: BalanceSheetSummary{
			TotalAssets:               assets.Total,
			TotalLiabilities:          liabilities.Total,
			TotalEquity:               equity.Total,
			TotalLiabilitiesAndEquity: le,
			Difference:                diff,
			IsBalanced:                Balanced(diff),
		},
	}
}

type balanceSheetWire struct {
	Assets struct {
		NonCurrent struct {
			FixedAssets      group               `json:"fixedAssets"`
			IntangibleAssets group               `json:"intangibleAssets"`
			Investments      group               `json:"investments"`
			Total            decimal.NullDecimal `json:"total"`
		} `json:"nonCurrent"`
		Current struct {
			Inventory   group               `json:"inventory"`
			Receivables group               `json:"receivables"`
			Cash        group               `json:"cash"`
			Total       decimal.NullDecimal `json:"total"`
		} `json:"current"`
		TotalAssets decimal.NullDecimal `json:"totalAssets"`
	} `json:"assets"`
	Liabilities struct {
		NonCurrent struct {
			Loans group               `json:"loans"`
			Other group               `json:"other"`
			Total decimal.NullDecimal `json:"total"`
		} `json:"nonCurrent"`
		Current struct {
			Payables group               `json:"payables"`
			Loans    group               `json:"loans"`
			Other    group               `json:"other"`
			Total    decimal.NullDecimal `json:"total"`
		} `json:"current"`
		TotalLiabilities decimal.NullDecimal `json:"totalLiabilities"`
	} `json:"liabilities"`
	Equity struct {
		Capital          group               `json:"capital"`
		Reserves         group               `json:"reserves"`
		RetainedEarnings group               `json:"retainedEarnings"`
		CurrentPeriod    group               `json:"currentPeriodProfitLoss"`
		Other            group               `json:"other"`
		TotalEquity      decimal.NullDecimal `json:"totalEquity"`
	} `json:"equity"`
	Summary struct {
		IsBalanced *bool               `json:"isBalanced"`
		Difference decimal.NullDecimal `json:"difference"`
	} `json:"summary"`
}

// DecodeBalanceSheet rebuilds a backend balance sheet payload, recomputing every total
// and the reconciliation summary. Disagreements become warnings.
func DecodeBalanceSheet(raw json.RawMessage) (BalanceSheet, []string, error) {
	var wire balanceSheetWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return BalanceSheet{}, nil, fmt.Errorf("reports: decode balance sheet: %w", err)
	}
	var w warnings
	a, l, e := wire.Assets, wire.Liabilities, wire.Equity

	nonCurrentAssets := Group("non_current", "Non-Current Assets",
		a.NonCurrent.FixedAssets.section("fixed_assets", "Fixed Assets", &w),
		a.NonCurrent.IntangibleAssets.section("intangible_assets", "Intangible Assets", &w),
		a.NonCurrent.Investments.section("investments", "Investments", &w),
	)
	w.check(nonCurrentAssets.Label, a.NonCurrent.Total, nonCurrentAssets.Total)
	currentAssets := Group("current", "Current Assets",
		a.Current.Inventory.section("inventory", "Inventory", &w),
		a.Current.Receivables.section("receivables", "Accounts Receivable", &w),
		a.Current.Cash.section("cash", "Cash & Bank", &w),
	)
	w.check(currentAssets.Label, a.Current.Total, currentAssets.Total)
	assets := Group("assets", "Assets", nonCurrentAssets, currentAssets)
	w.check("Total assets", a.TotalAssets, assets.Total)

	nonCurrentLiab := Group("non_current", "Non-Current Liabilities",
		l.NonCurrent.Loans.section("long_term_loans", "Long-Term Loans", &w),
		l.NonCurrent.Other.section("other_long_term", "Other Non-Current Liabilities", &w),
	)
	w.check(nonCurrentLiab.Label, l.NonCurrent.Total, nonCurrentLiab.Total)
	currentLiab := Group("current", "Current Liabilities",
		l.Current.Payables.section("payables", "Accounts Payable", &w),
		l.Current.Loans.section("short_term_loans", "Short-Term Loans", &w),
		l.Current.Other.section("other_current", "Other Current Liabilities", &w),
	)
	w.check(currentLiab.Label, l.Current.Total, currentLiab.Total)
	liabilities := Group("liabilities", "Liabilities", nonCurrentLiab, currentLiab)
	w.check("Total liabilities", l.TotalLiabilities, liabilities.Total)

	equity := Group("equity", "Equity",
		e.Capital.section("capital", "Share Capital", &w),
		e.Reserves.section("reserves", "Reserves", &w),
		e.RetainedEarnings.section("retained_earnings", "Retained Earnings", &w),
		e.CurrentPeriod.section("current_period", "Current Period Profit/Loss", &w),
		e.Other.section("other_equity", "Other Equity", &w),
	)
	w.check("Total equity", e.TotalEquity, equity.Total)

	bs := assembleBalanceSheet(assets, liabilities, equity)
	w.check("Balance difference", wire.Summary.Difference, bs.Summary.Difference)
	if wire.Summary.IsBalanced != nil && *wire.Summary.IsBalanced != bs.Summary.IsBalanced {
		w = append(w, fmt.Sprintf("balance status reported as %t but recomputed as %t", *wire.Summary.IsBalanced, bs.Summary.IsBalanced))
	}
	return bs, w, nil
}
