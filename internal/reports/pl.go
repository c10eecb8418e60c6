package reports

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// ProfitLossInput holds the classified lines feeding a profit and loss statement.
type ProfitLossInput struct {
	Sales          []Line
	OtherIncome    []Line
	InterestIncome []Line
	CostOfSales    []Line
	Administrative []Line
	Selling        []Line
	General        []Line
	Financial      []Line
	OtherExpenses  []Line
}

// ProfitLoss is the structured profit and loss statement.
type ProfitLoss struct {
	Revenue      Section         `json:"revenue"`
	CostOfSales  Section         `json:"costOfSales"`
	GrossProfit  decimal.Decimal `json:"grossProfit"`
	Expenses     Section         `json:"expenses"`
	NetProfit    decimal.Decimal `json:"netProfit"`
	ProfitMargin decimal.Decimal `json:"profitMargin"`
}

var hundred = decimal.NewFromInt(100)

// BuildProfitLoss totals revenue, cost of sales and operating expenses. The margin is
// net profit over revenue in percent, rounded to two places, and zero without revenue.
func BuildProfitLoss(in ProfitLossInput) ProfitLoss {
	revenue := Group("revenue", "Revenue",
		NewSection("sales", "Sales Revenue", in.Sales),
		NewSection("other_income", "Other Income", in.OtherIncome),
		NewSection("interest_income", "Interest Income", in.InterestIncome),
	)
	cogs := NewSection("cost_of_sales", "Cost of Goods Sold", in.CostOfSales)
	expenses := Group("expenses", "Operating Expenses",
		NewSection("administrative", "Administrative Expenses", in.Administrative),
		NewSection("selling", "Selling & Distribution Expenses", in.Selling),
		NewSection("general", "General Operating Expenses", in.General),
		NewSection("financial", "Financial Expenses", in.Financial),
		NewSection("other", "Other Expenses", in.OtherExpenses),
	)
	return assembleProfitLoss(revenue, cogs, expenses)
}

func assembleProfitLoss(revenue, cogs, expenses Section) ProfitLoss {
	gross := revenue.Total.Sub(cogs.Total)
	net := gross.Sub(expenses.Total)
	margin := decimal.Zero
	if !revenue.Total.IsZero() {
		margin = net.Div(revenue.Total).Mul(hundred).Round(2)
	}
	return ProfitLoss{
		Revenue:      revenue,
		CostOfSales:  cogs,
		GrossProfit:  gross,
		Expenses:     expenses,
		NetProfit:    net,
		ProfitMargin: margin,
	}
}

// IsProfit reports whether the period closed with a profit.
func (p ProfitLoss) IsProfit() bool {
	return !p.NetProfit.IsNegative()
}

type profitLossWire struct {
	Revenue struct {
		Sales        group               `json:"sales"`
		OtherIncome  group               `json:"otherIncome"`
		Interest     group               `json:"interestIncome"`
		TotalRevenue decimal.NullDecimal `json:"totalRevenue"`
	} `json:"revenue"`
	CostOfGoodsSold group               `json:"costOfGoodsSold"`
	GrossProfit     decimal.NullDecimal `json:"grossProfit"`
	Expenses        struct {
		Administrative group               `json:"administrative"`
		Selling        group               `json:"selling"`
		General        group               `json:"general"`
		Financial      group               `json:"financial"`
		Other          group               `json:"other"`
		TotalExpenses  decimal.NullDecimal `json:"totalExpenses"`
	} `json:"expenses"`
	NetProfit decimal.NullDecimal `json:"netProfit"`
}

// DecodeProfitLoss rebuilds a backend profit and loss payload. Totals are recomputed from
// the items; every reported total that disagrees produces a warning.
func DecodeProfitLoss(raw json.RawMessage) (ProfitLoss, []string, error) {
	var wire profitLossWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return ProfitLoss{}, nil, fmt.Errorf("reports: decode profit and loss: %w", err)
	}
	var w warnings
	rv, ex := wire.Revenue, wire.Expenses
	revenue := Group("revenue", "Revenue",
		rv.Sales.section("sales", "Sales Revenue", &w),
		rv.OtherIncome.section("other_income", "Other Income", &w),
		rv.Interest.section("interest_income", "Interest Income", &w),
	)
	w.check("Total revenue", rv.TotalRevenue, revenue.Total)
	cogs := wire.CostOfGoodsSold.section("cost_of_sales", "Cost of Goods Sold", &w)
	expenses := Group("expenses", "Operating Expenses",
		ex.Administrative.section("administrative", "Administrative Expenses", &w),
		ex.Selling.section("selling", "Selling & Distribution Expenses", &w),
		ex.General.section("general", "General Operating Expenses", &w),
		ex.Financial.section("financial", "Financial Expenses", &w),
		ex.Other.section("other", "Other Expenses", &w),
	)
	w.check("Total operating expenses", ex.TotalExpenses, expenses.Total)

	pl := assembleProfitLoss(revenue, cogs, expenses)
	w.check("Gross profit", wire.GrossProfit, pl.GrossProfit)
	w.check("Net profit", wire.NetProfit, pl.NetProfit)
	return pl, w, nil
}
