package reports

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nhfoods/ledgerdesk/internal/ledger"
	_ "github.com/nhfoods/ledgerdesk/testing"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.True(t, d(want).Equal(got), append([]any{"want %s got %s", want, got.String()}, msgAndArgs...)...)
}

func TestBuildTrialBalance(t *testing.T) {
	accounts := []ledger.Account{
		ledger.Transactor{AccountBase: ledger.AccountBase{ID: "1010", Name: "Main Bank", AccountType: ledger.TypeAsset, CurrentBalance: d("5000")}},
		ledger.Transactor{AccountBase: ledger.AccountBase{ID: "1020", Name: "Overdraft", AccountType: ledger.TypeAsset, CurrentBalance: d("-500")}},
		ledger.Transactor{AccountBase: ledger.AccountBase{ID: "3000", Name: "Capital", AccountType: ledger.TypeEquity, CurrentBalance: d("3200")}},
		ledger.Vendor{AccountBase: ledger.AccountBase{ID: "V-01", Name: "Gulf Traders", CurrentBalance: d("3000")}},
		ledger.Customer{AccountBase: ledger.AccountBase{ID: "C-01", Name: "Al Noor", CurrentBalance: d("1200")}},
		ledger.Expense{AccountBase: ledger.AccountBase{ID: "5100", Name: "Rent", AccountType: ledger.TypeExpense, CurrentBalance: d("500")}},
		ledger.Transactor{AccountBase: ledger.AccountBase{ID: "1030", Name: "Petty Cash", AccountType: ledger.TypeAsset, CurrentBalance: decimal.Zero}},
	}
	balances := make([]AccountBalance, len(accounts))
	for i, acc := range accounts {
		balances[i] = BalanceOf(acc)
	}

	tb := BuildTrialBalance(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), balances)
	require.Len(t, tb.Rows, 6, "zero balances are left out")
	requireDec(t, "6700", tb.TotalDebit)
	requireDec(t, "6700", tb.TotalCredit)
	require.True(t, tb.TotalDebit.Sub(tb.TotalCredit).Equal(tb.Difference))
	require.True(t, tb.IsBalanced)

	codes := make([]string, len(tb.Rows))
	for i, r := range tb.Rows {
		codes[i] = r.Code
	}
	require.Equal(t, []string{"1010", "1020", "C-01", "V-01", "3000", "5100"}, codes)
	requireDec(t, "500", tb.Rows[1].Credit, "negative asset goes to credit")
	requireDec(t, "3000", tb.Rows[3].Credit, "vendor is credit-normal")
}

func TestTrialBalanceDifference(t *testing.T) {
	tb := BuildTrialBalance(time.Now(), []AccountBalance{
		{Code: "1", DebitNormal: true, Balance: d("100.004")},
		{Code: "2", DebitNormal: false, Balance: d("100")},
	})
	require.True(t, tb.IsBalanced, "difference below a cent is balanced")

	tb = BuildTrialBalance(time.Now(), []AccountBalance{
		{Code: "1", DebitNormal: true, Balance: d("100")},
		{Code: "2", DebitNormal: false, Balance: d("90")},
	})
	require.False(t, tb.IsBalanced)
	requireDec(t, "10", tb.Difference)
	require.Equal(t, Balanced(tb.Difference), tb.IsBalanced)
}

func TestBuildProfitLoss(t *testing.T) {
	pl := BuildProfitLoss(ProfitLossInput{
		Sales:          []Line{{Name: "Product sales", Amount: d("10000")}},
		OtherIncome:    []Line{{Name: "Scrap", Amount: d("500")}},
		InterestIncome: []Line{{Name: "Deposit interest", Amount: d("100")}},
		CostOfSales:    []Line{{Name: "Purchases", Amount: d("6000")}},
		Administrative: []Line{{Name: "Salaries", Amount: d("2000")}},
		Selling:        []Line{{Name: "Delivery", Amount: d("300")}},
		General:        []Line{{Name: "Utilities", Amount: d("200")}},
		Financial:      []Line{{Name: "Bank charges", Amount: d("50")}},
		OtherExpenses:  []Line{{Name: "Misc", Amount: d("50")}},
	})
	requireDec(t, "10600", pl.Revenue.Total)
	requireDec(t, "4600", pl.GrossProfit)
	requireDec(t, "2600", pl.Expenses.Total)
	requireDec(t, "2000", pl.NetProfit)
	requireDec(t, "18.87", pl.ProfitMargin)
	require.True(t, pl.IsProfit())
}

func TestBuildProfitLossWithoutRevenue(t *testing.T) {
	pl := BuildProfitLoss(ProfitLossInput{Administrative: []Line{{Name: "Rent", Amount: d("100")}}})
	requireDec(t, "-100", pl.NetProfit)
	require.True(t, pl.ProfitMargin.IsZero())
	require.False(t, pl.IsProfit())
}

func TestBuildBalanceSheet(t *testing.T) {
	bs := BuildBalanceSheet(BalanceSheetInput{
		FixedAssets:      []Line{{Name: "Vehicles", Amount: d("40000")}},
		Inventory:        []Line{{Name: "Stock", Amount: d("15000")}},
		Receivables:      []Line{{Name: "Customers", Amount: d("8000")}},
		Cash:             []Line{{Name: "Bank", Amount: d("7000")}},
		LongTermLoans:    []Line{{Name: "Vehicle loan", Amount: d("20000")}},
		Payables:         []Line{{Name: "Vendors", Amount: d("10000")}},
		Capital:          []Line{{Name: "Share capital", Amount: d("30000")}},
		RetainedEarnings: []Line{{Name: "Prior years", Amount: d("6000")}},
		CurrentPeriodPL:  []Line{{Name: "Current year", Amount: d("4000")}},
	})
	requireDec(t, "70000", bs.Summary.TotalAssets)
	requireDec(t, "30000", bs.Summary.TotalLiabilities)
	requireDec(t, "40000", bs.Summary.TotalEquity)
	require.True(t, bs.Summary.IsBalanced)
	require.True(t, bs.Summary.Difference.IsZero())

	current, ok := bs.Assets.Child("current")
	require.True(t, ok)
	requireDec(t, "30000", current.Total)
}

func TestBalanceSheetDifferenceIsNotCorrected(t *testing.T) {
	bs := BuildBalanceSheet(BalanceSheetInput{
		Cash:     []Line{{Name: "Bank", Amount: d("1000")}},
		Payables: []Line{{Name: "Vendors", Amount: d("400")}},
		Capital:  []Line{{Name: "Capital", Amount: d("500")}},
	})
	require.False(t, bs.Summary.IsBalanced)
	requireDec(t, "100", bs.Summary.Difference)
	require.True(t, bs.Summary.TotalAssets.Sub(bs.Summary.TotalLiabilities.Add(bs.Summary.TotalEquity)).Equal(bs.Summary.Difference))
	requireDec(t, "1000", bs.Assets.Total)
}

func TestBuildVATReportPayable(t *testing.T) {
	vat := BuildVATReport("", []VATLine{
		{InvoiceNo: "INV-1", TaxableAmount: d("80000"), VATAmount: d("4000")},
		{InvoiceNo: "INV-2", TaxableAmount: d("24000"), VATAmount: d("1200")},
	}, []VATLine{
		{InvoiceNo: "SR-1", TaxableAmount: d("4000"), VATAmount: d("200")},
	}, []VATLine{
		{InvoiceNo: "PO-1", TaxableAmount: d("64000"), VATAmount: d("3200")},
	}, []VATLine{
		{InvoiceNo: "PR-1", TaxableAmount: d("4000"), VATAmount: d("200")},
	})
	require.Equal(t, VATDraft, vat.Status)
	requireDec(t, "5000", vat.Summary.TotalOutputVAT)
	requireDec(t, "3000", vat.Summary.TotalInputVAT)
	requireDec(t, "2000", vat.Summary.NetVATPayable)
	require.False(t, vat.Summary.Refundable())
	require.Equal(t, "Payable", vat.Summary.Position())
}

func TestBuildVATReportRefundable(t *testing.T) {
	vat := BuildVATReport(VATFinalized, []VATLine{{VATAmount: d("100")}}, nil, []VATLine{{VATAmount: d("250")}}, nil)
	requireDec(t, "-150", vat.Summary.NetVATPayable)
	require.True(t, vat.Summary.Refundable())
	require.NotNil(t, vat.SalesReturns.Lines)
}

func TestVATStatusMachine(t *testing.T) {
	next, err := VATDraft.Transition(VATFinalize)
	require.NoError(t, err)
	require.Equal(t, VATFinalized, next)

	next, err = next.Transition(VATSubmit)
	require.NoError(t, err)
	require.Equal(t, VATSubmitted, next)

	for _, tc := range []struct {
		from   VATStatus
		action VATAction
	}{
		{VATDraft, VATSubmit},
		{VATFinalized, VATFinalize},
		{VATSubmitted, VATFinalize},
		{VATSubmitted, VATSubmit},
	} {
		_, err := tc.from.Transition(tc.action)
		require.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", tc.from, tc.action)
	}

	require.True(t, VATDraft.CanDelete())
	require.False(t, VATFinalized.CanDelete())
	require.False(t, VATSubmitted.CanDelete())

	st, err := ParseVATStatus(" finalized ")
	require.NoError(t, err)
	require.Equal(t, VATFinalized, st)
	_, err = ParseVATStatus("ARCHIVED")
	require.Error(t, err)
}

func TestBuildStatement(t *testing.T) {
	jan := func(day int) time.Time { return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC) }
	st := BuildStatement(StatementParty{ID: "c1", Name: "Al Noor"}, jan(1), jan(31), d("500"), []StatementEntry{
		{Date: jan(20), Reference: "RCPT-1", Credit: d("700")},
		{Date: jan(5), Reference: "INV-1", Debit: d("1000")},
		{Reference: "undated", Debit: d("99")},
		{Date: jan(25), Reference: "INV-2", Debit: d("250")},
	}, []ExcessPayment{
		{Reference: "RCPT-9", Amount: d("300"), Allocated: d("100"), Unallocated: d("200"), IsPartial: true},
		{Reference: "ADV-1", Amount: d("150"), Unallocated: d("150")},
	})

	require.Equal(t, 1, st.Skipped)
	require.Len(t, st.Entries, 3)
	require.Equal(t, "INV-1", st.Entries[0].Reference)
	got := []string{}
	for _, e := range st.Entries {
		got = append(got, e.Balance.StringFixed(2))
	}
	require.Equal(t, []string{"1500.00", "800.00", "1050.00"}, got)
	requireDec(t, "1050", st.Closing)
	require.True(t, st.Opening.Add(st.TotalDebit).Sub(st.TotalCredit).Equal(st.Closing))
	requireDec(t, "350", st.TotalExcess)
	requireDec(t, "200", st.TotalPartial)
	requireDec(t, "150", st.TotalAdvance)
}

func TestBuildStatementWithoutEntries(t *testing.T) {
	st := BuildStatement(StatementParty{}, time.Time{}, time.Time{}, d("75"), nil, nil)
	require.Empty(t, st.Entries)
	requireDec(t, "75", st.Closing)
}

func TestPeriodRequestValidate(t *testing.T) {
	req := PeriodRequest{PeriodType: "Monthly", Year: 2024, Month: 1, Quarter: 3}
	require.NoError(t, req.Validate())
	require.Equal(t, PeriodMonthly, req.PeriodType)
	require.Zero(t, req.Quarter)
	require.Equal(t, "January 2024", req.Label())

	p := req.Period(time.UTC)
	require.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), p.To)
	require.Equal(t, 1, p.Month)

	q := PeriodRequest{PeriodType: PeriodQuarterly, Year: 2024, Quarter: 2}
	require.NoError(t, q.Validate())
	require.Equal(t, "Q2 2024", q.Label())
	qp := q.Period(time.UTC)
	require.Equal(t, time.April, qp.From.Month())
	require.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), qp.To)

	y := PeriodRequest{PeriodType: PeriodYearly, Year: 2023, Month: 4}
	require.NoError(t, y.Validate())
	require.Equal(t, "2023", y.Label())
	require.Zero(t, y.Month)

	for _, bad := range []PeriodRequest{
		{PeriodType: PeriodMonthly, Year: 2024},
		{PeriodType: PeriodMonthly, Year: 2024, Month: 13},
		{PeriodType: PeriodQuarterly, Year: 2024, Quarter: 5},
		{PeriodType: PeriodQuarterly, Year: 2024},
		{PeriodType: "weekly", Year: 2024},
		{PeriodType: PeriodYearly},
	} {
		require.ErrorIs(t, bad.Validate(), ErrInvalidPeriod, "%+v", bad)
	}
}

func TestParseType(t *testing.T) {
	for raw, want := range map[string]Type{
		"balance_sheet":        TypeBalanceSheet,
		"Profit-Loss":          TypeProfitLoss,
		"vat":                  TypeVAT,
		"soa":                  TypeStatement,
		"trial-balance":        TypeTrialBalance,
		"statement-of-account": TypeStatement,
	} {
		got, err := ParseType(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got)
	}
	_, err := ParseType("cash-flow")
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestDecodeProfitLossRecomputesTotals(t *testing.T) {
	raw := json.RawMessage(`{
		"revenue": {
			"sales": {"items": [{"accountName": "Sales", "amount": "1000"}], "total": 1000},
			"otherIncome": {"items": [], "total": 0},
			"interestIncome": {"items": [{"name": "Interest", "balance": 50}]},
			"totalRevenue": 1050
		},
		"costOfGoodsSold": {"items": [{"name": "COGS", "amount": 400}], "total": 400},
		"grossProfit": 650,
		"expenses": {
			"administrative": {"items": [{"name": "Rent", "amount": 150}], "total": 100},
			"totalExpenses": 150
		},
		"netProfit": 500
	}`)
	pl, warn, err := DecodeProfitLoss(raw)
	require.NoError(t, err)
	requireDec(t, "500", pl.NetProfit)
	requireDec(t, "50", pl.Revenue.Children[2].Total)
	require.Len(t, warn, 1)
	require.Contains(t, warn[0], "Administrative Expenses")
}

func TestDecodeBalanceSheetFlagsSummaryMismatch(t *testing.T) {
	raw := json.RawMessage(`{
		"assets": {"current": {"cash": {"items": [{"name": "Bank", "amount": 900}]}}, "totalAssets": 900},
		"liabilities": {"current": {"payables": {"items": [{"name": "Vendors", "amount": 400}]}}, "totalLiabilities": 400},
		"equity": {"capital": {"items": [{"name": "Capital", "amount": 500}]}, "totalEquity": 500},
		"summary": {"isBalanced": false, "difference": 12}
	}`)
	bs, warn, err := DecodeBalanceSheet(raw)
	require.NoError(t, err)
	require.True(t, bs.Summary.IsBalanced)
	require.Len(t, warn, 2)
}

func TestDecodeVATReportSummaryOnly(t *testing.T) {
	raw := json.RawMessage(`{"status": "draft", "summary": {"totalOutputVAT": 5000, "totalInputVAT": 3000, "netVATPayable": 2000}}`)
	vat, warn, err := DecodeVATReport(raw)
	require.NoError(t, err)
	require.Empty(t, warn)
	require.Equal(t, VATDraft, vat.Status)
	requireDec(t, "2000", vat.Summary.NetVATPayable)
}

func TestDecodeDocumentSavedEnvelope(t *testing.T) {
	raw := json.RawMessage(`{
		"_id": "rep-1",
		"reportType": "vat",
		"period": {"label": "Q1 2024", "startDate": "2024-01-01", "endDate": "2024-03-31"},
		"generatedDate": "2024-04-02T08:00:00Z",
		"data": {
			"status": "FINALIZED",
			"sales": {"items": [{"invoiceDate": "2024-02-01", "invNo": "INV-7", "customerName": "Al Noor", "amount": 1000, "vatAmount": 50}]}
		}
	}`)
	doc, err := DecodeDocument("", raw)
	require.NoError(t, err)
	require.Equal(t, "rep-1", doc.ID)
	require.Equal(t, TypeVAT, doc.Type)
	require.Equal(t, "Q1 2024", doc.Period.Label)
	require.Equal(t, 2024, doc.Period.Year)
	require.Zero(t, doc.Period.Month)
	require.Equal(t, VATFinalized, doc.Status())
	require.Equal(t, "INV-7", doc.VAT.Sales.Lines[0].InvoiceNo)
	requireDec(t, "1050", doc.VAT.Sales.Lines[0].Total)
	require.Equal(t, doc.ID, doc.Summary().ID)
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	st := BuildStatement(StatementParty{ID: "c1"}, time.Time{}, time.Time{}, d("10"),
		[]StatementEntry{{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Reference: "INV-1", Debit: d("5")}},
		[]ExcessPayment{{Reference: "R1", Amount: d("20"), Allocated: d("5"), Unallocated: d("15"), IsPartial: true}})
	doc := Document{ID: "s1", Type: TypeStatement, Statement: &st}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var back Document
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Equal(t, "INV-1", back.Statement.Entries[0].Reference)
	requireDec(t, "15", back.Statement.Excess[0].Unallocated)
	require.True(t, back.Statement.Excess[0].IsPartial)
	requireDec(t, "15", back.Statement.Closing)
}
