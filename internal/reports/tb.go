package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nhfoods/ledgerdesk/internal/ledger"
)

// AccountBalance is the signed balance of one account on its normal side.
type AccountBalance struct {
	Code        string             `json:"code"`
	Name        string             `json:"name"`
	Kind        ledger.Kind        `json:"kind"`
	AccountType ledger.AccountType `json:"accountType"`
	DebitNormal bool               `json:"debitNormal"`
	Balance     decimal.Decimal    `json:"balance"`
}

// BalanceOf snapshots the current balance of acc.
func BalanceOf(acc ledger.Account) AccountBalance {
	base := acc.Base()
	code := base.ID
	if code == "" {
		code = base.InternalID
	}
	return AccountBalance{
		Code:        code,
		Name:        base.Name,
		Kind:        acc.Kind(),
		AccountType: base.AccountType,
		DebitNormal: ledger.DebitNormal(acc),
		Balance:     base.CurrentBalance,
	}
}

// Sides splits the balance into its debit and credit columns. A positive balance sits on
// the normal side, a negative one on the opposite side.
func (a AccountBalance) Sides() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	switch {
	case a.Balance.IsZero():
	case a.DebitNormal == a.Balance.IsPositive():
		debit = a.Balance.Abs()
	default:
		credit = a.Balance.Abs()
	}
	return debit, credit
}

// TrialBalanceRow is one account line of the trial balance.
type TrialBalanceRow struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Group  string          `json:"group"`
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// TrialBalance lists every account with a non-zero balance in debit and credit columns.
type TrialBalance struct {
	AsOf        time.Time         `json:"asOf"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"totalDebit"`
	TotalCredit decimal.Decimal   `json:"totalCredit"`
	Difference  decimal.Decimal   `json:"difference"`
	IsBalanced  bool              `json:"isBalanced"`
}

var groupOrder = map[string]int{"Assets": 0, "Liabilities": 1, "Equity": 2, "Income": 3, "Expenses": 4, "Other": 5}

// BuildTrialBalance converts account balances into trial balance rows grouped by account
// class and ordered by code within each group.
func BuildTrialBalance(asOf time.Time, accounts []AccountBalance) TrialBalance {
	tb := TrialBalance{AsOf: asOf, Rows: []TrialBalanceRow{}, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, acc := range accounts {
		debit, credit := acc.Sides()
		if debit.IsZero() && credit.IsZero() {
			continue
		}
		tb.Rows = append(tb.Rows, TrialBalanceRow{
			Code:   acc.Code,
			Name:   acc.Name,
			Group:  groupLabel(acc),
			Debit:  debit,
			Credit: credit,
		})
		tb.TotalDebit = tb.TotalDebit.Add(debit)
		tb.TotalCredit = tb.TotalCredit.Add(credit)
	}
	sort.SliceStable(tb.Rows, func(i, j int) bool {
		gi, gj := groupOrder[tb.Rows[i].Group], groupOrder[tb.Rows[j].Group]
		if gi != gj {
			return gi < gj
		}
		return tb.Rows[i].Code < tb.Rows[j].Code
	})
	tb.Difference = tb.TotalDebit.Sub(tb.TotalCredit)
	tb.IsBalanced = Balanced(tb.Difference)
	return tb
}

// Sections exposes the trial balance as a tree of debit-signed lines, one child per group.
func (tb TrialBalance) Sections() []Section {
	var out []Section
	index := map[string]int{}
	for _, row := range tb.Rows {
		i, ok := index[row.Group]
		if !ok {
			i = len(out)
			index[row.Group] = i
			out = append(out, Section{Key: strings.ToLower(row.Group), Label: row.Group})
		}
		out[i].Lines = append(out[i].Lines, Line{Code: row.Code, Name: row.Name, Amount: row.Debit.Sub(row.Credit)})
	}
	for i := range out {
		out[i].Total = out[i].Sum()
	}
	return out
}

func groupLabel(acc AccountBalance) string {
	switch acc.AccountType {
	case ledger.TypeAsset:
		return "Assets"
	case ledger.TypeLiability:
		return "Liabilities"
	case ledger.TypeEquity:
		return "Equity"
	case ledger.TypeIncome:
		return "Income"
	case ledger.TypeExpense:
		return "Expenses"
	}
	switch acc.Kind {
	case ledger.KindCustomer:
		return "Assets"
	case ledger.KindVendor:
		return "Liabilities"
	case ledger.KindExpense:
		return "Expenses"
	}
	return "Other"
}
