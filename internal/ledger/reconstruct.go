package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Voucher types that drive party ledgers.
const (
	VoucherPurchaseOrder   = "PURCHASE ORDER"
	VoucherPurchaseReturn  = "PURCHASE RETURN"
	VoucherPaymentReceived = "PAYMENT RECEIVED"
	VoucherSalesOrder      = "SALES ORDER"
	VoucherSalesReturn     = "SALES RETURN"
	VoucherPaymentMade     = "PAYMENT MADE"
)

// Transaction is an entry annotated with both sides and the cumulative balance.
type Transaction struct {
	Date           time.Time       `json:"date"`
	Type           string          `json:"type"`
	VoucherNo      string          `json:"voucherNo,omitempty"`
	ReferenceNo    string          `json:"referenceNo,omitempty"`
	PartyName      string          `json:"partyName,omitempty"`
	Status         string          `json:"status,omitempty"`
	Narration      string          `json:"narration,omitempty"`
	Debit          decimal.Decimal `json:"debitAmount"`
	Credit         decimal.Decimal `json:"creditAmount"`
	RunningBalance decimal.Decimal `json:"runningBalance"`
}

// Ledger is a reconstructed account view.
type Ledger struct {
	Account      Account         `json:"account"`
	Filter       DateFilter      `json:"filter"`
	DebitNormal  bool            `json:"debitNormal"`
	Opening      decimal.Decimal `json:"openingBalance"`
	Transactions []Transaction   `json:"transactions"`
	TotalDebit   decimal.Decimal `json:"totalDebit"`
	TotalCredit  decimal.Decimal `json:"totalCredit"`
	Closing      decimal.Decimal `json:"closingBalance"`
	Skipped      int             `json:"skipped"`
}

// Reconstruct folds entries into transactions with running balances using the rules of
// acc's variant. Transactor, vendor and customer entries are sorted by their moment in
// loc (stable) before folding and undated entries are left out; expense entries are taken
// as-is. loc must be the location the entries were filtered in.
func Reconstruct(acc Account, entries []Entry, loc *time.Location) ([]Transaction, error) {
	if acc == nil {
		return nil, ErrNilAccount
	}
	switch a := acc.(type) {
	case Transactor:
		return fold(a.OpeningBalance, entries, transactorLeg, true, loc), nil
	case *Transactor:
		return fold(a.OpeningBalance, entries, transactorLeg, true, loc), nil
	case Vendor:
		return fold(a.OpeningBalance, entries, vendorLeg, false, loc), nil
	case *Vendor:
		return fold(a.OpeningBalance, entries, vendorLeg, false, loc), nil
	case Customer:
		return fold(a.OpeningBalance, entries, customerLeg, true, loc), nil
	case *Customer:
		return fold(a.OpeningBalance, entries, customerLeg, true, loc), nil
	case Expense, *Expense:
		return passThrough(entries), nil
	}
	return nil, ErrUnknownKind
}

// BuildLedger reconstructs entries and derives the totals shown around the table.
func BuildLedger(acc Account, entries []Entry, filter DateFilter, loc *time.Location) (Ledger, error) {
	txs, err := Reconstruct(acc, entries, loc)
	if err != nil {
		return Ledger{}, err
	}
	base := acc.Base()
	l := Ledger{
		Account:      acc,
		Filter:       filter,
		DebitNormal:  DebitNormal(acc),
		Opening:      base.OpeningBalance,
		Transactions: txs,
		TotalDebit:   decimal.Zero,
		TotalCredit:  decimal.Zero,
		Closing:      base.OpeningBalance,
	}
	for _, tx := range txs {
		l.TotalDebit = l.TotalDebit.Add(tx.Debit)
		l.TotalCredit = l.TotalCredit.Add(tx.Credit)
	}
	if acc.Kind() == KindExpense {
		l.Closing = base.CurrentBalance
	} else if n := len(txs); n > 0 {
		l.Closing = txs[n-1].RunningBalance
	}
	if acc.Kind() != KindExpense {
		for _, e := range entries {
			if !e.Dated() {
				l.Skipped++
			}
		}
	}
	return l, nil
}

// legFunc maps an entry onto its debit and credit sides.
type legFunc func(Entry) (debit, credit decimal.Decimal)

type datedEntry struct {
	at    time.Time
	entry Entry
}

func fold(opening decimal.Decimal, entries []Entry, leg legFunc, debitNormal bool, loc *time.Location) []Transaction {
	dated := make([]datedEntry, 0, len(entries))
	for _, e := range entries {
		if at, ok := e.In(loc); ok {
			dated = append(dated, datedEntry{at: at, entry: e})
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].at.Before(dated[j].at)
	})

	out := make([]Transaction, 0, len(dated))
	balance := opening
	for _, d := range dated {
		e := d.entry
		debit, credit := leg(e)
		if debitNormal {
			balance = balance.Add(debit).Sub(credit)
		} else {
			balance = balance.Add(credit).Sub(debit)
		}
		tx := newTransaction(e)
		tx.Debit = debit
		tx.Credit = credit
		tx.RunningBalance = balance
		out = append(out, tx)
	}
	return out
}

func passThrough(entries []Entry) []Transaction {
	out := make([]Transaction, 0, len(entries))
	for _, e := range entries {
		tx := newTransaction(e)
		tx.Debit = e.DebitAmount
		tx.Credit = e.CreditAmount
		tx.RunningBalance = e.Balance.Decimal
		out = append(out, tx)
	}
	return out
}

func newTransaction(e Entry) Transaction {
	return Transaction{
		Date:        e.Date,
		Type:        e.Type,
		VoucherNo:   e.VoucherNo,
		ReferenceNo: e.ReferenceNo,
		PartyName:   e.PartyName,
		Status:      e.Status,
		Narration:   e.Narration,
	}
}

func transactorLeg(e Entry) (decimal.Decimal, decimal.Decimal) {
	return e.DebitAmount, e.CreditAmount
}

func vendorLeg(e Entry) (decimal.Decimal, decimal.Decimal) {
	switch voucherType(e.Type) {
	case VoucherPurchaseOrder:
		return decimal.Zero, e.Amount
	case VoucherPurchaseReturn:
		return e.Amount, decimal.Zero
	case VoucherPaymentReceived:
		return paidOrAmount(e), decimal.Zero
	}
	return e.DebitAmount, e.CreditAmount
}

func customerLeg(e Entry) (decimal.Decimal, decimal.Decimal) {
	switch voucherType(e.Type) {
	case VoucherSalesOrder:
		return e.Amount, decimal.Zero
	case VoucherSalesReturn:
		return decimal.Zero, e.Amount
	case VoucherPaymentMade:
		return decimal.Zero, paidOrAmount(e)
	}
	return e.DebitAmount, e.CreditAmount
}

func paidOrAmount(e Entry) decimal.Decimal {
	if e.Paid.Valid {
		return e.Paid.Decimal
	}
	return e.Amount
}

// voucherType upper-cases and collapses whitespace and underscores so that
// "Purchase_Order" and "purchase  order" match VoucherPurchaseOrder.
func voucherType(raw string) string {
	raw = strings.ReplaceAll(raw, "_", " ")
	return strings.ToUpper(strings.Join(strings.Fields(raw), " "))
}
