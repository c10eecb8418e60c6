package ledger

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Entry is a raw ledger row as posted by the backend. Its shape varies per source; the
// JSON decoder folds the known aliases into one set of fields.
type Entry struct {
	Date         time.Time           `json:"-"`
	RawDate      string              `json:"date"`
	DateOnly     bool                `json:"-"`
	Type         string              `json:"type"`
	Amount       decimal.Decimal     `json:"amount"`
	Paid         decimal.NullDecimal `json:"paid"`
	DebitAmount  decimal.Decimal     `json:"debitAmount"`
	CreditAmount decimal.Decimal     `json:"creditAmount"`
	VoucherNo    string              `json:"voucherNo,omitempty"`
	ReferenceNo  string              `json:"referenceNo,omitempty"`
	PartyName    string              `json:"partyName,omitempty"`
	Status       string              `json:"status,omitempty"`
	Narration    string              `json:"narration,omitempty"`
	Balance      decimal.NullDecimal `json:"balance"`
}

type entryWire struct {
	Date           string              `json:"date"`
	TransactionDt  string              `json:"transactionDate"`
	Type           string              `json:"type"`
	VoucherType    string              `json:"voucherType"`
	Amount         decimal.NullDecimal `json:"amount"`
	Paid           decimal.NullDecimal `json:"paid"`
	DebitAmount    decimal.NullDecimal `json:"debitAmount"`
	CreditAmount   decimal.NullDecimal `json:"creditAmount"`
	Debit          decimal.NullDecimal `json:"debit"`
	Credit         decimal.NullDecimal `json:"credit"`
	VoucherNo      string              `json:"voucherNo"`
	InvNo          string              `json:"invNo"`
	ReferenceNo    string              `json:"referenceNo"`
	Ref            string              `json:"ref"`
	PartyName      string              `json:"partyName"`
	Status         string              `json:"status"`
	Narration      string              `json:"narration"`
	Description    string              `json:"description"`
	Balance        decimal.NullDecimal `json:"balance"`
	RunningBalance decimal.NullDecimal `json:"runningBalance"`
}

// UnmarshalJSON decodes an entry, accepting the field aliases used across sources.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var w entryWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Entry{
		RawDate:      firstNonEmpty(w.Date, w.TransactionDt),
		Type:         firstNonEmpty(w.Type, w.VoucherType),
		Amount:       w.Amount.Decimal,
		Paid:         w.Paid,
		DebitAmount:  firstValid(w.DebitAmount, w.Debit),
		CreditAmount: firstValid(w.CreditAmount, w.Credit),
		VoucherNo:    firstNonEmpty(w.VoucherNo, w.InvNo),
		ReferenceNo:  firstNonEmpty(w.ReferenceNo, w.Ref),
		PartyName:    w.PartyName,
		Status:       w.Status,
		Narration:    firstNonEmpty(w.Narration, w.Description),
		Balance:      w.Balance,
	}
	if !e.Balance.Valid {
		e.Balance = w.RunningBalance
	}
	e.Date, e.DateOnly, _ = ParseDate(e.RawDate)
	return nil
}

// Dated reports whether the entry carries a parseable date.
func (e Entry) Dated() bool {
	return !e.Date.IsZero()
}

// In returns the entry's moment in loc. Date-only values are placed at midnight of the
// same calendar day in loc rather than shifted from UTC.
func (e Entry) In(loc *time.Location) (time.Time, bool) {
	if !e.Dated() {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	if e.DateOnly {
		y, m, d := e.Date.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), true
	}
	return e.Date.In(loc), true
}

var (
	timestampLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.000",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	dateLayouts = []string{
		"2006-01-02",
		"02/01/2006",
		"02-01-2006",
	}
)

// ParseDate parses the date formats the backend emits. Date-only strings are returned at
// UTC midnight with dateOnly set. ok is false for empty or unparseable input.
func ParseDate(raw string) (t time.Time, dateOnly bool, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, false
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, false, true
		}
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true, true
		}
	}
	return time.Time{}, false, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func firstValid(values ...decimal.NullDecimal) decimal.Decimal {
	for _, v := range values {
		if v.Valid {
			return v.Decimal
		}
	}
	return decimal.Zero
}
