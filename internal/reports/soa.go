package reports

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nhfoods/ledgerdesk/internal/format"
	"github.com/nhfoods/ledgerdesk/internal/ledger"
)

// StatementRequest asks the backend for one customer's statement.
type StatementRequest struct {
	CustomerID string    `json:"customerId" validate:"required"`
	From       time.Time `json:"-"`
	To         time.Time `json:"-"`
}

// MarshalJSON renders the optional bounds as calendar dates.
func (r StatementRequest) MarshalJSON() ([]byte, error) {
	body := struct {
		CustomerID string `json:"customerId"`
		FromDate   string `json:"fromDate,omitempty"`
		ToDate     string `json:"toDate,omitempty"`
	}{CustomerID: r.CustomerID}
	if !r.From.IsZero() {
		body.FromDate = format.ISODate(r.From)
	}
	if !r.To.IsZero() {
		body.ToDate = format.ISODate(r.To)
	}
	return json.Marshal(body)
}

// Validate checks the customer id and bound order.
func (r StatementRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: customer id is required", ErrInvalidPeriod)
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return fmt.Errorf("%w: statement end precedes start", ErrInvalidPeriod)
	}
	return nil
}

// Key identifies the request for deduplication.
func (r StatementRequest) Key() string {
	return strings.Join([]string{r.CustomerID, dateKey(r.From), dateKey(r.To)}, ":")
}

func dateKey(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return format.ISODate(t)
}

// StatementParty identifies the customer on a statement.
type StatementParty struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	TRN     string `json:"trn,omitempty"`
	Address string `json:"address,omitempty"`
}

// StatementEntry is one movement on a customer statement.
type StatementEntry struct {
	Date        time.Time       `json:"date"`
	Type        string          `json:"type"`
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// UnmarshalJSON accepts the statement row shapes the backend emits. Rows without a
// parseable date keep a zero Date.
func (e *StatementEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Date         string              `json:"date"`
		Type         string              `json:"type"`
		VoucherType  string              `json:"voucherType"`
		Reference    string              `json:"reference"`
		ReferenceNo  string              `json:"referenceNo"`
		InvNo        string              `json:"invNo"`
		VoucherNo    string              `json:"voucherNo"`
		Description  string              `json:"description"`
		Narration    string              `json:"narration"`
		Debit        decimal.NullDecimal `json:"debit"`
		DebitAmount  decimal.NullDecimal `json:"debitAmount"`
		Credit       decimal.NullDecimal `json:"credit"`
		CreditAmount decimal.NullDecimal `json:"creditAmount"`
		Balance      decimal.NullDecimal `json:"balance"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if ts, _, ok := ledger.ParseDate(raw.Date); ok {
		e.Date = ts
	}
	e.Type = firstNonEmpty(raw.Type, raw.VoucherType)
	e.Reference = firstNonEmpty(raw.Reference, raw.ReferenceNo, raw.InvNo, raw.VoucherNo)
	e.Description = firstNonEmpty(raw.Description, raw.Narration)
	e.Debit = firstDecimal(raw.Debit, raw.DebitAmount)
	e.Credit = firstDecimal(raw.Credit, raw.CreditAmount)
	e.Balance = firstDecimal(raw.Balance)
	return nil
}

// ExcessPayment is a receipt not fully allocated to invoices. Partial payments were
// allocated in part; advances were not allocated at all.
type ExcessPayment struct {
	Date        time.Time       `json:"date"`
	Reference   string          `json:"reference"`
	Amount      decimal.Decimal `json:"amount"`
	Allocated   decimal.Decimal `json:"allocatedAmount"`
	Unallocated decimal.Decimal `json:"unallocatedAmount"`
	IsPartial   bool            `json:"isPartial"`
}

// UnmarshalJSON accepts the backend payment shape. A missing unallocated figure is
// amount less allocated, and a missing isPartial flag is derived from the allocation.
func (p *ExcessPayment) UnmarshalJSON(data []byte) error {
	var raw struct {
		Date        string              `json:"date"`
		Reference   string              `json:"reference"`
		ReceiptNo   string              `json:"receiptNo"`
		VoucherNo   string              `json:"voucherNo"`
		Amount      decimal.NullDecimal `json:"amount"`
		Allocated   decimal.NullDecimal `json:"allocatedAmount"`
		Unallocated decimal.NullDecimal `json:"unallocatedAmount"`
		Excess      decimal.NullDecimal `json:"excessAmount"`
		IsPartial   *bool               `json:"isPartial"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if ts, _, ok := ledger.ParseDate(raw.Date); ok {
		p.Date = ts
	}
	p.Reference = firstNonEmpty(raw.Reference, raw.ReceiptNo, raw.VoucherNo)
	p.Amount = firstDecimal(raw.Amount)
	p.Allocated = firstDecimal(raw.Allocated)
	if raw.Unallocated.Valid || raw.Excess.Valid {
		p.Unallocated = firstDecimal(raw.Unallocated, raw.Excess)
	} else {
		p.Unallocated = p.Amount.Sub(p.Allocated)
	}
	if raw.IsPartial != nil {
		p.IsPartial = *raw.IsPartial
	} else {
		p.IsPartial = p.Allocated.IsPositive()
	}
	return nil
}

// Statement is a customer statement of account.
type Statement struct {
	Customer     StatementParty   `json:"customer"`
	From         time.Time        `json:"from"`
	To           time.Time        `json:"to"`
	Opening      decimal.Decimal  `json:"openingBalance"`
	Entries      []StatementEntry `json:"entries"`
	TotalDebit   decimal.Decimal  `json:"totalDebit"`
	TotalCredit  decimal.Decimal  `json:"totalCredit"`
	Closing      decimal.Decimal  `json:"closingBalance"`
	Excess       []ExcessPayment  `json:"excessPayments"`
	TotalExcess  decimal.Decimal  `json:"totalExcess"`
	TotalPartial decimal.Decimal  `json:"totalPartial"`
	TotalAdvance decimal.Decimal  `json:"totalAdvance"`
	Skipped      int              `json:"skipped,omitempty"`
}

// BuildStatement orders entries by date and folds them from the opening balance on the
// debit side. Entries without a date are dropped and counted in Skipped.
func BuildStatement(customer StatementParty, from, to time.Time, opening decimal.Decimal, entries []StatementEntry, excess []ExcessPayment) Statement {
	st := Statement{
		Customer:     customer,
		From:         from,
		To:           to,
		Opening:      opening,
		Entries:      make([]StatementEntry, 0, len(entries)),
		TotalDebit:   decimal.Zero,
		TotalCredit:  decimal.Zero,
		Excess:       append([]ExcessPayment{}, excess...),
		TotalExcess:  decimal.Zero,
		TotalPartial: decimal.Zero,
		TotalAdvance: decimal.Zero,
	}
	for _, e := range entries {
		if e.Date.IsZero() {
			st.Skipped++
			continue
		}
		st.Entries = append(st.Entries, e)
	}
	sort.SliceStable(st.Entries, func(i, j int) bool { return st.Entries[i].Date.Before(st.Entries[j].Date) })

	balance := opening
	for i := range st.Entries {
		e := &st.Entries[i]
		balance = balance.Add(e.Debit).Sub(e.Credit)
		e.Balance = balance
		st.TotalDebit = st.TotalDebit.Add(e.Debit)
		st.TotalCredit = st.TotalCredit.Add(e.Credit)
	}
	st.Closing = balance

	for _, p := range st.Excess {
		st.TotalExcess = st.TotalExcess.Add(p.Unallocated)
		if p.IsPartial {
			st.TotalPartial = st.TotalPartial.Add(p.Unallocated)
		} else {
			st.TotalAdvance = st.TotalAdvance.Add(p.Unallocated)
		}
	}
	return st
}

type statementWire struct {
	Customer struct {
		ID      string `json:"id"`
		MongoID string `json:"_id"`
		Name    string `json:"name"`
		TRN     string `json:"trn"`
		Address string `json:"address"`
	} `json:"customer"`
	FromDate       string              `json:"fromDate"`
	ToDate         string              `json:"toDate"`
	OpeningBalance decimal.NullDecimal `json:"openingBalance"`
	Transactions   []StatementEntry    `json:"transactions"`
	ClosingBalance decimal.NullDecimal `json:"closingBalance"`
	ExcessPayments []ExcessPayment     `json:"excessPayments"`
}

// DecodeStatement rebuilds a backend statement payload; the closing balance is
// recomputed and a disagreement becomes a warning.
func DecodeStatement(raw json.RawMessage) (Statement, []string, error) {
	var wire statementWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Statement{}, nil, fmt.Errorf("reports: decode statement: %w", err)
	}
	party := StatementParty{
		ID:      firstNonEmpty(wire.Customer.ID, wire.Customer.MongoID),
		Name:    wire.Customer.Name,
		TRN:     wire.Customer.TRN,
		Address: wire.Customer.Address,
	}
	from, _, _ := ledger.ParseDate(wire.FromDate)
	to, _, _ := ledger.ParseDate(wire.ToDate)
	st := BuildStatement(party, from, to, firstDecimal(wire.OpeningBalance), wire.Transactions, wire.ExcessPayments)
	var w warnings
	w.check("Closing balance", wire.ClosingBalance, st.Closing)
	if st.Skipped > 0 {
		w = append(w, fmt.Sprintf("%d statement row(s) without a valid date were left out", st.Skipped))
	}
	return st, w, nil
}
