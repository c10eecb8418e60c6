package reports

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nhfoods/ledgerdesk/internal/ledger"
)

// VATStatus is the filing state of a VAT return.
type VATStatus string

const (
	VATDraft     VATStatus = "DRAFT"
	VATFinalized VATStatus = "FINALIZED"
	VATSubmitted VATStatus = "SUBMITTED"
)

// VATAction is a requested status change.
type VATAction string

const (
	VATFinalize VATAction = "finalize"
	VATSubmit   VATAction = "submit"
)

// ParseVATStatus normalises a backend status; an empty status is a draft.
func ParseVATStatus(raw string) (VATStatus, error) {
	s := VATStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case "":
		return VATDraft, nil
	case VATDraft, VATFinalized, VATSubmitted:
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, raw)
}

// Transition returns the status reached by applying action. Statuses only move forward:
// DRAFT to FINALIZED on finalize, FINALIZED to SUBMITTED on submit.
func (s VATStatus) Transition(action VATAction) (VATStatus, error) {
	switch {
	case s == VATDraft && action == VATFinalize:
		return VATFinalized, nil
	case s == VATFinalized && action == VATSubmit:
		return VATSubmitted, nil
	}
	return s, fmt.Errorf("%w: cannot %s a %s report", ErrInvalidTransition, action, strings.ToLower(string(s)))
}

// CanDelete reports whether a report in this status may be removed.
func (s VATStatus) CanDelete() bool {
	return s == VATDraft
}

// VATLine is one invoice or credit note on a VAT return.
type VATLine struct {
	Date          time.Time       `json:"date"`
	InvoiceNo     string          `json:"invoiceNo"`
	PartyName     string          `json:"partyName"`
	TRN           string          `json:"trn"`
	TaxableAmount decimal.Decimal `json:"taxableAmount"`
	VATAmount     decimal.Decimal `json:"vatAmount"`
	Total         decimal.Decimal `json:"total"`
}

// UnmarshalJSON accepts the invoice shapes the backend emits.
func (l *VATLine) UnmarshalJSON(data []byte) error {
	var raw struct {
		Date          string              `json:"date"`
		InvoiceDate   string              `json:"invoiceDate"`
		InvoiceNo     string              `json:"invoiceNo"`
		InvNo         string              `json:"invNo"`
		VoucherNo     string              `json:"voucherNo"`
		PartyName     string              `json:"partyName"`
		Customer      string              `json:"customerName"`
		Vendor        string              `json:"vendorName"`
		TRN           string              `json:"trn"`
		TaxableAmount decimal.NullDecimal `json:"taxableAmount"`
		Amount        decimal.NullDecimal `json:"amount"`
		VATAmount     decimal.NullDecimal `json:"vatAmount"`
		Total         decimal.NullDecimal `json:"total"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if ts, _, ok := ledger.ParseDate(firstNonEmpty(raw.Date, raw.InvoiceDate)); ok {
		l.Date = ts
	}
	l.InvoiceNo = firstNonEmpty(raw.InvoiceNo, raw.InvNo, raw.VoucherNo)
	l.PartyName = firstNonEmpty(raw.PartyName, raw.Customer, raw.Vendor)
	l.TRN = strings.TrimSpace(raw.TRN)
	l.TaxableAmount = firstDecimal(raw.TaxableAmount, raw.Amount)
	l.VATAmount = firstDecimal(raw.VATAmount)
	l.Total = l.TaxableAmount.Add(l.VATAmount)
	if raw.Total.Valid {
		l.Total = raw.Total.Decimal
	}
	return nil
}

// VATBook is one list of invoices with its totals.
type VATBook struct {
	Lines        []VATLine       `json:"items"`
	TotalTaxable decimal.Decimal `json:"totalTaxable"`
	TotalVAT     decimal.Decimal `json:"totalVAT"`
}

// NewVATBook totals lines.
func NewVATBook(lines []VATLine) VATBook {
	b := VATBook{Lines: lines, TotalTaxable: decimal.Zero, TotalVAT: decimal.Zero}
	if b.Lines == nil {
		b.Lines = []VATLine{}
	}
	for _, l := range lines {
		b.TotalTaxable = b.TotalTaxable.Add(l.TaxableAmount)
		b.TotalVAT = b.TotalVAT.Add(l.VATAmount)
	}
	return b
}

// VATSummary holds the return figures.
type VATSummary struct {
	TotalOutputVAT decimal.Decimal `json:"totalOutputVAT"`
	TotalInputVAT  decimal.Decimal `json:"totalInputVAT"`
	NetVATPayable  decimal.Decimal `json:"netVATPayable"`
}

// Refundable reports whether input VAT exceeds output VAT.
func (s VATSummary) Refundable() bool {
	return s.NetVATPayable.IsNegative()
}

// Position labels the net figure.
func (s VATSummary) Position() string {
	if s.Refundable() {
		return "Refundable"
	}
	return "Payable"
}

// VATReport is a VAT return for one period.
type VATReport struct {
	Status          VATStatus  `json:"status"`
	Sales           VATBook    `json:"sales"`
	SalesReturns    VATBook    `json:"salesReturns"`
	Purchases       VATBook    `json:"purchases"`
	PurchaseReturns VATBook    `json:"purchaseReturns"`
	Summary         VATSummary `json:"summary"`
}

// BuildVATReport computes output VAT as sales less sales returns, input VAT as purchases
// less purchase returns, and their difference as the net amount payable.
func BuildVATReport(status VATStatus, sales, salesReturns, purchases, purchaseReturns []VATLine) VATReport {
	if status == "" {
		status = VATDraft
	}
	r := VATReport{
		Status:          status,
		Sales:           NewVATBook(sales),
		SalesReturns:    NewVATBook(salesReturns),
		Purchases:       NewVATBook(purchases),
		PurchaseReturns: NewVATBook(purchaseReturns),
	}
	output := r.Sales.TotalVAT.Sub(r.SalesReturns.TotalVAT)
	input := r.Purchases.TotalVAT.Sub(r.PurchaseReturns.TotalVAT)
	r.Summary = VATSummary{
		TotalOutputVAT: output,
		TotalInputVAT:  input,
		NetVATPayable:  output.Sub(input),
	}
	return r
}

// Sections exposes the return as a tree keyed by book, amounts being VAT.
func (r VATReport) Sections() []Section {
	book := func(key, label string, b VATBook) Section {
		lines := make([]Line, len(b.Lines))
		for i, l := range b.Lines {
			lines[i] = Line{Code: l.InvoiceNo, Name: l.PartyName, Amount: l.VATAmount}
		}
		return NewSection(key, label, lines)
	}
	return []Section{
		book("sales", "Sales", r.Sales),
		book("sales_returns", "Sales Returns", r.SalesReturns),
		book("purchases", "Purchases", r.Purchases),
		book("purchase_returns", "Purchase Returns", r.PurchaseReturns),
	}
}

type vatBookWire struct {
	Items    []VATLine           `json:"items"`
	TotalVAT decimal.NullDecimal `json:"totalVAT"`
}

type vatWire struct {
	Status          string      `json:"status"`
	Sales           vatBookWire `json:"sales"`
	SalesReturns    vatBookWire `json:"salesReturns"`
	Purchases       vatBookWire `json:"purchases"`
	PurchaseReturns vatBookWire `json:"purchaseReturns"`
	Summary         struct {
		TotalOutputVAT decimal.NullDecimal `json:"totalOutputVAT"`
		TotalInputVAT  decimal.NullDecimal `json:"totalInputVAT"`
		NetVATPayable  decimal.NullDecimal `json:"netVATPayable"`
	} `json:"summary"`
}

// DecodeVATReport rebuilds a backend VAT payload. When the payload carries summary figures
// but no invoice lists, the summary is taken as reported.
func DecodeVATReport(raw json.RawMessage) (VATReport, []string, error) {
	var wire vatWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return VATReport{}, nil, fmt.Errorf("reports: decode vat report: %w", err)
	}
	status, err := ParseVATStatus(wire.Status)
	if err != nil {
		return VATReport{}, nil, err
	}
	r := BuildVATReport(status, wire.Sales.Items, wire.SalesReturns.Items, wire.Purchases.Items, wire.PurchaseReturns.Items)
	var w warnings
	hasLines := len(wire.Sales.Items)+len(wire.SalesReturns.Items)+len(wire.Purchases.Items)+len(wire.PurchaseReturns.Items) > 0
	if !hasLines && (wire.Summary.TotalOutputVAT.Valid || wire.Summary.TotalInputVAT.Valid) {
		output := firstDecimal(wire.Summary.TotalOutputVAT)
		input := firstDecimal(wire.Summary.TotalInputVAT)
		r.Summary = VATSummary{TotalOutputVAT: output, TotalInputVAT: input, NetVATPayable: output.Sub(input)}
		w.check("Net VAT payable", wire.Summary.NetVATPayable, r.Summary.NetVATPayable)
		return r, w, nil
	}
	w.check("Sales VAT", wire.Sales.TotalVAT, r.Sales.TotalVAT)
	w.check("Sales returns VAT", wire.SalesReturns.TotalVAT, r.SalesReturns.TotalVAT)
	w.check("Purchases VAT", wire.Purchases.TotalVAT, r.Purchases.TotalVAT)
	w.check("Purchase returns VAT", wire.PurchaseReturns.TotalVAT, r.PurchaseReturns.TotalVAT)
	w.check("Output VAT", wire.Summary.TotalOutputVAT, r.Summary.TotalOutputVAT)
	w.check("Input VAT", wire.Summary.TotalInputVAT, r.Summary.TotalInputVAT)
	w.check("Net VAT payable", wire.Summary.NetVATPayable, r.Summary.NetVATPayable)
	return r, w, nil
}

func firstDecimal(values ...decimal.NullDecimal) decimal.Decimal {
	for _, v := range values {
		if v.Valid {
			return v.Decimal
		}
	}
	return decimal.Zero
}
