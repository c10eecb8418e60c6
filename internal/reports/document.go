package reports

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nhfoods/ledgerdesk/internal/format"
	"github.com/nhfoods/ledgerdesk/internal/ledger"
)

// Document is one generated report of any type. Exactly one of the typed bodies is set,
// matching Type.
type Document struct {
	ID           string        `json:"id,omitempty"`
	Type         Type          `json:"type"`
	Period       Period        `json:"period"`
	GeneratedAt  time.Time     `json:"generatedAt"`
	Warnings     []string      `json:"warnings,omitempty"`
	TrialBalance *TrialBalance `json:"trialBalance,omitempty"`
	ProfitLoss   *ProfitLoss   `json:"profitLoss,omitempty"`
	BalanceSheet *BalanceSheet `json:"balanceSheet,omitempty"`
	VAT          *VATReport    `json:"vat,omitempty"`
	Statement    *Statement    `json:"statement,omitempty"`
}

// Sections returns the layout-agnostic tree of the report body.
func (d Document) Sections() []Section {
	switch {
	case d.TrialBalance != nil:
		return d.TrialBalance.Sections()
	case d.ProfitLoss != nil:
		return []Section{d.ProfitLoss.Revenue, d.ProfitLoss.CostOfSales, d.ProfitLoss.Expenses}
	case d.BalanceSheet != nil:
		return []Section{d.BalanceSheet.Assets, d.BalanceSheet.Liabilities, d.BalanceSheet.Equity}
	case d.VAT != nil:
		return d.VAT.Sections()
	case d.Statement != nil:
		lines := make([]Line, len(d.Statement.Entries))
		for i, e := range d.Statement.Entries {
			lines[i] = Line{Code: e.Reference, Name: e.Description, Amount: e.Debit.Sub(e.Credit)}
		}
		return []Section{NewSection("movements", "Movements", lines)}
	}
	return nil
}

// Balanced reports the reconciliation status for report types that carry one.
func (d Document) Balanced() (balanced, applies bool) {
	switch {
	case d.TrialBalance != nil:
		return d.TrialBalance.IsBalanced, true
	case d.BalanceSheet != nil:
		return d.BalanceSheet.Summary.IsBalanced, true
	}
	return true, false
}

// Difference is the reconciliation gap of a trial balance or balance sheet, zero for
// other report types.
func (d Document) Difference() decimal.Decimal {
	switch {
	case d.TrialBalance != nil:
		return d.TrialBalance.Difference
	case d.BalanceSheet != nil:
		return d.BalanceSheet.Summary.Difference
	}
	return decimal.Zero
}

// Status is the VAT filing status, empty for other report types.
func (d Document) Status() VATStatus {
	if d.VAT == nil {
		return ""
	}
	return d.VAT.Status
}

// Summary condenses a document for saved-report listings.
func (d Document) Summary() SavedSummary {
	return SavedSummary{
		ID:          d.ID,
		Type:        d.Type,
		PeriodLabel: d.Period.Label,
		Status:      d.Status(),
		GeneratedAt: d.GeneratedAt,
	}
}

// SavedSummary is one row of the saved-reports list.
type SavedSummary struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	PeriodLabel string    `json:"periodLabel"`
	Status      VATStatus `json:"status,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`
}

type envelopeWire struct {
	ID            string          `json:"id"`
	MongoID       string          `json:"_id"`
	ReportType    string          `json:"reportType"`
	Period        json.RawMessage `json:"period"`
	DateRange     *rangeWire      `json:"dateRange"`
	GeneratedDate string          `json:"generatedDate"`
	GeneratedAt   string          `json:"generatedAt"`
	CreatedAt     string          `json:"createdAt"`
	// Saved reports nest the generated body under data or reportData.
	Data       json.RawMessage `json:"data"`
	ReportData json.RawMessage `json:"reportData"`
}

type rangeWire struct {
	Label     string `json:"label"`
	From      string `json:"from"`
	To        string `json:"to"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
}

// DecodeDocument decodes a backend report payload. When t is empty the payload's
// reportType decides the body.
func DecodeDocument(t Type, raw json.RawMessage) (Document, error) {
	var env envelopeWire
	if err := json.Unmarshal(raw, &env); err != nil {
		return Document{}, fmt.Errorf("reports: decode report: %w", err)
	}
	if t == "" {
		parsed, err := ParseType(env.ReportType)
		if err != nil {
			return Document{}, err
		}
		t = parsed
	}
	body := raw
	for _, nested := range []json.RawMessage{env.ReportData, env.Data} {
		if isObject(nested) {
			body = nested
			break
		}
	}

	doc := Document{
		ID:     firstNonEmpty(env.ID, env.MongoID),
		Type:   t,
		Period: decodePeriod(env.Period, env.DateRange),
	}
	if ts, _, ok := ledger.ParseDate(firstNonEmpty(env.GeneratedDate, env.GeneratedAt, env.CreatedAt)); ok {
		doc.GeneratedAt = ts
	}

	var (
		warn []string
		err  error
	)
	switch t {
	case TypeProfitLoss:
		var pl ProfitLoss
		pl, warn, err = DecodeProfitLoss(body)
		doc.ProfitLoss = &pl
	case TypeBalanceSheet:
		var bs BalanceSheet
		bs, warn, err = DecodeBalanceSheet(body)
		doc.BalanceSheet = &bs
	case TypeVAT:
		var vat VATReport
		vat, warn, err = DecodeVATReport(body)
		doc.VAT = &vat
	case TypeStatement:
		var st Statement
		st, warn, err = DecodeStatement(body)
		doc.Statement = &st
		if doc.Period.From.IsZero() && doc.Period.To.IsZero() {
			doc.Period.From, doc.Period.To = st.From, st.To
		}
	case TypeTrialBalance:
		var tb TrialBalance
		err = json.Unmarshal(body, &tb)
		doc.TrialBalance = &tb
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if err != nil {
		return Document{}, err
	}
	doc.Warnings = warn
	return doc, nil
}

func decodePeriod(raw json.RawMessage, dr *rangeWire) Period {
	var p Period
	var label string
	var obj rangeWire
	if len(raw) > 0 && json.Unmarshal(raw, &label) == nil {
		p.Label = label
	} else if isObject(raw) && json.Unmarshal(raw, &obj) == nil {
		dr = &obj
	}
	if dr != nil {
		if dr.Label != "" {
			p.Label = dr.Label
		}
		p.From, _, _ = ledger.ParseDate(firstNonEmpty(dr.From, dr.StartDate))
		p.To, _, _ = ledger.ParseDate(firstNonEmpty(dr.To, dr.EndDate))
		p.Year, p.Month = dr.Year, dr.Month
	}
	if p.Year == 0 && !p.From.IsZero() {
		p.Year = p.From.Year()
		if !p.To.IsZero() && p.From.Year() == p.To.Year() && p.From.Month() == p.To.Month() {
			p.Month = int(p.From.Month())
		}
	}
	if p.Label == "" && !p.From.IsZero() {
		p.Label = format.DateLong(p.From)
		if !p.To.IsZero() {
			p.Label += " - " + format.DateLong(p.To)
		}
	}
	return p
}

func isObject(raw json.RawMessage) bool {
	return strings.HasPrefix(strings.TrimSpace(string(raw)), "{")
}
