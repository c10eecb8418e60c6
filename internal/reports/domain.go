// Package reports aggregates account balances and backend report payloads into
// layout-agnostic section trees for the trial balance, profit and loss, balance sheet,
// VAT return and customer statement of account.
package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Type names a report.
type Type string

const (
	TypeTrialBalance Type = "trial-balance"
	TypeProfitLoss   Type = "profit-loss"
	TypeBalanceSheet Type = "balance-sheet"
	TypeVAT          Type = "vat"
	TypeStatement    Type = "statement-of-account"
)

var (
	// ErrUnknownType is returned for report names outside the supported set.
	ErrUnknownType = errors.New("reports: unknown report type")
	// ErrInvalidPeriod flags a period request that cannot be generated.
	ErrInvalidPeriod = errors.New("reports: invalid period")
	// ErrInvalidTransition flags a VAT status change that is not allowed.
	ErrInvalidTransition = errors.New("reports: vat status transition not allowed")
	// ErrNotDeletable is returned when deleting a VAT report that left DRAFT.
	ErrNotDeletable = errors.New("reports: only draft vat reports can be deleted")
	// ErrNotFound is returned when a saved report does not exist.
	ErrNotFound = errors.New("reports: report not found")
)

// ParseType validates a report name. Underscores and case are ignored.
func ParseType(raw string) (Type, error) {
	t := Type(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "_", "-"))
	switch t {
	case TypeTrialBalance, TypeProfitLoss, TypeBalanceSheet, TypeVAT, TypeStatement:
		return t, nil
	case "pl", "p&l", "profit-and-loss":
		return TypeProfitLoss, nil
	case "bs":
		return TypeBalanceSheet, nil
	case "soa", "statement":
		return TypeStatement, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, raw)
}

// Title is the heading printed on exports.
func (t Type) Title() string {
	switch t {
	case TypeTrialBalance:
		return "Trial Balance"
	case TypeProfitLoss:
		return "Profit & Loss Statement"
	case TypeBalanceSheet:
		return "Balance Sheet"
	case TypeVAT:
		return "VAT Return"
	case TypeStatement:
		return "Statement of Account"
	}
	return string(t)
}

// FileToken is the report segment of an export filename.
func (t Type) FileToken() string {
	switch t {
	case TypeTrialBalance:
		return "TrialBalance"
	case TypeProfitLoss:
		return "ProfitLoss"
	case TypeBalanceSheet:
		return "BalanceSheet"
	case TypeVAT:
		return "VATReport"
	case TypeStatement:
		return "StatementOfAccount"
	}
	return string(t)
}

// Generated reports whether the backend produces the report from a period request.
func (t Type) Generated() bool {
	return t == TypeProfitLoss || t == TypeBalanceSheet || t == TypeVAT
}

// Tolerance is the largest difference still treated as balanced.
var Tolerance = decimal.New(1, -2)

// Balanced reports whether diff is within Tolerance of zero.
func Balanced(diff decimal.Decimal) bool {
	return diff.Abs().LessThan(Tolerance)
}

// PeriodType is the granularity of a generated report.
type PeriodType string

const (
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodYearly    PeriodType = "yearly"
)

// PeriodRequest is the body posted to the backend generate endpoints.
type PeriodRequest struct {
	PeriodType PeriodType `json:"periodType" validate:"required,oneof=monthly quarterly yearly"`
	Year       int        `json:"year" validate:"required,gte=1900,lte=9999"`
	Month      int        `json:"month,omitempty" validate:"omitempty,min=1,max=12"`
	Quarter    int        `json:"quarter,omitempty" validate:"omitempty,min=1,max=4"`
	Save       bool       `json:"save"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the request and normalises fields that do not apply to the period type.
func (r *PeriodRequest) Validate() error {
	r.PeriodType = PeriodType(strings.ToLower(strings.TrimSpace(string(r.PeriodType))))
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed %s", ErrInvalidPeriod, strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidPeriod, err)
	}
	switch r.PeriodType {
	case PeriodMonthly:
		if r.Month == 0 {
			return fmt.Errorf("%w: month is required for monthly reports", ErrInvalidPeriod)
		}
		r.Quarter = 0
	case PeriodQuarterly:
		if r.Quarter == 0 {
			return fmt.Errorf("%w: quarter is required for quarterly reports", ErrInvalidPeriod)
		}
		r.Month = 0
	case PeriodYearly:
		r.Month, r.Quarter = 0, 0
	}
	return nil
}

// Label renders "January 2024", "Q1 2024" or "2024".
func (r PeriodRequest) Label() string {
	switch r.PeriodType {
	case PeriodMonthly:
		return fmt.Sprintf("%s %d", time.Month(r.Month), r.Year)
	case PeriodQuarterly:
		return fmt.Sprintf("Q%d %d", r.Quarter, r.Year)
	}
	return fmt.Sprintf("%d", r.Year)
}

// Period resolves the request into calendar bounds in loc.
func (r PeriodRequest) Period(loc *time.Location) Period {
	if loc == nil {
		loc = time.Local
	}
	var from, to time.Time
	switch r.PeriodType {
	case PeriodMonthly:
		from = time.Date(r.Year, time.Month(r.Month), 1, 0, 0, 0, 0, loc)
		to = from.AddDate(0, 1, -1)
	case PeriodQuarterly:
		from = time.Date(r.Year, time.Month((r.Quarter-1)*3+1), 1, 0, 0, 0, 0, loc)
		to = from.AddDate(0, 3, -1)
	default:
		from = time.Date(r.Year, time.January, 1, 0, 0, 0, 0, loc)
		to = time.Date(r.Year, time.December, 31, 0, 0, 0, 0, loc)
	}
	return Period{Label: r.Label(), From: from, To: to, Year: r.Year, Month: r.Month}
}

// Key is a stable identifier for deduplicating and caching generations.
func (r PeriodRequest) Key() string {
	return fmt.Sprintf("%s:%d:%d:%d", r.PeriodType, r.Year, r.Month, r.Quarter)
}

// Period is the resolved reporting window.
type Period struct {
	Label string    `json:"label"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
	// Year and Month feed export filenames; Month is zero for non-monthly reports.
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
}

// Line is one leaf item of a report section.
type Line struct {
	Code   string          `json:"code,omitempty"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// UnmarshalJSON accepts the account-shaped items the backend emits.
func (l *Line) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code        string              `json:"code"`
		AccountCode string              `json:"accountCode"`
		ID          string              `json:"id"`
		Name        string              `json:"name"`
		AccountName string              `json:"accountName"`
		Amount      decimal.NullDecimal `json:"amount"`
		Balance     decimal.NullDecimal `json:"balance"`
		Total       decimal.NullDecimal `json:"total"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.Code = firstNonEmpty(raw.Code, raw.AccountCode, raw.ID)
	l.Name = firstNonEmpty(raw.Name, raw.AccountName, l.Code)
	switch {
	case raw.Amount.Valid:
		l.Amount = raw.Amount.Decimal
	case raw.Balance.Valid:
		l.Amount = raw.Balance.Decimal
	case raw.Total.Valid:
		l.Amount = raw.Total.Decimal
	default:
		l.Amount = decimal.Zero
	}
	return nil
}

// Section is a node of the report tree. A section holds either leaf lines, child
// sections, or both; Total always equals the sum of its lines and children.
type Section struct {
	Key      string          `json:"key"`
	Label    string          `json:"label"`
	Lines    []Line          `json:"items,omitempty"`
	Children []Section       `json:"children,omitempty"`
	Total    decimal.Decimal `json:"total"`
}

// NewSection builds a leaf section and totals it.
func NewSection(key, label string, lines []Line) Section {
	s := Section{Key: key, Label: label, Lines: lines}
	s.Total = s.Sum()
	return s
}

// Group builds a parent section from children and totals it.
func Group(key, label string, children ...Section) Section {
	s := Section{Key: key, Label: label, Children: children}
	s.Total = s.Sum()
	return s
}

// Sum recomputes the section total from its leaves.
func (s Section) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Amount)
	}
	for _, c := range s.Children {
		total = total.Add(c.Sum())
	}
	return total
}

// Items returns every leaf line under the section in tree order.
func (s Section) Items() []Line {
	out := append([]Line(nil), s.Lines...)
	for _, c := range s.Children {
		out = append(out, c.Items()...)
	}
	return out
}

// Child finds a direct child by key.
func (s Section) Child(key string) (Section, bool) {
	for _, c := range s.Children {
		if c.Key == key {
			return c, true
		}
	}
	return Section{}, false
}

// group is the {items,total} object the backend uses for every section.
type group struct {
	Items []Line              `json:"items"`
	Total decimal.NullDecimal `json:"total"`
}

func (g group) section(key, label string, w *warnings) Section {
	s := NewSection(key, label, g.Items)
	w.check(label, g.Total, s.Total)
	return s
}

// warnings collects disagreements between backend totals and recomputed ones.
type warnings []string

func (w *warnings) check(label string, reported decimal.NullDecimal, computed decimal.Decimal) {
	if !reported.Valid || Balanced(reported.Decimal.Sub(computed)) {
		return
	}
	*w = append(*w, fmt.Sprintf("%s total reported as %s but items sum to %s", label,
		reported.Decimal.StringFixed(2), computed.StringFixed(2)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
