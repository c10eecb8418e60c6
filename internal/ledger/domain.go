package ledger

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind tags the account variant and selects the reconstruction rules.
type Kind string

const (
	KindTransactor Kind = "ChartOfAccounts"
	KindVendor     Kind = "Vendor"
	KindCustomer   Kind = "Customer"
	KindExpense    Kind = "Expense"
)

// ParseKind accepts the tag itself or the short route names used by the API.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "chartofaccounts", "transactor", "transactors", "coa":
		return KindTransactor, nil
	case "vendor", "vendors":
		return KindVendor, nil
	case "customer", "customers":
		return KindCustomer, nil
	case "expense", "expenses":
		return KindExpense, nil
	}
	return "", ErrUnknownKind
}

// Slug returns the route name for the kind.
func (k Kind) Slug() string {
	switch k {
	case KindTransactor:
		return "transactors"
	case KindVendor:
		return "vendors"
	case KindCustomer:
		return "customers"
	case KindExpense:
		return "expenses"
	}
	return strings.ToLower(string(k))
}

// AccountType is the accounting classification that fixes the normal balance side.
type AccountType string

const (
	TypeAsset     AccountType = "asset"
	TypeLiability AccountType = "liability"
	TypeEquity    AccountType = "equity"
	TypeIncome    AccountType = "income"
	TypeExpense   AccountType = "expense"
)

// DebitNormal reports whether increases are recorded on the debit side.
func (t AccountType) DebitNormal() bool {
	switch AccountType(strings.ToLower(string(t))) {
	case TypeLiability, TypeEquity, TypeIncome:
		return false
	}
	return true
}

// Category narrows chart-of-accounts transactors.
type Category string

const (
	CategoryBank  Category = "bank"
	CategoryCash  Category = "cash"
	CategoryOther Category = "other"
)

// Status mirrors the status values the backend assigns to accounts.
type Status string

const (
	StatusActive       Status = "Active"
	StatusInactive     Status = "Inactive"
	StatusCompliant    Status = "Compliant"
	StatusNonCompliant Status = "Non-compliant"
	StatusPending      Status = "Pending"
	StatusExpired      Status = "Expired"
)

// AccountBase holds the fields every account variant shares.
type AccountBase struct {
	ID             string          `json:"id"`
	InternalID     string          `json:"_id"`
	Name           string          `json:"name"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	AccountType    AccountType     `json:"accountType"`
	Status         Status          `json:"status"`
}

// Account is the tagged union over the four account sources.
type Account interface {
	Kind() Kind
	Base() AccountBase
}

// Transactor is a chart-of-accounts account: bank, cash or other.
type Transactor struct {
	AccountBase
	Category Category `json:"accountCategory"`
}

func (Transactor) Kind() Kind { return KindTransactor }
func (a Transactor) Base() AccountBase { return a.AccountBase }

// Vendor is an accounts-payable party, credit-normal.
type Vendor struct {
	AccountBase
	TRN           string `json:"trn,omitempty"`
	ContactPerson string `json:"contactPerson,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
}

func (Vendor) Kind() Kind { return KindVendor }
func (a Vendor) Base() AccountBase { return a.AccountBase }

// Customer is an accounts-receivable party, debit-normal.
type Customer struct {
	AccountBase
	TRN         string          `json:"trn,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Email       string          `json:"email,omitempty"`
	Address     string          `json:"address,omitempty"`
	CreditLimit decimal.Decimal `json:"creditLimit"`
}

func (Customer) Kind() Kind { return KindCustomer }
func (a Customer) Base() AccountBase { return a.AccountBase }

// Expense is an expense chart-of-accounts entry whose ledger is computed by the backend.
type Expense struct {
	AccountBase
	ParentCode string `json:"parentCode,omitempty"`
}

func (Expense) Kind() Kind { return KindExpense }
func (a Expense) Base() AccountBase { return a.AccountBase }

// DebitNormal reports the normal balance side for acc. Vendors are always
// credit-normal and customers debit-normal whatever their accountType says.
func DebitNormal(acc Account) bool {
	switch acc.Kind() {
	case KindVendor:
		return false
	case KindCustomer:
		return true
	}
	return acc.Base().AccountType.DebitNormal()
}

// AccountRef identifies an account for lookups.
type AccountRef struct {
	Kind Kind
	ID   string
}

var (
	// ErrUnknownKind indicates an account kind outside the four known variants.
	ErrUnknownKind = errors.New("ledger: unknown account kind")
	// ErrUnknownFilter indicates an unsupported date filter type.
	ErrUnknownFilter = errors.New("ledger: unknown date filter")
	// ErrInvalidRange indicates unparseable or inverted custom filter bounds.
	ErrInvalidRange = errors.New("ledger: invalid date range")
	// ErrAccountNotFound indicates the referenced account is not in the backend list.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrSuperseded indicates a newer request for the same view replaced this one.
	ErrSuperseded = errors.New("ledger: request superseded")
	// ErrNilAccount indicates Reconstruct was called without an account.
	ErrNilAccount = errors.New("ledger: account required")
)
