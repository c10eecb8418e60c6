// Package accounts validates and saves account records of the four ledger kinds.
package accounts

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/nhfoods/ledgerdesk/internal/ledger"
)

// ErrInvalid is wrapped by every ValidationError.
var ErrInvalid = errors.New("accounts: validation failed")

// ValidationError lists the rejected fields with a message each.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = e.Fields[k]
	}
	return "accounts: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// UserMessage lists the problems in field order for notices.
func (e *ValidationError) UserMessage() string {
	return strings.TrimPrefix(e.Error(), "accounts: ")
}

// Input is the editable part of an account as submitted by a form or API call.
type Input struct {
	Code           string              `json:"id" validate:"omitempty,max=32"`
	Name           string              `json:"name" validate:"required,max=120"`
	AccountType    ledger.AccountType  `json:"accountType" validate:"omitempty,oneof=asset liability equity income expense"`
	Category       ledger.Category     `json:"accountCategory" validate:"omitempty,oneof=bank cash other"`
	Status         ledger.Status       `json:"status" validate:"omitempty,oneof=Active Inactive Compliant Non-compliant Pending Expired"`
	OpeningBalance decimal.Decimal     `json:"openingBalance"`
	CreditLimit    decimal.NullDecimal `json:"creditLimit"`
	TRN            string              `json:"trn" validate:"omitempty,len=15,numeric"`
	ContactPerson  string              `json:"contactPerson" validate:"omitempty,max=80"`
	Phone          string              `json:"phone" validate:"omitempty,max=20"`
	Email          string              `json:"email" validate:"omitempty,email"`
	Address        string              `json:"address" validate:"omitempty,max=250"`
	ParentCode     string              `json:"parentCode" validate:"omitempty,max=32"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks in for an account of kind. Chart-of-accounts transactors need a
// type and a category; expenses are always of type expense.
func (in *Input) Validate(kind ledger.Kind) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.TrimSpace(in.Code)
	in.AccountType = ledger.AccountType(strings.ToLower(strings.TrimSpace(string(in.AccountType))))
	in.Category = ledger.Category(strings.ToLower(strings.TrimSpace(string(in.Category))))

	fields := map[string]string{}
	if err := validate.Struct(in); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return err
		}
		for _, fe := range ves {
			fields[fe.Field()] = message(fe)
		}
	}
	switch kind {
	case ledger.KindTransactor:
		if in.AccountType == "" {
			fields["accountType"] = "accountType is required"
		}
		if in.Category == "" {
			fields["accountCategory"] = "accountCategory is required"
		}
	case ledger.KindExpense:
		if in.AccountType != "" && in.AccountType != ledger.TypeExpense {
			fields["accountType"] = "accountType must be expense"
		}
		in.AccountType = ledger.TypeExpense
	case ledger.KindVendor, ledger.KindCustomer:
	default:
		return fmt.Errorf("%w: %q", ledger.ErrUnknownKind, kind)
	}
	if in.CreditLimit.Valid && in.CreditLimit.Decimal.IsNegative() {
		fields["creditLimit"] = "creditLimit must not be negative"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return fe.Field() + " must be a valid email address"
	case "numeric":
		return fe.Field() + " must contain digits only"
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}

// Account builds the account variant for kind. internalID is empty for new accounts.
func (in Input) Account(kind ledger.Kind, internalID string) (ledger.Account, error) {
	base := ledger.AccountBase{
		ID:             in.Code,
		InternalID:     internalID,
		Name:           in.Name,
		OpeningBalance: in.OpeningBalance,
		AccountType:    in.AccountType,
		Status:         in.Status,
	}
	if base.Status == "" {
		base.Status = ledger.StatusActive
	}
	switch kind {
	case ledger.KindTransactor:
		return ledger.Transactor{AccountBase: base, Category: in.Category}, nil
	case ledger.KindVendor:
		return ledger.Vendor{AccountBase: base, TRN: in.TRN, ContactPerson: in.ContactPerson, Phone: in.Phone, Email: in.Email}, nil
	case ledger.KindCustomer:
		return ledger.Customer{AccountBase: base, TRN: in.TRN, Phone: in.Phone, Email: in.Email, Address: in.Address, CreditLimit: in.CreditLimit.Decimal}, nil
	case ledger.KindExpense:
		return ledger.Expense{AccountBase: base, ParentCode: in.ParentCode}, nil
	}
	return nil, fmt.Errorf("%w: %q", ledger.ErrUnknownKind, kind)
}
