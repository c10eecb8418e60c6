// Package format renders amounts and dates for tables, exports and notifications.
package format

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrency is used when no currency code is configured.
const DefaultCurrency = "AED"

var printer = message.NewPrinter(language.English)

// cents rounds d half away from zero to two decimals.
func cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Amount renders d with thousands separators and two decimals. Values that round to
// zero render as 0.00 so that -0.00 never shows up.
func Amount(d decimal.Decimal) string {
	rounded := cents(d)
	if rounded.IsZero() {
		return "0.00"
	}
	return printer.Sprintf("%.2f", rounded.InexactFloat64())
}

// Currency prefixes Amount with the currency code; negatives carry the sign before the code.
func Currency(d decimal.Decimal, code string) string {
	if strings.TrimSpace(code) == "" {
		code = DefaultCurrency
	}
	d = cents(d)
	if d.IsZero() {
		return code + " 0.00"
	}
	if d.IsNegative() {
		return "-" + code + " " + Amount(d.Neg())
	}
	return code + " " + Amount(d)
}

// Accounting renders negatives in parentheses, the convention used on statements.
func Accounting(d decimal.Decimal) string {
	d = cents(d)
	if d.IsZero() {
		return "0.00"
	}
	if d.IsNegative() {
		return "(" + Amount(d.Neg()) + ")"
	}
	return Amount(d)
}

// DrCr renders a balance with its side. debitNormal reports whether a positive balance
// sits on the debit side for the account in question.
func DrCr(balance decimal.Decimal, debitNormal bool) string {
	balance = cents(balance)
	if balance.IsZero() {
		return "0.00"
	}
	side := "Dr"
	if balance.IsNegative() == debitNormal {
		side = "Cr"
	}
	return Amount(balance.Abs()) + " " + side
}

// Date renders t as dd/mm/yyyy. Zero times render as a dash.
func Date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02/01/2006")
}

// DateLong renders t as "02 Jan 2006".
func DateLong(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02 Jan 2006")
}

// Timestamp renders t with minutes, used for "generated on" header lines.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02/01/2006 15:04")
}

// ISODate renders t as yyyy-mm-dd.
func ISODate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
