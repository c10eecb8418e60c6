package export

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/nhfoods/ledgerdesk/internal/format"
)

// Filename builds {Company}_{Report}_{Year}[_{Month}]_{YYYY-MM-DD}.{ext}. The month
// segment is the English month name and is present only for single-month reports.
func Filename(wb Workbook, f Format, generated time.Time) string {
	parts := []string{sanitize(wb.Header.CompanyName), sanitize(wb.FileToken)}
	year := wb.Year
	if year == 0 {
		year = generated.Year()
	}
	parts = append(parts, strconv.Itoa(year))
	if wb.Month >= 1 && wb.Month <= 12 {
		parts = append(parts, time.Month(wb.Month).String())
	}
	parts = append(parts, format.ISODate(generated))

	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "_") + "." + string(f)
}

// sanitize replaces every run of characters outside [A-Za-z0-9-] with one underscore.
func sanitize(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.TrimSpace(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}
