// Package export lays reports out as workbooks and serializes them to spreadsheet, PDF,
// CSV and HTML files.
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nhfoods/ledgerdesk/internal/format"
)

// Format is an output file type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// ErrUnknownFormat is returned for unsupported output formats.
var ErrUnknownFormat = errors.New("export: unknown format")

// ParseFormat validates a format name. "excel" is accepted for xlsx.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "."))); f {
	case FormatXLSX, FormatPDF, FormatCSV, FormatHTML:
		return f, nil
	case "excel", "xls":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
}

// ContentType is the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	}
	return "application/octet-stream"
}

// RowKind drives row styling.
type RowKind string

const (
	RowItem     RowKind = "item"
	RowSection  RowKind = "section"
	RowSubtotal RowKind = "subtotal"
	RowTotal    RowKind = "total"
	RowStatus   RowKind = "status"
	RowBlank    RowKind = "blank"
)

// Emphasised reports whether the row is printed bold.
func (k RowKind) Emphasised() bool {
	return k == RowSection || k == RowSubtotal || k == RowTotal || k == RowStatus
}

// Column describes one table column. Width is relative; each formatter scales it.
type Column struct {
	Title   string
	Width   float64
	Numeric bool
}

// Cell is one table value. Amount cells keep the decimal so spreadsheets get numbers.
type Cell struct {
	Text     string
	Amount   decimal.Decimal
	IsAmount bool
}

// String renders the cell for text formats.
func (c Cell) String() string {
	if c.IsAmount {
		return format.Amount(c.Amount)
	}
	return c.Text
}

// Text builds a text cell.
func Text(s string) Cell { return Cell{Text: s} }

// Amount builds a numeric cell.
func Amount(d decimal.Decimal) Cell { return Cell{Amount: d, IsAmount: true} }

// Date builds a dd/mm/yyyy cell.
func Date(t time.Time) Cell { return Cell{Text: format.Date(t)} }

// Row is one table line. Level indents the first text cell.
type Row struct {
	Kind  RowKind
	Level int
	Cells []Cell
}

// Sheet is one table.
type Sheet struct {
	Name    string
	Columns []Column
	Rows    []Row
}

// Header is the block printed above every export.
type Header struct {
	CompanyName    string
	CompanyAddress string
	TRN            string
	Title          string
	Subtitle       string
	PeriodLabel    string
	GeneratedAt    time.Time
}

// Lines returns the non-empty header lines in print order.
func (h Header) Lines() []string {
	lines := []string{}
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, s)
		}
	}
	add(h.CompanyName)
	add(h.CompanyAddress)
	if h.TRN != "" {
		add("TRN: " + h.TRN)
	}
	add(h.Title)
	add(h.Subtitle)
	if h.PeriodLabel != "" {
		add("Period: " + h.PeriodLabel)
	}
	if !h.GeneratedAt.IsZero() {
		add("Generated: " + format.Timestamp(h.GeneratedAt))
	}
	return lines
}

// Workbook is a report laid out for export.
type Workbook struct {
	// FileToken is the report segment of the filename.
	FileToken string
	Year      int
	Month     int
	Header    Header
	Sheets    []Sheet
}

func (s *Sheet) add(kind RowKind, level int, cells ...Cell) {
	s.Rows = append(s.Rows, Row{Kind: kind, Level: level, Cells: cells})
}

func (s *Sheet) blank() {
	s.Rows = append(s.Rows, Row{Kind: RowBlank})
}
