package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfMargin    = 12.0
	pdfRowHeight = 6.0
	pdfFont      = "Arial"
)

type pdfWriter struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

// WritePDF renders every sheet as a table. Sheets with more than five columns are laid out
// in landscape. Tables break across pages with the column header repeated.
func WritePDF(w io.Writer, wb Workbook) error {
	orientation := "P"
	for _, s := range wb.Sheets {
		if len(s.Columns) > 5 {
			orientation = "L"
		}
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.AliasNbPages("")
	pdf.SetTitle(wb.Header.Title, true)
	pdf.SetAuthor(wb.Header.CompanyName, true)
	pw := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfMargin + 2)
		pdf.SetFont(pdfFont, "I", 8)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	for _, s := range wb.Sheets {
		pdf.AddPage()
		pw.header(wb.Header, s.Name, len(wb.Sheets) > 1)
		pw.table(s)
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("export: pdf sheet %s: %w", s.Name, err)
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("export: pdf output: %w", err)
	}
	return nil
}

func (p *pdfWriter) header(h Header, sheet string, named bool) {
	pdf := p.pdf
	pdf.SetTextColor(33, 37, 41)
	for i, line := range h.Lines() {
		switch i {
		case 0:
			pdf.SetFont(pdfFont, "B", 14)
			pdf.CellFormat(0, 8, p.tr(line), "", 1, "L", false, 0, "")
		default:
			pdf.SetFont(pdfFont, "", 9)
			pdf.CellFormat(0, 5, p.tr(line), "", 1, "L", false, 0, "")
		}
	}
	if named {
		pdf.Ln(2)
		pdf.SetFont(pdfFont, "B", 11)
		pdf.CellFormat(0, 6, p.tr(sheet), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)
}

// widths scales relative column widths to the printable width.
func (p *pdfWriter) widths(cols []Column) []float64 {
	pageW, _ := p.pdf.GetPageSize()
	usable := pageW - 2*pdfMargin
	total := 0.0
	for _, c := range cols {
		total += columnWidth(c)
	}
	out := make([]float64, len(cols))
	for i, c := range cols {
		out[i] = usable * columnWidth(c) / total
	}
	return out
}

func columnWidth(c Column) float64 {
	if c.Width <= 0 {
		return 14
	}
	return c.Width
}

func (p *pdfWriter) columnHeader(s Sheet, widths []float64) {
	pdf := p.pdf
	pdf.SetFont(pdfFont, "B", 9)
	pdf.SetFillColor(217, 225, 242)
	for i, c := range s.Columns {
		align := "L"
		if c.Numeric {
			align = "R"
		}
		pdf.CellFormat(widths[i], pdfRowHeight+1, p.tr(c.Title), "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)
}

func (p *pdfWriter) table(s Sheet) {
	pdf := p.pdf
	widths := p.widths(s.Columns)
	_, pageH := pdf.GetPageSize()
	limit := pageH - pdfMargin - 6
	p.columnHeader(s, widths)

	for _, r := range s.Rows {
		if pdf.GetY()+pdfRowHeight > limit {
			pdf.AddPage()
			p.columnHeader(s, widths)
		}
		if r.Kind == RowBlank {
			pdf.Ln(pdfRowHeight / 2)
			continue
		}
		style := ""
		if r.Kind.Emphasised() {
			style = "B"
		}
		pdf.SetFont(pdfFont, style, 8.5)
		fill := r.Kind == RowTotal
		pdf.SetFillColor(242, 242, 242)
		border := ""
		if r.Kind == RowTotal || r.Kind == RowSubtotal {
			border = "T"
		}
		for i := range s.Columns {
			text, align := "", "L"
			if i < len(r.Cells) {
				c := r.Cells[i]
				text = c.String()
				if c.IsAmount {
					align = "R"
				} else if i == firstTextCell(r) && r.Level > 0 {
					text = indent(r.Level) + text
				}
			}
			text = p.fit(p.tr(text), widths[i]-1.5)
			pdf.CellFormat(widths[i], pdfRowHeight, text, border, 0, align, fill, 0, "")
		}
		pdf.Ln(-1)
	}
}

func indent(level int) string {
	return strings.Repeat("    ", level)
}

// fit shortens s with a trailing ellipsis until it fits in width. s is already in the
// single-byte font encoding, so trimming bytes is safe.
func (p *pdfWriter) fit(s string, width float64) string {
	if p.pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && p.pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}
