package export

import (
	"html/template"
	"io"
	"strings"

	"github.com/nhfoods/ledgerdesk/web"
)

var reportTemplate = template.Must(template.ParseFS(web.Templates, "templates/reports/report.html"))

type htmlCell struct {
	Text    string
	Numeric bool
	Indent  int
}

type htmlRow struct {
	Class string
	Cells []htmlCell
}

type htmlSheet struct {
	Name    string
	Columns []Column
	Rows    []htmlRow
}

type htmlView struct {
	Title       string
	Orientation string
	Lines       []string
	Named       bool
	Sheets      []htmlSheet
}

// WriteHTML renders the workbook as a printable HTML page. The same page is what the
// Gotenberg engine converts to PDF.
func WriteHTML(w io.Writer, wb Workbook) error {
	view := htmlView{
		Title:       wb.Header.Title,
		Orientation: "portrait",
		Lines:       wb.Header.Lines(),
		Named:       len(wb.Sheets) > 1,
	}
	for _, s := range wb.Sheets {
		if len(s.Columns) > 5 {
			view.Orientation = "landscape"
		}
		hs := htmlSheet{Name: s.Name, Columns: s.Columns}
		for _, r := range s.Rows {
			hs.Rows = append(hs.Rows, htmlRowOf(s, r))
		}
		view.Sheets = append(view.Sheets, hs)
	}
	return reportTemplate.Execute(w, view)
}

func htmlRowOf(s Sheet, r Row) htmlRow {
	row := htmlRow{Class: string(r.Kind)}
	if r.Kind == RowBlank {
		row.Cells = []htmlCell{{}}
		return row
	}
	if r.Kind == RowStatus {
		for _, c := range r.Cells {
			if strings.HasPrefix(c.Text, "NOT BALANCED") {
				row.Class += " unbalanced"
			}
		}
	}
	first := firstTextCell(r)
	for i := range s.Columns {
		var cell htmlCell
		if i < len(r.Cells) {
			c := r.Cells[i]
			cell = htmlCell{Text: c.String(), Numeric: c.IsAmount}
			if i == first {
				cell.Indent = r.Level
			}
		}
		row.Cells = append(row.Cells, cell)
	}
	return row
}
