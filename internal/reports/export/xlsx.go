package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// numFmtAmount is the built-in "#,##0.00" format.
const numFmtAmount = 4

type xlsxStyles struct {
	f     *excelize.File
	cache map[string]int
}

func (s *xlsxStyles) get(bold, numeric, header bool, indent int) (int, error) {
	key := fmt.Sprintf("%t/%t/%t/%d", bold, numeric, header, indent)
	if id, ok := s.cache[key]; ok {
		return id, nil
	}
	style := &excelize.Style{Font: &excelize.Font{Bold: bold || header}}
	if numeric {
		style.NumFmt = numFmtAmount
		style.Alignment = &excelize.Alignment{Horizontal: "right"}
	} else if indent > 0 {
		style.Alignment = &excelize.Alignment{Indent: indent}
	}
	if header {
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}}
		style.Border = []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}}
	}
	id, err := s.f.NewStyle(style)
	if err != nil {
		return 0, err
	}
	s.cache[key] = id
	return id, nil
}

// WriteXLSX writes one worksheet per sheet. Each worksheet starts with the header lines,
// a blank row, then a bold column header row. Amount cells are stored as numbers.
func WriteXLSX(w io.Writer, wb Workbook) error {
	if len(wb.Sheets) == 0 {
		return fmt.Errorf("export: workbook %q has no sheets", wb.FileToken)
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	styles := &xlsxStyles{f: f, cache: map[string]int{}}

	for i, sheet := range wb.Sheets {
		name := sheetName(sheet.Name, i)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := writeWorksheet(f, styles, name, wb.Header, sheet); err != nil {
			return fmt.Errorf("export: sheet %s: %w", name, err)
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeWorksheet(f *excelize.File, styles *xlsxStyles, name string, h Header, sheet Sheet) error {
	row := 1
	titleStyle, err := styles.get(true, false, false, 0)
	if err != nil {
		return err
	}
	for _, line := range h.Lines() {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellValue(name, cell, line); err != nil {
			return err
		}
		if err := f.SetCellStyle(name, cell, cell, titleStyle); err != nil {
			return err
		}
		row++
	}
	row++

	headStyle, err := styles.get(true, false, true, 0)
	if err != nil {
		return err
	}
	for j, col := range sheet.Columns {
		cell, _ := excelize.CoordinatesToCellName(j+1, row)
		if err := f.SetCellValue(name, cell, col.Title); err != nil {
			return err
		}
		if err := f.SetCellStyle(name, cell, cell, headStyle); err != nil {
			return err
		}
		letter, _ := excelize.ColumnNumberToName(j + 1)
		width := col.Width
		if width <= 0 {
			width = 14
		}
		if err := f.SetColWidth(name, letter, letter, width); err != nil {
			return err
		}
	}
	row++

	for _, r := range sheet.Rows {
		if r.Kind == RowBlank {
			row++
			continue
		}
		for j, c := range r.Cells {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			indent := 0
			if j == firstTextCell(r) {
				indent = r.Level
			}
			style, err := styles.get(r.Kind.Emphasised(), c.IsAmount, false, indent)
			if err != nil {
				return err
			}
			var value any = c.Text
			if c.IsAmount {
				value = c.Amount.Round(2).InexactFloat64()
			}
			if err := f.SetCellValue(name, cell, value); err != nil {
				return err
			}
			if err := f.SetCellStyle(name, cell, cell, style); err != nil {
				return err
			}
		}
		row++
	}
	return nil
}

func firstTextCell(r Row) int {
	for i, c := range r.Cells {
		if !c.IsAmount && c.Text != "" {
			return i
		}
	}
	return -1
}

// sheetName trims a worksheet name to the 31 characters Excel allows and strips the
// characters it rejects.
func sheetName(name string, i int) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = fmt.Sprintf("Sheet%d", i+1)
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
