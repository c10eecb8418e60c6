package export

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

var errStreamerClosed = errors.New("export: csv streamer not initialised")

// csvStreamer writes CRLF records through a large buffer, flushing every few hundred rows.
type csvStreamer struct {
	buf     *bufio.Writer
	csv     *csv.Writer
	every   int
	pending int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, every: csvFlushEvery}
}

// comment writes a raw "# ..." metadata line. It must precede any record.
func (s *csvStreamer) comment(line string) error {
	if s == nil || s.buf == nil {
		return errStreamerClosed
	}
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "#") {
		line = "# " + line
	}
	_, err := s.buf.WriteString(line + "\r\n")
	return err
}

func (s *csvStreamer) row(record []string) error {
	if s == nil || s.csv == nil {
		return errStreamerClosed
	}
	if err := s.csv.Write(record); err != nil {
		return err
	}
	s.pending++
	if s.every > 0 && s.pending >= s.every {
		return s.flush()
	}
	return nil
}

func (s *csvStreamer) flush() error {
	if s == nil || s.csv == nil || s.buf == nil {
		return errStreamerClosed
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pending = 0
	return nil
}

// WriteCSV writes the header as comment lines followed by every sheet. Sheets after the
// first are introduced by a "# Sheet:" line. Amounts are plain fixed-point numbers.
func WriteCSV(w io.Writer, wb Workbook) error {
	s := newCSVStreamer(w)
	for _, line := range wb.Header.Lines() {
		if err := s.comment(line); err != nil {
			return err
		}
	}
	for i, sheet := range wb.Sheets {
		if i > 0 {
			if err := s.flush(); err != nil {
				return err
			}
			if _, err := s.buf.WriteString("\r\n"); err != nil {
				return err
			}
		}
		if err := s.comment("Sheet: " + sheet.Name); err != nil {
			return err
		}
		titles := make([]string, len(sheet.Columns))
		for j, c := range sheet.Columns {
			titles[j] = c.Title
		}
		if err := s.row(titles); err != nil {
			return err
		}
		for _, r := range sheet.Rows {
			if r.Kind == RowBlank {
				continue
			}
			if err := s.row(csvRecord(sheet, r)); err != nil {
				return err
			}
		}
	}
	return s.flush()
}

func csvRecord(sheet Sheet, r Row) []string {
	width := len(sheet.Columns)
	if len(r.Cells) > width {
		width = len(r.Cells)
	}
	out := make([]string, width)
	for i, c := range r.Cells {
		if c.IsAmount {
			out[i] = c.Amount.StringFixed(2)
			continue
		}
		out[i] = c.Text
	}
	return out
}
