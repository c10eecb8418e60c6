package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/nhfoods/ledgerdesk/internal/notify"
)

// Renderer converts HTML into PDF bytes, normally a Gotenberg client.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Recorder observes finished exports.
type Recorder interface {
	ObserveExport(format string, ok bool, elapsed time.Duration)
}

// Sink receives a complete rendered file.
type Sink interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
}

// Options configures an Exporter.
type Options struct {
	// PDFRenderer switches PDF output to HTML rendered by an external engine. When it
	// fails the built-in gofpdf writer is used instead.
	PDFRenderer Renderer
	Recorder    Recorder
	Clock       func() time.Time
}

// Exporter serializes workbooks and hands the bytes to a sink.
type Exporter struct {
	logger   *slog.Logger
	renderer Renderer
	recorder Recorder
	clock    func() time.Time
}

// NewExporter builds an Exporter.
func NewExporter(logger *slog.Logger, opts Options) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Exporter{logger: logger, renderer: opts.PDFRenderer, recorder: opts.Recorder, clock: opts.Clock}
}

// Name returns the download filename for wb in format f.
func (e *Exporter) Name(wb Workbook, f Format) string {
	generated := wb.Header.GeneratedAt
	if generated.IsZero() {
		generated = e.clock()
	}
	return Filename(wb, f, generated)
}

// Render serializes wb entirely in memory. Panics raised by the underlying writers are
// returned as errors.
func (e *Exporter) Render(ctx context.Context, wb Workbook, f Format) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("export: %s writer panicked: %v", f, r)
		}
	}()
	var buf bytes.Buffer
	switch f {
	case FormatXLSX:
		err = WriteXLSX(&buf, wb)
	case FormatCSV:
		err = WriteCSV(&buf, wb)
	case FormatHTML:
		err = WriteHTML(&buf, wb)
	case FormatPDF:
		if e.renderer != nil {
			out, rerr := e.renderHTMLPDF(ctx, wb)
			if rerr == nil {
				return out, nil
			}
			e.logger.Warn("pdf engine failed, using built-in writer", slog.Any("error", rerr))
		}
		err = WritePDF(&buf, wb)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Exporter) renderHTMLPDF(ctx context.Context, wb Workbook) ([]byte, error) {
	var html bytes.Buffer
	if err := WriteHTML(&html, wb); err != nil {
		return nil, err
	}
	return e.renderer.RenderHTML(ctx, html.String())
}

// Export renders wb and stores it in sink. Nothing reaches the sink unless rendering
// succeeded. Failures are logged and pushed to n; the return value reports success.
func (e *Exporter) Export(ctx context.Context, wb Workbook, f Format, sink Sink, n notify.Notifier) bool {
	start := e.clock()
	name := e.Name(wb, f)
	ok := e.export(ctx, wb, f, name, sink, n)
	if e.recorder != nil {
		e.recorder.ObserveExport(string(f), ok, e.clock().Sub(start))
	}
	return ok
}

func (e *Exporter) export(ctx context.Context, wb Workbook, f Format, name string, sink Sink, n notify.Notifier) bool {
	if sink == nil {
		e.logger.Error("export without sink", slog.String("file", name))
		notify.Errorf(n, "Export failed: no destination")
		return false
	}
	data, err := e.Render(ctx, wb, f)
	if err != nil {
		e.logger.Error("render export", slog.String("file", name), slog.Any("error", err))
		notify.Errorf(n, "Failed to export %s: %s", wb.Header.Title, notify.Message(err))
		return false
	}
	if err := sink.Put(ctx, name, f.ContentType(), data); err != nil {
		e.logger.Error("store export", slog.String("file", name), slog.Any("error", err))
		notify.Errorf(n, "Failed to save %s: %s", name, notify.Message(err))
		return false
	}
	e.logger.Info("export written", slog.String("file", name), slog.Int("bytes", len(data)))
	notify.Successf(n, "%s exported as %s", wb.Header.Title, name)
	return true
}

// DirSink writes files into a directory through a temporary file and a rename.
type DirSink struct {
	Dir string
}

// Put implements Sink.
func (s DirSink) Put(ctx context.Context, name, contentType string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

// HTTPSink streams the file as an attachment response.
type HTTPSink struct {
	W http.ResponseWriter
}

// Put implements Sink.
func (s HTTPSink) Put(_ context.Context, name, contentType string, data []byte) error {
	if s.W == nil {
		return errors.New("export: nil response writer")
	}
	h := s.W.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	h.Set("Content-Length", fmt.Sprint(len(data)))
	s.W.WriteHeader(http.StatusOK)
	_, err := s.W.Write(data)
	return err
}

// MemorySink keeps the last file in memory.
type MemorySink struct {
	Name        string
	ContentType string
	Data        []byte
}

// Put implements Sink.
func (s *MemorySink) Put(_ context.Context, name, contentType string, data []byte) error {
	s.Name, s.ContentType, s.Data = name, contentType, data
	return nil
}
