// Package cli implements the ledgerctl commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/nhfoods/ledgerdesk/internal/ledger"
	"github.com/nhfoods/ledgerdesk/internal/notify"
	"github.com/nhfoods/ledgerdesk/internal/reports"
	"github.com/nhfoods/ledgerdesk/internal/reports/export"
)

// Runtime is what the commands operate on.
type Runtime struct {
	Ledgers   *ledger.Service
	Reports   *reports.Service
	Exporter  *export.Exporter
	Company   export.Company
	ExportDir string
	Queue     asynq.RedisClientOpt
}

// Loader builds the runtime on first use. The returned func releases it.
type Loader func(ctx context.Context) (*Runtime, func(), error)

type env struct {
	load    Loader
	rt      *Runtime
	release func()
	jobs    *JobsCLI
}

func (e *env) runtime(ctx context.Context) (*Runtime, error) {
	if e.rt != nil {
		return e.rt, nil
	}
	rt, release, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	e.rt, e.release = rt, release
	return rt, nil
}

func (e *env) close() {
	if e.jobs != nil {
		_ = e.jobs.Close()
		e.jobs = nil
	}
	if e.release != nil {
		e.release()
		e.release = nil
	}
	e.rt = nil
}

// NewRootCommand creates the root CLI command with all subcommands registered. The
// returned func releases whatever the commands opened and must be called once Execute
// returns, whether or not it failed.
func NewRootCommand(load Loader, version string) (*cobra.Command, func()) {
	e := &env{load: load}
	root := &cobra.Command{
		Use:     "ledgerctl",
		Short:   "Account ledgers, financial reports and exports from the command line",
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	root.AddCommand(
		newLedgerCommand(e),
		newReportCommand(e),
		newStatementCommand(e),
		newVATCommand(e),
		newJobsCommand(e),
	)
	return root, e.close
}

// output carries the shared --format and --out flags.
type output struct {
	format string
	dir    string
}

func (o *output) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.format, "format", "", "export format: xlsx, pdf, csv or html (prints JSON when empty)")
	cmd.Flags().StringVar(&o.dir, "out", "", "directory for the exported file (defaults to EXPORT_DIR)")
}

// write prints v as JSON, or exports wb when a format was requested.
func (o output) write(cmd *cobra.Command, rt *Runtime, v any, wb func() (export.Workbook, error), q *notify.Queue) error {
	if o.format == "" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	f, err := export.ParseFormat(o.format)
	if err != nil {
		return err
	}
	book, err := wb()
	if err != nil {
		return err
	}
	dir := o.dir
	if dir == "" {
		dir = rt.ExportDir
	}
	sink := &fileSink{dir: dir}
	if !rt.Exporter.Export(cmd.Context(), book, f, sink, q) {
		return fmt.Errorf("export failed")
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), sink.path)
	return err
}

// fileSink writes through export.DirSink and remembers the final path.
type fileSink struct {
	dir  string
	path string
}

func (s *fileSink) Put(ctx context.Context, name, contentType string, data []byte) error {
	if err := (export.DirSink{Dir: s.dir}).Put(ctx, name, contentType, data); err != nil {
		return err
	}
	s.path = filepath.Join(s.dir, name)
	return nil
}

// printNotices writes queued notices to w, one per line.
func printNotices(w io.Writer, q *notify.Queue) {
	for _, n := range q.Drain() {
		fmt.Fprintf(w, "[%s] %s\n", n.Level, n.Message)
	}
}

// run resolves the runtime and a notice queue, runs fn and prints the notices.
func run(cmd *cobra.Command, e *env, fn func(rt *Runtime, q *notify.Queue) error) error {
	rt, err := e.runtime(cmd.Context())
	if err != nil {
		return err
	}
	q := notify.NewQueue(0)
	err = fn(rt, q)
	printNotices(cmd.ErrOrStderr(), q)
	return err
}
