package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nhfoods/ledgerdesk/internal/ledger"
	"github.com/nhfoods/ledgerdesk/internal/reports"
	"github.com/nhfoods/ledgerdesk/internal/reports/export"
	"github.com/nhfoods/ledgerdesk/jobs"
	_ "github.com/nhfoods/ledgerdesk/testing"
)

type accounts struct {
	list    []ledger.Account
	entries []ledger.Entry
}

func (a accounts) ListAccounts(_ context.Context, kind ledger.Kind) ([]ledger.Account, error) {
	var out []ledger.Account
	for _, acc := range a.list {
		if acc.Kind() == kind {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (a accounts) Entries(context.Context, ledger.Account, ledger.DateFilter) ([]ledger.Entry, error) {
	return a.entries, nil
}

type backend struct {
	mu          sync.Mutex
	saved       map[string]string
	transitions []string
	deleted     []string
}

func (b *backend) GenerateReport(context.Context, reports.Type, reports.PeriodRequest) (json.RawMessage, error) {
	return nil, errors.New("not used")
}

func (b *backend) GenerateStatement(_ context.Context, req reports.StatementRequest) (json.RawMessage, error) {
	return json.RawMessage(`{"customer":{"_id":"` + req.CustomerID + `","name":"Al Noor"},"openingBalance":100,
		"transactions":[{"date":"2024-01-03","invNo":"INV-1","debit":40}],"closingBalance":140}`), nil
}

func (b *backend) SavedReports(context.Context, reports.Type, int) ([]json.RawMessage, error) {
	return nil, nil
}

func (b *backend) SavedReport(_ context.Context, id string) (json.RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.saved[id]
	if !ok {
		return nil, reports.ErrNotFound
	}
	return json.RawMessage(raw), nil
}

func (b *backend) TransitionVAT(_ context.Context, id string, action reports.VATAction) (json.RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitions = append(b.transitions, id+":"+string(action))
	return json.RawMessage(`{"success":true}`), nil
}

func (b *backend) DeleteReport(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, id)
	return nil
}

func newRuntime(t *testing.T, b *backend) *Runtime {
	t.Helper()
	var entries []ledger.Entry
	require.NoError(t, json.Unmarshal([]byte(`[
		{"date":"2024-01-05","type":"Purchase Order","amount":500,"voucherNo":"PO-1"},
		{"date":"2024-01-10","type":"Payment Received","paid":200,"voucherNo":"PV-7"},
		{"date":"not a date","type":"Purchase Order","amount":10}
	]`), &entries))
	src := accounts{
		list: []ledger.Account{
			ledger.Vendor{AccountBase: ledger.AccountBase{ID: "V-001", InternalID: "v1", Name: "Gulf Traders", OpeningBalance: decimal.NewFromInt(1000), CurrentBalance: decimal.NewFromInt(1300)}},
			ledger.Transactor{AccountBase: ledger.AccountBase{ID: "1001", InternalID: "t1", Name: "Main Bank", AccountType: ledger.TypeAsset, CurrentBalance: decimal.NewFromInt(1300)}, Category: ledger.CategoryBank},
		},
		entries: entries,
	}
	now := time.Date(2024, time.January, 20, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Runtime{
		Ledgers:   ledger.NewService(src, logger, ledger.ServiceConfig{Location: time.UTC, Clock: clock}),
		Reports:   reports.NewService(b, src, nil, logger, reports.ServiceConfig{Location: time.UTC, Clock: clock}),
		Exporter:  export.NewExporter(logger, export.Options{Clock: clock}),
		Company:   export.Company{Name: "NH Foods"},
		ExportDir: t.TempDir(),
	}
}

func execute(t *testing.T, rt *Runtime, args ...string) (string, string, error) {
	t.Helper()
	var loaded, released int
	load := func(context.Context) (*Runtime, func(), error) {
		loaded++
		return rt, func() { released++ }, nil
	}
	root, cleanup := NewRootCommand(load, "test")
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	cleanup()
	cleanup()
	require.Equal(t, loaded, released, "runtime not released exactly once")
	return stdout.String(), stderr.String(), err
}

func TestLedgerPrintsJSON(t *testing.T) {
	out, errOut, err := execute(t, newRuntime(t, &backend{}), "ledger", "vendors", "V-001")
	require.NoError(t, err)

	var l struct {
		Closing      decimal.Decimal   `json:"closingBalance"`
		Transactions []json.RawMessage `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &l))
	require.True(t, decimal.NewFromInt(1300).Equal(l.Closing), l.Closing.String())
	require.Len(t, l.Transactions, 2)
	require.Contains(t, errOut, "[warning]")
}

func TestLedgerExportsFile(t *testing.T) {
	rt := newRuntime(t, &backend{})
	dir := t.TempDir()
	out, _, err := execute(t, rt, "ledger", "vendor", "v1", "--format", "CSV", "--out", dir)
	require.NoError(t, err)

	path := strings.TrimSpace(out)
	require.Equal(t, dir, filepath.Dir(path))
	require.True(t, strings.HasSuffix(path, ".csv"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "Closing Balance")
}

func TestLedgerRejectsBadInput(t *testing.T) {
	rt := newRuntime(t, &backend{})
	_, _, err := execute(t, rt, "ledger", "banks", "V-001")
	require.ErrorIs(t, err, ledger.ErrUnknownKind)

	_, _, err = execute(t, rt, "ledger", "vendors", "V-001", "--filter", "custom", "--from", "2024-02-01", "--to", "2024-01-01")
	require.ErrorIs(t, err, ledger.ErrInvalidRange)

	_, _, err = execute(t, rt, "ledger", "vendors", "V-001", "--format", "docx")
	require.Error(t, err)
}

func TestTrialBalanceReport(t *testing.T) {
	rt := newRuntime(t, &backend{})
	out, _, err := execute(t, rt, "report", "trial_balance")
	require.NoError(t, err)
	var doc reports.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Equal(t, reports.TypeTrialBalance, doc.Type)
	require.NotNil(t, doc.TrialBalance)

	out, _, err = execute(t, rt, "report", "trial-balance", "--format", "html")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(strings.TrimSpace(out), ".html"))
	require.True(t, strings.HasPrefix(strings.TrimSpace(out), rt.ExportDir))
}

func TestReportNeedsTypeOrSavedID(t *testing.T) {
	_, _, err := execute(t, newRuntime(t, &backend{}), "report")
	require.Error(t, err)
}

func TestStatementCommand(t *testing.T) {
	out, _, err := execute(t, newRuntime(t, &backend{}), "soa", "c1", "--from", "2024-01-01", "--to", "2024-01-31")
	require.NoError(t, err)
	var doc reports.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.NotNil(t, doc.Statement)
}

func TestVATCommands(t *testing.T) {
	b := &backend{saved: map[string]string{
		"vat-1": `{"_id":"vat-1","reportType":"vat","status":"DRAFT"}`,
		"vat-2": `{"_id":"vat-2","reportType":"vat","status":"SUBMITTED"}`,
	}}
	rt := newRuntime(t, b)

	out, errOut, err := execute(t, rt, "vat", "finalize", "vat-1")
	require.NoError(t, err)
	require.Equal(t, "vat-1 FINALIZED\n", out)
	require.Contains(t, errOut, "[success]")
	require.Equal(t, []string{"vat-1:finalize"}, b.transitions)

	_, _, err = execute(t, rt, "vat", "submit", "vat-2")
	require.ErrorIs(t, err, reports.ErrInvalidTransition)

	_, errOut, err = execute(t, rt, "vat", "delete", "vat-2")
	require.ErrorIs(t, err, reports.ErrNotDeletable)
	require.Contains(t, errOut, "Only draft")
	require.Empty(t, b.deleted)
}

func TestFailingCommandReleasesRuntime(t *testing.T) {
	b := &backend{saved: map[string]string{"vat-2": `{"_id":"vat-2","reportType":"vat","status":"SUBMITTED"}`}}
	rt := newRuntime(t, b)
	released := false
	root, cleanup := NewRootCommand(func(context.Context) (*Runtime, func(), error) {
		return rt, func() { released = true }, nil
	}, "test")
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"vat", "delete", "vat-2"})

	require.ErrorIs(t, root.Execute(), reports.ErrNotDeletable)
	require.False(t, released)
	cleanup()
	require.True(t, released)
}

func TestLoaderFailure(t *testing.T) {
	boom := errors.New("no backend")
	root, cleanup := NewRootCommand(func(context.Context) (*Runtime, func(), error) { return nil, nil, boom }, "test")
	defer cleanup()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"ledger", "vendors", "V-001"})
	require.ErrorIs(t, root.Execute(), boom)
}

type fakeClient struct {
	tasks []*asynq.Task
}

func (f *fakeClient) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t-1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func (f *fakeClient) Close() error { return nil }

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }
func (f fakeInspector) Close() error                                  { return nil }

func TestJobsCLI(t *testing.T) {
	client := &fakeClient{}
	c := &JobsCLI{client: client, inspector: fakeInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 2, Active: 1, Archived: 4}}}

	info, err := c.WarmCache(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, jobs.TaskReportsCacheWarm, info.Type)
	require.Len(t, client.tasks, 1)

	_, err = c.WarmCache(context.Background(), 0)
	require.Error(t, err)

	stats, err := c.InspectQueue()
	require.NoError(t, err)
	require.Equal(t, QueueStats{Queue: "default", Pending: 2, Active: 1, Failed: 4}, stats)

	c.inspector = fakeInspector{err: errors.New("redis down")}
	_, err = c.InspectQueue()
	require.Error(t, err)
	require.NoError(t, c.Close())
}

func TestJobsCLIRequiresRedis(t *testing.T) {
	_, err := NewJobsCLI(asynq.RedisClientOpt{})
	require.Error(t, err)
}
