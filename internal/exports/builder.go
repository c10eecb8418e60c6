package exports

import (
	"context"
	"fmt"

	"github.com/nhfoods/ledgerdesk/internal/ledger"
	"github.com/nhfoods/ledgerdesk/internal/notify"
	"github.com/nhfoods/ledgerdesk/internal/reports"
	"github.com/nhfoods/ledgerdesk/internal/reports/export"
)

// Documents loads the data behind a request and lays it out for export.
type Documents struct {
	Reports *reports.Service
	Ledgers *ledger.Service
	Company export.Company
}

// Build implements Builder.
func (d Documents) Build(ctx context.Context, req Request, n notify.Notifier) (export.Workbook, error) {
	switch req.Source {
	case SourceReport:
		if d.Reports == nil {
			return export.Workbook{}, fmt.Errorf("exports: report service not configured")
		}
		doc, err := d.report(ctx, req, n)
		if err != nil {
			return export.Workbook{}, err
		}
		return export.Layout(d.Company, doc)
	case SourceStatement:
		if d.Reports == nil {
			return export.Workbook{}, fmt.Errorf("exports: report service not configured")
		}
		sreq, err := req.Statement()
		if err != nil {
			return export.Workbook{}, err
		}
		doc, err := d.Reports.Statement(ctx, sreq, n)
		if err != nil {
			return export.Workbook{}, err
		}
		return export.Layout(d.Company, doc)
	case SourceLedger:
		if d.Ledgers == nil {
			return export.Workbook{}, fmt.Errorf("exports: ledger service not configured")
		}
		filter, err := req.DateFilter()
		if err != nil {
			return export.Workbook{}, err
		}
		ref := ledger.AccountRef{Kind: ledger.Kind(req.AccountKind), ID: req.AccountID}
		l, err := d.Ledgers.Load(ctx, "", ref, filter, n)
		if err != nil {
			return export.Workbook{}, err
		}
		now := d.Ledgers.Now()
		return export.LedgerWorkbook(d.Company, l, now, filter.Label(now)), nil
	}
	return export.Workbook{}, fmt.Errorf("%w: source %q", ErrInvalid, req.Source)
}

func (d Documents) report(ctx context.Context, req Request, n notify.Notifier) (reports.Document, error) {
	switch {
	case req.SavedID != "":
		return d.Reports.Load(ctx, req.SavedID, n)
	case req.ReportType == reports.TypeTrialBalance:
		return d.Reports.TrialBalance(ctx, n)
	case req.Period == nil:
		return reports.Document{}, fmt.Errorf("%w: period is required", ErrInvalid)
	}
	return d.Reports.Generate(ctx, req.ReportType, *req.Period, n)
}
