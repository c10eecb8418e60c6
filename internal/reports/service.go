package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/nhfoods/ledgerdesk/internal/format"
	"github.com/nhfoods/ledgerdesk/internal/ledger"
	"github.com/nhfoods/ledgerdesk/internal/notify"
)

// Source is the backend surface the report service depends on.
type Source interface {
	GenerateReport(ctx context.Context, t Type, req PeriodRequest) (json.RawMessage, error)
	GenerateStatement(ctx context.Context, req StatementRequest) (json.RawMessage, error)
	SavedReports(ctx context.Context, t Type, limit int) ([]json.RawMessage, error)
	SavedReport(ctx context.Context, id string) (json.RawMessage, error)
	TransitionVAT(ctx context.Context, id string, action VATAction) (json.RawMessage, error)
	DeleteReport(ctx context.Context, id string) error
}

// AccountLister lists accounts of one kind for the trial balance.
type AccountLister interface {
	ListAccounts(ctx context.Context, kind ledger.Kind) ([]ledger.Account, error)
}

// ServiceConfig tunes the report service.
type ServiceConfig struct {
	Location *time.Location
	Clock    func() time.Time
}

// Service generates, loads and transitions reports.
type Service struct {
	source   Source
	accounts AccountLister
	cache    *Cache
	logger   *slog.Logger
	location *time.Location
	clock    func() time.Time
	flights  singleflight.Group
}

// NewService builds the report service. cache may be nil.
func NewService(source Source, accounts AccountLister, cache *Cache, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Service{
		source:   source,
		accounts: accounts,
		cache:    cache,
		logger:   logger,
		location: cfg.Location,
		clock:    cfg.Clock,
	}
}

func (s *Service) now() time.Time {
	return s.clock().In(s.location)
}

// share runs fn once for concurrent callers using the same key.
func (s *Service) share(ctx context.Context, key string, fn func(context.Context) (Document, error)) (Document, error) {
	ch := s.flights.DoChan(key, func() (interface{}, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return Document{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Document{}, res.Err
		}
		return res.Val.(Document), nil
	}
}

// Generate asks the backend for a period report and rebuilds it locally.
func (s *Service) Generate(ctx context.Context, t Type, req PeriodRequest, n notify.Notifier) (Document, error) {
	if !t.Generated() {
		return Document{}, fmt.Errorf("%w: %s is not generated from a period", ErrUnknownType, t)
	}
	if err := req.Validate(); err != nil {
		notify.Errorf(n, "%s", notify.Message(err))
		return Document{}, err
	}
	doc, err := s.share(ctx, "generate:"+string(t)+":"+req.Key()+fmt.Sprint(req.Save), func(ctx context.Context) (Document, error) {
		raw, err := s.source.GenerateReport(ctx, t, req)
		if err != nil {
			return Document{}, err
		}
		doc, err := DecodeDocument(t, raw)
		if err != nil {
			return Document{}, err
		}
		s.fillPeriod(&doc, req)
		if req.Save {
			if err := s.cache.Put(ctx, doc); err != nil {
				s.logger.Warn("cache saved report", slog.String("id", doc.ID), slog.Any("error", err))
			}
		}
		return doc, nil
	})
	if err != nil {
		s.logger.Error("generate report", slog.String("type", string(t)), slog.String("period", req.Label()), slog.Any("error", err))
		notify.Errorf(n, "Failed to generate %s: %s", t.Title(), notify.Message(err))
		return Document{}, err
	}
	s.warn(doc, n)
	if req.Save {
		notify.Successf(n, "%s for %s saved", t.Title(), doc.Period.Label)
	}
	return doc, nil
}

func (s *Service) fillPeriod(doc *Document, req PeriodRequest) {
	p := req.Period(s.location)
	if doc.Period.Label == "" {
		doc.Period.Label = p.Label
	}
	if doc.Period.From.IsZero() {
		doc.Period.From, doc.Period.To = p.From, p.To
	}
	if doc.Period.Year == 0 {
		doc.Period.Year, doc.Period.Month = p.Year, p.Month
	}
	if doc.GeneratedAt.IsZero() {
		doc.GeneratedAt = s.now()
	}
}

func (s *Service) warn(doc Document, n notify.Notifier) {
	for _, w := range doc.Warnings {
		s.logger.Warn("report total mismatch", slog.String("type", string(doc.Type)), slog.String("detail", w))
		notify.Warnf(n, "%s: %s", doc.Type.Title(), w)
	}
	if balanced, applies := doc.Balanced(); applies && !balanced {
		notify.Warnf(n, "%s is not balanced (difference %s)", doc.Type.Title(), format.Currency(doc.Difference(), ""))
	}
}

var trialBalanceKinds = []ledger.Kind{ledger.KindTransactor, ledger.KindCustomer, ledger.KindVendor, ledger.KindExpense}

// TrialBalance builds the trial balance from the current balances of every account.
func (s *Service) TrialBalance(ctx context.Context, n notify.Notifier) (Document, error) {
	doc, err := s.share(ctx, "trial-balance", func(ctx context.Context) (Document, error) {
		var (
			mu       sync.Mutex
			balances = make([][]AccountBalance, len(trialBalanceKinds))
		)
		g, gctx := errgroup.WithContext(ctx)
		for i, kind := range trialBalanceKinds {
			g.Go(func() error {
				accounts, err := s.accounts.ListAccounts(gctx, kind)
				if err != nil {
					return fmt.Errorf("list %s: %w", kind.Slug(), err)
				}
				rows := make([]AccountBalance, 0, len(accounts))
				for _, acc := range accounts {
					rows = append(rows, BalanceOf(acc))
				}
				mu.Lock()
				balances[i] = rows
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Document{}, err
		}
		var all []AccountBalance
		for _, rows := range balances {
			all = append(all, rows...)
		}
		now := s.now()
		tb := BuildTrialBalance(now, all)
		return Document{
			Type:         TypeTrialBalance,
			Period:       Period{Label: "As of " + format.DateLong(now), To: now, Year: now.Year()},
			GeneratedAt:  now,
			TrialBalance: &tb,
		}, nil
	})
	if err != nil {
		s.logger.Error("build trial balance", slog.Any("error", err))
		notify.Errorf(n, "Failed to build Trial Balance: %s", notify.Message(err))
		return Document{}, err
	}
	s.warn(doc, n)
	return doc, nil
}

// Statement generates one customer's statement of account.
func (s *Service) Statement(ctx context.Context, req StatementRequest, n notify.Notifier) (Document, error) {
	if err := req.Validate(); err != nil {
		notify.Errorf(n, "%s", notify.Message(err))
		return Document{}, err
	}
	doc, err := s.share(ctx, "statement:"+req.Key(), func(ctx context.Context) (Document, error) {
		raw, err := s.source.GenerateStatement(ctx, req)
		if err != nil {
			return Document{}, err
		}
		doc, err := DecodeDocument(TypeStatement, raw)
		if err != nil {
			return Document{}, err
		}
		if doc.GeneratedAt.IsZero() {
			doc.GeneratedAt = s.now()
		}
		if doc.Period.From.IsZero() {
			doc.Period.From = req.From
		}
		if doc.Period.To.IsZero() {
			doc.Period.To = req.To
		}
		if doc.Period.Label == "" {
			doc.Period.Label = statementLabel(doc.Period.From, doc.Period.To)
		}
		if doc.Period.Year == 0 {
			ref := doc.Period.To
			if ref.IsZero() {
				ref = doc.GeneratedAt
			}
			doc.Period.Year = ref.Year()
		}
		return doc, nil
	})
	if err != nil {
		s.logger.Error("generate statement", slog.String("customer", req.CustomerID), slog.Any("error", err))
		notify.Errorf(n, "Failed to generate Statement of Account: %s", notify.Message(err))
		return Document{}, err
	}
	s.warn(doc, n)
	return doc, nil
}

func statementLabel(from, to time.Time) string {
	switch {
	case from.IsZero() && to.IsZero():
		return "All transactions"
	case from.IsZero():
		return "Up to " + format.DateLong(to)
	case to.IsZero():
		return "From " + format.DateLong(from)
	}
	return format.DateLong(from) + " - " + format.DateLong(to)
}

// Saved lists saved reports of type t, newest first as returned by the backend.
func (s *Service) Saved(ctx context.Context, t Type, limit int, n notify.Notifier) ([]SavedSummary, error) {
	raws, err := s.source.SavedReports(ctx, t, limit)
	if err != nil {
		s.logger.Error("list saved reports", slog.String("type", string(t)), slog.Any("error", err))
		notify.Errorf(n, "Failed to load saved reports: %s", notify.Message(err))
		return []SavedSummary{}, err
	}
	out := make([]SavedSummary, 0, len(raws))
	for _, raw := range raws {
		doc, err := DecodeDocument(t, raw)
		if err != nil {
			s.logger.Warn("skip undecodable saved report", slog.Any("error", err))
			continue
		}
		out = append(out, doc.Summary())
	}
	return out, nil
}

// Load returns a saved report, from cache when possible.
func (s *Service) Load(ctx context.Context, id string, n notify.Notifier) (Document, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		s.logger.Error("load saved report", slog.String("id", id), slog.Any("error", err))
		notify.Errorf(n, "Failed to load report: %s", notify.Message(err))
		return Document{}, err
	}
	s.warn(doc, n)
	return doc, nil
}

func (s *Service) load(ctx context.Context, id string) (Document, error) {
	if id == "" {
		return Document{}, ErrNotFound
	}
	return s.cache.Document(ctx, id, func(ctx context.Context) (Document, error) {
		return s.fetch(ctx, id)
	})
}

func (s *Service) fetch(ctx context.Context, id string) (Document, error) {
	if id == "" {
		return Document{}, ErrNotFound
	}
	raw, err := s.source.SavedReport(ctx, id)
	if err != nil {
		return Document{}, err
	}
	doc, err := DecodeDocument("", raw)
	if err != nil {
		return Document{}, err
	}
	if doc.ID == "" {
		doc.ID = id
	}
	return doc, nil
}

// TransitionVAT moves a saved VAT report forward. The transition is checked locally
// before the backend is asked, so a disallowed change never leaves this process.
func (s *Service) TransitionVAT(ctx context.Context, id string, action VATAction, n notify.Notifier) (Document, error) {
	doc, err := s.vatDocument(ctx, id)
	if err != nil {
		notify.Errorf(n, "Failed to %s VAT report: %s", action, notify.Message(err))
		return Document{}, err
	}
	next, err := doc.VAT.Status.Transition(action)
	if err != nil {
		notify.Errorf(n, "Cannot %s a %s VAT report", action, doc.VAT.Status)
		return Document{}, err
	}
	raw, err := s.source.TransitionVAT(ctx, id, action)
	if err != nil {
		s.logger.Error("transition vat report", slog.String("id", id), slog.String("action", string(action)), slog.Any("error", err))
		notify.Errorf(n, "Failed to %s VAT report: %s", action, notify.Message(err))
		return Document{}, err
	}
	updated := doc
	if isObject(raw) {
		if decoded, err := DecodeDocument(TypeVAT, raw); err == nil && decoded.VAT != nil && decoded.VAT.Status == next {
			updated = decoded
			if updated.ID == "" {
				updated.ID = id
			}
			if updated.Period.Label == "" {
				updated.Period = doc.Period
			}
		}
	}
	if updated.VAT.Status != next {
		vat := *doc.VAT
		vat.Status = next
		updated.VAT = &vat
	}
	if err := s.cache.Forget(ctx, id); err != nil {
		s.logger.Warn("evict vat report", slog.String("id", id), slog.Any("error", err))
	}
	notify.Successf(n, "VAT report %s", statusVerb(next))
	return updated, nil
}

// DeleteVAT removes a draft VAT report.
func (s *Service) DeleteVAT(ctx context.Context, id string, n notify.Notifier) error {
	doc, err := s.vatDocument(ctx, id)
	if err != nil {
		notify.Errorf(n, "Failed to delete VAT report: %s", notify.Message(err))
		return err
	}
	if !doc.VAT.Status.CanDelete() {
		notify.Errorf(n, "Only draft VAT reports can be deleted")
		return ErrNotDeletable
	}
	if err := s.source.DeleteReport(ctx, id); err != nil {
		s.logger.Error("delete vat report", slog.String("id", id), slog.Any("error", err))
		notify.Errorf(n, "Failed to delete VAT report: %s", notify.Message(err))
		return err
	}
	if err := s.cache.Forget(ctx, id); err != nil {
		s.logger.Warn("evict vat report", slog.String("id", id), slog.Any("error", err))
	}
	notify.Successf(n, "VAT report deleted")
	return nil
}

// vatDocument reads the report straight from the backend so status checks never run
// against a cached copy, then refreshes the cached entry.
func (s *Service) vatDocument(ctx context.Context, id string) (Document, error) {
	doc, err := s.fetch(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if err := s.cache.Put(ctx, doc); err != nil {
		s.logger.Warn("refresh cached report", slog.String("id", id), slog.Any("error", err))
	}
	if doc.VAT == nil {
		return Document{}, fmt.Errorf("%w: %s is a %s report", ErrNotFound, id, doc.Type)
	}
	return doc, nil
}

// Warm drops every cached report and reloads the most recent saved reports of each
// generated type, so edits made on the backend since the last run are picked up.
func (s *Service) Warm(ctx context.Context, limit int) (int, error) {
	if err := s.cache.Bump(ctx); err != nil {
		return 0, fmt.Errorf("reset report cache: %w", err)
	}
	warmed := 0
	var errs []error
	for _, t := range []Type{TypeProfitLoss, TypeBalanceSheet, TypeVAT} {
		raws, err := s.source.SavedReports(ctx, t, limit)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
			continue
		}
		for _, raw := range raws {
			doc, err := DecodeDocument(t, raw)
			if err != nil || doc.ID == "" {
				continue
			}
			if err := s.cache.Put(ctx, doc); err != nil {
				errs = append(errs, err)
				continue
			}
			warmed++
		}
	}
	return warmed, errors.Join(errs...)
}

func statusVerb(s VATStatus) string {
	switch s {
	case VATFinalized:
		return "finalized"
	case VATSubmitted:
		return "submitted"
	}
	return "updated"
}
