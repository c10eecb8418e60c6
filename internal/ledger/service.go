package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nhfoods/ledgerdesk/internal/notify"
)

// Source provides accounts and raw entries, normally the backend REST client.
type Source interface {
	ListAccounts(ctx context.Context, kind Kind) ([]Account, error)
	Entries(ctx context.Context, acc Account, filter DateFilter) ([]Entry, error)
}

// ServiceConfig tunes the ledger service.
type ServiceConfig struct {
	Location *time.Location
	Clock    func() time.Time
}

// Service loads account ledgers and rebuilds their running balances.
type Service struct {
	source   Source
	gens     *Generations
	logger   *slog.Logger
	location *time.Location
	clock    func() time.Time
}

// NewService builds a Service.
func NewService(source Source, logger *slog.Logger, cfg ServiceConfig) *Service {
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
		gens:     NewGenerations(),
		logger:   logger,
		location: cfg.Location,
		clock:    cfg.Clock,
	}
}

// Now returns the service clock in the configured location.
func (s *Service) Now() time.Time {
	return s.clock().In(s.location)
}

// Accounts lists the accounts of one kind. Failures are reported to n.
func (s *Service) Accounts(ctx context.Context, kind Kind, n notify.Notifier) ([]Account, error) {
	accounts, err := s.source.ListAccounts(ctx, kind)
	if err != nil {
		s.logger.Error("list accounts", slog.String("kind", string(kind)), slog.Any("error", err))
		notify.Errorf(n, "Failed to load %s: %s", kind.Slug(), notify.Message(err))
		return []Account{}, err
	}
	return accounts, nil
}

// Account finds one account by internal id or display code.
func (s *Service) Account(ctx context.Context, ref AccountRef) (Account, error) {
	accounts, err := s.source.ListAccounts(ctx, ref.Kind)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSpace(ref.ID)
	for _, acc := range accounts {
		base := acc.Base()
		if base.InternalID == id || base.ID == id {
			return acc, nil
		}
	}
	return nil, fmt.Errorf("%w: %s %s", ErrAccountNotFound, ref.Kind, id)
}

// Load fetches and reconstructs one account ledger. view identifies the screen asking
// for it: a newer Load for the same view cancels this one, and a response that arrives
// after being superseded is discarded with ErrSuperseded. On fetch failure a notice is
// pushed to n and an empty ledger is returned together with the error.
func (s *Service) Load(ctx context.Context, view string, ref AccountRef, filter DateFilter, n notify.Notifier) (Ledger, error) {
	tok := Token{}
	if view != "" {
		var release func()
		ctx, tok, release = s.gens.Begin(ctx, view)
		defer release()
	}

	acc, err := s.Account(ctx, ref)
	if err != nil {
		if !tok.Current() {
			return Ledger{}, ErrSuperseded
		}
		s.logger.Error("load ledger account", slog.String("kind", string(ref.Kind)), slog.String("id", ref.ID), slog.Any("error", err))
		notify.Errorf(n, "Failed to load account: %s", notify.Message(err))
		return Ledger{Filter: filter, Transactions: []Transaction{}}, err
	}

	entries, err := s.source.Entries(ctx, acc, filter)
	if !tok.Current() {
		return Ledger{}, ErrSuperseded
	}
	if err != nil {
		s.logger.Error("load ledger entries", slog.String("kind", string(ref.Kind)), slog.String("id", ref.ID), slog.Any("error", err))
		notify.Errorf(n, "Failed to fetch transactions: %s", notify.Message(err))
		return emptyLedger(acc, filter), err
	}

	filtered := entries
	if acc.Kind() != KindExpense {
		filtered, err = FilterByDate(entries, filter, s.Now())
		if err != nil {
			return emptyLedger(acc, filter), err
		}
	}
	l, err := BuildLedger(acc, filtered, filter, s.location)
	if err != nil {
		return emptyLedger(acc, filter), err
	}
	if acc.Kind() != KindExpense {
		l.Skipped = countUndated(entries)
	}
	if l.Skipped > 0 {
		s.logger.Warn("ledger entries without a valid date skipped", slog.String("id", ref.ID), slog.Int("skipped", l.Skipped))
		notify.Warnf(n, "%d transaction(s) without a valid date were left out", l.Skipped)
	}
	return l, nil
}

func emptyLedger(acc Account, filter DateFilter) Ledger {
	opening := acc.Base().OpeningBalance
	return Ledger{
		Account:      acc,
		Filter:       filter,
		DebitNormal:  DebitNormal(acc),
		Opening:      opening,
		Transactions: []Transaction{},
		TotalDebit:   decimal.Zero,
		TotalCredit:  decimal.Zero,
		Closing:      opening,
	}
}

func countUndated(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if !e.Dated() {
			n++
		}
	}
	return n
}
