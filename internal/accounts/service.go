package accounts

import (
	"context"
	"log/slog"

	"github.com/nhfoods/ledgerdesk/internal/ledger"
	"github.com/nhfoods/ledgerdesk/internal/notify"
)

// Store reads and writes accounts, normally the backend client.
type Store interface {
	ListAccounts(ctx context.Context, kind ledger.Kind) ([]ledger.Account, error)
	SaveAccount(ctx context.Context, acc ledger.Account) (ledger.Account, error)
}

// Service validates account edits before they reach the store.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService builds a Service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// List returns the accounts of kind. On failure the error is reported to n and an
// empty list is returned with it.
func (s *Service) List(ctx context.Context, kind ledger.Kind, n notify.Notifier) ([]ledger.Account, error) {
	accs, err := s.store.ListAccounts(ctx, kind)
	if err != nil {
		s.logger.Error("list accounts", slog.String("kind", string(kind)), slog.Any("error", err))
		notify.Errorf(n, "Failed to load %s: %s", kind.Slug(), notify.Message(err))
		return []ledger.Account{}, err
	}
	return accs, nil
}

// Save validates in and creates or updates the account. Invalid input never reaches
// the store; a *ValidationError is returned instead.
func (s *Service) Save(ctx context.Context, kind ledger.Kind, internalID string, in Input, n notify.Notifier) (ledger.Account, error) {
	if err := in.Validate(kind); err != nil {
		notify.Errorf(n, "Please correct the form: %s", notify.Message(err))
		return nil, err
	}
	acc, err := in.Account(kind, internalID)
	if err != nil {
		return nil, err
	}
	saved, err := s.store.SaveAccount(ctx, acc)
	if err != nil {
		s.logger.Error("save account", slog.String("kind", string(kind)), slog.String("id", internalID), slog.Any("error", err))
		notify.Errorf(n, "Failed to save %s: %s", in.Name, notify.Message(err))
		return nil, err
	}
	verb := "created"
	if internalID != "" {
		verb = "updated"
	}
	s.logger.Info("account saved", slog.String("kind", string(kind)), slog.String("id", saved.Base().InternalID), slog.String("action", verb))
	notify.Successf(n, "%s %s", saved.Base().Name, verb)
	return saved, nil
}
