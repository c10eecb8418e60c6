package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nhfoods/ledgerdesk/internal/ledger"
	"github.com/nhfoods/ledgerdesk/internal/notify"
	_ "github.com/nhfoods/ledgerdesk/testing"
)

type fakeStore struct {
	saved   []ledger.Account
	saveErr error
	listErr error
}

func (f *fakeStore) ListAccounts(context.Context, ledger.Kind) ([]ledger.Account, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.saved, nil
}

func (f *fakeStore) SaveAccount(_ context.Context, acc ledger.Account) (ledger.Account, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saved = append(f.saved, acc)
	if acc.Base().InternalID == "" {
		if c, ok := acc.(ledger.Customer); ok {
			c.InternalID = "new-1"
			return c, nil
		}
	}
	return acc, nil
}

func TestValidateReportsEveryField(t *testing.T) {
	in := Input{Name: "  ", TRN: "12AB", Email: "not-an-email", Category: "vault"}
	err := in.Validate(ledger.KindTransactor)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.ErrorIs(t, err, ErrInvalid)
	require.Equal(t, "name is required", ve.Fields["name"])
	require.Equal(t, "trn must be exactly 15 characters", ve.Fields["trn"])
	require.Equal(t, "email must be a valid email address", ve.Fields["email"])
	require.Equal(t, "accountCategory must be one of: bank, cash, other", ve.Fields["accountCategory"])
	require.Equal(t, "accountType is required", ve.Fields["accountType"])
}

func TestValidateNormalisesInput(t *testing.T) {
	in := Input{Name: " Main Bank ", AccountType: "Asset", Category: "BANK"}
	require.NoError(t, in.Validate(ledger.KindTransactor))
	require.Equal(t, "Main Bank", in.Name)
	require.Equal(t, ledger.TypeAsset, in.AccountType)
	require.Equal(t, ledger.CategoryBank, in.Category)

	exp := Input{Name: "Rent"}
	require.NoError(t, exp.Validate(ledger.KindExpense))
	require.Equal(t, ledger.TypeExpense, exp.AccountType)

	exp = Input{Name: "Rent", AccountType: "income"}
	require.Error(t, exp.Validate(ledger.KindExpense))

	neg := Input{Name: "Blue Sea", CreditLimit: decimal.NewNullDecimal(decimal.NewFromInt(-1))}
	require.Error(t, neg.Validate(ledger.KindCustomer))

	require.ErrorIs(t, (&Input{Name: "x"}).Validate("Bank"), ledger.ErrUnknownKind)
}

func TestAccountBuildsVariant(t *testing.T) {
	in := Input{Name: "Gulf Traders", TRN: "100200300400003", Phone: "+971"}
	acc, err := in.Account(ledger.KindVendor, "v1")
	require.NoError(t, err)
	v, ok := acc.(ledger.Vendor)
	require.True(t, ok)
	require.Equal(t, "v1", v.InternalID)
	require.Equal(t, ledger.StatusActive, v.Status)
	require.Equal(t, "100200300400003", v.TRN)
	require.False(t, ledger.DebitNormal(acc))
}

func TestServiceSaveBlocksInvalidInput(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, nil)
	q := notify.NewQueue(0)

	_, err := svc.Save(context.Background(), ledger.KindCustomer, "", Input{Email: "bad"}, q)
	require.ErrorIs(t, err, ErrInvalid)
	require.Empty(t, store.saved)
	notices := q.Drain()
	require.Len(t, notices, 1)
	require.Equal(t, notify.LevelError, notices[0].Level)
	require.Contains(t, notices[0].Message, "name is required")
}

func TestServiceSaveCreatesAndUpdates(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, nil)
	q := notify.NewQueue(0)
	ctx := context.Background()

	acc, err := svc.Save(ctx, ledger.KindCustomer, "", Input{Name: "Blue Sea"}, q)
	require.NoError(t, err)
	require.Equal(t, "new-1", acc.Base().InternalID)
	require.Equal(t, "Blue Sea created", q.Drain()[0].Message)

	_, err = svc.Save(ctx, ledger.KindCustomer, "new-1", Input{Name: "Blue Sea LLC"}, q)
	require.NoError(t, err)
	require.Equal(t, "Blue Sea LLC updated", q.Drain()[0].Message)
	require.Len(t, store.saved, 2)
}

func TestServiceFailuresNotify(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("timeout"), listErr: errors.New("offline")}
	svc := NewService(store, nil)
	q := notify.NewQueue(0)
	ctx := context.Background()

	_, err := svc.Save(ctx, ledger.KindVendor, "", Input{Name: "Gulf Traders"}, q)
	require.Error(t, err)
	require.Equal(t, notify.LevelError, q.Drain()[0].Level)

	accs, err := svc.List(ctx, ledger.KindVendor, q)
	require.Error(t, err)
	require.NotNil(t, accs)
	require.Empty(t, accs)
	require.Equal(t, 1, q.Len())
}
