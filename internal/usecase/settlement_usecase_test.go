package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/coster/internal/domain"
	"github.com/iho/coster/internal/usecase"
	"github.com/iho/coster/internal/usecase/mocks"
)

var picnicDate = time.Date(2020, time.January, 5, 0, 0, 0, 0, time.UTC)

func picnicTab(t *testing.T) *domain.Tab {
	t.Helper()

	users := []domain.User{
		domain.NewUser(1, "Alice", ""),
		domain.NewUser(2, "Bob", ""),
		domain.NewUser(3, "Carol", ""),
	}
	expenses := []domain.Expense{
		domain.NewExpense(1, "Cheese", "Food", picnicDate, 1, []domain.UserID{1, 2, 3}, domain.MustParseMoney("300.00 AUD"), nil),
		domain.NewExpense(2, "Pickles", "Food", picnicDate, 1, []domain.UserID{2, 3}, domain.MustParseMoney("500.00 AUD"), nil),
		domain.NewExpense(3, "Buns", "Food", picnicDate, 2, []domain.UserID{1, 2, 3}, domain.MustParseMoney("100.00 AUD"), nil),
	}

	tab, err := domain.NewTab("picnic", "Picnic", "AUD", users, expenses)
	require.NoError(t, err)
	return tab
}

func TestSettlementUseCase_Settle(t *testing.T) {
	ctrl := gomock.NewController(t)

	repo := mocks.NewMockTabRepository(ctrl)
	metrics := mocks.NewMockMetricsRecorder(ctrl)

	repo.EXPECT().Get(gomock.Any(), domain.TabID("picnic")).Return(picnicTab(t), nil)
	metrics.EXPECT().SettlementComputed(gomock.Any(), 2)

	uc := usecase.NewSettlementUseCase(repo, metrics, zerolog.Nop())
	settlements, err := uc.Settle(context.Background(), "picnic")
	require.NoError(t, err)
	require.Len(t, settlements, 2)

	tolerance := domain.MustParseMoney("0.0001 AUD").Amount()
	assert.Equal(t, domain.UserID(3), settlements[0].Sender)
	assert.Equal(t, domain.UserID(1), settlements[0].Receiver)
	assert.True(t, settlements[0].Amount.EqualApprox(domain.MustParseMoney("383.3333 AUD"), tolerance))
	assert.Equal(t, domain.UserID(2), settlements[1].Sender)
	assert.True(t, settlements[1].Amount.EqualApprox(domain.MustParseMoney("283.3333 AUD"), tolerance))
}

func TestSettlementUseCase_SettleFailure(t *testing.T) {
	ctrl := gomock.NewController(t)

	repo := mocks.NewMockTabRepository(ctrl)
	metrics := mocks.NewMockMetricsRecorder(ctrl)

	tab := picnicTab(t)
	require.NoError(t, tab.RemoveUser(3))

	repo.EXPECT().Get(gomock.Any(), domain.TabID("picnic")).Return(tab, nil)
	metrics.EXPECT().SettlementFailed("unknown_account")

	uc := usecase.NewSettlementUseCase(repo, metrics, zerolog.Nop())
	_, err := uc.Settle(context.Background(), "picnic")
	assert.ErrorIs(t, err, domain.ErrUserAccountNotOnTab)
}

func TestSettlementUseCase_TabNotFound(t *testing.T) {
	repo := mocks.NewFakeTabRepository()
	uc := usecase.NewSettlementUseCase(repo, nil, zerolog.Nop())

	_, err := uc.Settle(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrTabNotFound)

	_, err = uc.Balances(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrTabNotFound)
}

func TestSettlementUseCase_Balances(t *testing.T) {
	repo := mocks.NewFakeTabRepository()
	require.NoError(t, repo.Create(context.Background(), picnicTab(t)))

	uc := usecase.NewSettlementUseCase(repo, mocks.NewFakeMetrics(), zerolog.Nop())
	balances, err := uc.Balances(context.Background(), "picnic")
	require.NoError(t, err)
	require.Len(t, balances, 3)

	sum := domain.Zero("AUD")
	for _, b := range balances {
		sum, err = sum.Add(b.Amount)
		require.NoError(t, err)
	}
	assert.True(t, sum.IsZeroApprox(domain.DefaultEpsilon))
	assert.True(t, balances[0].Amount.IsPositive())
	assert.True(t, balances[1].Amount.IsNegative())
}

func TestSettlementUseCase_RepositoryError(t *testing.T) {
	repo := mocks.NewFakeTabRepository()
	dbErr := errors.New("db down")
	repo.GetFunc = func(ctx context.Context, id domain.TabID) (*domain.Tab, error) {
		return nil, dbErr
	}

	uc := usecase.NewSettlementUseCase(repo, nil, zerolog.Nop())
	_, err := uc.Settle(context.Background(), "picnic")
	assert.ErrorIs(t, err, dbErr)
}
