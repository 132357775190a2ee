package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/coster/internal/domain"
)

// SettlementUseCase computes who should pay whom on a tab.
type SettlementUseCase struct {
	tabRepo TabRepository
	metrics MetricsRecorder
	logger  zerolog.Logger
}

// NewSettlementUseCase creates a new SettlementUseCase.
func NewSettlementUseCase(tabRepo TabRepository, metrics MetricsRecorder, logger zerolog.Logger) *SettlementUseCase {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &SettlementUseCase{
		tabRepo: tabRepo,
		metrics: metrics,
		logger:  logger,
	}
}

// Settle returns the payments that settle a tab.
func (uc *SettlementUseCase) Settle(ctx context.Context, id domain.TabID) ([]domain.Settlement, error) {
	tab, err := uc.tabRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	settlements, err := tab.BalanceTransactions()
	duration := time.Since(start)

	if err != nil {
		uc.metrics.SettlementFailed(failureReason(err))
		uc.logger.Warn().
			Err(err).
			Str("tab_id", string(id)).
			Msg("settlement failed")
		return nil, err
	}

	uc.metrics.SettlementComputed(duration, len(settlements))
	uc.logger.Info().
		Str("tab_id", string(id)).
		Int("expenses", len(tab.Expenses())).
		Int("settlements", len(settlements)).
		Dur("duration", duration).
		Msg("settlement computed")

	return settlements, nil
}

// Balances returns every user's difference from their fair share.
func (uc *SettlementUseCase) Balances(ctx context.Context, id domain.TabID) ([]domain.UserDifference, error) {
	tab, err := uc.tabRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return tab.Differences()
}

// failureReason maps a settlement error to a low-cardinality metric label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrCurrencyMismatch), errors.Is(err, domain.ErrNoExchangeRate):
		return "currency"
	case errors.Is(err, domain.ErrUserAccountNotOnTab), errors.Is(err, domain.ErrCategoryAccountNotOnTab):
		return "unknown_account"
	case errors.Is(err, domain.ErrInvalidAccountStatus):
		return "account_status"
	case errors.Is(err, domain.ErrInconsistentLedger), errors.Is(err, domain.ErrUnbalancedDifferences):
		return "inconsistent"
	case errors.Is(err, domain.ErrSettlementMismatch):
		return "verification"
	default:
		return "other"
	}
}
