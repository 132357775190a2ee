package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/coster/internal/domain"
)

// LedgerUseCase handles ledger-wide checks of a tab.
type LedgerUseCase struct {
	tabRepo TabRepository
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(tabRepo TabRepository) *LedgerUseCase {
	return &LedgerUseCase{
		tabRepo: tabRepo,
	}
}

// ConsistencyReport is the outcome of a ledger consistency check.
type ConsistencyReport struct {
	TabID      domain.TabID
	ActualSum  domain.Money
	SharedSum  domain.Money
	Consistent bool
	CheckedAt  time.Time
}

// CheckConsistency executes the actual and shared programs of a tab and
// verifies that both leave account balances summing to zero. An inconsistent
// ledger yields a report and domain.ErrInconsistentLedger.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context, id domain.TabID) (*ConsistencyReport, error) {
	tab, err := uc.tabRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	actual, shared, err := tab.CheckConsistency()
	report := &ConsistencyReport{
		TabID:      id,
		ActualSum:  actual,
		SharedSum:  shared,
		Consistent: err == nil,
		CheckedAt:  time.Now().UTC(),
	}

	if err != nil {
		if errors.Is(err, domain.ErrInconsistentLedger) {
			return report, err
		}
		return nil, err
	}

	return report, nil
}
