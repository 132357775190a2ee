package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/coster/internal/domain"
)

// TabUseCase handles tab business logic.
type TabUseCase struct {
	tabRepo TabRepository
	idGen   IDGenerator
	metrics MetricsRecorder
	logger  zerolog.Logger
	locks   *tabLocks
}

// NewTabUseCase creates a new TabUseCase. A nil metrics recorder discards
// metrics.
func NewTabUseCase(tabRepo TabRepository, idGen IDGenerator, metrics MetricsRecorder, logger zerolog.Logger) *TabUseCase {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &TabUseCase{
		tabRepo: tabRepo,
		idGen:   idGen,
		metrics: metrics,
		logger:  logger,
		locks:   newTabLocks(),
	}
}

// CreateTabInput represents input for creating a tab.
type CreateTabInput struct {
	Name     string
	Currency string
	Users    []domain.User
}

// CreateTab creates a new tab with an initial set of users and no expenses.
func (uc *TabUseCase) CreateTab(ctx context.Context, input CreateTabInput) (*domain.Tab, error) {
	if err := domain.ValidateName(input.Name); err != nil {
		return nil, err
	}

	if len(input.Users) > domain.MaxTabUsers {
		return nil, fmt.Errorf("%w: limit is %d", domain.ErrTooManyUsers, domain.MaxTabUsers)
	}

	for _, u := range input.Users {
		if err := u.Validate(); err != nil {
			return nil, err
		}
	}

	tab, err := domain.NewTab(domain.TabID(uc.idGen.Generate()), input.Name, input.Currency, input.Users, nil)
	if err != nil {
		return nil, err
	}

	if err := uc.tabRepo.Create(ctx, tab); err != nil {
		return nil, err
	}

	uc.metrics.TabMutated(OperationCreateTab)
	uc.logger.Info().
		Str("tab_id", string(tab.ID)).
		Str("currency", tab.WorkingCurrency).
		Int("users", len(input.Users)).
		Msg("tab created")

	return tab, nil
}

// GetTab retrieves a tab by ID.
func (uc *TabUseCase) GetTab(ctx context.Context, id domain.TabID) (*domain.Tab, error) {
	return uc.tabRepo.Get(ctx, id)
}

// ListTabsInput represents input for listing tabs.
type ListTabsInput struct {
	Limit  int
	Offset int
}

// ListTabs lists tabs with pagination.
func (uc *TabUseCase) ListTabs(ctx context.Context, input ListTabsInput) ([]*domain.Tab, error) {
	if input.Limit <= 0 {
		input.Limit = DefaultTabsPageSize
	}
	if input.Limit > MaxTabsPageSize {
		input.Limit = MaxTabsPageSize
	}
	limit, offset, _ := domain.ValidatePagination(input.Limit, input.Offset)

	return uc.tabRepo.List(ctx, limit, offset)
}

// DeleteTab deletes a tab with its users and expenses.
func (uc *TabUseCase) DeleteTab(ctx context.Context, id domain.TabID) error {
	unlock := uc.locks.lock(id)
	defer unlock()

	if err := uc.tabRepo.Delete(ctx, id); err != nil {
		return err
	}

	uc.metrics.TabMutated(OperationDeleteTab)
	uc.logger.Info().Str("tab_id", string(id)).Msg("tab deleted")

	return nil
}

// AddUser adds a user to a tab.
func (uc *TabUseCase) AddUser(ctx context.Context, id domain.TabID, user domain.User) (*domain.Tab, error) {
	return uc.mutate(ctx, id, OperationAddUser, func(tab *domain.Tab) (domain.TabAction, error) {
		return domain.UserAction(domain.ActionAddUser, user.ID), tab.AddUser(user)
	})
}

// RemoveUser removes a user from a tab.
func (uc *TabUseCase) RemoveUser(ctx context.Context, id domain.TabID, userID domain.UserID) (*domain.Tab, error) {
	return uc.mutate(ctx, id, OperationRemoveUser, func(tab *domain.Tab) (domain.TabAction, error) {
		return domain.UserAction(domain.ActionRemoveUser, userID), tab.RemoveUser(userID)
	})
}

// AddExpenseInput represents input for recording an expense.
type AddExpenseInput struct {
	Description  string
	Category     domain.ExpenseCategory
	Date         *time.Time
	PaidBy       domain.UserID
	SharedBy     []domain.UserID
	Amount       domain.Money
	ExchangeRate *domain.ExchangeRate
}

// AddExpense records an expense on a tab. The expense id is assigned by the
// tab and the date defaults to now.
func (uc *TabUseCase) AddExpense(ctx context.Context, id domain.TabID, input AddExpenseInput) (domain.Expense, error) {
	date := time.Now().UTC()
	if input.Date != nil {
		date = input.Date.UTC()
	}

	var expense domain.Expense
	_, err := uc.mutate(ctx, id, OperationAddExpense, func(tab *domain.Tab) (domain.TabAction, error) {
		expense = domain.NewExpense(
			tab.NextExpenseID(),
			input.Description,
			input.Category,
			date,
			input.PaidBy,
			input.SharedBy,
			input.Amount,
			input.ExchangeRate,
		)
		return domain.ExpenseAction(domain.ActionAddExpense, expense.ID), tab.AddExpense(expense)
	})
	if err != nil {
		return domain.Expense{}, err
	}

	return expense, nil
}

// RemoveExpense removes an expense from a tab.
func (uc *TabUseCase) RemoveExpense(ctx context.Context, id domain.TabID, expenseID domain.ExpenseID) (*domain.Tab, error) {
	return uc.mutate(ctx, id, OperationRemoveExpense, func(tab *domain.Tab) (domain.TabAction, error) {
		return domain.ExpenseAction(domain.ActionRemoveExpense, expenseID), tab.RemoveExpense(expenseID)
	})
}

// ListActions returns the action log of a tab, oldest first.
func (uc *TabUseCase) ListActions(ctx context.Context, id domain.TabID) ([]domain.TabAction, error) {
	tab, err := uc.tabRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return tab.Actions(), nil
}

// GetUserAccount returns the ledger account of a user on a tab.
func (uc *TabUseCase) GetUserAccount(ctx context.Context, id domain.TabID, userID domain.UserID) (domain.Account, error) {
	tab, err := uc.tabRepo.Get(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}
	return tab.UserAccount(userID)
}

// GetCategoryAccount returns the ledger account of an expense category on a tab.
func (uc *TabUseCase) GetCategoryAccount(ctx context.Context, id domain.TabID, category domain.ExpenseCategory) (domain.Account, error) {
	tab, err := uc.tabRepo.Get(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}
	return tab.ExpenseCategoryAccount(category)
}

// mutate loads a tab, applies fn, logs the action fn describes and saves the
// result. Mutations of the same tab are serialized; a failing fn leaves the
// stored tab untouched.
//
// The actor from the context must be on the tab before or after the change.
func (uc *TabUseCase) mutate(
	ctx context.Context,
	id domain.TabID,
	operation string,
	fn func(tab *domain.Tab) (domain.TabAction, error),
) (*domain.Tab, error) {
	unlock := uc.locks.lock(id)
	defer unlock()

	tab, err := uc.tabRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	actor, hasActor := domain.ActorFromContext(ctx)
	actorBefore := hasActor && onTab(tab, actor)

	action, err := fn(tab)
	if err != nil {
		return nil, err
	}

	if hasActor {
		if !actorBefore && !onTab(tab, actor) {
			return nil, fmt.Errorf("%w: acting user %d on tab %s", domain.ErrUserNotOnTab, actor, id)
		}
		action.Actor = &actor
	}
	action.At = time.Now().UTC()
	action = tab.LogAction(action)

	if err := uc.tabRepo.Save(ctx, tab); err != nil {
		return nil, err
	}

	uc.metrics.TabMutated(operation)
	uc.logger.Debug().
		Str("tab_id", string(id)).
		Str("operation", operation).
		Int("users", len(tab.Users())).
		Int("expenses", len(tab.Expenses())).
		Int64("action", action.Seq).
		Msg("tab updated")

	return tab, nil
}

func onTab(tab *domain.Tab, userID domain.UserID) bool {
	_, err := tab.User(userID)
	return err == nil
}

// tabLocks hands out one mutex per tab id and forgets it once nobody holds it.
type tabLocks struct {
	mu    sync.Mutex
	locks map[domain.TabID]*tabLock
}

type tabLock struct {
	mu   sync.Mutex
	refs int
}

func newTabLocks() *tabLocks {
	return &tabLocks{locks: make(map[domain.TabID]*tabLock)}
}

func (l *tabLocks) lock(id domain.TabID) func() {
	l.mu.Lock()
	tl, ok := l.locks[id]
	if !ok {
		tl = &tabLock{}
		l.locks[id] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.mu.Lock()

	return func() {
		tl.mu.Unlock()

		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
