package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/iho/coster/internal/domain"
)

const indexKey = "tabs"

func tabKey(id domain.TabID) string {
	return indexKey + "/" + string(id)
}

func usersKey(id domain.TabID) string {
	return tabKey(id) + "/users"
}

func userKey(id domain.TabID, userID domain.UserID) string {
	return fmt.Sprintf("%s/users/%d", tabKey(id), userID)
}

func expensesKey(id domain.TabID) string {
	return tabKey(id) + "/expenses"
}

func expenseKey(id domain.TabID, expenseID domain.ExpenseID) string {
	return fmt.Sprintf("%s/expenses/%d", tabKey(id), expenseID)
}

func actionsKey(id domain.TabID) string {
	return tabKey(id) + "/actions"
}

type tabHeader struct {
	ID              domain.TabID `json:"id"`
	Name            string       `json:"name"`
	WorkingCurrency string       `json:"working_currency"`
}

// TabRepository implements usecase.TabRepository on top of a Store.
//
// A tab is spread over several keys: a header, the list of user ids, one
// key per user, the list of expense ids, one key per expense and the action
// log. The "tabs" key lists every tab id in creation order.
type TabRepository struct {
	store Store

	// mu serialises writes to the tab index.
	mu sync.Mutex
}

// NewTabRepository creates a new TabRepository.
func NewTabRepository(store Store) *TabRepository {
	return &TabRepository{store: store}
}

// Create stores a new tab.
func (r *TabRepository) Create(ctx context.Context, tab *domain.Tab) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := r.index(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == tab.ID {
			return fmt.Errorf("%w: %s", domain.ErrTabAlreadyExists, tab.ID)
		}
	}

	ops, err := tabOps(tab)
	if err != nil {
		return err
	}

	indexOp, err := putJSON(indexKey, append(ids, tab.ID))
	if err != nil {
		return err
	}

	return r.store.WriteBatch(ctx, append(ops, indexOp))
}

// Get loads a tab and rebuilds its account index.
func (r *TabRepository) Get(ctx context.Context, id domain.TabID) (*domain.Tab, error) {
	var header tabHeader
	if err := r.getJSON(ctx, tabKey(id), &header); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTabNotFound, id)
		}
		return nil, err
	}

	userIDs, expenseIDs, err := r.members(ctx, id)
	if err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(userIDs))
	for _, userID := range userIDs {
		var u domain.User
		if err := r.getJSON(ctx, userKey(id, userID), &u); err != nil {
			return nil, fmt.Errorf("failed to load user %d of tab %s: %w", userID, id, err)
		}
		users = append(users, u)
	}

	expenses := make([]domain.Expense, 0, len(expenseIDs))
	for _, expenseID := range expenseIDs {
		var e domain.Expense
		if err := r.getJSON(ctx, expenseKey(id, expenseID), &e); err != nil {
			return nil, fmt.Errorf("failed to load expense %d of tab %s: %w", expenseID, id, err)
		}
		expenses = append(expenses, e)
	}

	var actions []domain.TabAction
	if err := r.getJSON(ctx, actionsKey(id), &actions); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to load actions of tab %s: %w", id, err)
	}

	return domain.TabFromRecord(domain.TabRecord{
		ID:              header.ID,
		Name:            header.Name,
		WorkingCurrency: header.WorkingCurrency,
		Users:           users,
		Expenses:        expenses,
		Actions:         actions,
	})
}

// Save overwrites a stored tab, its action log included. Keys of users and
// expenses that are no longer on the tab are removed in the same batch.
func (r *TabRepository) Save(ctx context.Context, tab *domain.Tab) error {
	exists, err := r.exists(ctx, tab.ID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrTabNotFound, tab.ID)
	}

	oldUsers, oldExpenses, err := r.members(ctx, tab.ID)
	if err != nil {
		return err
	}

	ops, err := tabOps(tab)
	if err != nil {
		return err
	}

	current := make(map[domain.UserID]bool)
	for _, u := range tab.Users() {
		current[u.ID] = true
	}
	for _, userID := range oldUsers {
		if !current[userID] {
			ops = append(ops, Delete(userKey(tab.ID, userID)))
		}
	}

	currentExpenses := make(map[domain.ExpenseID]bool)
	for _, e := range tab.Expenses() {
		currentExpenses[e.ID] = true
	}
	for _, expenseID := range oldExpenses {
		if !currentExpenses[expenseID] {
			ops = append(ops, Delete(expenseKey(tab.ID, expenseID)))
		}
	}

	return r.store.WriteBatch(ctx, ops)
}

// Delete removes a tab and all of its keys.
func (r *TabRepository) Delete(ctx context.Context, id domain.TabID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := r.index(ctx)
	if err != nil {
		return err
	}

	remaining := make([]domain.TabID, 0, len(ids))
	found := false
	for _, existing := range ids {
		if existing == id {
			found = true
			continue
		}
		remaining = append(remaining, existing)
	}
	if !found {
		return fmt.Errorf("%w: %s", domain.ErrTabNotFound, id)
	}

	userIDs, expenseIDs, err := r.members(ctx, id)
	if err != nil {
		return err
	}

	ops := []Op{Delete(tabKey(id)), Delete(usersKey(id)), Delete(expensesKey(id)), Delete(actionsKey(id))}
	for _, userID := range userIDs {
		ops = append(ops, Delete(userKey(id, userID)))
	}
	for _, expenseID := range expenseIDs {
		ops = append(ops, Delete(expenseKey(id, expenseID)))
	}

	indexOp, err := putJSON(indexKey, remaining)
	if err != nil {
		return err
	}

	return r.store.WriteBatch(ctx, append(ops, indexOp))
}

// List returns tabs in creation order.
func (r *TabRepository) List(ctx context.Context, limit, offset int) ([]*domain.Tab, error) {
	ids, err := r.index(ctx)
	if err != nil {
		return nil, err
	}

	if offset >= len(ids) {
		return []*domain.Tab{}, nil
	}
	ids = ids[offset:]
	if limit < len(ids) {
		ids = ids[:limit]
	}

	tabs := make([]*domain.Tab, 0, len(ids))
	for _, id := range ids {
		tab, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		tabs = append(tabs, tab)
	}

	return tabs, nil
}

func (r *TabRepository) index(ctx context.Context) ([]domain.TabID, error) {
	var ids []domain.TabID
	if err := r.getJSON(ctx, indexKey, &ids); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to load tab index: %w", err)
	}
	return ids, nil
}

func (r *TabRepository) exists(ctx context.Context, id domain.TabID) (bool, error) {
	_, err := r.store.Get(ctx, tabKey(id))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// members returns the user and expense ids stored for a tab. Missing lists
// are empty.
func (r *TabRepository) members(ctx context.Context, id domain.TabID) ([]domain.UserID, []domain.ExpenseID, error) {
	var userIDs []domain.UserID
	if err := r.getJSON(ctx, usersKey(id), &userIDs); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, nil, fmt.Errorf("failed to load users of tab %s: %w", id, err)
	}

	var expenseIDs []domain.ExpenseID
	if err := r.getJSON(ctx, expensesKey(id), &expenseIDs); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, nil, fmt.Errorf("failed to load expenses of tab %s: %w", id, err)
	}

	return userIDs, expenseIDs, nil
}

func (r *TabRepository) getJSON(ctx context.Context, key string, v any) error {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// tabOps returns the puts that write every key of a tab.
func tabOps(tab *domain.Tab) ([]Op, error) {
	users := tab.Users()
	expenses := tab.Expenses()
	ops := make([]Op, 0, 4+len(users)+len(expenses))

	op, err := putJSON(tabKey(tab.ID), tabHeader{
		ID:              tab.ID,
		Name:            tab.Name,
		WorkingCurrency: tab.WorkingCurrency,
	})
	if err != nil {
		return nil, err
	}
	ops = append(ops, op)

	userIDs := make([]domain.UserID, 0, len(users))
	for _, u := range users {
		op, err := putJSON(userKey(tab.ID, u.ID), u)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		userIDs = append(userIDs, u.ID)
	}

	expenseIDs := make([]domain.ExpenseID, 0, len(expenses))
	for _, e := range expenses {
		op, err := putJSON(expenseKey(tab.ID, e.ID), e)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		expenseIDs = append(expenseIDs, e.ID)
	}

	if op, err = putJSON(usersKey(tab.ID), userIDs); err != nil {
		return nil, err
	}
	ops = append(ops, op)

	if op, err = putJSON(expensesKey(tab.ID), expenseIDs); err != nil {
		return nil, err
	}
	ops = append(ops, op)

	actions := tab.Actions()
	if actions == nil {
		actions = []domain.TabAction{}
	}
	if op, err = putJSON(actionsKey(tab.ID), actions); err != nil {
		return nil, err
	}
	ops = append(ops, op)

	return ops, nil
}

func putJSON(key string, v any) (Op, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Op{}, fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return Put(key, data), nil
}
