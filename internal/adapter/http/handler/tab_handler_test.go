package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/coster/internal/adapter/http/dto"
	"github.com/iho/coster/internal/domain"
	"github.com/iho/coster/internal/usecase"
)

type tabServiceStub struct {
	createFn             func(ctx context.Context, input usecase.CreateTabInput) (*domain.Tab, error)
	getFn                func(ctx context.Context, id domain.TabID) (*domain.Tab, error)
	listFn               func(ctx context.Context, input usecase.ListTabsInput) ([]*domain.Tab, error)
	deleteFn             func(ctx context.Context, id domain.TabID) error
	addUserFn            func(ctx context.Context, id domain.TabID, user domain.User) (*domain.Tab, error)
	removeUserFn         func(ctx context.Context, id domain.TabID, userID domain.UserID) (*domain.Tab, error)
	addExpenseFn         func(ctx context.Context, id domain.TabID, input usecase.AddExpenseInput) (domain.Expense, error)
	removeExpenseFn      func(ctx context.Context, id domain.TabID, expenseID domain.ExpenseID) (*domain.Tab, error)
	getUserAccountFn     func(ctx context.Context, id domain.TabID, userID domain.UserID) (domain.Account, error)
	getCategoryAccountFn func(ctx context.Context, id domain.TabID, category domain.ExpenseCategory) (domain.Account, error)
	listActionsFn        func(ctx context.Context, id domain.TabID) ([]domain.TabAction, error)
}

func (s *tabServiceStub) CreateTab(ctx context.Context, input usecase.CreateTabInput) (*domain.Tab, error) {
	return s.createFn(ctx, input)
}

func (s *tabServiceStub) GetTab(ctx context.Context, id domain.TabID) (*domain.Tab, error) {
	return s.getFn(ctx, id)
}

func (s *tabServiceStub) ListTabs(ctx context.Context, input usecase.ListTabsInput) ([]*domain.Tab, error) {
	return s.listFn(ctx, input)
}

func (s *tabServiceStub) DeleteTab(ctx context.Context, id domain.TabID) error {
	return s.deleteFn(ctx, id)
}

func (s *tabServiceStub) AddUser(ctx context.Context, id domain.TabID, user domain.User) (*domain.Tab, error) {
	return s.addUserFn(ctx, id, user)
}

func (s *tabServiceStub) RemoveUser(ctx context.Context, id domain.TabID, userID domain.UserID) (*domain.Tab, error) {
	return s.removeUserFn(ctx, id, userID)
}

func (s *tabServiceStub) AddExpense(ctx context.Context, id domain.TabID, input usecase.AddExpenseInput) (domain.Expense, error) {
	return s.addExpenseFn(ctx, id, input)
}

func (s *tabServiceStub) RemoveExpense(ctx context.Context, id domain.TabID, expenseID domain.ExpenseID) (*domain.Tab, error) {
	return s.removeExpenseFn(ctx, id, expenseID)
}

func (s *tabServiceStub) GetUserAccount(ctx context.Context, id domain.TabID, userID domain.UserID) (domain.Account, error) {
	return s.getUserAccountFn(ctx, id, userID)
}

func (s *tabServiceStub) GetCategoryAccount(ctx context.Context, id domain.TabID, category domain.ExpenseCategory) (domain.Account, error) {
	return s.getCategoryAccountFn(ctx, id, category)
}

func (s *tabServiceStub) ListActions(ctx context.Context, id domain.TabID) ([]domain.TabAction, error) {
	return s.listActionsFn(ctx, id)
}

func newTestTab(t *testing.T) *domain.Tab {
	t.Helper()

	tab, err := domain.NewTab("tab-1", "Camping", "AUD",
		[]domain.User{domain.NewUser(1, "Alice", ""), domain.NewUser(2, "Bob", "")},
		[]domain.Expense{
			domain.NewExpense(0, "Tent", "Gear", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), 1,
				[]domain.UserID{1, 2}, domain.MustParseMoney("80 AUD"), nil),
		},
	)
	if err != nil {
		t.Fatalf("failed to create tab: %v", err)
	}
	return tab
}

func tabRouter(h *TabHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/tabs", h.Create)
	r.Get("/tabs", h.List)
	r.Get("/tabs/{id}", h.Get)
	r.Delete("/tabs/{id}", h.Delete)
	r.Post("/tabs/{id}/users", h.AddUser)
	r.Delete("/tabs/{id}/users/{userID}", h.RemoveUser)
	r.Get("/tabs/{id}/users/{userID}/account", h.GetUserAccount)
	r.Get("/tabs/{id}/categories/{category}/account", h.GetCategoryAccount)
	r.Post("/tabs/{id}/expenses", h.AddExpense)
	r.Delete("/tabs/{id}/expenses/{expenseID}", h.RemoveExpense)
	r.Get("/tabs/{id}/actions", h.ListActions)
	return r
}

func TestTabHandler_Create_Success(t *testing.T) {
	var captured usecase.CreateTabInput
	h := NewTabHandler(&tabServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateTabInput) (*domain.Tab, error) {
			captured = input
			return newTestTab(t), nil
		},
	})

	body, _ := json.Marshal(dto.CreateTabRequest{
		Name:     "Camping",
		Currency: "AUD",
		Users:    []dto.UserRequest{{ID: 1, Name: "Alice"}, {ID: 2, Name: "Bob"}},
	})

	rec := httptest.NewRecorder()
	tabRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tabs", bytes.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if captured.Name != "Camping" || len(captured.Users) != 2 {
		t.Fatalf("expected input to match request, got %+v", captured)
	}

	var resp dto.TabResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "tab-1" || len(resp.Accounts) != 3 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Accounts[2].ID != "expense:Gear" {
		t.Fatalf("expected category account last, got %+v", resp.Accounts)
	}
}

func TestTabHandler_Create_ValidationError(t *testing.T) {
	h := NewTabHandler(&tabServiceStub{})

	rec := httptest.NewRecorder()
	tabRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tabs", strings.NewReader(`{"currency":"AUD"}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Fields["name"] != "required" {
		t.Fatalf("expected name field error, got %+v", resp)
	}
}

func TestTabHandler_Create_InvalidJSON(t *testing.T) {
	h := NewTabHandler(&tabServiceStub{})

	rec := httptest.NewRecorder()
	tabRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tabs", strings.NewReader("{")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTabHandler_Get_NotFound(t *testing.T) {
	h := NewTabHandler(&tabServiceStub{
		getFn: func(ctx context.Context, id domain.TabID) (*domain.Tab, error) {
			if id != "missing" {
				t.Fatalf("unexpected id %s", id)
			}
			return nil, domain.ErrTabNotFound
		},
	})

	rec := httptest.NewRecorder()
	tabRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tabs/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestTabHandler_List(t *testing.T) {
	var captured usecase.ListTabsInput
	h := NewTabHandler(&tabServiceStub{
		listFn: func(ctx context.Context, input usecase.ListTabsInput) ([]*domain.Tab, error) {
			captured = input
			return []*domain.Tab{newTestTab(t)}, nil
		},
	})

	rec := httptest.NewRecorder()
	tabRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tabs?limit=5&offset=10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured.Limit != 5 || captured.Offset != 10 {
		t.Fatalf("expected pagination to be parsed, got %+v", captured)
	}

	var resp []dto.TabSummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].Users != 2 || resp[0].Expenses != 1 {
		t.Fatalf("unexpected summaries %+v", resp)
	}
}

func TestTabHandler_Delete(t *testing.T) {
	h := NewTabHandler(&tabServiceStub{
		deleteFn: func(ctx context.Context, id domain.TabID) error { return nil },
	})

	rec := httptest.NewRecorder()
	tabRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/tabs/tab-1", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestTabHandler_AddUser_Conflict(t *testing.T) {
	h := NewTabHandler(&tabServiceStub{
		addUserFn: func(ctx context.Context, id domain.TabID, user domain.User) (*domain.Tab, error) {
			if user.ID != 2 || user.Name != "Bob" {
				t.Fatalf("unexpected user %+v", user)
			}
			return nil, domain.ErrUserAlreadyOnTab
		},
	})

	rec := httptest.NewRecorder()
	tabRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tabs/tab-1/users", strings.NewReader(`{"id":2,"name":"Bob"}`)))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestTabHandler_RemoveUser(t *testing.T) {
	h := NewTabHandler(&tabServiceStub{
		removeUserFn: func(ctx context.Context, id domain.TabID, userID domain.UserID) (*domain.Tab, error) {
			if userID != 2 {
				t.Fatalf("unexpected user id %d", userID)
			}
			return newTestTab(t), nil
		},
	})

	rec := httptest.NewRecorder()
	tabRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/tabs/tab-1/users/2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	tabRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/tabs/tab-1/users/abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad user id, got %d", rec.Code)
	}
}

func TestTabHandler_Accounts(t *testing.T) {
	tab := newTestTab(t)
	h := NewTabHandler(&tabServiceStub{
		getUserAccountFn: func(ctx context.Context, id domain.TabID, userID domain.UserID) (domain.Account, error) {
			return tab.UserAccount(userID)
		},
		getCategoryAccountFn: func(ctx context.Context, id domain.TabID, category domain.ExpenseCategory) (domain.Account, error) {
			return tab.ExpenseCategoryAccount(category)
		},
	})

	rec := httptest.NewRecorder()
	tabRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tabs/tab-1/users/1/account", nil))

	var account dto.AccountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &account); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if rec.Code != http.StatusOK || account.ID != "user:1" || account.Name != "User-1-Alice" {
		t.Fatalf("unexpected user account %d %+v", rec.Code, account)
	}

	rec = httptest.NewRecorder()
	tabRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tabs/tab-1/categories/Food/account", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown category, got %d", rec.Code)
	}
}

func TestTabHandler_AddExpense(t *testing.T) {
	var captured usecase.AddExpenseInput
	h := NewTabHandler(&tabServiceStub{
		addExpenseFn: func(ctx context.Context, id domain.TabID, input usecase.AddExpenseInput) (domain.Expense, error) {
			captured = input
			return domain.NewExpense(1, input.Description, input.Category, time.Now(), input.PaidBy, input.SharedBy, input.Amount, nil), nil
		},
	})

	body := `{"description":"Firewood","category":"Gear","paid_by":2,"shared_by":[1,2],"amount":"15.50","currency":"AUD"}`
	rec := httptest.NewRecorder()
	tabRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tabs/tab-1/expenses", strings.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !captured.Amount.Amount().Equal(decimal.RequireFromString("15.5")) || captured.Amount.Currency() != "AUD" || captured.PaidBy != 2 {
		t.Fatalf("unexpected input %+v", captured)
	}
}

func TestTabHandler_AddExpense_UnknownPayer(t *testing.T) {
	h := NewTabHandler(&tabServiceStub{
		addExpenseFn: func(ctx context.Context, id domain.TabID, input usecase.AddExpenseInput) (domain.Expense, error) {
			return domain.Expense{}, domain.ErrUserNotOnTab
		},
	})

	body := `{"category":"Gear","paid_by":9,"shared_by":[1],"amount":"1","currency":"AUD"}`
	rec := httptest.NewRecorder()
	tabRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tabs/tab-1/expenses", strings.NewReader(body)))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestTabHandler_RemoveExpense(t *testing.T) {
	h := NewTabHandler(&tabServiceStub{
		removeExpenseFn: func(ctx context.Context, id domain.TabID, expenseID domain.ExpenseID) (*domain.Tab, error) {
			return nil, domain.ErrExpenseNotOnTab
		},
	})

	rec := httptest.NewRecorder()
	tabRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/tabs/tab-1/expenses/7", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestTabHandler_ListActions(t *testing.T) {
	at := time.Date(2022, 1, 2, 8, 0, 0, 0, time.UTC)
	actor := domain.UserID(1)
	added := domain.ExpenseAction(domain.ActionAddExpense, 0)
	added.Seq, added.Actor, added.At = 1, &actor, at

	h := NewTabHandler(&tabServiceStub{
		listActionsFn: func(ctx context.Context, id domain.TabID) ([]domain.TabAction, error) {
			if id != "tab-1" {
				return nil, domain.ErrTabNotFound
			}
			return []domain.TabAction{added}, nil
		},
	})

	rec := httptest.NewRecorder()
	tabRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tabs/tab-1/actions", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.ActionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TabID != "tab-1" || len(resp.Actions) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	got := resp.Actions[0]
	if got.Seq != 1 || got.Type != domain.ActionAddExpense || got.Actor == nil || *got.Actor != 1 ||
		got.ExpenseID == nil || *got.ExpenseID != 0 || got.UserID != nil || !got.At.Equal(at) {
		t.Fatalf("unexpected action %+v", got)
	}

	rec = httptest.NewRecorder()
	tabRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tabs/missing/actions", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestTabHandler_AddExpense_CurrencyMismatch(t *testing.T) {
	h := NewTabHandler(&tabServiceStub{
		addExpenseFn: func(ctx context.Context, id domain.TabID, input usecase.AddExpenseInput) (domain.Expense, error) {
			return domain.Expense{}, &domain.CurrencyMismatchError{Left: input.Amount.Currency(), Right: "AUD"}
		},
	})

	body := `{"category":"Gear","paid_by":1,"shared_by":[1],"amount":"10","currency":"USD"}`
	rec := httptest.NewRecorder()
	tabRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tabs/tab-1/expenses", strings.NewReader(body)))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}
