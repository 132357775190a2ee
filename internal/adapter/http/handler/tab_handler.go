package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/coster/internal/adapter/http/dto"
	"github.com/iho/coster/internal/domain"
	"github.com/iho/coster/internal/usecase"
)

// TabService defines the behavior needed by TabHandler.
type TabService interface {
	CreateTab(ctx context.Context, input usecase.CreateTabInput) (*domain.Tab, error)
	GetTab(ctx context.Context, id domain.TabID) (*domain.Tab, error)
	ListTabs(ctx context.Context, input usecase.ListTabsInput) ([]*domain.Tab, error)
	DeleteTab(ctx context.Context, id domain.TabID) error
	AddUser(ctx context.Context, id domain.TabID, user domain.User) (*domain.Tab, error)
	RemoveUser(ctx context.Context, id domain.TabID, userID domain.UserID) (*domain.Tab, error)
	AddExpense(ctx context.Context, id domain.TabID, input usecase.AddExpenseInput) (domain.Expense, error)
	RemoveExpense(ctx context.Context, id domain.TabID, expenseID domain.ExpenseID) (*domain.Tab, error)
	GetUserAccount(ctx context.Context, id domain.TabID, userID domain.UserID) (domain.Account, error)
	GetCategoryAccount(ctx context.Context, id domain.TabID, category domain.ExpenseCategory) (domain.Account, error)
	ListActions(ctx context.Context, id domain.TabID) ([]domain.TabAction, error)
}

// TabHandler handles tab, user and expense requests.
type TabHandler struct {
	tabUC TabService
}

// NewTabHandler creates a new TabHandler.
func NewTabHandler(tabUC TabService) *TabHandler {
	return &TabHandler{tabUC: tabUC}
}

// Create creates a new tab.
func (h *TabHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTabRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	tab, err := h.tabUC.CreateTab(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to create tab", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TabFromDomain(tab))
}

// Get retrieves a tab by ID.
func (h *TabHandler) Get(w http.ResponseWriter, r *http.Request) {
	tab, err := h.tabUC.GetTab(r.Context(), tabIDParam(r))
	if err != nil {
		writeDomainError(w, "failed to get tab", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TabFromDomain(tab))
}

// List lists tabs.
func (h *TabHandler) List(w http.ResponseWriter, r *http.Request) {
	tabs, err := h.tabUC.ListTabs(r.Context(), usecase.ListTabsInput{
		Limit:  parseIntQuery(r, "limit", usecase.DefaultTabsPageSize),
		Offset: parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, "failed to list tabs", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TabsFromDomain(tabs))
}

// Delete deletes a tab.
func (h *TabHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.tabUC.DeleteTab(r.Context(), tabIDParam(r)); err != nil {
		writeDomainError(w, "failed to delete tab", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddUser adds a user to a tab.
func (h *TabHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	var req dto.UserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	tab, err := h.tabUC.AddUser(r.Context(), tabIDParam(r), req.ToDomain())
	if err != nil {
		writeDomainError(w, "failed to add user", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TabFromDomain(tab))
}

// RemoveUser removes a user from a tab.
func (h *TabHandler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	userID, err := int64Param(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	tab, err := h.tabUC.RemoveUser(r.Context(), tabIDParam(r), domain.UserID(userID))
	if err != nil {
		writeDomainError(w, "failed to remove user", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TabFromDomain(tab))
}

// GetUserAccount returns the ledger account of a user.
func (h *TabHandler) GetUserAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := int64Param(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	account, err := h.tabUC.GetUserAccount(r.Context(), tabIDParam(r), domain.UserID(userID))
	if err != nil {
		writeDomainError(w, "failed to get user account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// GetCategoryAccount returns the ledger account of an expense category.
func (h *TabHandler) GetCategoryAccount(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	if category == "" {
		writeError(w, http.StatusBadRequest, "missing category", "")
		return
	}

	account, err := h.tabUC.GetCategoryAccount(r.Context(), tabIDParam(r), domain.ExpenseCategory(category))
	if err != nil {
		writeDomainError(w, "failed to get category account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// AddExpense adds an expense to a tab.
func (h *TabHandler) AddExpense(w http.ResponseWriter, r *http.Request) {
	var req dto.AddExpenseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	expense, err := h.tabUC.AddExpense(r.Context(), tabIDParam(r), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to add expense", err)
		return
	}

	writeJSON(w, http.StatusCreated, expense)
}

// RemoveExpense removes an expense from a tab.
func (h *TabHandler) RemoveExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, err := int64Param(r, "expenseID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense ID", err.Error())
		return
	}

	tab, err := h.tabUC.RemoveExpense(r.Context(), tabIDParam(r), domain.ExpenseID(expenseID))
	if err != nil {
		writeDomainError(w, "failed to remove expense", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TabFromDomain(tab))
}

// ListActions returns the action log of a tab.
func (h *TabHandler) ListActions(w http.ResponseWriter, r *http.Request) {
	id := tabIDParam(r)

	actions, err := h.tabUC.ListActions(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to list actions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ActionsFromDomain(id, actions))
}
