package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/coster/internal/domain"
	"github.com/iho/coster/internal/usecase"
)

// AccountResponse represents a ledger account in API responses.
type AccountResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Currency string `json:"currency"`
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a domain.Account) AccountResponse {
	return AccountResponse{
		ID:       string(a.ID),
		Name:     a.Name,
		Category: a.Category,
		Currency: a.Currency,
	}
}

// TabResponse represents a tab in API responses.
type TabResponse struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	WorkingCurrency string            `json:"working_currency"`
	Users           []domain.User     `json:"users"`
	Expenses        []domain.Expense  `json:"expenses"`
	Accounts        []AccountResponse `json:"accounts"`
}

// TabFromDomain converts a domain tab to a response.
func TabFromDomain(t *domain.Tab) *TabResponse {
	accounts := t.Accounts()
	resp := &TabResponse{
		ID:              string(t.ID),
		Name:            t.Name,
		WorkingCurrency: t.WorkingCurrency,
		Users:           t.Users(),
		Expenses:        t.Expenses(),
		Accounts:        make([]AccountResponse, len(accounts)),
	}
	for i, a := range accounts {
		resp.Accounts[i] = AccountFromDomain(a)
	}
	return resp
}

// TabSummaryResponse represents a tab in list responses.
type TabSummaryResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	WorkingCurrency string `json:"working_currency"`
	Users           int    `json:"users"`
	Expenses        int    `json:"expenses"`
}

// TabsFromDomain converts domain tabs to summaries.
func TabsFromDomain(tabs []*domain.Tab) []TabSummaryResponse {
	result := make([]TabSummaryResponse, len(tabs))
	for i, t := range tabs {
		result[i] = TabSummaryResponse{
			ID:              string(t.ID),
			Name:            t.Name,
			WorkingCurrency: t.WorkingCurrency,
			Users:           len(t.Users()),
			Expenses:        len(t.Expenses()),
		}
	}
	return result
}

// SettlementResponse represents one payment in API responses.
type SettlementResponse struct {
	Sender   int64           `json:"sender"`
	Receiver int64           `json:"receiver"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Display  string          `json:"display"`
}

// SettlementsResponse lists the payments that settle a tab.
type SettlementsResponse struct {
	TabID       string               `json:"tab_id"`
	Settlements []SettlementResponse `json:"settlements"`
}

// SettlementsFromDomain converts settlements to a response.
func SettlementsFromDomain(tabID domain.TabID, settlements []domain.Settlement) *SettlementsResponse {
	resp := &SettlementsResponse{
		TabID:       string(tabID),
		Settlements: make([]SettlementResponse, len(settlements)),
	}
	for i, s := range settlements {
		resp.Settlements[i] = SettlementResponse{
			Sender:   int64(s.Sender),
			Receiver: int64(s.Receiver),
			Amount:   s.Amount.Amount(),
			Currency: s.Amount.Currency(),
			Display:  s.Amount.Display(),
		}
	}
	return resp
}

// BalanceResponse is a user's difference from their fair share.
type BalanceResponse struct {
	UserID   int64           `json:"user_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// BalancesResponse lists the balances of every user on a tab.
type BalancesResponse struct {
	TabID    string            `json:"tab_id"`
	Balances []BalanceResponse `json:"balances"`
}

// BalancesFromDomain converts user differences to a response.
func BalancesFromDomain(tabID domain.TabID, differences []domain.UserDifference) *BalancesResponse {
	resp := &BalancesResponse{
		TabID:    string(tabID),
		Balances: make([]BalanceResponse, len(differences)),
	}
	for i, d := range differences {
		resp.Balances[i] = BalanceResponse{
			UserID:   int64(d.UserID),
			Amount:   d.Amount.Amount(),
			Currency: d.Amount.Currency(),
		}
	}
	return resp
}

// ConsistencyResponse is the result of a ledger consistency check.
type ConsistencyResponse struct {
	TabID      string       `json:"tab_id"`
	ActualSum  domain.Money `json:"actual_sum"`
	SharedSum  domain.Money `json:"shared_sum"`
	Consistent bool         `json:"consistent"`
	CheckedAt  time.Time    `json:"checked_at"`
}

// ConsistencyFromUseCase converts a consistency report to a response.
func ConsistencyFromUseCase(r *usecase.ConsistencyReport) *ConsistencyResponse {
	return &ConsistencyResponse{
		TabID:      string(r.TabID),
		ActualSum:  r.ActualSum,
		SharedSum:  r.SharedSum,
		Consistent: r.Consistent,
		CheckedAt:  r.CheckedAt,
	}
}

// ActionResponse is one entry of a tab's action log.
type ActionResponse struct {
	Seq       int64                `json:"seq"`
	Type      domain.TabActionType `json:"type"`
	Actor     *int64               `json:"actor,omitempty"`
	UserID    *int64               `json:"user_id,omitempty"`
	ExpenseID *int64               `json:"expense_id,omitempty"`
	At        time.Time            `json:"at"`
}

// ActionsResponse lists the action log of a tab, oldest first.
type ActionsResponse struct {
	TabID   string           `json:"tab_id"`
	Actions []ActionResponse `json:"actions"`
}

// ActionsFromDomain converts an action log to a response.
func ActionsFromDomain(tabID domain.TabID, actions []domain.TabAction) *ActionsResponse {
	resp := &ActionsResponse{
		TabID:   string(tabID),
		Actions: make([]ActionResponse, len(actions)),
	}
	for i, a := range actions {
		item := ActionResponse{Seq: a.Seq, Type: a.Type, At: a.At}
		if a.Actor != nil {
			id := int64(*a.Actor)
			item.Actor = &id
		}
		if a.UserID != nil {
			id := int64(*a.UserID)
			item.UserID = &id
		}
		if a.ExpenseID != nil {
			id := int64(*a.ExpenseID)
			item.ExpenseID = &id
		}
		resp.Actions[i] = item
	}
	return resp
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
