package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/coster/internal/domain"
	"github.com/iho/coster/internal/usecase"
)

// UserRequest represents a user in requests.
type UserRequest struct {
	ID    int64  `json:"id"              validate:"gte=0"`
	Name  string `json:"name"            validate:"required,max=255"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// ToDomain converts to a domain user.
func (r UserRequest) ToDomain() domain.User {
	return domain.NewUser(domain.UserID(r.ID), r.Name, r.Email)
}

// CreateTabRequest represents a request to create a tab.
type CreateTabRequest struct {
	Name     string        `json:"name"     validate:"required,max=255"`
	Currency string        `json:"currency" validate:"required,len=3,alpha"`
	Users    []UserRequest `json:"users"    validate:"max=256,dive"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateTabRequest) ToUseCaseInput() usecase.CreateTabInput {
	users := make([]domain.User, len(r.Users))
	for i, u := range r.Users {
		users[i] = u.ToDomain()
	}
	return usecase.CreateTabInput{
		Name:     r.Name,
		Currency: r.Currency,
		Users:    users,
	}
}

// ExchangeRateRequest quotes currencies against a base currency.
type ExchangeRateRequest struct {
	Base  string                     `json:"base"           validate:"required,len=3,alpha"`
	Date  *time.Time                 `json:"date,omitempty"`
	Rates map[string]decimal.Decimal `json:"rates"          validate:"required,min=1,dive,keys,len=3,alpha,endkeys"`
}

// ToDomain converts to a domain exchange rate.
func (r *ExchangeRateRequest) ToDomain() *domain.ExchangeRate {
	rate := domain.NewExchangeRate(r.Base, r.Date)
	for quote, value := range r.Rates {
		rate.WithRate(quote, value)
	}
	return rate
}

// AddExpenseRequest represents a request to add an expense to a tab.
type AddExpenseRequest struct {
	Description  string               `json:"description"             validate:"max=255"`
	Category     string               `json:"category"                validate:"required,max=64"`
	Date         *time.Time           `json:"date,omitempty"`
	PaidBy       int64                `json:"paid_by"                 validate:"gte=0"`
	SharedBy     []int64              `json:"shared_by"               validate:"required,min=1,unique,dive,gte=0"`
	Amount       decimal.Decimal      `json:"amount"`
	Currency     string               `json:"currency"                validate:"required,len=3,alpha"`
	ExchangeRate *ExchangeRateRequest `json:"exchange_rate,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *AddExpenseRequest) ToUseCaseInput() usecase.AddExpenseInput {
	sharedBy := make([]domain.UserID, len(r.SharedBy))
	for i, id := range r.SharedBy {
		sharedBy[i] = domain.UserID(id)
	}

	input := usecase.AddExpenseInput{
		Description: r.Description,
		Category:    domain.ExpenseCategory(r.Category),
		Date:        r.Date,
		PaidBy:      domain.UserID(r.PaidBy),
		SharedBy:    sharedBy,
		Amount:      domain.NewMoney(r.Amount, r.Currency),
	}
	if r.ExchangeRate != nil {
		input.ExchangeRate = r.ExchangeRate.ToDomain()
	}
	return input
}

// PaginationRequest represents pagination parameters.
type PaginationRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
