package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AccountID identifies an account within a tab or program state.
type AccountID string

// Account represents a ledger account that can hold a balance.
// Accounts are immutable values; balances live in AccountState.
type Account struct {
	ID       AccountID
	Name     string
	Category string
	Currency string
}

// NewAccount creates an account holding amounts of the given currency.
func NewAccount(id AccountID, name, category, currency string) Account {
	return Account{
		ID:       id,
		Name:     name,
		Category: category,
		Currency: normalizeCurrency(currency),
	}
}

// AccountStatus controls whether an account accepts postings.
type AccountStatus int

const (
	AccountStatusOpen AccountStatus = iota
	AccountStatusClosed
)

func (s AccountStatus) String() string {
	switch s {
	case AccountStatusOpen:
		return "open"
	case AccountStatusClosed:
		return "closed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// AccountState is the runtime balance and status of an account while a
// program executes.
type AccountState struct {
	Account Account
	Balance Money
	Status  AccountStatus
}

// NewAccountState creates a zero-balance state for account.
func NewAccountState(account Account, status AccountStatus) AccountState {
	return AccountState{
		Account: account,
		Balance: Zero(account.Currency),
		Status:  status,
	}
}

// ValidatePosting checks that the account accepts postings.
func (s *AccountState) ValidatePosting() error {
	if s.Status != AccountStatusOpen {
		return &InvalidAccountStatusError{AccountID: s.Account.ID, Status: s.Status}
	}
	return nil
}

// ApplyPosting returns the balance after adding amount.
func (s *AccountState) ApplyPosting(amount Money) (Money, error) {
	return s.Balance.Add(amount)
}

// EqualApprox reports whether two states hold the same balance within epsilon.
func (s AccountState) EqualApprox(other AccountState, epsilon decimal.Decimal) bool {
	return s.Balance.EqualApprox(other.Balance, epsilon)
}
