package domain

import (
	"errors"
	"fmt"
)

var (
	// Money errors
	ErrCurrencyMismatch = errors.New("cannot combine amounts of different currencies")
	ErrInvalidDivisor   = errors.New("divisor must be positive")
	ErrNoExchangeRate   = errors.New("no exchange rate for currency pair")
	ErrInvalidAmount    = errors.New("amount must be positive")

	// Ledger errors
	ErrInvalidAccountStatus      = errors.New("invalid account status")
	ErrMissingAccountState       = errors.New("missing account state")
	ErrDuplicateAccount          = errors.New("duplicate account")
	ErrMultipleBalancingPostings = errors.New("transaction has more than one posting without an amount")
	ErrUnbalancedTransaction     = errors.New("transaction postings do not sum to zero")
	ErrEmptyTransaction          = errors.New("transaction has no postings")
	ErrInconsistentLedger        = errors.New("ledger is inconsistent: account balances do not sum to zero")

	// Tab errors
	ErrUserNotOnTab            = errors.New("user does not exist on tab")
	ErrUserAccountNotOnTab     = errors.New("user account does not exist on tab")
	ErrCategoryAccountNotOnTab = errors.New("expense category account does not exist on tab")
	ErrUserAlreadyOnTab        = errors.New("user already exists on tab")
	ErrExpenseNotOnTab         = errors.New("expense does not exist on tab")
	ErrExpenseAlreadyOnTab     = errors.New("expense already exists on tab")
	ErrTabNotFound             = errors.New("tab not found")
	ErrTabAlreadyExists        = errors.New("tab already exists")

	// Expense errors
	ErrNoParticipants       = errors.New("expense must be shared by at least one user")
	ErrDuplicateParticipant = errors.New("expense participant listed more than once")
	ErrEmptyCategory        = errors.New("expense category cannot be empty")

	// Settlement errors
	ErrUnbalancedDifferences = errors.New("total debt does not equal total credit")
	ErrSettlementMismatch    = errors.New("settlements do not reproduce the shared balances")
	ErrSameUser              = errors.New("settlement sender and receiver must differ")
)

// CurrencyMismatchError reports the two currencies that were combined.
type CurrencyMismatchError struct {
	Left  string
	Right string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("%s: %s and %s", ErrCurrencyMismatch, e.Left, e.Right)
}

func (e *CurrencyMismatchError) Unwrap() error {
	return ErrCurrencyMismatch
}

// InvalidAccountStatusError is returned when a posting targets an account
// whose status does not accept postings.
type InvalidAccountStatusError struct {
	AccountID AccountID
	Status    AccountStatus
}

func (e *InvalidAccountStatusError) Error() string {
	return fmt.Sprintf("%s: account %s is %s", ErrInvalidAccountStatus, e.AccountID, e.Status)
}

func (e *InvalidAccountStatusError) Unwrap() error {
	return ErrInvalidAccountStatus
}

// MissingAccountStateError is returned when an account has no state in a
// program state or snapshot.
type MissingAccountStateError struct {
	AccountID AccountID
}

func (e *MissingAccountStateError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingAccountState, e.AccountID)
}

func (e *MissingAccountStateError) Unwrap() error {
	return ErrMissingAccountState
}
