package domain

import (
	"fmt"
	"time"
)

// ExpenseID identifies an expense within a tab.
type ExpenseID int64

// ExpenseCategory groups expenses; each category gets its own account.
type ExpenseCategory string

// AccountIndex resolves the ledger accounts of users and expense categories.
type AccountIndex interface {
	UserAccount(userID UserID) (Account, error)
	ExpenseCategoryAccount(category ExpenseCategory) (Account, error)
}

// Expense is a cost paid by one user and shared by a list of users.
type Expense struct {
	ID           ExpenseID       `json:"id"`
	Description  string          `json:"description"`
	Category     ExpenseCategory `json:"category"`
	Date         time.Time       `json:"date"`
	PaidBy       UserID          `json:"paid_by"`
	SharedBy     []UserID        `json:"shared_by"`
	Amount       Money           `json:"amount"`
	ExchangeRate *ExchangeRate   `json:"exchange_rate,omitempty"`
}

// NewExpense creates an expense.
func NewExpense(
	id ExpenseID,
	description string,
	category ExpenseCategory,
	date time.Time,
	paidBy UserID,
	sharedBy []UserID,
	amount Money,
	rate *ExchangeRate,
) Expense {
	return Expense{
		ID:           id,
		Description:  description,
		Category:     category,
		Date:         date,
		PaidBy:       paidBy,
		SharedBy:     sharedBy,
		Amount:       amount,
		ExchangeRate: rate,
	}
}

// Validate checks the expense on its own, without a tab.
func (e Expense) Validate() error {
	if err := ValidateCategory(string(e.Category)); err != nil {
		return err
	}

	if err := ValidateCurrency(e.Amount.Currency()); err != nil {
		return err
	}

	if err := ValidateAmount(e.Amount.Amount()); err != nil {
		return err
	}

	if len(e.SharedBy) == 0 {
		return ErrNoParticipants
	}

	seen := make(map[UserID]bool, len(e.SharedBy))
	for _, id := range e.SharedBy {
		if seen[id] {
			return fmt.Errorf("%w: %d", ErrDuplicateParticipant, id)
		}
		seen[id] = true
	}

	return nil
}

// ActualTransaction is the transaction that really happened: the payer's
// account is debited the full amount and the category account balances it.
func (e Expense) ActualTransaction(index AccountIndex) (Transaction, error) {
	payer, err := index.UserAccount(e.PaidBy)
	if err != nil {
		return Transaction{}, err
	}

	category, err := index.ExpenseCategoryAccount(e.Category)
	if err != nil {
		return Transaction{}, err
	}

	return NewTransaction(e.Description, e.Date, []Posting{
		NewPosting(payer.ID, e.Amount.Neg(), e.ExchangeRate),
		NewBalancingPosting(category.ID, e.ExchangeRate),
	}), nil
}

// SharedTransaction is the transaction as it would be if every participant
// had paid an equal share. The category account absorbs any rounding residue.
func (e Expense) SharedTransaction(index AccountIndex) (Transaction, error) {
	if len(e.SharedBy) == 0 {
		return Transaction{}, ErrNoParticipants
	}

	share, err := e.Amount.DivInt(int64(len(e.SharedBy)))
	if err != nil {
		return Transaction{}, err
	}
	share = share.Neg()

	postings := make([]Posting, 0, len(e.SharedBy)+1)
	for _, userID := range e.SharedBy {
		account, err := index.UserAccount(userID)
		if err != nil {
			return Transaction{}, err
		}
		postings = append(postings, NewPosting(account.ID, share, e.ExchangeRate))
	}

	category, err := index.ExpenseCategoryAccount(e.Category)
	if err != nil {
		return Transaction{}, err
	}
	postings = append(postings, NewBalancingPosting(category.ID, e.ExchangeRate))

	return NewTransaction(e.Description, e.Date, postings), nil
}

// Involves reports whether the user paid for or shares the expense.
func (e Expense) Involves(userID UserID) bool {
	if e.PaidBy == userID {
		return true
	}
	for _, id := range e.SharedBy {
		if id == userID {
			return true
		}
	}
	return false
}
