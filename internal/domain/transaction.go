package domain

import (
	"fmt"
	"time"
)

// Posting moves an amount into (positive) or out of (negative) an account.
// A posting without an amount is the balancing leg of its transaction.
type Posting struct {
	AccountID    AccountID
	Amount       *Money
	ExchangeRate *ExchangeRate
}

// NewPosting creates a posting with an explicit amount.
func NewPosting(accountID AccountID, amount Money, rate *ExchangeRate) Posting {
	return Posting{AccountID: accountID, Amount: &amount, ExchangeRate: rate}
}

// NewBalancingPosting creates a posting whose amount is inferred when the
// transaction executes.
func NewBalancingPosting(accountID AccountID, rate *ExchangeRate) Posting {
	return Posting{AccountID: accountID, ExchangeRate: rate}
}

// IsBalancing reports whether the posting omits its amount.
func (p Posting) IsBalancing() bool {
	return p.Amount == nil
}

// Transaction is an atomic, dated group of postings.
type Transaction struct {
	Description string
	Date        time.Time
	Postings    []Posting
}

// NewTransaction creates a transaction.
func NewTransaction(description string, date time.Time, postings []Posting) Transaction {
	return Transaction{
		Description: description,
		Date:        date,
		Postings:    postings,
	}
}

// NewSimpleTransaction moves amount from one account to another. The sender
// posting carries -amount and the receiver is the balancing leg.
func NewSimpleTransaction(description string, date time.Time, from, to AccountID, amount Money, rate *ExchangeRate) Transaction {
	return NewTransaction(description, date, []Posting{
		NewPosting(from, amount.Neg(), rate),
		NewBalancingPosting(to, rate),
	})
}

// Posting returns the first posting against the account.
func (t Transaction) Posting(accountID AccountID) (Posting, bool) {
	for _, p := range t.Postings {
		if p.AccountID == accountID {
			return p, true
		}
	}
	return Posting{}, false
}

// Validate checks the shape of the transaction.
func (t Transaction) Validate() error {
	if len(t.Postings) == 0 {
		return ErrEmptyTransaction
	}

	balancing := 0
	for _, p := range t.Postings {
		if p.IsBalancing() {
			balancing++
		}
	}
	if balancing > 1 {
		return fmt.Errorf("%w: %d postings", ErrMultipleBalancingPostings, balancing)
	}

	return nil
}

// ResolvedPosting is a posting with its final amount in the account's currency.
type ResolvedPosting struct {
	AccountID AccountID
	Amount    Money
}

// Resolve computes the amount of every posting against the accounts known to
// state. Explicit amounts are converted with their exchange rate; the
// balancing leg receives the negated sum of the others, so the resolved
// postings always net to zero.
func (t Transaction) Resolve(state *ProgramState) ([]ResolvedPosting, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	resolved := make([]ResolvedPosting, len(t.Postings))
	balancingIndex := -1

	var sum *Money
	for i, p := range t.Postings {
		account, err := state.account(p.AccountID)
		if err != nil {
			return nil, err
		}

		if p.IsBalancing() {
			balancingIndex = i
			continue
		}

		amount := *p.Amount
		if p.ExchangeRate != nil {
			amount, err = p.ExchangeRate.Convert(amount, account.Currency)
			if err != nil {
				return nil, err
			}
		}

		if sum == nil {
			s := amount
			sum = &s
		} else {
			s, err := sum.Add(amount)
			if err != nil {
				return nil, err
			}
			sum = &s
		}

		resolved[i] = ResolvedPosting{AccountID: p.AccountID, Amount: amount}
	}

	if balancingIndex < 0 {
		if sum != nil && !sum.IsZeroApprox(DefaultEpsilon) {
			return nil, fmt.Errorf("%w: residual %s", ErrUnbalancedTransaction, sum)
		}
		return resolved, nil
	}

	p := t.Postings[balancingIndex]
	account, _ := state.account(p.AccountID)

	amount := Zero(account.Currency)
	if sum != nil {
		amount = sum.Neg()
	}
	if amount.Currency() != account.Currency {
		if p.ExchangeRate == nil {
			return nil, &CurrencyMismatchError{Left: amount.Currency(), Right: account.Currency}
		}
		converted, err := p.ExchangeRate.Convert(amount, account.Currency)
		if err != nil {
			return nil, err
		}
		amount = converted
	}

	resolved[balancingIndex] = ResolvedPosting{AccountID: p.AccountID, Amount: amount}

	return resolved, nil
}

// Perform applies the transaction to state. Every posting is resolved and
// checked before any balance changes, so a rejected transaction leaves all
// accounts untouched.
func (t Transaction) Perform(state *ProgramState) error {
	resolved, err := t.Resolve(state)
	if err != nil {
		return err
	}

	pending := make(map[AccountID]Money, len(resolved))
	for _, rp := range resolved {
		s := state.states[rp.AccountID]
		if err := s.ValidatePosting(); err != nil {
			return err
		}

		balance, ok := pending[rp.AccountID]
		if !ok {
			balance = s.Balance
		}

		balance, err = balance.Add(rp.Amount)
		if err != nil {
			return err
		}
		pending[rp.AccountID] = balance
	}

	for id, balance := range pending {
		state.states[id].Balance = balance
	}

	return nil
}

func (t Transaction) String() string {
	return fmt.Sprintf("transaction %q on %s (%d postings)", t.Description, t.Date.Format(time.DateOnly), len(t.Postings))
}
