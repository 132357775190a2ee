package domain

import (
	"fmt"
	"time"
)

// SettlementDescription is the description of settlement transactions.
const SettlementDescription = "Settlement"

// Settlement is a payment one user should make to another to settle a tab.
type Settlement struct {
	// Sender owes money and makes the payment.
	Sender UserID `json:"sender"`
	// Receiver is owed money.
	Receiver UserID `json:"receiver"`
	// Amount is always positive.
	Amount Money `json:"amount"`
}

// NewSettlement creates a settlement.
func NewSettlement(sender, receiver UserID, amount Money) Settlement {
	return Settlement{Sender: sender, Receiver: receiver, Amount: amount}
}

// Validate checks that the settlement moves a positive amount between two
// different users.
func (s Settlement) Validate() error {
	if s.Sender == s.Receiver {
		return fmt.Errorf("%w: %d", ErrSameUser, s.Sender)
	}
	if !s.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// ToTransaction returns the settlement as a ledger transaction: the sender's
// account pays the amount and the receiver's account balances it.
func (s Settlement) ToTransaction(date time.Time, index AccountIndex) (Transaction, error) {
	sender, err := index.UserAccount(s.Sender)
	if err != nil {
		return Transaction{}, err
	}

	receiver, err := index.UserAccount(s.Receiver)
	if err != nil {
		return Transaction{}, err
	}

	return NewSimpleTransaction(SettlementDescription, date, sender.ID, receiver.ID, s.Amount, nil), nil
}

func (s Settlement) String() string {
	return fmt.Sprintf("%d -> %d: %s", s.Sender, s.Receiver, s.Amount)
}
