package domain

import (
	"context"
	"fmt"
	"time"
)

// TabActionType names a change made to a tab.
type TabActionType string

const (
	ActionAddUser       TabActionType = "add_user"
	ActionRemoveUser    TabActionType = "remove_user"
	ActionAddExpense    TabActionType = "add_expense"
	ActionRemoveExpense TabActionType = "remove_expense"
)

// TabAction is one entry of a tab's action log.
//
// Seq numbers the actions of a tab from 1, so the previous action of any
// entry is the one with Seq-1. Actor is nil when the change was not made on
// behalf of a tab user.
type TabAction struct {
	Seq       int64         `json:"seq"`
	Type      TabActionType `json:"type"`
	Actor     *UserID       `json:"actor,omitempty"`
	UserID    *UserID       `json:"user_id,omitempty"`
	ExpenseID *ExpenseID    `json:"expense_id,omitempty"`
	At        time.Time     `json:"at"`
}

// UserAction describes adding or removing a user.
func UserAction(typ TabActionType, userID UserID) TabAction {
	return TabAction{Type: typ, UserID: &userID}
}

// ExpenseAction describes adding or removing an expense.
func ExpenseAction(typ TabActionType, expenseID ExpenseID) TabAction {
	return TabAction{Type: typ, ExpenseID: &expenseID}
}

func (a TabAction) String() string {
	var subject string
	switch {
	case a.UserID != nil:
		subject = fmt.Sprintf(" user %d", *a.UserID)
	case a.ExpenseID != nil:
		subject = fmt.Sprintf(" expense %d", *a.ExpenseID)
	}

	actor := "system"
	if a.Actor != nil {
		actor = fmt.Sprintf("user %d", *a.Actor)
	}

	return fmt.Sprintf("#%d %s%s by %s", a.Seq, a.Type, subject, actor)
}

// Actions returns the action log, oldest first.
func (t *Tab) Actions() []TabAction {
	return append([]TabAction(nil), t.actions...)
}

// LogAction appends an action to the log and returns it with its sequence
// number set.
func (t *Tab) LogAction(a TabAction) TabAction {
	a.Seq = 1
	if n := len(t.actions); n > 0 {
		a.Seq = t.actions[n-1].Seq + 1
	}
	t.actions = append(t.actions, a)
	return a
}

type actorKey struct{}

// WithActor returns a context carrying the user a change is made for.
func WithActor(ctx context.Context, userID UserID) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFromContext returns the user set by WithActor.
func ActorFromContext(ctx context.Context) (UserID, bool) {
	userID, ok := ctx.Value(actorKey{}).(UserID)
	return userID, ok
}
