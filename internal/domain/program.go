package domain

import (
	"fmt"
	"sort"
)

// Action is a single step of a Program.
type Action interface {
	Perform(state *ProgramState) error
}

// EditAccountStatus changes the status of an account. Balances are untouched.
type EditAccountStatus struct {
	AccountID AccountID
	Status    AccountStatus
}

// Perform overwrites the status of the account.
func (a EditAccountStatus) Perform(state *ProgramState) error {
	s, ok := state.states[a.AccountID]
	if !ok {
		return &MissingAccountStateError{AccountID: a.AccountID}
	}
	s.Status = a.Status
	return nil
}

// Program is an ordered list of actions.
type Program struct {
	Actions []Action
}

// NewProgram creates a program from actions.
func NewProgram(actions ...Action) *Program {
	return &Program{Actions: actions}
}

// Append adds actions to the end of the program.
func (p *Program) Append(actions ...Action) {
	p.Actions = append(p.Actions, actions...)
}

// ProgramState holds one AccountState per account and executes programs
// against them. A ProgramState must not be shared between goroutines.
type ProgramState struct {
	order  []AccountID
	states map[AccountID]*AccountState
}

// NewProgramState creates a zero-balance state for every account, all with
// the given status.
func NewProgramState(accounts []Account, status AccountStatus) (*ProgramState, error) {
	ps := &ProgramState{
		order:  make([]AccountID, 0, len(accounts)),
		states: make(map[AccountID]*AccountState, len(accounts)),
	}

	for _, a := range accounts {
		if _, exists := ps.states[a.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAccount, a.ID)
		}
		s := NewAccountState(a, status)
		ps.states[a.ID] = &s
		ps.order = append(ps.order, a.ID)
	}

	return ps, nil
}

// ExecuteProgram performs every action in order. The first failure stops
// execution; actions performed before it stay applied.
func (ps *ProgramState) ExecuteProgram(program *Program) error {
	for i, action := range program.Actions {
		if err := action.Perform(ps); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}

// State returns a copy of the state of an account.
func (ps *ProgramState) State(id AccountID) (AccountState, bool) {
	s, ok := ps.states[id]
	if !ok {
		return AccountState{}, false
	}
	return *s, true
}

// States returns a snapshot of every account state.
func (ps *ProgramState) States() map[AccountID]AccountState {
	out := make(map[AccountID]AccountState, len(ps.states))
	for id, s := range ps.states {
		out[id] = *s
	}
	return out
}

// Accounts returns the account ids in creation order.
func (ps *ProgramState) Accounts() []AccountID {
	out := make([]AccountID, len(ps.order))
	copy(out, ps.order)
	return out
}

// Sum returns the total balance of the accounts held in currency.
func (ps *ProgramState) Sum(currency string) (Money, error) {
	return SumAccountStates(ps.States(), currency)
}

func (ps *ProgramState) account(id AccountID) (Account, error) {
	s, ok := ps.states[id]
	if !ok {
		return Account{}, &MissingAccountStateError{AccountID: id}
	}
	return s.Account, nil
}

// SumAccountStates adds up the balances of the states whose account holds
// currency. States in other currencies are skipped.
func SumAccountStates(states map[AccountID]AccountState, currency string) (Money, error) {
	sum := Zero(currency)
	for _, s := range states {
		if s.Account.Currency != sum.Currency() {
			continue
		}
		var err error
		sum, err = sum.Add(s.Balance)
		if err != nil {
			return Money{}, err
		}
	}
	return sum, nil
}

// AccountStateDifference returns to - from for every account. Both snapshots
// must hold exactly the same accounts.
func AccountStateDifference(from, to map[AccountID]AccountState) (map[AccountID]AccountState, error) {
	for _, id := range sortedAccountIDs(to) {
		if _, ok := from[id]; !ok {
			return nil, &MissingAccountStateError{AccountID: id}
		}
	}

	result := make(map[AccountID]AccountState, len(from))
	for _, id := range sortedAccountIDs(from) {
		fromState := from[id]
		toState, ok := to[id]
		if !ok {
			return nil, &MissingAccountStateError{AccountID: id}
		}

		diff, err := toState.Balance.Sub(fromState.Balance)
		if err != nil {
			return nil, err
		}

		result[id] = AccountState{
			Account: toState.Account,
			Balance: diff,
			Status:  AccountStatusOpen,
		}
	}

	return result, nil
}

func sortedAccountIDs(states map[AccountID]AccountState) []AccountID {
	ids := make([]AccountID, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
