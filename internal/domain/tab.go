package domain

import (
	"fmt"
	"time"
)

// TabID identifies a tab.
type TabID string

const (
	userAccountCategory    = "Users"
	expenseAccountCategory = "Expense"
)

// UserAccountID is the ledger account id of a user on a tab.
func UserAccountID(userID UserID) AccountID {
	return AccountID(fmt.Sprintf("user:%d", userID))
}

// CategoryAccountID is the ledger account id of an expense category on a tab.
func CategoryAccountID(category ExpenseCategory) AccountID {
	return AccountID("expense:" + string(category))
}

// UserDifference is how far a user is from their fair share: negative when
// they owe money, positive when they are owed.
type UserDifference struct {
	UserID UserID `json:"user_id"`
	Amount Money  `json:"amount"`
}

// Tab is a group of users and the expenses they share.
//
// The tab owns every ledger account derived from its users and expense
// categories. The account index is rebuilt from scratch whenever users or
// expenses change. A Tab must not be mutated concurrently.
type Tab struct {
	ID              TabID
	Name            string
	WorkingCurrency string

	users    []User
	expenses []Expense
	actions  []TabAction

	accounts         map[AccountID]Account
	userAccounts     map[UserID]AccountID
	accountUsers     map[AccountID]UserID
	categoryAccounts map[ExpenseCategory]AccountID
}

// NewTab creates a tab. Users must have unique ids and so must expenses.
// Expenses are not checked against the user list, so a tab can always be
// loaded; unknown users surface when settlements are computed.
func NewTab(id TabID, name, workingCurrency string, users []User, expenses []Expense) (*Tab, error) {
	if err := ValidateCurrency(workingCurrency); err != nil {
		return nil, err
	}

	t := &Tab{
		ID:              id,
		Name:            name,
		WorkingCurrency: normalizeCurrency(workingCurrency),
		users:           make([]User, 0, len(users)),
		expenses:        make([]Expense, 0, len(expenses)),
	}

	seenUsers := make(map[UserID]bool, len(users))
	for _, u := range users {
		if seenUsers[u.ID] {
			return nil, fmt.Errorf("%w: user %d on tab %s", ErrUserAlreadyOnTab, u.ID, id)
		}
		seenUsers[u.ID] = true
		t.users = append(t.users, u)
	}

	seenExpenses := make(map[ExpenseID]bool, len(expenses))
	for _, e := range expenses {
		if seenExpenses[e.ID] {
			return nil, fmt.Errorf("%w: expense %d on tab %s", ErrExpenseAlreadyOnTab, e.ID, id)
		}
		seenExpenses[e.ID] = true
		t.expenses = append(t.expenses, e)
	}

	t.rebuildIndex()

	return t, nil
}

func (t *Tab) rebuildIndex() {
	accounts := make(map[AccountID]Account, len(t.users)+len(t.expenses))
	userAccounts := make(map[UserID]AccountID, len(t.users))
	accountUsers := make(map[AccountID]UserID, len(t.users))
	categoryAccounts := make(map[ExpenseCategory]AccountID)

	for _, u := range t.users {
		id := UserAccountID(u.ID)
		name := fmt.Sprintf("User-%d-%s", u.ID, u.Name)
		accounts[id] = NewAccount(id, name, userAccountCategory, t.WorkingCurrency)
		userAccounts[u.ID] = id
		accountUsers[id] = u.ID
	}

	for _, category := range t.categories() {
		id := CategoryAccountID(category)
		accounts[id] = NewAccount(id, string(category), expenseAccountCategory, t.WorkingCurrency)
		categoryAccounts[category] = id
	}

	t.accounts = accounts
	t.userAccounts = userAccounts
	t.accountUsers = accountUsers
	t.categoryAccounts = categoryAccounts
}

// categories returns the distinct expense categories in order of first use.
func (t *Tab) categories() []ExpenseCategory {
	seen := make(map[ExpenseCategory]bool)
	var out []ExpenseCategory
	for _, e := range t.expenses {
		if seen[e.Category] {
			continue
		}
		seen[e.Category] = true
		out = append(out, e.Category)
	}
	return out
}

// User returns the user with the given id.
func (t *Tab) User(userID UserID) (User, error) {
	for _, u := range t.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("%w: user %d on tab %s", ErrUserNotOnTab, userID, t.ID)
}

// Users returns the users in the order they joined.
func (t *Tab) Users() []User {
	out := make([]User, len(t.users))
	copy(out, t.users)
	return out
}

// Expenses returns the expenses in the order they were recorded.
func (t *Tab) Expenses() []Expense {
	out := make([]Expense, len(t.expenses))
	copy(out, t.expenses)
	return out
}

// Expense returns the expense with the given id.
func (t *Tab) Expense(expenseID ExpenseID) (Expense, error) {
	for _, e := range t.expenses {
		if e.ID == expenseID {
			return e, nil
		}
	}
	return Expense{}, fmt.Errorf("%w: expense %d on tab %s", ErrExpenseNotOnTab, expenseID, t.ID)
}

// UserAccount returns the ledger account of a user.
func (t *Tab) UserAccount(userID UserID) (Account, error) {
	id, ok := t.userAccounts[userID]
	if !ok {
		return Account{}, fmt.Errorf("%w: user %d on tab %s", ErrUserAccountNotOnTab, userID, t.ID)
	}
	return t.accounts[id], nil
}

// ExpenseCategoryAccount returns the ledger account of an expense category.
func (t *Tab) ExpenseCategoryAccount(category ExpenseCategory) (Account, error) {
	id, ok := t.categoryAccounts[category]
	if !ok {
		return Account{}, fmt.Errorf("%w: category %q on tab %s", ErrCategoryAccountNotOnTab, category, t.ID)
	}
	return t.accounts[id], nil
}

// Accounts returns every account on the tab: user accounts in user order,
// then category accounts in order of first use.
func (t *Tab) Accounts() []Account {
	out := make([]Account, 0, len(t.accounts))
	for _, u := range t.users {
		out = append(out, t.accounts[t.userAccounts[u.ID]])
	}
	for _, c := range t.categories() {
		out = append(out, t.accounts[t.categoryAccounts[c]])
	}
	return out
}

// AddUser adds a user to the tab. A user whose id is already taken is
// rejected and the tab is left unchanged.
func (t *Tab) AddUser(user User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	if _, exists := t.userAccounts[user.ID]; exists {
		return fmt.Errorf("%w: user %d on tab %s", ErrUserAlreadyOnTab, user.ID, t.ID)
	}

	if len(t.users) >= MaxTabUsers {
		return fmt.Errorf("%w: limit is %d", ErrTooManyUsers, MaxTabUsers)
	}

	t.users = append(t.users, user)
	t.rebuildIndex()

	return nil
}

// RemoveUser removes a user and their account from the tab. Expenses that
// mention the user are kept.
func (t *Tab) RemoveUser(userID UserID) error {
	for i, u := range t.users {
		if u.ID != userID {
			continue
		}
		t.users = append(t.users[:i:i], t.users[i+1:]...)
		t.rebuildIndex()
		return nil
	}

	return fmt.Errorf("%w: user %d on tab %s", ErrUserNotOnTab, userID, t.ID)
}

// AddExpense records an expense. The payer and every participant must be on
// the tab, the expense id must be unused and the amount must convert to the
// working currency.
func (t *Tab) AddExpense(expense Expense) error {
	if err := expense.Validate(); err != nil {
		return err
	}

	for _, e := range t.expenses {
		if e.ID == expense.ID {
			return fmt.Errorf("%w: expense %d on tab %s", ErrExpenseAlreadyOnTab, expense.ID, t.ID)
		}
	}

	if _, err := t.User(expense.PaidBy); err != nil {
		return err
	}
	for _, id := range expense.SharedBy {
		if _, err := t.User(id); err != nil {
			return err
		}
	}

	if err := t.checkConvertible(expense); err != nil {
		return err
	}

	t.expenses = append(t.expenses, expense)
	t.rebuildIndex()

	return nil
}

// checkConvertible reports whether the expense amount can be expressed in the
// working currency, either directly or through its exchange rate.
func (t *Tab) checkConvertible(expense Expense) error {
	currency := expense.Amount.Currency()
	if currency == t.WorkingCurrency {
		return nil
	}
	if expense.ExchangeRate == nil {
		return fmt.Errorf("expense %d on tab %s: %w", expense.ID, t.ID,
			&CurrencyMismatchError{Left: currency, Right: t.WorkingCurrency})
	}
	if _, err := expense.ExchangeRate.Convert(expense.Amount, t.WorkingCurrency); err != nil {
		return fmt.Errorf("expense %d on tab %s: %w", expense.ID, t.ID, err)
	}
	return nil
}

// RemoveExpense removes an expense. A category account disappears with the
// last expense that uses it.
func (t *Tab) RemoveExpense(expenseID ExpenseID) error {
	for i, e := range t.expenses {
		if e.ID != expenseID {
			continue
		}
		t.expenses = append(t.expenses[:i:i], t.expenses[i+1:]...)
		t.rebuildIndex()
		return nil
	}

	return fmt.Errorf("%w: expense %d on tab %s", ErrExpenseNotOnTab, expenseID, t.ID)
}

// NextExpenseID returns an id no expense on the tab uses yet.
func (t *Tab) NextExpenseID() ExpenseID {
	var next ExpenseID
	for _, e := range t.expenses {
		if e.ID >= next {
			next = e.ID + 1
		}
	}
	return next
}

// ActualProgram builds the program of what users really paid.
func (t *Tab) ActualProgram() (*Program, error) {
	program := NewProgram()
	for _, e := range t.expenses {
		tx, err := e.ActualTransaction(t)
		if err != nil {
			return nil, fmt.Errorf("expense %d: %w", e.ID, err)
		}
		program.Append(tx)
	}
	return program, nil
}

// SharedProgram builds the program where every participant pays an equal
// share of each expense.
func (t *Tab) SharedProgram() (*Program, error) {
	program := NewProgram()
	for _, e := range t.expenses {
		tx, err := e.SharedTransaction(t)
		if err != nil {
			return nil, fmt.Errorf("expense %d: %w", e.ID, err)
		}
		program.Append(tx)
	}
	return program, nil
}

// execute runs a program from a fresh, all-open, zero-balance state over the
// tab's accounts and checks that balances still sum to zero.
func (t *Tab) execute(program *Program) (map[AccountID]AccountState, Money, error) {
	state, err := NewProgramState(t.Accounts(), AccountStatusOpen)
	if err != nil {
		return nil, Money{}, err
	}

	if err := state.ExecuteProgram(program); err != nil {
		return nil, Money{}, err
	}

	sum, err := state.Sum(t.WorkingCurrency)
	if err != nil {
		return nil, Money{}, err
	}
	if !sum.IsZeroApprox(DefaultEpsilon) {
		return nil, sum, fmt.Errorf("%w: sum is %s", ErrInconsistentLedger, sum)
	}

	return state.States(), sum, nil
}

// CheckConsistency executes the actual and the shared programs and returns
// the sum of account balances of each. Both sums are zero for a healthy tab.
func (t *Tab) CheckConsistency() (actual, shared Money, err error) {
	actualProgram, err := t.ActualProgram()
	if err != nil {
		return Money{}, Money{}, err
	}
	sharedProgram, err := t.SharedProgram()
	if err != nil {
		return Money{}, Money{}, err
	}

	if _, actual, err = t.execute(actualProgram); err != nil {
		return actual, Money{}, err
	}
	if _, shared, err = t.execute(sharedProgram); err != nil {
		return actual, shared, err
	}

	return actual, shared, nil
}

// ledgerRun holds the outcome of executing both programs of a tab.
type ledgerRun struct {
	actualProgram *Program
	sharedStates  map[AccountID]AccountState
	differences   []Difference
}

func (t *Tab) run() (*ledgerRun, error) {
	actualProgram, err := t.ActualProgram()
	if err != nil {
		return nil, err
	}
	sharedProgram, err := t.SharedProgram()
	if err != nil {
		return nil, err
	}

	actualStates, _, err := t.execute(actualProgram)
	if err != nil {
		return nil, fmt.Errorf("actual program: %w", err)
	}
	sharedStates, _, err := t.execute(sharedProgram)
	if err != nil {
		return nil, fmt.Errorf("shared program: %w", err)
	}

	actualUsers := t.userStates(actualStates)
	sharedUsers := t.userStates(sharedStates)

	diff, err := AccountStateDifference(actualUsers, sharedUsers)
	if err != nil {
		return nil, err
	}

	total, err := SumAccountStates(diff, t.WorkingCurrency)
	if err != nil {
		return nil, err
	}
	if !total.IsZeroApprox(DefaultEpsilon) {
		return nil, fmt.Errorf("%w: differences sum to %s", ErrUnbalancedDifferences, total)
	}

	differences := make([]Difference, 0, len(t.users))
	for _, u := range t.users {
		id := t.userAccounts[u.ID]
		s, ok := diff[id]
		if !ok {
			return nil, &MissingAccountStateError{AccountID: id}
		}
		differences = append(differences, Difference{AccountID: id, Amount: s.Balance})
	}

	return &ledgerRun{
		actualProgram: actualProgram,
		sharedStates:  sharedStates,
		differences:   differences,
	}, nil
}

// userStates keeps only the user accounts of a snapshot.
func (t *Tab) userStates(states map[AccountID]AccountState) map[AccountID]AccountState {
	out := make(map[AccountID]AccountState, len(t.users))
	for id, s := range states {
		if _, ok := t.accountUsers[id]; ok {
			out[id] = s
		}
	}
	return out
}

// Differences returns, for every user in tab order, the shared balance minus
// the actual balance of their account.
func (t *Tab) Differences() ([]UserDifference, error) {
	run, err := t.run()
	if err != nil {
		return nil, err
	}

	out := make([]UserDifference, 0, len(run.differences))
	for _, d := range run.differences {
		out = append(out, UserDifference{UserID: t.accountUsers[d.AccountID], Amount: d.Amount})
	}
	return out, nil
}

// BalanceTransactions computes the payments that make every user's
// contribution fair. The payments are checked against the shared balances
// before they are returned.
func (t *Tab) BalanceTransactions() ([]Settlement, error) {
	run, err := t.run()
	if err != nil {
		return nil, err
	}

	transfers, err := NetDifferences(run.differences, t.WorkingCurrency, DefaultEpsilon)
	if err != nil {
		return nil, err
	}

	settlements := make([]Settlement, 0, len(transfers))
	for _, tr := range transfers {
		s := NewSettlement(t.accountUsers[tr.From], t.accountUsers[tr.To], tr.Amount)
		if err := s.Validate(); err != nil {
			return nil, err
		}
		settlements = append(settlements, s)
	}

	if err := t.verify(run, settlements); err != nil {
		return nil, err
	}

	return settlements, nil
}

// VerifySettlements checks that applying settlements after the actual
// expenses leaves every account at its fair-share balance.
func (t *Tab) VerifySettlements(settlements []Settlement) error {
	run, err := t.run()
	if err != nil {
		return err
	}
	return t.verify(run, settlements)
}

func (t *Tab) verify(run *ledgerRun, settlements []Settlement) error {
	actions := make([]Action, len(run.actualProgram.Actions))
	copy(actions, run.actualProgram.Actions)
	program := NewProgram(actions...)

	date := t.lastExpenseDate()
	for _, s := range settlements {
		tx, err := s.ToTransaction(date, t)
		if err != nil {
			return err
		}
		program.Append(tx)
	}

	states, _, err := t.execute(program)
	if err != nil {
		return err
	}

	for _, id := range sortedAccountIDs(run.sharedStates) {
		expected := run.sharedStates[id]
		got, ok := states[id]
		if !ok {
			return &MissingAccountStateError{AccountID: id}
		}
		if !got.EqualApprox(expected, DefaultEpsilon) {
			return fmt.Errorf("%w: account %s has %s, expected %s",
				ErrSettlementMismatch, id, got.Balance, expected.Balance)
		}
	}

	return nil
}

func (t *Tab) lastExpenseDate() time.Time {
	var last time.Time
	for _, e := range t.expenses {
		if e.Date.After(last) {
			last = e.Date
		}
	}
	return last
}
