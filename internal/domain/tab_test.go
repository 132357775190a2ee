package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeUsers() []User {
	return []User{
		NewUser(1, "Alice", ""),
		NewUser(2, "Bob", "bob@example.com"),
		NewUser(3, "Carol", ""),
	}
}

func expense(id ExpenseID, description string, amount string, paidBy UserID, sharedBy ...UserID) Expense {
	return NewExpense(id, description, "Groceries", testDate, paidBy, sharedBy, MustParseMoney(amount+" AUD"), nil)
}

func assertSettlement(t *testing.T, s Settlement, sender, receiver UserID, amount string) {
	t.Helper()

	assert.Equal(t, sender, s.Sender)
	assert.Equal(t, receiver, s.Receiver)
	assert.True(t,
		s.Amount.EqualApprox(MustParseMoney(amount+" AUD"), decimal.RequireFromString("0.0001")),
		"expected %s, got %s", amount, s.Amount)
}

func settlementStrings(settlements []Settlement) []string {
	out := make([]string, 0, len(settlements))
	for _, s := range settlements {
		out = append(out, s.String())
	}
	return out
}

func TestTab_BalanceTransactions_Simple(t *testing.T) {
	t.Parallel()

	tab, err := NewTab("tab-1", "Road trip", "AUD", threeUsers(), []Expense{
		NewExpense(1, "Petrol", "Fuel", testDate, 1, []UserID{2, 3}, MustParseMoney("300.00 AUD"), nil),
	})
	require.NoError(t, err)

	settlements, err := tab.BalanceTransactions()
	require.NoError(t, err)
	require.Len(t, settlements, 2)

	assertSettlement(t, settlements[0], 2, 1, "150.00")
	assertSettlement(t, settlements[1], 3, 1, "150.00")
}

func TestTab_BalanceTransactions_Complex(t *testing.T) {
	t.Parallel()

	tab, err := NewTab("tab-1", "Picnic", "AUD", threeUsers(), []Expense{
		expense(1, "Cheese", "300.00", 1, 1, 2, 3),
		expense(2, "Pickles", "500.00", 1, 2, 3),
		expense(3, "Buns", "100.00", 2, 1, 2, 3),
	})
	require.NoError(t, err)

	settlements, err := tab.BalanceTransactions()
	require.NoError(t, err)
	require.Len(t, settlements, 2)

	assertSettlement(t, settlements[0], 3, 1, "383.3333")
	assertSettlement(t, settlements[1], 2, 1, "283.3333")

	require.NoError(t, tab.VerifySettlements(settlements))
}

func TestTab_BalanceTransactions_NoExpenses(t *testing.T) {
	t.Parallel()

	tab, err := NewTab("tab-1", "Empty", "AUD", threeUsers(), nil)
	require.NoError(t, err)

	settlements, err := tab.BalanceTransactions()
	require.NoError(t, err)
	assert.Empty(t, settlements)
}

func TestTab_BalanceTransactions_SingleUser(t *testing.T) {
	t.Parallel()

	tab, err := NewTab("tab-1", "Solo", "AUD", []User{NewUser(1, "Alice", "")}, []Expense{
		expense(1, "Lunch", "42.00", 1, 1),
		expense(2, "Dinner", "17.30", 1, 1),
	})
	require.NoError(t, err)

	settlements, err := tab.BalanceTransactions()
	require.NoError(t, err)
	assert.Empty(t, settlements)
}

func TestTab_BalanceTransactions_ZeroDifferenceUserIgnored(t *testing.T) {
	t.Parallel()

	tab, err := NewTab("tab-1", "Trip", "AUD", threeUsers(), []Expense{
		expense(1, "Tickets", "90.00", 1, 1, 3),
		expense(2, "Snacks", "20.00", 2, 2),
	})
	require.NoError(t, err)

	settlements, err := tab.BalanceTransactions()
	require.NoError(t, err)
	require.Len(t, settlements, 1)

	assertSettlement(t, settlements[0], 3, 1, "45.00")
	for _, s := range settlements {
		assert.NotEqual(t, UserID(2), s.Sender)
		assert.NotEqual(t, UserID(2), s.Receiver)
	}
}

func TestTab_BalanceTransactions_Properties(t *testing.T) {
	t.Parallel()

	users := []User{
		NewUser(1, "A", ""), NewUser(2, "B", ""), NewUser(3, "C", ""),
		NewUser(4, "D", ""), NewUser(5, "E", ""),
	}
	expenses := []Expense{
		expense(1, "e1", "100.00", 1, 1, 2, 3, 4, 5),
		expense(2, "e2", "33.33", 2, 3, 4),
		expense(3, "e3", "71.10", 3, 1, 2, 3),
		expense(4, "e4", "10.01", 4, 5),
		expense(5, "e5", "250.00", 5, 1, 2, 3, 4, 5),
		expense(6, "e6", "7.00", 1, 2, 3, 4, 5),
	}

	tab, err := NewTab("tab-1", "Many", "AUD", users, expenses)
	require.NoError(t, err)

	settlements, err := tab.BalanceTransactions()
	require.NoError(t, err)
	require.NotEmpty(t, settlements)

	for _, s := range settlements {
		assert.NoError(t, s.Validate())
	}
	assert.NoError(t, tab.VerifySettlements(settlements))

	again, err := tab.BalanceTransactions()
	require.NoError(t, err)
	assert.Equal(t, settlementStrings(settlements), settlementStrings(again))
}

func TestTab_VerifySettlements_Mismatch(t *testing.T) {
	t.Parallel()

	tab, err := NewTab("tab-1", "Road trip", "AUD", threeUsers(), []Expense{
		expense(1, "Petrol", "300.00", 1, 2, 3),
	})
	require.NoError(t, err)

	err = tab.VerifySettlements([]Settlement{
		NewSettlement(2, 1, MustParseMoney("150 AUD")),
	})
	assert.ErrorIs(t, err, ErrSettlementMismatch)
}

func TestTab_Differences(t *testing.T) {
	t.Parallel()

	tab, err := NewTab("tab-1", "Road trip", "AUD", threeUsers(), []Expense{
		expense(1, "Petrol", "300.00", 1, 2, 3),
	})
	require.NoError(t, err)

	differences, err := tab.Differences()
	require.NoError(t, err)
	require.Len(t, differences, 3)

	assert.Equal(t, UserID(1), differences[0].UserID)
	assert.Equal(t, "300 AUD", differences[0].Amount.String())
	assert.Equal(t, "-150 AUD", differences[1].Amount.String())
	assert.Equal(t, "-150 AUD", differences[2].Amount.String())
}

func TestTab_CheckConsistency(t *testing.T) {
	t.Parallel()

	tab, err := NewTab("tab-1", "Picnic", "AUD", threeUsers(), []Expense{
		expense(1, "Buns", "100.00", 2, 1, 2, 3),
	})
	require.NoError(t, err)

	actual, shared, err := tab.CheckConsistency()
	require.NoError(t, err)
	assert.True(t, actual.IsZero())
	assert.True(t, shared.IsZeroApprox(DefaultEpsilon))
}

func TestNewTab_Errors(t *testing.T) {
	t.Parallel()

	t.Run("duplicate user", func(t *testing.T) {
		users := append(threeUsers(), NewUser(2, "Bob again", ""))
		_, err := NewTab("tab-1", "Dup", "AUD", users, nil)
		assert.ErrorIs(t, err, ErrUserAlreadyOnTab)
	})

	t.Run("duplicate expense", func(t *testing.T) {
		_, err := NewTab("tab-1", "Dup", "AUD", threeUsers(), []Expense{
			expense(1, "a", "1", 1, 1),
			expense(1, "b", "1", 1, 1),
		})
		assert.ErrorIs(t, err, ErrExpenseAlreadyOnTab)
	})

	t.Run("invalid currency", func(t *testing.T) {
		_, err := NewTab("tab-1", "Bad", "ZZZ", threeUsers(), nil)
		assert.ErrorIs(t, err, ErrInvalidCurrency)
	})
}

func TestTab_Lookups(t *testing.T) {
	t.Parallel()

	tab, err := NewTab("tab-1", "Road trip", "aud", threeUsers(), []Expense{
		NewExpense(1, "Petrol", "Fuel", testDate, 1, []UserID{2, 3}, MustParseMoney("300 AUD"), nil),
	})
	require.NoError(t, err)
	assert.Equal(t, "AUD", tab.WorkingCurrency)

	account, err := tab.UserAccount(2)
	require.NoError(t, err)
	assert.Equal(t, UserAccountID(2), account.ID)
	assert.Equal(t, "User-2-Bob", account.Name)
	assert.Equal(t, "Users", account.Category)
	assert.Equal(t, "AUD", account.Currency)

	category, err := tab.ExpenseCategoryAccount("Fuel")
	require.NoError(t, err)
	assert.Equal(t, CategoryAccountID("Fuel"), category.ID)
	assert.Equal(t, "Expense", category.Category)

	user, err := tab.User(3)
	require.NoError(t, err)
	assert.Equal(t, "Carol", user.Name)

	_, err = tab.User(9)
	assert.ErrorIs(t, err, ErrUserNotOnTab)

	_, err = tab.UserAccount(9)
	assert.ErrorIs(t, err, ErrUserAccountNotOnTab)

	_, err = tab.ExpenseCategoryAccount("Lodging")
	assert.ErrorIs(t, err, ErrCategoryAccountNotOnTab)

	assert.Len(t, tab.Accounts(), 4)
}

func TestTab_AddRemoveUser(t *testing.T) {
	t.Parallel()

	tab, err := NewTab("tab-1", "Trip", "AUD", threeUsers(), nil)
	require.NoError(t, err)

	require.NoError(t, tab.AddUser(NewUser(4, "Dave", "")))
	_, err = tab.UserAccount(4)
	require.NoError(t, err)

	err = tab.AddUser(NewUser(4, "Dave again", ""))
	require.ErrorIs(t, err, ErrUserAlreadyOnTab)
	assert.Len(t, tab.Users(), 4)
	user, _ := tab.User(4)
	assert.Equal(t, "Dave", user.Name)

	require.NoError(t, tab.RemoveUser(2))
	_, err = tab.UserAccount(2)
	assert.ErrorIs(t, err, ErrUserAccountNotOnTab)
	assert.Len(t, tab.Users(), 3)

	assert.ErrorIs(t, tab.RemoveUser(2), ErrUserNotOnTab)
	assert.ErrorIs(t, tab.AddUser(NewUser(5, " ", "")), ErrInvalidName)
}

func TestTab_RemovedUserStillOnExpense(t *testing.T) {
	t.Parallel()

	tab, err := NewTab("tab-1", "Trip", "AUD", threeUsers(), []Expense{
		expense(1, "Petrol", "300.00", 1, 2, 3),
	})
	require.NoError(t, err)
	require.NoError(t, tab.RemoveUser(3))

	_, err = tab.BalanceTransactions()
	assert.ErrorIs(t, err, ErrUserAccountNotOnTab)
}

func TestTab_AddRemoveExpense(t *testing.T) {
	t.Parallel()

	tab, err := NewTab("tab-1", "Trip", "AUD", threeUsers(), nil)
	require.NoError(t, err)
	assert.Equal(t, ExpenseID(0), tab.NextExpenseID())

	e := NewExpense(tab.NextExpenseID(), "Petrol", "Fuel", testDate, 1, []UserID{2, 3}, MustParseMoney("300 AUD"), nil)
	require.NoError(t, tab.AddExpense(e))
	assert.Equal(t, ExpenseID(1), tab.NextExpenseID())

	_, err = tab.ExpenseCategoryAccount("Fuel")
	require.NoError(t, err)

	assert.ErrorIs(t, tab.AddExpense(e), ErrExpenseAlreadyOnTab)

	stranger := NewExpense(5, "Hotel", "Lodging", testDate, 9, []UserID{1}, MustParseMoney("10 AUD"), nil)
	assert.ErrorIs(t, tab.AddExpense(stranger), ErrUserNotOnTab)

	require.NoError(t, tab.RemoveExpense(0))
	_, err = tab.ExpenseCategoryAccount("Fuel")
	assert.ErrorIs(t, err, ErrCategoryAccountNotOnTab)
	assert.ErrorIs(t, tab.RemoveExpense(0), ErrExpenseNotOnTab)
}

func TestTab_AddExpense_ForeignCurrency(t *testing.T) {
	t.Parallel()

	tab, err := NewTab("tab-1", "Trip", "AUD", threeUsers(), nil)
	require.NoError(t, err)

	noRate := NewExpense(0, "Ferry", "Transport", testDate, 1, []UserID{1, 2}, MustParseMoney("40 USD"), nil)
	err = tab.AddExpense(noRate)
	require.ErrorIs(t, err, ErrCurrencyMismatch)
	var mismatch *CurrencyMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "USD", mismatch.Left)
	assert.Equal(t, "AUD", mismatch.Right)

	wrongRate := NewExchangeRate("EUR", &testDate).WithRate("GBP", decimal.RequireFromString("0.8"))
	unrelated := NewExpense(0, "Ferry", "Transport", testDate, 1, []UserID{1, 2}, MustParseMoney("40 USD"), wrongRate)
	assert.ErrorIs(t, tab.AddExpense(unrelated), ErrNoExchangeRate)

	assert.Empty(t, tab.Expenses())
	_, err = tab.ExpenseCategoryAccount("Transport")
	assert.ErrorIs(t, err, ErrCategoryAccountNotOnTab)

	rate := NewExchangeRate("AUD", &testDate).WithRate("USD", decimal.RequireFromString("0.5"))
	converted := NewExpense(0, "Ferry", "Transport", testDate, 1, []UserID{1, 2}, MustParseMoney("40 USD"), rate)
	require.NoError(t, tab.AddExpense(converted))
	require.Len(t, tab.Expenses(), 1)

	settlements, err := tab.BalanceTransactions()
	require.NoError(t, err)
	require.Len(t, settlements, 1)
	assertSettlement(t, settlements[0], 2, 1, "40")
}

func TestTab_RecordRoundTrip(t *testing.T) {
	t.Parallel()

	tab, err := NewTab("tab-1", "Picnic", "AUD", threeUsers(), []Expense{
		expense(1, "Cheese", "300.00", 1, 1, 2, 3),
		expense(2, "Pickles", "500.00", 1, 2, 3),
	})
	require.NoError(t, err)

	data, err := json.Marshal(tab.Record())
	require.NoError(t, err)

	var record TabRecord
	require.NoError(t, json.Unmarshal(data, &record))

	loaded, err := TabFromRecord(record)
	require.NoError(t, err)

	assert.Equal(t, tab.ID, loaded.ID)
	assert.Equal(t, tab.Users(), loaded.Users())
	assert.Len(t, loaded.Expenses(), 2)

	_, err = loaded.ExpenseCategoryAccount("Groceries")
	require.NoError(t, err)

	want, err := tab.BalanceTransactions()
	require.NoError(t, err)
	got, err := loaded.BalanceTransactions()
	require.NoError(t, err)
	assert.Equal(t, settlementStrings(want), settlementStrings(got))
}

func TestSettlement_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NewSettlement(1, 2, MustParseMoney("1 AUD")).Validate())
	assert.ErrorIs(t, NewSettlement(1, 1, MustParseMoney("1 AUD")).Validate(), ErrSameUser)
	assert.ErrorIs(t, NewSettlement(1, 2, MustParseMoney("0 AUD")).Validate(), ErrInvalidAmount)
	assert.ErrorIs(t, NewSettlement(1, 2, MustParseMoney("-1 AUD")).Validate(), ErrInvalidAmount)
}
