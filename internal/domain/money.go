package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DivisionScale is the number of decimal places kept by Money.DivInt.
const DivisionScale int32 = 12

// DefaultEpsilon is the tolerance used when comparing amounts that went
// through repeated division.
var DefaultEpsilon = decimal.New(1, -9)

// Money is a decimal amount tagged with an ISO 4217 currency code.
// The zero value has no currency and is only useful as a placeholder.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewMoney creates a Money value.
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{amount: amount, currency: normalizeCurrency(currency)}
}

// Zero returns a zero amount of the given currency.
func Zero(currency string) Money {
	return NewMoney(decimal.Zero, currency)
}

// ParseMoney parses values such as "300.00 AUD".
func ParseMoney(s string) (Money, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Money{}, fmt.Errorf("invalid money %q: expected \"<amount> <currency>\"", s)
	}

	amount, err := decimal.NewFromString(fields[0])
	if err != nil {
		return Money{}, fmt.Errorf("invalid money %q: %w", s, err)
	}

	return NewMoney(amount, fields[1]), nil
}

// MustParseMoney is like ParseMoney but panics on malformed input. It is meant
// for constants and tests.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() string        { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsPositive() bool        { return m.amount.IsPositive() }
func (m Money) IsNegative() bool        { return m.amount.IsNegative() }
func (m Money) Neg() Money              { return Money{amount: m.amount.Neg(), currency: m.currency} }
func (m Money) Abs() Money              { return Money{amount: m.amount.Abs(), currency: m.currency} }

// Add returns m + n.
func (m Money) Add(n Money) (Money, error) {
	if err := m.sameCurrency(n); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(n.amount), currency: m.currency}, nil
}

// Sub returns m - n.
func (m Money) Sub(n Money) (Money, error) {
	if err := m.sameCurrency(n); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(n.amount), currency: m.currency}, nil
}

// Mul scales m by a plain factor, keeping the currency.
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.currency}
}

// DivInt divides m by a positive integer. The quotient is rounded half to
// even at DivisionScale decimal places; whatever is lost is left for the
// balancing posting of the transaction to absorb.
func (m Money) DivInt(n int64) (Money, error) {
	if n <= 0 {
		return Money{}, fmt.Errorf("%w: %d", ErrInvalidDivisor, n)
	}

	divisor := decimal.NewFromInt(n)
	unit := decimal.New(1, -DivisionScale)

	// q is truncated toward zero, r carries the sign of m.
	q, r := m.amount.QuoRem(divisor, DivisionScale)

	twice := r.Abs().Mul(decimal.NewFromInt(2))
	half := divisor.Mul(unit)

	away := false
	switch twice.Cmp(half) {
	case 1:
		away = true
	case 0:
		away = !q.Shift(DivisionScale).Mod(decimal.NewFromInt(2)).IsZero()
	}

	if away {
		if m.amount.IsNegative() {
			q = q.Sub(unit)
		} else {
			q = q.Add(unit)
		}
	}

	return Money{amount: q, currency: m.currency}, nil
}

// Cmp compares m and n: -1 if m < n, 0 if equal, +1 if m > n.
func (m Money) Cmp(n Money) (int, error) {
	if err := m.sameCurrency(n); err != nil {
		return 0, err
	}
	return m.amount.Cmp(n.amount), nil
}

// LessThan reports whether m < n.
func (m Money) LessThan(n Money) (bool, error) {
	c, err := m.Cmp(n)
	return c < 0, err
}

// GreaterThan reports whether m > n.
func (m Money) GreaterThan(n Money) (bool, error) {
	c, err := m.Cmp(n)
	return c > 0, err
}

// EqualApprox reports whether m and n share a currency and differ by no more
// than epsilon.
func (m Money) EqualApprox(n Money, epsilon decimal.Decimal) bool {
	if m.currency != n.currency {
		return false
	}
	return m.amount.Sub(n.amount).Abs().LessThanOrEqual(epsilon)
}

// IsZeroApprox reports whether |m| <= epsilon.
func (m Money) IsZeroApprox(epsilon decimal.Decimal) bool {
	return m.amount.Abs().LessThanOrEqual(epsilon)
}

// String returns "<amount> <currency>", the format accepted by ParseMoney.
func (m Money) String() string {
	return m.amount.String() + " " + m.currency
}

// Display formats m with the currency's symbol, rounded to its minor unit.
func (m Money) Display() string {
	cur := money.GetCurrency(m.currency)
	if cur == nil {
		return m.String()
	}
	minor := m.amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return cur.Formatter().Format(minor)
}

type moneyJSON struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount, Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = NewMoney(v.Amount, v.Currency)
	return nil
}

func (m Money) sameCurrency(n Money) error {
	if m.currency != n.currency {
		return &CurrencyMismatchError{Left: m.currency, Right: n.currency}
	}
	return nil
}

func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
