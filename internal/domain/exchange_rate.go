package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate quotes a set of currencies against a base currency:
// 1 unit of Base = Rates[quote] units of quote.
type ExchangeRate struct {
	Date  *time.Time                 `json:"date,omitempty"`
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// NewExchangeRate creates an ExchangeRate with no quotes.
func NewExchangeRate(base string, date *time.Time) *ExchangeRate {
	return &ExchangeRate{
		Date:  date,
		Base:  normalizeCurrency(base),
		Rates: make(map[string]decimal.Decimal),
	}
}

// WithRate adds a quote and returns the receiver.
func (r *ExchangeRate) WithRate(quote string, rate decimal.Decimal) *ExchangeRate {
	if r.Rates == nil {
		r.Rates = make(map[string]decimal.Decimal)
	}
	r.Rates[normalizeCurrency(quote)] = rate
	return r
}

// Convert converts m into the target currency. Amounts already in the target
// currency are returned unchanged.
func (r *ExchangeRate) Convert(m Money, target string) (Money, error) {
	target = normalizeCurrency(target)
	if m.currency == target {
		return m, nil
	}

	base := normalizeCurrency(r.Base)

	switch {
	case m.currency == base:
		rate, ok := r.rate(target)
		if !ok {
			break
		}
		return NewMoney(m.amount.Mul(rate), target), nil
	case target == base:
		rate, ok := r.rate(m.currency)
		if !ok {
			break
		}
		return NewMoney(m.amount.DivRound(rate, DivisionScale), target), nil
	}

	return Money{}, fmt.Errorf("%w: %s to %s", ErrNoExchangeRate, m.currency, target)
}

func (r *ExchangeRate) rate(quote string) (decimal.Decimal, bool) {
	// Rates may come from JSON with lower-case codes.
	for code, rate := range r.Rates {
		if normalizeCurrency(code) == quote && rate.IsPositive() {
			return rate, true
		}
	}
	return decimal.Zero, false
}
