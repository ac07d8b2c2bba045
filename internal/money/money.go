package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidValue          = errors.New("invalid value")
	ErrInvalidAmount         = fmt.Errorf("%w: invalid amount", ErrInvalidValue)
	ErrUnsupportedConversion = fmt.Errorf("%w: unsupported conversion", ErrInvalidAmount)
	ErrCurrencyMismatch      = errors.New("currency mismatch")
	ErrExpiredRate           = errors.New("exchange rate expired")
)

// Money is an immutable, non-negative amount of a single currency.
// Every operation returns a new value.
type Money struct {
	amount   float64
	currency Currency
}

func New(amount float64, currency Currency) (Money, error) {
	if !currency.Valid() {
		return Money{}, fmt.Errorf("%w: unknown currency %q", ErrInvalidAmount, currency)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Money{}, fmt.Errorf("%w: amount must be finite", ErrInvalidAmount)
	}
	if amount < 0 {
		return Money{}, fmt.Errorf("%w: amount cannot be negative", ErrInvalidAmount)
	}
	return Money{amount: amount, currency: currency}, nil
}

func FromTinyUnits(units int64, currency Currency) (Money, error) {
	if !currency.Valid() {
		return Money{}, fmt.Errorf("%w: unknown currency %q", ErrInvalidAmount, currency)
	}
	return New(float64(units)/float64(currency.Scale()), currency)
}

func Zero(currency Currency) Money {
	return Money{currency: currency}
}

func USDC(amount float64) (Money, error) { return New(amount, CurrencyUSDC) }
func HUSD(amount float64) (Money, error) { return New(amount, CurrencyHUSD) }

func (m Money) Amount() float64 {
	return m.amount
}

func (m Money) Currency() Currency {
	return m.currency
}

func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return New(m.amount+other.amount, m.currency)
}

func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	result := m.amount - other.amount
	if result < 0 {
		return Money{}, fmt.Errorf("%w: subtraction would result in negative amount", ErrInvalidAmount)
	}
	return New(result, m.currency)
}

func (m Money) Multiply(factor float64) (Money, error) {
	if math.IsNaN(factor) || factor < 0 {
		return Money{}, fmt.Errorf("%w: multiplier cannot be negative", ErrInvalidAmount)
	}
	if factor == 0 {
		return Zero(m.currency), nil
	}
	return New(m.amount*factor, m.currency)
}

func (m Money) Divide(divisor float64) (Money, error) {
	if math.IsNaN(divisor) || divisor <= 0 {
		return Money{}, fmt.Errorf("%w: divisor must be positive", ErrInvalidAmount)
	}
	return New(m.amount/divisor, m.currency)
}

// ConvertTo converts using rate, which must still be valid now.
func (m Money) ConvertTo(target Currency, rate Rate) (Money, error) {
	if target == m.currency {
		return m, nil
	}
	if !convertible(m.currency, target) {
		return Money{}, fmt.Errorf("%w: %s to %s", ErrUnsupportedConversion, m.currency, target)
	}
	converted, err := rate.Convert(m.amount, m.currency, target)
	if err != nil {
		return Money{}, err
	}
	return New(converted, target)
}

// ConvertAtQuote converts at rate without checking its freshness. It is meant
// for re-deriving an amount that was quoted while the rate was valid.
func (m Money) ConvertAtQuote(target Currency, rate Rate) (Money, error) {
	if target == m.currency {
		return m, nil
	}
	if !convertible(m.currency, target) {
		return Money{}, fmt.Errorf("%w: %s to %s", ErrUnsupportedConversion, m.currency, target)
	}
	converted, err := rate.apply(m.amount, m.currency, target)
	if err != nil {
		return Money{}, err
	}
	return New(converted, target)
}

// ToTinyUnits truncates to the ledger's integer representation. The float is
// shifted as its shortest decimal form so amounts built from tiny units come
// back unchanged.
func (m Money) ToTinyUnits() int64 {
	return decimal.NewFromFloat(m.amount).Shift(m.currency.Decimals()).Floor().IntPart()
}

func (m Money) IsGreaterThan(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.amount > other.amount, nil
}

func (m Money) IsLessThan(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.amount < other.amount, nil
}

func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount == other.amount
}

func (m Money) IsZero() bool {
	return m.amount == 0
}

func (m Money) IsPositive() bool {
	return m.amount > 0
}

func (m Money) String() string {
	return fmt.Sprintf("%.*f %s", int(m.currency.Decimals()), m.amount, m.currency)
}

type moneyJSON struct {
	Amount   float64  `json:"amount"`
	Currency Currency `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount, Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := New(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return nil
}

func convertible(from, to Currency) bool {
	return (from == CurrencyUSDC && to == CurrencyHUSD) || (from == CurrencyHUSD && to == CurrencyUSDC)
}
