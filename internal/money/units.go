package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrTooManyDecimals = errors.New("amount has too many decimal places")

// ParseTinyUnits parses a decimal string such as "100.5" into tiny units of
// currency without going through floating point.
func ParseTinyUnits(input string, currency Currency) (int64, error) {
	if !currency.Valid() {
		return 0, fmt.Errorf("%w: unknown currency %q", ErrInvalidAmount, currency)
	}
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, ErrInvalidAmount
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if value.IsNegative() {
		return 0, fmt.Errorf("%w: amount cannot be negative", ErrInvalidAmount)
	}
	units := value.Shift(currency.Decimals())
	if !units.IsInteger() {
		return 0, ErrTooManyDecimals
	}
	if units.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, fmt.Errorf("%w: amount too large", ErrInvalidAmount)
	}
	return units.IntPart(), nil
}

// ParseAmount parses a decimal string into Money of currency.
func ParseAmount(input string, currency Currency) (Money, error) {
	units, err := ParseTinyUnits(input, currency)
	if err != nil {
		return Money{}, err
	}
	return FromTinyUnits(units, currency)
}

// FormatTinyUnits renders tiny units with the currency's display decimals.
func FormatTinyUnits(units int64, currency Currency) string {
	return decimal.New(units, -currency.Decimals()).StringFixed(currency.Decimals())
}
