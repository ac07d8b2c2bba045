package money

import (
	"fmt"
	"strings"
)

type Currency string

const (
	CurrencyUSDC Currency = "USDC"
	CurrencyHUSD Currency = "HUSD"
	CurrencyHBAR Currency = "HBAR"
)

type currencyInfo struct {
	decimals int32
	scale    int64
}

var currencies = map[Currency]currencyInfo{
	CurrencyUSDC: {decimals: 6, scale: 1_000_000},
	CurrencyHUSD: {decimals: 3, scale: 1_000},
	CurrencyHBAR: {decimals: 8, scale: 100_000_000},
}

func ParseCurrency(raw string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown currency %q", ErrInvalidValue, raw)
	}
	return c, nil
}

func (c Currency) Valid() bool {
	_, ok := currencies[c]
	return ok
}

// Decimals is the number of fractional digits used for display.
func (c Currency) Decimals() int32 {
	return currencies[c].decimals
}

// Scale is the number of tiny units in one whole unit on the ledger.
func (c Currency) Scale() int64 {
	return currencies[c].scale
}

func (c Currency) String() string {
	return string(c)
}
