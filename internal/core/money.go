// Package core provides money parsing and handling utilities.
//
// Amounts are stored as integer cents. Conversions from user input go
// through shopspring/decimal so that values like 0.1+0.2 never drift.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes formatted amounts in messages.
const CurrencySymbol = "R$"

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Returns an error for invalid
// formats, signed values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
//	ParseDecimalToCents("12.344") -> 1234, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "+-eE") {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return decimalToCents(d)
}

// MoneyFromFloat converts a JSON-style number to Money, taking the absolute
// value since the sign is carried by the transaction type.
func MoneyFromFloat(f float64) (Money, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Money{}, ErrInvalidAmount
	}
	cents, err := decimalToCents(decimal.NewFromFloat(f).Abs())
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

// MoneyFromString is MoneyFromFloat for textual numbers ("-12.5", "12,50").
func MoneyFromString(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents, err := decimalToCents(d.Abs())
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

func decimalToCents(d decimal.Decimal) (int64, error) {
	cents := d.Shift(2).Round(0)
	if cents.Sign() <= 0 || !cents.IsInteger() {
		return 0, ErrInvalidAmount
	}
	// Reject anything that cannot round-trip through int64.
	if cents.GreaterThan(decimal.NewFromInt(math.MaxInt64 / 100)) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns the amount in currency units as a float64 for JSON output.
// Use cents for calculations.
func (m Money) Float() float64 {
	return m.Decimal().InexactFloat64()
}

// Abs returns the magnitude of m.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

// String renders the amount with two decimals, e.g. "2850.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Format renders the amount with the currency symbol, e.g. "R$ 2850.00".
func (m Money) Format() string {
	return CurrencySymbol + " " + m.String()
}

// FormatAmount renders a currency-unit float the way Money.Format does.
// Non-finite values render as zero.
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return CurrencySymbol + " " + decimal.NewFromFloat(v).StringFixed(2)
}
