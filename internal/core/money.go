// Package core provides money parsing and handling utilities.
//
// Amounts are fixed-point decimals with two fractional digits. They are stored
// as integer cents and carried in memory as shopspring decimals so that
// averages and ratios can keep extra precision until presentation.
package core

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a two-decimal monetary amount.
type Money struct {
	decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// NewMoney wraps d rounded half-up to cents.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d.Round(2)}
}

// MoneyFromCents builds an amount from integer cents.
func MoneyFromCents(cents int64) Money {
	return Money{Decimal: decimal.New(cents, -2)}
}

// Cents returns the amount in integer cents, rounded half-up.
func (m Money) Cents() int64 {
	return m.Decimal.Mul(hundred).Round(0).IntPart()
}

// ParseMoney converts a decimal string to an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rounds half-up on the third decimal place. Negative values are rejected.
//
// Examples:
//
//	ParseMoney("12.34") -> 12.34
//	ParseMoney("12,345") -> 12.35
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	// NewFromString accepts exponents; amounts never carry one.
	if strings.ContainsAny(s, "eE") {
		return Money{}, ErrInvalidAmount
	}
	return NewMoney(d), nil
}

// ParseAmountBound reads a filter bound. Unlike ParseMoney it keeps every
// decimal place and accepts negative values.
func ParseAmountBound(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || strings.ContainsAny(s, "eE") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{Decimal: d}, nil
}

// CeilCents is the smallest whole number of cents not below m.
func (m Money) CeilCents() int64 {
	return m.Decimal.Mul(hundred).Ceil().IntPart()
}

// FloorCents is the largest whole number of cents not above m.
func (m Money) FloorCents() int64 {
	return m.Decimal.Mul(hundred).Floor().IntPart()
}

func (m Money) Sub(o Money) Money { return Money{Decimal: m.Decimal.Sub(o.Decimal)} }

// String renders the amount with exactly two decimals.
func (m Money) String() string {
	return m.Decimal.StringFixed(2)
}

// MarshalJSON renders the amount as a quoted two-decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.Decimal.StringFixed(2) + `"`), nil
}

// UnmarshalJSON accepts both quoted strings and bare numbers.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*m = Money{}
		return nil
	}
	s := strings.Trim(string(b), `"`)
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return ErrInvalidAmount
	}
	*m = NewMoney(d)
	return nil
}
