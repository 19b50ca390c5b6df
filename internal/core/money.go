// Package core holds the expense domain types and money parsing utilities.
//
// This file contains functions for parsing monetary amounts from form input
// and formatting them for display.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a raw amount string into a decimal value.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. The
// result is always strictly positive. Returns ErrInvalidAmount for empty
// input, non-numeric input, negative values, and zero.
//
// Examples:
//
//	ParseAmount("12.50") -> 12.5, nil
//	ParseAmount("12,50") -> 12.5, nil
//	ParseAmount("abc")   -> 0, ErrInvalidAmount
//	ParseAmount("-5")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with a leading currency symbol and exactly
// two decimals, e.g. "€12.50".
func FormatAmount(symbol string, d decimal.Decimal) string {
	return symbol + d.StringFixed(2)
}
