// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// into decimal values and formatting them back for display.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to a positive decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs are
// rejected: transaction amounts are always positive and the direction comes
// from the debit/credit legs.
//
// Examples:
//   ParseAmount("12.34")   -> 12.34, nil
//   ParseAmount("12,34")   -> 12.34, nil
//   ParseAmount("1000000") -> 1000000, nil
//   ParseAmount("0")       -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ".") > 1 || strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseBalance parses a signed balance; empty means zero.
func ParseBalance(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// FormatAmount renders d with two decimal places for display.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
