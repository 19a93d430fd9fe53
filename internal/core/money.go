// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts typed by users
// or returned by the transaction lookup service.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimal converts user or wire text into a decimal.
//
// It trims whitespace and accepts both dot (12.34) and comma (12,34) decimal
// separators and exponent notation (1e-05). Sign is preserved. Empty input,
// NaN, infinities and any other non-numeric text return ErrInvalidAmount.
//
// Examples:
//
//	ParseDecimal("12.34")  -> 12.34, nil
//	ParseDecimal("12,34")  -> 12.34, nil
//	ParseDecimal(" 0.5 ")  -> 0.5, nil
//	ParseDecimal("1e-05")  -> 0.00001, nil
//	ParseDecimal("abc")    -> 0, ErrInvalidAmount
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	if !numeric(s) {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// numeric reports whether s is [sign]digits[.digits][(e|E)[sign]digits].
func numeric(s string) bool {
	var mantissa, exponent, inExp bool
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			if inExp {
				exponent = true
			} else {
				mantissa = true
			}
		case r == '.' && !inExp:
		case r == '-' || r == '+':
			if i != 0 && (s[i-1] != 'e' && s[i-1] != 'E') {
				return false
			}
		case (r == 'e' || r == 'E') && !inExp && mantissa:
			inExp = true
		default:
			return false
		}
	}
	return mantissa && (!inExp || exponent)
}

// ParseAmount parses an expense amount. The result is always strictly positive.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := ParseDecimal(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseShare parses a split share. Zero is allowed, negative values are not.
func ParseShare(s string) (decimal.Decimal, error) {
	d, err := ParseDecimal(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with two decimals for display, e.g. as the
// suggested payment after an expense is added.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
