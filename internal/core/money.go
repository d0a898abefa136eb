// Package core provides number extraction, classification and ledger
// arithmetic for forwarded chat messages.
//
// This file contains the normalizer that turns scanned tokens into exact
// decimal values, and the parser used for manually typed deposit and
// limit amounts.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Normalize converts a scanned token into an exact signed decimal.
//
// The decimal point is the separator the scanner resolved for the token;
// every other separator is a thousands separator and is dropped. The
// returned Scale is the number of fractional digits as written.
//
// Examples:
//
//	"123.45", "123,45", "$123.45", "€123,45" -> 123.45 (scale 2)
//	"1,234" -> 1234 (scale 0)
//	"1,23"  -> 1.23 (scale 2)
//	"-$60"  -> -60
func Normalize(tok NumericToken) (Number, error) {
	var intPart, fracPart strings.Builder
	last := len(tok.Groups) - 1
	for i, g := range tok.Groups {
		if tok.DecimalSep != 0 && i == last {
			fracPart.WriteString(g)
			continue
		}
		intPart.WriteString(g)
	}

	digits := intPart.String()
	frac := fracPart.String()
	if digits == "" && frac == "" {
		return Number{}, &ParseError{Text: tok.Text, Err: ErrNoDigits}
	}
	if !allDigits(digits) || !allDigits(frac) {
		return Number{}, &ParseError{Text: tok.Text, Err: ErrInvalidAmount}
	}
	if digits == "" {
		digits = "0"
	}

	s := digits
	if frac != "" {
		s += "." + frac
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return Number{}, &ParseError{Text: tok.Text, Err: err}
	}
	if tok.Negative {
		v = v.Neg()
	}
	return Number{Value: v, Scale: int32(len(frac))}, nil
}

// ParseAmountInput reads a manually typed amount, such as a deposit or a
// limit. The trimmed input must be exactly one number, optionally with a
// currency symbol; anything else is a ValidationError for field.
func ParseAmountInput(s *Scanner, field, input string) (decimal.Decimal, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return decimal.Decimal{}, &ValidationError{Field: field, Value: input, Err: ErrInvalidAmount}
	}
	toks := s.Scan(text)
	if len(toks) != 1 || toks[0].Start != 0 || toks[0].End != len(text) {
		return decimal.Decimal{}, &ValidationError{Field: field, Value: input, Err: ErrInvalidAmount}
	}
	n, err := Normalize(toks[0])
	if err != nil {
		return decimal.Decimal{}, &ValidationError{Field: field, Value: input, Err: err}
	}
	return n.Value, nil
}

// ParseAmountNumber reads an amount that arrived as a number rather than
// typed text, such as a JSON number. There are no grouping separators to
// resolve: the input is plain decimal notation with an optional leading
// minus, at most two fractional digits and no exponent.
func ParseAmountNumber(field, input string) (decimal.Decimal, error) {
	fail := func(err error) (decimal.Decimal, error) {
		return decimal.Decimal{}, &ValidationError{Field: field, Value: input, Err: err}
	}
	text := strings.TrimPrefix(strings.TrimSpace(input), "-")
	intPart, frac, hasPoint := strings.Cut(text, ".")
	if intPart == "" || !allDigits(intPart) || !allDigits(frac) || (hasPoint && frac == "") {
		return fail(ErrInvalidAmount)
	}
	if len(frac) > 2 {
		return fail(ErrTooPrecise)
	}
	v, err := decimal.NewFromString(strings.TrimSpace(input))
	if err != nil {
		return fail(ErrInvalidAmount)
	}
	return v, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
