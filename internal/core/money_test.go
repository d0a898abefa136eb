package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalize(t *testing.T) {
	s := DefaultScanner()
	tests := []struct {
		in    string
		want  string
		scale int32
	}{
		{"123.45", "123.45", 2},
		{"123,45", "123.45", 2},
		{"$123.45", "123.45", 2},
		{"€123,45", "123.45", 2},
		{"1,234", "1234", 0},
		{"1,23", "1.23", 2},
		{"50,000", "50000", 0},
		{"1.234.567", "1234567", 0},
		{"1.234,5", "1234.5", 1},
		{"-60", "-60", 0},
		{"-$60.90", "-60.9", 2},
		{"Rs 0.5", "0.5", 1},
		{"007", "7", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			toks := s.Scan(tt.in)
			if len(toks) != 1 {
				t.Fatalf("expected one token, got %d", len(toks))
			}
			n, err := Normalize(toks[0])
			if err != nil {
				t.Fatalf("Normalize(%q) error: %v", tt.in, err)
			}
			if !n.Value.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Normalize(%q) = %s, want %s", tt.in, n.Value, tt.want)
			}
			if n.Scale != tt.scale {
				t.Errorf("Normalize(%q) scale = %d, want %d", tt.in, n.Scale, tt.scale)
			}
		})
	}
}

func TestNormalizeErrors(t *testing.T) {
	_, err := Normalize(NumericToken{Text: "$"})
	if !errors.Is(err, ErrParse) || !errors.Is(err, ErrNoDigits) {
		t.Fatalf("expected parse error without digits, got %v", err)
	}

	_, err = Normalize(NumericToken{Text: "1x", Groups: []string{"1x"}})
	if !errors.Is(err, ErrParse) || !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Text != "1x" {
		t.Fatalf("expected *ParseError carrying the text, got %#v", err)
	}
}

func TestParseAmountInput(t *testing.T) {
	s := DefaultScanner()
	valid := map[string]string{
		"500":        "500",
		"  300 ":     "300",
		"Rs 1,000":   "1000",
		"npr 2.5":    "2.5",
		"$-20":       "-20",
		"1.234,50":   "1234.5",
		"-€1,234.56": "-1234.56",
	}
	for in, want := range valid {
		got, err := ParseAmountInput(s, "deposit", in)
		if err != nil {
			t.Errorf("ParseAmountInput(%q) error: %v", in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("ParseAmountInput(%q) = %s, want %s", in, got, want)
		}
	}

	invalid := []string{"", "   ", "abc", "5 6", "12abc", "about 5", "5 rupees", "1,2.3,4"}
	for _, in := range invalid {
		_, err := ParseAmountInput(s, "limit", in)
		if err == nil {
			t.Errorf("ParseAmountInput(%q) expected error", in)
			continue
		}
		if !errors.Is(err, ErrValidation) || !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("ParseAmountInput(%q) unexpected error kind: %v", in, err)
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != "limit" {
			t.Errorf("ParseAmountInput(%q) expected field limit, got %#v", in, err)
		}
	}
}

func TestParseAmountNumber(t *testing.T) {
	valid := map[string]string{
		"1000":    "1000",
		"1000.5":  "1000.5",
		"0.12":    "0.12",
		"-3":      "-3",
		"1200.50": "1200.5",
	}
	for in, want := range valid {
		got, err := ParseAmountNumber("deposit", in)
		if err != nil {
			t.Errorf("ParseAmountNumber(%q) error: %v", in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("ParseAmountNumber(%q) = %s, want %s", in, got, want)
		}
	}

	tests := []struct {
		in   string
		want error
	}{
		{"0.125", ErrTooPrecise},
		{"1000.125", ErrTooPrecise},
		{"1e3", ErrInvalidAmount},
		{"1.5E2", ErrInvalidAmount},
		{"1,000", ErrInvalidAmount},
		{"", ErrInvalidAmount},
		{"-", ErrInvalidAmount},
		{"5.", ErrInvalidAmount},
	}
	for _, tt := range tests {
		_, err := ParseAmountNumber("deposit", tt.in)
		if !errors.Is(err, ErrValidation) || !errors.Is(err, tt.want) {
			t.Errorf("ParseAmountNumber(%q) = %v, want %v", tt.in, err, tt.want)
		}
	}
}
