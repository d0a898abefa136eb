package core

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks a token that reached the normalizer without usable digits.
	ErrParse = errors.New("could not interpret number")

	// ErrValidation marks user input that must be re-entered.
	ErrValidation = errors.New("validation failed")

	ErrUnknownBank   = errors.New("unknown bank")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNoDigits      = errors.New("no digits")
	ErrTooPrecise    = errors.New("more than two fractional digits")
)

// ParseError is returned by Normalize. It never aborts a batch.
type ParseError struct {
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not interpret number %q: %v", e.Text, e.Err)
	}
	return fmt.Sprintf("could not interpret number %q", e.Text)
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrParse, e.Err}
	}
	return []error{ErrParse}
}

// ValidationError reports a rejected bank name, deposit or limit entry.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

// TokenIssue records a token skipped while processing a message.
type TokenIssue struct {
	MessageIndex int
	Text         string
	Err          error
}

// EntryIssue records a deposit entry rejected while building a ledger entry.
type EntryIssue struct {
	Index int
	Text  string
	Err   error
}
