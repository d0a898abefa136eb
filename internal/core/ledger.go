package core

import (
	"github.com/shopspring/decimal"
)

// BankLedgerEntry is the state of one bank on one day.
type BankLedgerEntry struct {
	BankName       string
	Date           Date
	OpeningBalance decimal.Decimal
	DepositsToday  decimal.Decimal
	Limit          decimal.NullDecimal
	Remaining      decimal.NullDecimal
}

// LedgerInput is everything needed to compute one day of one bank. Prior
// is the most recent earlier entry of the same bank, nil on the first day.
type LedgerInput struct {
	BankName string
	Date     Date
	Entries  []string          // typed deposit entries, validated here
	Amounts  []decimal.Decimal // deposits already validated
	Limit    decimal.NullDecimal
	Prior    *BankLedgerEntry
}

// ComputeLedger derives the day's entry from today's deposits and the prior
// day's state:
//
//	openingBalance = prior.Remaining, or 0
//	depositsToday  = sum of today's deposits
//	remaining      = limit - openingBalance - depositsToday
//
// A negative remaining is an over-limit signal, not an error. When no limit
// is given the prior entry's limit is reused; without any limit Remaining
// is absent and nothing carries forward.
//
// An unknown bank fails the whole computation. Invalid deposit entries are
// returned as issues and left out of the sum.
func ComputeLedger(catalog *BankCatalog, scanner *Scanner, in LedgerInput) (BankLedgerEntry, []EntryIssue, error) {
	bank, err := catalog.Resolve(in.BankName)
	if err != nil {
		return BankLedgerEntry{}, nil, err
	}

	entry := BankLedgerEntry{
		BankName:       bank,
		Date:           in.Date,
		OpeningBalance: decimal.Zero,
		DepositsToday:  decimal.Zero,
		Limit:          in.Limit,
	}

	var issues []EntryIssue
	for _, a := range in.Amounts {
		entry.DepositsToday = entry.DepositsToday.Add(a)
	}
	for i, text := range in.Entries {
		v, err := ParseAmountInput(scanner, "deposit", text)
		if err != nil {
			issues = append(issues, EntryIssue{Index: i, Text: text, Err: err})
			continue
		}
		entry.DepositsToday = entry.DepositsToday.Add(v)
	}

	if in.Prior != nil {
		if !entry.Limit.Valid {
			entry.Limit = in.Prior.Limit
		}
		if in.Prior.Remaining.Valid {
			entry.OpeningBalance = in.Prior.Remaining.Decimal
		}
	}

	if entry.Limit.Valid {
		entry.Remaining = decimal.NewNullDecimal(
			entry.Limit.Decimal.Sub(entry.OpeningBalance).Sub(entry.DepositsToday),
		)
	}
	return entry, issues, nil
}

// OverLimit reports whether deposits exceeded the limit.
func (e BankLedgerEntry) OverLimit() bool {
	return e.Remaining.Valid && e.Remaining.Decimal.IsNegative()
}
