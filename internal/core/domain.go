package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindAmount Kind = "amount"
	KindCharge Kind = "charge"
)

const dateLayout = "2006-01-02"

type (
	// Kind is the classification of an extracted value.
	Kind string

	Date struct {
		time.Time
	}

	// RawMessage is one forwarded chat message as received.
	RawMessage struct {
		Text       string
		MessageID  int
		ReceivedAt time.Time
	}

	// NumericToken is a numeric substring recognized by the Scanner.
	NumericToken struct {
		Text       string // matched substring, currency and sign included
		Start      int    // byte offset in the source text
		End        int
		Currency   string
		Negative   bool
		Groups     []string // digit runs in source order
		Separators []byte   // separator between Groups[i] and Groups[i+1]
		DecimalSep byte     // separator read as decimal point, 0 when none
	}

	// Number is an exact value together with the count of fractional
	// digits it was written with.
	Number struct {
		Value decimal.Decimal
		Scale int32
	}

	// ClassifiedValue is one classified number of a batch.
	ClassifiedValue struct {
		Kind         Kind
		RawText      string
		Value        decimal.Decimal
		DisplayValue decimal.Decimal
		Currency     string
		Scale        int32
		MessageIndex int
	}

	// Batch is the ordered list of values collected in one session.
	Batch []ClassifiedValue
)

// ErrZeroDate rejects 0001-01-01, which callers use to mean "today".
var ErrZeroDate = errors.New("date cannot be zero")

func (k Kind) String() string {
	return string(k)
}

// Label is the capitalized form used in reports.
func (k Kind) Label() string {
	switch k {
	case KindAmount:
		return "Amount"
	case KindCharge:
		return "Charge"
	}
	return string(k)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	d := DateOf(t)
	if d.IsZero() {
		return Date{}, ErrZeroDate
	}
	return d, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// HasFraction reports whether the value was written with a fractional part.
func (v ClassifiedValue) HasFraction() bool {
	return v.Scale > 0
}

// ValueText renders the exact value with the precision it was written with.
func (v ClassifiedValue) ValueText() string {
	return v.Value.StringFixed(v.Scale)
}

// DisplayText renders the transformed value: Amounts without decimals,
// Charges exactly as found.
func (v ClassifiedValue) DisplayText(includeCurrency bool) string {
	var s string
	if v.Kind == KindAmount {
		s = v.DisplayValue.String()
	} else {
		s = v.DisplayValue.StringFixed(v.Scale)
	}
	if includeCurrency && v.Currency != "" {
		return v.Currency + s
	}
	return s
}

// Amounts returns the Amount values in batch order.
func (b Batch) Amounts() Batch {
	return b.filter(KindAmount)
}

// Charges returns the Charge values in batch order.
func (b Batch) Charges() Batch {
	return b.filter(KindCharge)
}

func (b Batch) filter(k Kind) Batch {
	out := make(Batch, 0, len(b))
	for _, v := range b {
		if v.Kind == k {
			out = append(out, v)
		}
	}
	return out
}
