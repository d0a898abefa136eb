package core

import "github.com/shopspring/decimal"

// Summary aggregates a batch. Amounts are summed by their display value,
// Charges by their exact value.
type Summary struct {
	AmountCount  int
	AmountSum    decimal.Decimal
	ChargeCount  int
	ChargeSum    decimal.Decimal
	TotalCount   int
	Total        decimal.Decimal
	DecimalCount int // values written with a fractional part
	WholeCount   int
}

// Summarize recomputes the summary of b from scratch.
func Summarize(b Batch) Summary {
	s := Summary{
		AmountSum: decimal.Zero,
		ChargeSum: decimal.Zero,
	}
	for _, v := range b {
		switch v.Kind {
		case KindAmount:
			s.AmountCount++
			s.AmountSum = s.AmountSum.Add(v.DisplayValue)
		case KindCharge:
			s.ChargeCount++
			s.ChargeSum = s.ChargeSum.Add(v.Value)
		}
		if v.HasFraction() {
			s.DecimalCount++
		} else {
			s.WholeCount++
		}
	}
	s.TotalCount = s.AmountCount + s.ChargeCount
	s.Total = s.AmountSum.Add(s.ChargeSum)
	return s
}
