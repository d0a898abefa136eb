package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestClassifierBoundaries(t *testing.T) {
	c := NewClassifier(DefaultThreshold)
	tests := []struct {
		in      string
		kind    Kind
		display string
	}{
		{"50", KindCharge, "50"},
		{"50.00", KindCharge, "50.00"},
		{"50.01", KindAmount, "50"},
		{"51", KindAmount, "51"},
		{"60.9", KindAmount, "60"},
		{"-60", KindCharge, "-60"},
		{"-60.9", KindCharge, "-60.9"},
		{"0", KindCharge, "0"},
		{"12.50", KindCharge, "12.50"},
		{"123.45", KindAmount, "123"},
	}
	s := DefaultScanner()
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			tok := s.Scan(tt.in)[0]
			n, err := Normalize(tok)
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			cv := c.Classify(tok.Text, n)
			if cv.Kind != tt.kind {
				t.Errorf("Classify(%s) kind = %s, want %s", tt.in, cv.Kind, tt.kind)
			}
			if got := cv.DisplayText(false); got != tt.display {
				t.Errorf("Classify(%s) display = %q, want %q", tt.in, got, tt.display)
			}
			if !cv.Value.Equal(n.Value) {
				t.Errorf("Classify(%s) altered the exact value: %s", tt.in, cv.Value)
			}
		})
	}
}

func TestClassifierCustomThreshold(t *testing.T) {
	c := NewClassifier(decimal.NewFromInt(100))
	if c.Kind(decimal.NewFromInt(75)) != KindCharge {
		t.Fatalf("75 should be a charge above threshold 100")
	}
	if c.Kind(decimal.RequireFromString("100.5")) != KindAmount {
		t.Fatalf("100.5 should be an amount")
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	p := DefaultPipeline()
	batch, issues := p.ProcessBatch([]string{
		"Paid $123.45 today",
		"fee 12,50",
		"got 75",
	})
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %+v", issues)
	}
	want := []struct {
		kind     Kind
		display  string
		currency string
		index    int
	}{
		{KindAmount, "123", "$", 0},
		{KindCharge, "12.50", "", 1},
		{KindAmount, "75", "", 2},
	}
	if len(batch) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(batch))
	}
	for i, w := range want {
		v := batch[i]
		if v.Kind != w.kind || v.DisplayText(false) != w.display || v.Currency != w.currency || v.MessageIndex != w.index {
			t.Errorf("value %d = {%s %s %q %d}, want %+v", i, v.Kind, v.DisplayText(false), v.Currency, v.MessageIndex, w)
		}
	}

	sum := Summarize(batch)
	if sum.AmountCount != 2 || !sum.AmountSum.Equal(decimal.NewFromInt(198)) {
		t.Errorf("amounts: count %d sum %s", sum.AmountCount, sum.AmountSum)
	}
	if sum.ChargeCount != 1 || sum.ChargeSum.StringFixed(2) != "12.50" {
		t.Errorf("charges: count %d sum %s", sum.ChargeCount, sum.ChargeSum)
	}
}

func TestPipelineSkipsNonNumbers(t *testing.T) {
	p := DefaultPipeline()
	values, issues := p.ProcessMessage(3, "no numbers here, just words.")
	if len(values) != 0 || len(issues) != 0 {
		t.Fatalf("expected nothing, got %v / %v", values, issues)
	}

	values, _ = p.ProcessMessage(4, "ref-42 and abc123")
	if len(values) != 1 || values[0].RawText != "42" || values[0].MessageIndex != 4 {
		t.Fatalf("unexpected values: %+v", values)
	}
}
