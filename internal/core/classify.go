package core

import (
	"github.com/shopspring/decimal"
)

// DefaultThreshold separates Amounts (strictly above) from Charges.
var DefaultThreshold = decimal.NewFromInt(50)

// Classifier applies the threshold rule. The comparison is numeric, not by
// magnitude: negative values are always Charges.
type Classifier struct {
	Threshold decimal.Decimal
}

// NewClassifier returns a classifier for threshold.
func NewClassifier(threshold decimal.Decimal) Classifier {
	return Classifier{Threshold: threshold}
}

// Kind returns Amount for values above the threshold, Charge otherwise.
func (c Classifier) Kind(v decimal.Decimal) Kind {
	if v.GreaterThan(c.Threshold) {
		return KindAmount
	}
	return KindCharge
}

// Classify builds the classified record for a normalized number. Amounts
// have their fractional part truncated toward zero; Charges are kept.
func (c Classifier) Classify(raw string, n Number) ClassifiedValue {
	cv := ClassifiedValue{
		Kind:         c.Kind(n.Value),
		RawText:      raw,
		Value:        n.Value,
		DisplayValue: n.Value,
		Scale:        n.Scale,
	}
	if cv.Kind == KindAmount {
		cv.DisplayValue = n.Value.Truncate(0)
	}
	return cv
}

// Pipeline runs scanner, normalizer and classifier over messages.
type Pipeline struct {
	scanner    *Scanner
	classifier Classifier
}

func NewPipeline(s *Scanner, c Classifier) *Pipeline {
	return &Pipeline{scanner: s, classifier: c}
}

// DefaultPipeline uses the default currency symbols and threshold.
func DefaultPipeline() *Pipeline {
	return NewPipeline(DefaultScanner(), NewClassifier(DefaultThreshold))
}

func (p *Pipeline) Scanner() *Scanner {
	return p.scanner
}

func (p *Pipeline) Classifier() Classifier {
	return p.classifier
}

// ProcessMessage classifies every number of one message. Tokens that fail
// to normalize are reported and skipped.
func (p *Pipeline) ProcessMessage(index int, text string) ([]ClassifiedValue, []TokenIssue) {
	var (
		values []ClassifiedValue
		issues []TokenIssue
	)
	for tok := range p.scanner.Tokens(text) {
		n, err := Normalize(tok)
		if err != nil {
			issues = append(issues, TokenIssue{MessageIndex: index, Text: tok.Text, Err: err})
			continue
		}
		cv := p.classifier.Classify(tok.Text, n)
		cv.Currency = tok.Currency
		cv.MessageIndex = index
		values = append(values, cv)
	}
	return values, issues
}

// ProcessBatch classifies all messages in order.
func (p *Pipeline) ProcessBatch(messages []string) (Batch, []TokenIssue) {
	var (
		batch  Batch
		issues []TokenIssue
	)
	for i, text := range messages {
		values, errs := p.ProcessMessage(i, text)
		batch = append(batch, values...)
		issues = append(issues, errs...)
	}
	return batch, issues
}
