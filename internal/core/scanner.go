package core

import (
	"iter"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultCurrencySymbols is the symbol set recognized in front of numbers.
var DefaultCurrencySymbols = []string{"$", "€", "£", "¥", "₹", "Rs.", "Rs", "NPR", "INR"}

// Submatch groups of the token pattern.
const (
	grpLeadSign = 1
	grpCurrency = 2
	grpInnerSig = 3
	grpBody     = 4
)

// Scanner extracts numeric tokens from free text. It is stateless once
// built and safe for concurrent use.
type Scanner struct {
	symbols []string
	re      *regexp.Regexp
}

// NewScanner builds a scanner for the given currency symbols. Alphabetic
// symbols match case-insensitively; the longest symbol wins.
func NewScanner(symbols []string) *Scanner {
	syms := make([]string, 0, len(symbols))
	seen := map[string]struct{}{}
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		syms = append(syms, s)
	}
	sort.SliceStable(syms, func(i, j int) bool {
		return utf8.RuneCountInString(syms[i]) > utf8.RuneCountInString(syms[j])
	})

	currency := `()`
	if len(syms) > 0 {
		alts := make([]string, len(syms))
		for i, s := range syms {
			alts[i] = regexp.QuoteMeta(s)
		}
		currency = `(?:((?i:` + strings.Join(alts, "|") + `))[ \t\x{00A0}]*)?`
	}
	pattern := `(-)?` + currency + `(-)?(\d+(?:[.,]\d+)*)`

	return &Scanner{
		symbols: syms,
		re:      regexp.MustCompile(pattern),
	}
}

// DefaultScanner returns a scanner for DefaultCurrencySymbols.
func DefaultScanner() *Scanner {
	return NewScanner(DefaultCurrencySymbols)
}

// Symbols returns the currency symbols, longest first.
func (s *Scanner) Symbols() []string {
	return append([]string(nil), s.symbols...)
}

// Tokens yields the numeric tokens of text from left to right. Candidates
// that cannot be read unambiguously are skipped.
func (s *Scanner) Tokens(text string) iter.Seq[NumericToken] {
	return func(yield func(NumericToken) bool) {
		pos := 0
		for pos < len(text) {
			loc := s.re.FindStringSubmatchIndex(text[pos:])
			if loc == nil {
				return
			}
			for i := range loc {
				if loc[i] >= 0 {
					loc[i] += pos
				}
			}
			pos = loc[1]

			tok, ok := tokenAt(text, loc)
			if !ok {
				continue
			}
			if !yield(tok) {
				return
			}
		}
	}
}

// Scan collects Tokens into a slice.
func (s *Scanner) Scan(text string) []NumericToken {
	var out []NumericToken
	for tok := range s.Tokens(text) {
		out = append(out, tok)
	}
	return out
}

type component struct {
	group int
	start int
}

// tokenAt validates one regexp match. The match is retried from each of
// its components so that a hyphen or a word fragment in front of the
// digits does not swallow the number.
func tokenAt(text string, loc []int) (NumericToken, bool) {
	span := func(g int) (int, int) { return loc[2*g], loc[2*g+1] }

	bodyStart, bodyEnd := span(grpBody)
	if !rightBoundaryOK(text, bodyEnd) {
		return NumericToken{}, false
	}
	leadStart, _ := span(grpLeadSign)
	innerStart, _ := span(grpInnerSig)
	if leadStart >= 0 && innerStart >= 0 {
		if cs, ce := span(grpCurrency); cs >= 0 && ce > cs {
			// "-$-5": a sign on both sides of the currency.
			return NumericToken{}, false
		}
		// "--5": only the sign touching the digits counts.
		leadStart = -1
	}

	var comps []component
	for _, g := range []int{grpLeadSign, grpCurrency, grpInnerSig, grpBody} {
		if g == grpLeadSign && leadStart < 0 {
			continue
		}
		if st, en := span(g); st >= 0 && en > st {
			comps = append(comps, component{group: g, start: st})
		}
	}

	for _, c := range comps {
		if !leftBoundaryOK(text, c) {
			continue
		}
		tok := NumericToken{
			Text:  text[c.start:bodyEnd],
			Start: c.start,
			End:   bodyEnd,
		}
		if st, en := span(grpCurrency); st >= c.start && en > st {
			tok.Currency = text[st:en]
		}
		if (leadStart >= c.start) || (innerStart >= c.start) {
			tok.Negative = true
		}
		tok.Groups, tok.Separators = splitBody(text[bodyStart:bodyEnd])
		sep, ok := resolveDecimal(tok.Groups, tok.Separators)
		if !ok {
			return NumericToken{}, false
		}
		tok.DecimalSep = sep
		return tok, true
	}
	return NumericToken{}, false
}

func leftBoundaryOK(text string, c component) bool {
	if c.start == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:c.start])
	if prev == '.' || prev == ',' || unicode.IsDigit(prev) {
		return false
	}
	if c.group == grpCurrency {
		first, _ := utf8.DecodeRuneInString(text[c.start:])
		if !unicode.IsLetter(first) {
			// "US$5" is fine, "abcRs5" is not.
			return true
		}
	}
	return !isWordRune(prev)
}

func rightBoundaryOK(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(text[end:])
	return !isWordRune(next) && !unicode.IsDigit(next)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func splitBody(body string) ([]string, []byte) {
	var (
		groups []string
		seps   []byte
		from   int
	)
	for i := 0; i < len(body); i++ {
		if body[i] == '.' || body[i] == ',' {
			groups = append(groups, body[from:i])
			seps = append(seps, body[i])
			from = i + 1
		}
	}
	groups = append(groups, body[from:])
	return groups, seps
}

// resolveDecimal decides which separator, if any, is the decimal point.
//
// One separator followed by 1-2 digits is decimal; followed by 3 or more it
// is grouping. Several identical separators are grouping ("1.234.567").
//
// Mixed separators are not treated as grouping. A number groups its digits
// with a single character, so in "1,234.56" the comma groups and the final
// period, written with 1-2 digits after it, is the decimal point (likewise
// "1.234,56"). Dropping both as grouping would turn 1234.56 into 123456.
// When the final differing separator has 3 or more digits after it
// ("1,234.567"), or earlier separators are themselves mixed, there is no
// consistent reading and the candidate is reported as not ok, so the
// scanner skips it.
func resolveDecimal(groups []string, seps []byte) (byte, bool) {
	n := len(seps)
	if n == 0 {
		return 0, true
	}
	last := seps[n-1]
	tail := groups[n]
	if n == 1 {
		if len(tail) <= 2 {
			return last, true
		}
		return 0, true
	}
	first := seps[0]
	for _, sep := range seps[:n-1] {
		if sep != first {
			return 0, false
		}
	}
	if first == last {
		return 0, true
	}
	if len(tail) <= 2 {
		return last, true
	}
	return 0, false
}
