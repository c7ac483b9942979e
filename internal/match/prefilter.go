package match

import (
	"fmt"
	"regexp"
)

// Prefilter recognises "base numbers": the configured prefix followed by up to
// maxDigits digits and no further digit. It backs the quick per-file counts
// shown before a full analysis.
type Prefilter struct {
	prefix  string
	pattern *regexp.Regexp
}

// NewPrefilter compiles the base-number pattern for prefix and maxDigits.
func NewPrefilter(prefix string, maxDigits int) (*Prefilter, error) {
	if maxDigits < 1 {
		return nil, fmt.Errorf("max digits must be positive, got %d", maxDigits)
	}

	// RE2 has no lookahead; the trailing group rejects a further digit.
	expr := fmt.Sprintf(`^%s(\d{1,%d})(?:\D|$)`, regexp.QuoteMeta(prefix), maxDigits)
	pattern, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid base number pattern: %w", err)
	}

	return &Prefilter{prefix: prefix, pattern: pattern}, nil
}

// BaseNumber returns the matched prefix and digits of text.
func (p *Prefilter) BaseNumber(text string) (string, bool) {
	m := p.pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return p.prefix + m[1], true
}

// Summarize keeps the items whose text starts with a base number and counts
// distinct base numbers among them.
func (p *Prefilter) Summarize(items []MatchedItem) *AnalysisResult {
	kept := make([]MatchedItem, 0, len(items))
	unique := make(map[string]struct{})

	for _, it := range items {
		base, ok := p.BaseNumber(it.Text)
		if !ok {
			continue
		}
		kept = append(kept, it)
		unique[base] = struct{}{}
	}

	return &AnalysisResult{
		Total:  len(kept),
		Unique: len(unique),
		Items:  kept,
	}
}
