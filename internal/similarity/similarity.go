// Package similarity decides whether two market questions describe the same
// underlying event. Questions are normalized by stripping time-qualifying
// phrases ("by end of 2026", "this week", explicit dates) and folding case,
// punctuation, and whitespace, then compared with a token-set similarity
// score. Two markets listed on different venues often phrase the same event
// with different time qualifiers, so the normalization step is what makes
// cross-venue grouping possible.
package similarity

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultTimeQualifierPatterns is the stock set of time-qualifying phrases
// stripped during normalization. The set is configurable; these defaults
// cover explicit dates, relative terms, and bare year mentions.
var DefaultTimeQualifierPatterns = []string{
	`\bby\s+(the\s+)?end\s+of\s+\d{4}\b`,
	`\b(on|by|before|after|during|in)\s+(january|february|march|april|may|june|july|august|september|october|november|december)(\s+\d{1,2})?(,?\s*\d{4})?\b`,
	`\b(on|by|before|after)\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`,
	`\bthis\s+(week|month|year|quarter)\b`,
	`\bnext\s+(week|month|year|quarter)\b`,
	`\b(today|tomorrow|tonight)\b`,
	`\b(in|by|before|during)\s+(19|20)\d{2}\b`,
	`\b(19|20)\d{2}\b`,
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]+`)
var whitespace = regexp.MustCompile(`\s+`)

// Normalizer strips time-qualifying phrases and folds case, punctuation,
// and whitespace.
type Normalizer struct {
	patterns []*regexp.Regexp
}

// NewNormalizer compiles the given qualifier patterns. Patterns are matched
// against lowercased input. An empty list falls back to
// DefaultTimeQualifierPatterns.
func NewNormalizer(patterns []string) (*Normalizer, error) {
	if len(patterns) == 0 {
		patterns = DefaultTimeQualifierPatterns
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid time qualifier pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &Normalizer{patterns: compiled}, nil
}

// Normalize returns the grouping form of a question: lowercased, with time
// qualifiers removed and punctuation/whitespace folded.
func (n *Normalizer) Normalize(question string) string {
	s := strings.ToLower(question)
	for _, re := range n.patterns {
		s = re.ReplaceAllString(s, " ")
	}
	s = nonAlnum.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Similarity computes a symmetric token-set similarity (Sørensen–Dice) over
// two already-normalized strings. Identical strings score 1.0, disjoint token
// sets score 0, and adding shared tokens never decreases the score.
func Similarity(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)

	if len(ta) == 0 && len(tb) == 0 {
		return 1.0
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}

	shared := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			shared++
		}
	}
	return 2.0 * float64(shared) / float64(len(ta)+len(tb))
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

// Matcher combines a Normalizer with a similarity threshold to answer the
// single question the cross-market strategy needs: do two questions describe
// the same event?
type Matcher struct {
	normalizer *Normalizer
	threshold  float64
}

// NewMatcher creates a Matcher. The threshold must lie in [0, 1].
func NewMatcher(normalizer *Normalizer, threshold float64) (*Matcher, error) {
	if threshold < 0.0 || threshold > 1.0 {
		return nil, fmt.Errorf("similarity threshold %.2f outside [0,1]", threshold)
	}
	return &Matcher{normalizer: normalizer, threshold: threshold}, nil
}

// Score returns the similarity of two raw questions after normalization.
func (m *Matcher) Score(a, b string) float64 {
	return Similarity(m.normalizer.Normalize(a), m.normalizer.Normalize(b))
}

// SameEvent reports whether two questions are similar enough to describe the
// same underlying event.
func (m *Matcher) SameEvent(a, b string) bool {
	return m.Score(a, b) >= m.threshold
}
