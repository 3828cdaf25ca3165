package similarity

import (
	"math"
	"testing"
)

func mustNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := NewNormalizer(nil)
	if err != nil {
		t.Fatalf("NewNormalizer failed: %v", err)
	}
	return n
}

func TestNormalize(t *testing.T) {
	n := mustNormalizer(t)

	tests := []struct {
		name     string
		question string
		want     string
	}{
		{
			name:     "year qualifier stripped",
			question: "Will X happen by 2026?",
			want:     "will x happen",
		},
		{
			name:     "end of year phrase stripped",
			question: "Will Bitcoin hit $100k by end of 2026?",
			want:     "will bitcoin hit 100k",
		},
		{
			name:     "relative qualifier stripped",
			question: "Will the bill pass this week?",
			want:     "will the bill pass",
		},
		{
			name:     "explicit date stripped",
			question: "Will the launch succeed on February 24?",
			want:     "will the launch succeed",
		},
		{
			name:     "case and punctuation folded",
			question: "WILL   X... Happen?!",
			want:     "will x happen",
		},
		{
			name:     "no qualifier unchanged",
			question: "Will X happen?",
			want:     "will x happen",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalize(tt.question); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.question, got, tt.want)
			}
		})
	}
}

func TestNewNormalizerRejectsBadPattern(t *testing.T) {
	if _, err := NewNormalizer([]string{`[unclosed`}); err == nil {
		t.Error("NewNormalizer should reject an invalid regexp")
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("will x happen", "will x happen"); got != 1.0 {
		t.Errorf("identical strings should score 1.0, got %v", got)
	}
	if got := Similarity("alpha beta", "gamma delta"); got != 0.0 {
		t.Errorf("disjoint token sets should score 0, got %v", got)
	}

	// Symmetry
	a, b := "will x happen", "will y happen"
	if Similarity(a, b) != Similarity(b, a) {
		t.Error("similarity must be symmetric")
	}

	// Adding a shared token must not decrease the score
	base := Similarity("will x happen", "will y happen")
	more := Similarity("will x happen soon", "will y happen soon")
	if more < base {
		t.Errorf("adding shared tokens decreased score: %v -> %v", base, more)
	}
}

func TestMatcherSameEvent(t *testing.T) {
	m, err := NewMatcher(mustNormalizer(t), 0.80)
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}

	// Same event, different time qualifier
	if !m.SameEvent("Will X happen by 2026?", "Will X happen?") {
		t.Errorf("time-qualified variants should match, score = %v",
			m.Score("Will X happen by 2026?", "Will X happen?"))
	}

	// Different events
	if m.SameEvent("Will X happen?", "Will Y happen?") {
		t.Errorf("different subjects should not match, score = %v",
			m.Score("Will X happen?", "Will Y happen?"))
	}

	if s := m.Score("Will X happen by 2026?", "Will X happen?"); math.Abs(s-1.0) > 1e-9 {
		t.Errorf("Score after qualifier stripping = %v, want 1.0", s)
	}
}

func TestMatcherThresholdValidation(t *testing.T) {
	n := mustNormalizer(t)
	if _, err := NewMatcher(n, 1.5); err == nil {
		t.Error("NewMatcher should reject threshold above 1")
	}
	if _, err := NewMatcher(n, -0.1); err == nil {
		t.Error("NewMatcher should reject negative threshold")
	}
}
