package services

import (
	"regexp"
)

// Strategy is one way of deriving Out from In. It reports false when it does
// not apply, so the next strategy in a chain gets a turn.
type Strategy[In, Out any] func(In) (Out, bool)

// FirstMatch runs strategies in order and returns the first result that
// applies. The zero value of Out is returned when none do.
func FirstMatch[In, Out any](in In, strategies ...Strategy[In, Out]) (Out, bool) {
	for _, s := range strategies {
		if out, ok := s(in); ok {
			return out, true
		}
	}
	var zero Out
	return zero, false
}

// FieldExtractor pulls one field out of flattened text. Patterns are tried in
// order; the first match wins. A pattern with a capture group yields the
// group, otherwise the whole match.
type FieldExtractor struct {
	Name     string
	Patterns []*regexp.Regexp
}

// NewFieldExtractor compiles patterns into a FieldExtractor.
func NewFieldExtractor(name string, patterns ...string) FieldExtractor {
	fe := FieldExtractor{Name: name}
	for _, p := range patterns {
		fe.Patterns = append(fe.Patterns, regexp.MustCompile(p))
	}
	return fe
}

// Extract returns the matched value, or "".
func (fe FieldExtractor) Extract(text string) string {
	strategies := make([]Strategy[string, string], 0, len(fe.Patterns))
	for _, re := range fe.Patterns {
		strategies = append(strategies, regexpStrategy(re))
	}
	v, _ := FirstMatch(text, strategies...)
	return v
}

func regexpStrategy(re *regexp.Regexp) Strategy[string, string] {
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		if len(m) > 1 {
			return m[1], true
		}
		return m[0], true
	}
}
