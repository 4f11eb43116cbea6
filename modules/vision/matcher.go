package vision

import "strings"

// EvidenceMatcher - decides whether a specification attribute is supported
// by the vision evidence corpus. Pluggable so the keyword heuristic can be
// swapped for a stronger classifier without touching the analyzer.
type EvidenceMatcher interface {
	Matches(attribute, value, corpus string) bool
}

// KeywordMatcher - conservative keyword-in-text gate. False negatives
// (oddly worded but real features marked unverified) are acceptable; false
// positives are the failure mode to minimize.
type KeywordMatcher struct {
	keywords map[string][]string
}

// NewKeywordMatcher - matcher with the default attribute keyword table.
func NewKeywordMatcher() *KeywordMatcher {
	return &KeywordMatcher{
		keywords: map[string][]string{
			"Finish":         {"black", "silver", "stainless", "nickel", "fde", "tan", "grey"},
			"Grip":           {"textured", "stippled", "rubber", "polymer", "wood"},
			"Frame Material": {"polymer", "steel", "alloy", "aluminum"},
			"Barrel Length":  {"barrel"},
			"Sights":         {"sight", "fiber optic", "iron sight", "rear sight", "front sight"},
			"Optic Ready":    {"optic", "cut", "mounting"},
		},
	}
}

// Matches - true when any keyword for the attribute appears in the corpus.
// Attributes without a table entry fall back to a short prefix of their own
// lowercase value as the keyword.
func (m *KeywordMatcher) Matches(attribute, value, corpus string) bool {
	keywords, ok := m.keywords[attribute]
	if !ok {
		prefix := strings.ToLower(value)
		if len(prefix) > 5 {
			prefix = prefix[:5]
		}
		if prefix == "" {
			return false
		}
		keywords = []string{prefix}
	}

	for _, kw := range keywords {
		if strings.Contains(corpus, kw) {
			return true
		}
	}
	return false
}
