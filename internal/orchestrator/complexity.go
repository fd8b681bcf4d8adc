package orchestrator

import (
	"strings"
	"unicode"
)

// ComplexityPolicy is the keyword policy that decides whether a request is
// a multi-step job worth tracking as a task. The lists are tunable.
type ComplexityPolicy struct {
	// Connectives mark an explicit sequence of steps ("and then").
	Connectives []string
	// Orderings are opener/follower pairs that only count when the follower
	// appears after the opener ("first ... then").
	Orderings [][2]string
	// ActionVerbs are counted once each; VerbThreshold distinct verbs make a
	// request complex.
	ActionVerbs   []string
	VerbThreshold int
}

// DefaultComplexityPolicy returns the built-in keyword lists.
func DefaultComplexityPolicy() ComplexityPolicy {
	return ComplexityPolicy{
		Connectives: []string{
			"and then",
			"also",
			"after that",
			"afterwards",
			"followed by",
		},
		Orderings: [][2]string{
			{"first", "then"},
			{"first", "second"},
			{"first", "next"},
			{"first", "finally"},
		},
		ActionVerbs: []string{
			"analyze",
			"book",
			"buy",
			"call",
			"compare",
			"create",
			"draft",
			"email",
			"find",
			"organize",
			"plan",
			"research",
			"review",
			"schedule",
			"send",
			"summarize",
			"translate",
			"update",
			"write",
		},
		VerbThreshold: 2,
	}
}

// Complexity is the result of classifying one request.
type Complexity struct {
	Complex bool
	// Reason explains why the request was classified as it was.
	Reason string
	// Matched lists the keywords that triggered the classification.
	Matched []string
}

// Classify applies the policy to text.
func (p ComplexityPolicy) Classify(text string) Complexity {
	words := tokenize(text)

	for _, c := range p.Connectives {
		if containsPhrase(words, tokenize(c)) {
			return Complexity{Complex: true, Reason: "matched connective", Matched: []string{c}}
		}
	}

	for _, pair := range p.Orderings {
		if i := indexPhrase(words, tokenize(pair[0]), 0); i >= 0 {
			if indexPhrase(words, tokenize(pair[1]), i+1) >= 0 {
				return Complexity{Complex: true, Reason: "matched ordering", Matched: []string{pair[0], pair[1]}}
			}
		}
	}

	threshold := p.VerbThreshold
	if threshold <= 0 {
		threshold = 2
	}
	present := make(map[string]bool, len(words))
	for _, w := range words {
		present[w] = true
	}
	var verbs []string
	for _, v := range p.ActionVerbs {
		if present[strings.ToLower(v)] {
			verbs = append(verbs, v)
		}
	}
	if len(verbs) >= threshold {
		return Complexity{Complex: true, Reason: "multiple action verbs", Matched: verbs}
	}

	return Complexity{Reason: "no multi-step signal", Matched: verbs}
}

// IsComplex is a convenience wrapper around Classify.
func (p ComplexityPolicy) IsComplex(text string) bool {
	return p.Classify(text).Complex
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func containsPhrase(words, phrase []string) bool {
	return indexPhrase(words, phrase, 0) >= 0
}

// indexPhrase returns the index of the first occurrence of phrase in words
// at or after from, or -1.
func indexPhrase(words, phrase []string, from int) int {
	if len(phrase) == 0 {
		return -1
	}
	for i := from; i+len(phrase) <= len(words); i++ {
		match := true
		for j, p := range phrase {
			if words[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
