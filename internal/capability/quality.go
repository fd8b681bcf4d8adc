package capability

import (
	"fmt"
	"regexp"
	"strings"
)

// Criterion is one weighted rubric check.
type Criterion struct {
	Name   string
	Weight int
	Check  func(text string) bool
}

// Rubric scores a category's output out of 10.
type Rubric struct {
	Criteria []Criterion
	// PassMark is the minimum score to pass.
	PassMark int
}

// QualityReport is the result of checking one output.
type QualityReport struct {
	Score  int
	Passed bool
	Failed []string
}

// Badge renders the report, e.g. "[quality 8/10 PASS]".
func (q QualityReport) Badge() string {
	verdict := "FAIL"
	if q.Passed {
		verdict = "PASS"
	}
	return fmt.Sprintf("[quality %d/10 %s]", q.Score, verdict)
}

// QualityChecker applies rubrics to handler output for allow-listed categories.
type QualityChecker struct {
	rubrics map[string]Rubric
	allowed map[string]bool
}

// NewQualityChecker checks only the given categories that have a rubric.
func NewQualityChecker(categories []string) *QualityChecker {
	q := &QualityChecker{
		rubrics: DefaultRubrics(),
		allowed: make(map[string]bool, len(categories)),
	}
	for _, c := range categories {
		q.allowed[strings.ToLower(c)] = true
	}
	return q
}

// SetRubric installs or replaces a category rubric.
func (q *QualityChecker) SetRubric(category string, r Rubric) {
	q.rubrics[strings.ToLower(category)] = r
}

// Applies reports whether output in this category is checked.
func (q *QualityChecker) Applies(category string) bool {
	category = strings.ToLower(category)
	_, ok := q.rubrics[category]
	return ok && q.allowed[category]
}

// Check scores text against the category rubric. ok is false when the
// category is not checked.
func (q *QualityChecker) Check(category, text string) (report QualityReport, ok bool) {
	if !q.Applies(category) {
		return QualityReport{}, false
	}
	rubric := q.rubrics[strings.ToLower(category)]

	total, earned := 0, 0
	for _, c := range rubric.Criteria {
		total += c.Weight
		if c.Check(text) {
			earned += c.Weight
		} else {
			report.Failed = append(report.Failed, c.Name)
		}
	}
	if total > 0 {
		report.Score = (earned*10 + total/2) / total
	}
	report.Passed = report.Score >= rubric.PassMark
	return report, true
}

var (
	ctaPattern      = regexp.MustCompile(`(?i)\b(sign up|buy|order|call|contact|book|get started|learn more|join|try|subscribe|shop|download|register|reply)\b`)
	segmentPattern  = regexp.MustCompile(`(?i)\b(for (busy|small|new|local|first-time|growing)|designed for|built for|if you('re| are)|owners|teams|parents|students|professionals|customers)\b`)
	benefitPattern  = regexp.MustCompile(`(?i)\b(save|boost|grow|improve|faster|easier|free|more|better|without)\b`)
	pricingPattern  = regexp.MustCompile(`(?i)(\$\d|€\d|£\d|\d+%|\bprice\b|\bpricing\b|\bdiscount\b|\boff\b)`)
	urgencyPattern  = regexp.MustCompile(`(?i)\b(today|now|limited|ends|only|last chance|this week)\b`)
	placeholderText = regexp.MustCompile(`(?i)(lorem ipsum|\[insert|\{\{|todo|tbd|xxx)`)
)

func wordCountBetween(min, max int) func(string) bool {
	return func(text string) bool {
		n := len(strings.Fields(text))
		return n >= min && n <= max
	}
}

// DefaultRubrics returns the built-in marketing and sales rubrics.
func DefaultRubrics() map[string]Rubric {
	noPlaceholders := func(text string) bool { return !placeholderText.MatchString(text) }
	return map[string]Rubric{
		"marketing": {
			PassMark: 7,
			Criteria: []Criterion{
				{Name: "call_to_action", Weight: 3, Check: ctaPattern.MatchString},
				{Name: "target_segment", Weight: 2, Check: segmentPattern.MatchString},
				{Name: "benefit", Weight: 2, Check: benefitPattern.MatchString},
				{Name: "length", Weight: 1, Check: wordCountBetween(8, 300)},
				{Name: "no_placeholders", Weight: 2, Check: noPlaceholders},
			},
		},
		"sales": {
			PassMark: 7,
			Criteria: []Criterion{
				{Name: "call_to_action", Weight: 3, Check: ctaPattern.MatchString},
				{Name: "pricing", Weight: 2, Check: pricingPattern.MatchString},
				{Name: "urgency", Weight: 2, Check: urgencyPattern.MatchString},
				{Name: "target_segment", Weight: 1, Check: segmentPattern.MatchString},
				{Name: "no_placeholders", Weight: 2, Check: noPlaceholders},
			},
		},
	}
}
