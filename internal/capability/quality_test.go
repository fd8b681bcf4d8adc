package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualityChecker(t *testing.T) {
	q := NewQualityChecker([]string{"Marketing"})

	assert.True(t, q.Applies("marketing"))
	assert.False(t, q.Applies("sales"), "sales has a rubric but is not allow-listed")
	assert.False(t, q.Applies("travel"))

	good := "Built for busy parents: meal kits that save you an hour every night. Order today and get started in minutes."
	report, ok := q.Check("marketing", good)
	assert.True(t, ok)
	assert.Equal(t, 10, report.Score)
	assert.True(t, report.Passed)
	assert.Equal(t, "[quality 10/10 PASS]", report.Badge())

	weak := "Lorem ipsum meal kits."
	report, ok = q.Check("marketing", weak)
	assert.True(t, ok)
	assert.False(t, report.Passed)
	assert.Contains(t, report.Failed, "call_to_action")
	assert.Contains(t, report.Failed, "no_placeholders")
	assert.Contains(t, report.Badge(), "FAIL")

	_, ok = q.Check("travel", good)
	assert.False(t, ok)
}

func TestQualityChecker_CustomRubric(t *testing.T) {
	q := NewQualityChecker([]string{"legal"})
	q.SetRubric("legal", Rubric{
		PassMark: 5,
		Criteria: []Criterion{
			{Name: "mentions_terms", Weight: 1, Check: func(s string) bool { return s != "" }},
			{Name: "never", Weight: 1, Check: func(string) bool { return false }},
		},
	})

	report, ok := q.Check("legal", "terms apply")
	assert.True(t, ok)
	assert.Equal(t, 5, report.Score)
	assert.True(t, report.Passed)
}
