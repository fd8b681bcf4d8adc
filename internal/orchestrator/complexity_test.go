package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComplexityPolicy_Classify(t *testing.T) {
	policy := DefaultComplexityPolicy()
	tests := []struct {
		text   string
		want   bool
		reason string
	}{
		{"write the report and then send it", true, "matched connective"},
		{"book a table, also order flowers", true, "matched connective"},
		{"first clean the inbox, then archive old threads", true, "matched ordering"},
		{"then do it first", false, "no multi-step signal"},
		{"research laptops and compare prices", true, "multiple action verbs"},
		{"write write write", false, "no multi-step signal"},
		{"what's the weather like", false, "no multi-step signal"},
		{"thenceforth alsoran", false, "no multi-step signal"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := policy.Classify(tt.text)
			assert.Equal(t, tt.want, got.Complex)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Equal(t, tt.want, policy.IsComplex(tt.text))
		})
	}
}

func TestComplexityPolicy_Tunable(t *testing.T) {
	policy := ComplexityPolicy{ActionVerbs: []string{"water", "feed"}, VerbThreshold: 2}
	assert.True(t, policy.IsComplex("water the plants, feed the cat"))
	assert.False(t, policy.IsComplex("write the report and then send it"))

	strict := DefaultComplexityPolicy()
	strict.VerbThreshold = 3
	assert.False(t, strict.IsComplex("research laptops and compare prices"))
}
