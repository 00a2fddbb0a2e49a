package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codelens/internal/aggregate"
)

func TestEvaluate_DefaultFailsOnHigh(t *testing.T) {
	r := Evaluate(aggregate.Summary{TotalVulnerabilities: 1, HighSeverityVulnerabilities: 1}, DefaultThresholds())
	require.False(t, r.Passed())
	assert.Equal(t, "highSeverityVulnerabilities = 1 exceeds 0", r.Violations[0].String())
}

func TestEvaluate_DefaultPassesWithoutHigh(t *testing.T) {
	s := aggregate.Summary{
		TotalVulnerabilities:          5,
		MediumSeverityVulnerabilities: 3,
		LowSeverityVulnerabilities:    2,
		TotalQualityIssues:            40,
		FilesWithErrors:               2,
	}
	assert.True(t, Evaluate(s, DefaultThresholds()).Passed())
}

func TestEvaluate_Limits(t *testing.T) {
	s := aggregate.Summary{
		TotalVulnerabilities:          4,
		MediumSeverityVulnerabilities: 4,
		TotalQualityIssues:            11,
		FilesWithErrors:               1,
	}
	th := Thresholds{MaxHigh: Unlimited, MaxMedium: 5, MaxTotal: 3, MaxQuality: 10, MaxErrors: 0}
	r := Evaluate(s, th)

	var metrics []string
	for _, v := range r.Violations {
		metrics = append(metrics, v.Metric)
	}
	assert.Equal(t, []string{"totalVulnerabilities", "totalQualityIssues", "filesWithErrors"}, metrics)
}

func TestEvaluate_FailOn(t *testing.T) {
	open := Thresholds{MaxHigh: Unlimited, MaxMedium: Unlimited, MaxTotal: Unlimited, MaxQuality: Unlimited, MaxErrors: Unlimited}
	medium := aggregate.Summary{TotalVulnerabilities: 1, MediumSeverityVulnerabilities: 1}
	low := aggregate.Summary{TotalVulnerabilities: 1, LowSeverityVulnerabilities: 1}

	tests := []struct {
		failOn string
		s      aggregate.Summary
		pass   bool
	}{
		{"none", medium, true},
		{"high", medium, true},
		{"medium", medium, false},
		{"MEDIUM", low, true},
		{"low", low, false},
	}
	for _, tt := range tests {
		t.Run(tt.failOn, func(t *testing.T) {
			th := open
			th.FailOn = tt.failOn
			assert.Equal(t, tt.pass, Evaluate(tt.s, th).Passed())
		})
	}
}

func TestEvaluate_NoDuplicateViolations(t *testing.T) {
	th := DefaultThresholds()
	th.FailOn = "high"
	r := Evaluate(aggregate.Summary{HighSeverityVulnerabilities: 2, TotalVulnerabilities: 2}, th)
	assert.Len(t, r.Violations, 1)
}

func TestValidFailOn(t *testing.T) {
	assert.True(t, ValidFailOn("High"))
	assert.True(t, ValidFailOn(""))
	assert.False(t, ValidFailOn("critical"))
}
