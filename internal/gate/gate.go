// Package gate decides whether a run's summary passes the CI quality gate.
package gate

import (
	"fmt"
	"strings"

	"github.com/dshills/codelens/internal/aggregate"
)

// Unlimited disables a count threshold.
const Unlimited = -1

// Thresholds are the gate limits. A negative maximum means unlimited.
// FailOn is a severity (none, low, medium, high): any vulnerability at or
// above it fails the gate.
type Thresholds struct {
	MaxHigh    int    `mapstructure:"max_high" yaml:"max_high" json:"maxHigh"`
	MaxMedium  int    `mapstructure:"max_medium" yaml:"max_medium" json:"maxMedium"`
	MaxTotal   int    `mapstructure:"max_total" yaml:"max_total" json:"maxTotal"`
	MaxQuality int    `mapstructure:"max_quality" yaml:"max_quality" json:"maxQuality"`
	MaxErrors  int    `mapstructure:"max_errors" yaml:"max_errors" json:"maxErrors"`
	FailOn     string `mapstructure:"fail_on" yaml:"fail_on" json:"failOn"`
}

// DefaultThresholds fails on any high-severity vulnerability and nothing else.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxHigh:    0,
		MaxMedium:  Unlimited,
		MaxTotal:   Unlimited,
		MaxQuality: Unlimited,
		MaxErrors:  Unlimited,
		FailOn:     "none",
	}
}

// Violation is one breached limit.
type Violation struct {
	Metric string
	Value  int
	Limit  int
}

func (v Violation) String() string {
	return fmt.Sprintf("%s = %d exceeds %d", v.Metric, v.Value, v.Limit)
}

// Result is the gate decision.
type Result struct {
	Violations []Violation
}

// Passed reports whether no limit was breached.
func (r Result) Passed() bool { return len(r.Violations) == 0 }

// Evaluate checks s against t.
func Evaluate(s aggregate.Summary, t Thresholds) Result {
	var r Result
	check := func(metric string, value, limit int) {
		if limit >= 0 && value > limit {
			r.Violations = append(r.Violations, Violation{Metric: metric, Value: value, Limit: limit})
		}
	}
	check("highSeverityVulnerabilities", s.HighSeverityVulnerabilities, t.MaxHigh)
	check("mediumSeverityVulnerabilities", s.MediumSeverityVulnerabilities, t.MaxMedium)
	check("totalVulnerabilities", s.TotalVulnerabilities, t.MaxTotal)
	check("totalQualityIssues", s.TotalQualityIssues, t.MaxQuality)
	check("filesWithErrors", s.FilesWithErrors, t.MaxErrors)

	switch strings.ToLower(t.FailOn) {
	case "high":
		check("highSeverityVulnerabilities", s.HighSeverityVulnerabilities, 0)
	case "medium":
		check("mediumOrHigherVulnerabilities", s.HighSeverityVulnerabilities+s.MediumSeverityVulnerabilities, 0)
	case "low":
		check("totalVulnerabilities", s.TotalVulnerabilities, 0)
	}
	return dedupe(r)
}

// ValidFailOn reports whether s is an accepted FailOn value.
func ValidFailOn(s string) bool {
	switch strings.ToLower(s) {
	case "", "none", "low", "medium", "high":
		return true
	}
	return false
}

func dedupe(r Result) Result {
	seen := make(map[string]bool)
	out := Result{}
	for _, v := range r.Violations {
		if seen[v.Metric] {
			continue
		}
		seen[v.Metric] = true
		out.Violations = append(out.Violations, v)
	}
	return out
}
