package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/dshills/codelens/internal/analysis"
)

const informationURI = "https://github.com/dshills/codelens"

// SARIFWriter outputs model findings in SARIF v2.1.0 format. Each distinct
// finding type becomes one rule.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, doc *Document) error {
	report, err := buildSARIF(doc)
	if err != nil {
		return err
	}
	return report.PrettyWrite(w)
}

func buildSARIF(doc *Document) (*sarif.Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("creating SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(doc.Tool, informationURI)
	// Highest severity rank seen per rule; the rule's default level follows it.
	ranks := make(map[string]int)
	for _, item := range doc.Findings() {
		f := item.Finding
		level := severityToLevel(f.Severity)
		id := generateRuleID(item.Kind, f.Type)
		rule := run.AddRule(id)
		rank, seen := ranks[id]
		if !seen {
			rule.WithDescription(ruleDescription(f))
		}
		if r := analysis.SeverityRank(f.Severity); !seen || r > rank {
			ranks[id] = r
			rule.WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: level})
		}

		physical := sarif.NewPhysicalLocation().
			WithArtifactLocation(sarif.NewArtifactLocation().WithUri(item.Path))
		if line, ok := f.Line.Start(); ok {
			physical = physical.WithRegion(sarif.NewRegion().WithStartLine(line))
		}

		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(resultMessage(f))).
			WithLevel(level).
			WithLocations([]*sarif.Location{sarif.NewLocation().WithPhysicalLocation(physical)})
		run.AddResult(result)
	}
	report.AddRun(run)
	return report, nil
}

// severityToLevel maps a model severity to a SARIF level.
func severityToLevel(s analysis.Severity) string {
	switch analysis.NormalizeSeverity(s) {
	case analysis.SeverityHigh:
		return "error"
	case analysis.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

// generateRuleID creates a stable rule ID from kind + finding type.
func generateRuleID(kind analysis.Kind, typ string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(typ)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "-"):
			b.WriteByte('-')
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = "unspecified"
	}
	return fmt.Sprintf("codelens/%s/%s", kind, slug)
}

func ruleDescription(f analysis.Finding) string {
	if f.Type == "" {
		return "Unspecified finding"
	}
	if f.CWE != "" {
		return fmt.Sprintf("%s (%s)", f.Type, f.CWE)
	}
	return f.Type
}

func resultMessage(f analysis.Finding) string {
	msg := f.Description
	if msg == "" {
		msg = f.Type
	}
	if f.Recommendation != "" {
		msg += "\nRecommendation: " + f.Recommendation
	}
	return msg
}
