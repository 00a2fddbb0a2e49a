package analysis

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules is a project policy pack loaded from --rules. It narrows what the
// model is asked to look at and can pin severities for known finding types.
type Rules struct {
	Focus             []string          `yaml:"focus,omitempty"`
	SeverityOverrides map[string]string `yaml:"severityOverrides,omitempty"`
	Required          []RequiredCheck   `yaml:"required,omitempty"`
}

// RequiredCheck is a policy check that should always be evaluated.
type RequiredCheck struct {
	ID   string `yaml:"id"`
	Text string `yaml:"text"`
}

// LoadRules reads a YAML (or JSON, which is valid YAML) rules file.
// Returns nil Rules and nil error if path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	return &rules, nil
}

// PromptSection returns additional prompt instructions derived from rules.
func (r *Rules) PromptSection() string {
	if r == nil {
		return ""
	}

	var b strings.Builder

	if len(r.Focus) > 0 {
		fmt.Fprintf(&b, "\nFocus areas: %s. Prioritize findings in these areas.\n",
			strings.Join(r.Focus, ", "))
	}

	if len(r.SeverityOverrides) > 0 {
		b.WriteString("\nSeverity policy:\n")
		types := make([]string, 0, len(r.SeverityOverrides))
		for t := range r.SeverityOverrides {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintf(&b, "- %s findings must be rated %s.\n", t, strings.ToUpper(r.SeverityOverrides[t]))
		}
	}

	if len(r.Required) > 0 {
		b.WriteString("\nRequired checks (always evaluate these):\n")
		for _, req := range r.Required {
			fmt.Fprintf(&b, "- [%s] %s\n", req.ID, req.Text)
		}
	}

	return b.String()
}

// Apply enforces severity overrides on a finding set. Types match
// case-insensitively. A replaced severity is kept in ModelSeverity. The set
// is modified in place.
func (r *Rules) Apply(fs *FindingSet) {
	if r == nil || len(r.SeverityOverrides) == 0 || fs == nil {
		return
	}
	overrides := make(map[string]Severity, len(r.SeverityOverrides))
	for t, sev := range r.SeverityOverrides {
		overrides[strings.ToLower(t)] = Severity(strings.ToUpper(sev))
	}
	for _, list := range [][]Finding{fs.Vulnerabilities, fs.QualityIssues} {
		for i := range list {
			sev, ok := overrides[strings.ToLower(list[i].Type)]
			if !ok || list[i].Severity == sev {
				continue
			}
			if list[i].ModelSeverity == "" {
				list[i].ModelSeverity = list[i].Severity
			}
			list[i].Severity = sev
		}
	}
}
