package analysis

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind selects the instruction block sent to the backend for one file.
type Kind string

const (
	KindSecurity Kind = "security"
	KindQuality  Kind = "quality"
	KindGeneral  Kind = "general"
)

// Kinds returns every known analysis kind in report order.
func Kinds() []Kind {
	return []Kind{KindSecurity, KindQuality, KindGeneral}
}

// ParseKind resolves a configured kind name. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindSecurity:
		return KindSecurity, nil
	case KindQuality:
		return KindQuality, nil
	case KindGeneral:
		return KindGeneral, nil
	default:
		return "", fmt.Errorf("unknown analysis kind: %q", s)
	}
}

// ParseKinds resolves a list of kind names, dropping duplicates.
func ParseKinds(names []string) ([]Kind, error) {
	seen := make(map[Kind]bool)
	var kinds []Kind
	for _, n := range names {
		k, err := ParseKind(n)
		if err != nil {
			return nil, err
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Severity is the severity string reported by the model. It is kept verbatim;
// use NormalizeSeverity when bucketing.
type Severity string

const (
	SeverityHigh        Severity = "HIGH"
	SeverityMedium      Severity = "MEDIUM"
	SeverityLow         Severity = "LOW"
	SeverityUnspecified Severity = ""
)

// NormalizeSeverity maps a raw severity onto HIGH, MEDIUM or LOW, ignoring
// case and surrounding space. Anything else, including an empty value or
// labels such as "CRITICAL", counts as LOW.
func NormalizeSeverity(s Severity) Severity {
	switch Severity(strings.ToUpper(strings.TrimSpace(string(s)))) {
	case SeverityHigh:
		return SeverityHigh
	case SeverityMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch NormalizeSeverity(s) {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}

// Class tells which capability set a finding belongs to.
type Class string

const (
	ClassVulnerability Class = "vulnerability"
	ClassQuality       Class = "quality"
)

// Line is an approximate source location. Models emit it as a string, a
// number, a range or not at all, so it is stored as free text.
type Line string

func (l *Line) UnmarshalJSON(data []byte) error {
	return (*flexString)(l).UnmarshalJSON(data)
}

// Start returns the first line number mentioned in l, so "42", "line 42" and
// "42-48" all yield 42. ok is false when l holds no digits.
func (l Line) Start() (n int, ok bool) {
	s := string(l)
	i := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if i < 0 {
		return 0, false
	}
	j := i
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	n, err := strconv.Atoi(s[i:j])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Finding is one unit of feedback from the model. Type is free text and is
// never validated against a closed set. ModelSeverity holds the model's own
// severity when a rules override replaced it.
type Finding struct {
	Class          Class    `json:"class,omitempty"`
	Type           string   `json:"type"`
	Severity       Severity `json:"severity"`
	ModelSeverity  Severity `json:"modelSeverity,omitempty"`
	Line           Line     `json:"line,omitempty"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation,omitempty"`
	CWE            string   `json:"cwe,omitempty"`
}

// FindingSet is the structured payload extracted from one model reply.
type FindingSet struct {
	Vulnerabilities []Finding `json:"vulnerabilities"`
	QualityIssues   []Finding `json:"quality_issues"`
	Summary         string    `json:"summary,omitempty"`
}

// Len returns the total number of findings in the set.
func (fs FindingSet) Len() int {
	return len(fs.Vulnerabilities) + len(fs.QualityIssues)
}

// ErrorKind separates failed backend calls from unparseable replies.
type ErrorKind string

const (
	ErrorBackend    ErrorKind = "backend"
	ErrorExtraction ErrorKind = "extraction"
)

// OutcomeError is the placeholder recorded when one (file, kind) analysis
// produced no findings. Raw keeps the model text for operators.
type OutcomeError struct {
	Message string    `json:"error"`
	Kind    ErrorKind `json:"errorKind"`
	Raw     string    `json:"raw,omitempty"`
}

// Outcome is either a FindingSet or an OutcomeError, never both.
type Outcome struct {
	Findings *FindingSet
	Error    *OutcomeError
}

// Succeeded wraps a finding set.
func Succeeded(fs FindingSet) Outcome {
	if fs.Vulnerabilities == nil {
		fs.Vulnerabilities = []Finding{}
	}
	if fs.QualityIssues == nil {
		fs.QualityIssues = []Finding{}
	}
	return Outcome{Findings: &fs}
}

// Failed builds an error placeholder from err.
func Failed(kind ErrorKind, err error, raw string) Outcome {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Outcome{Error: &OutcomeError{Message: msg, Kind: kind, Raw: raw}}
}

// Failed reports whether the outcome is an error placeholder.
func (o Outcome) Failed() bool {
	return o.Error != nil || o.Findings == nil
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Error != nil {
		return json.Marshal(o.Error)
	}
	if o.Findings == nil {
		return json.Marshal(OutcomeError{Message: "no result", Kind: ErrorBackend})
	}
	return json.Marshal(o.Findings)
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if _, ok := probe["error"]; ok {
		var e OutcomeError
		if err := json.Unmarshal(data, &e); err != nil {
			return err
		}
		*o = Outcome{Error: &e}
		return nil
	}
	var fs FindingSet
	if err := json.Unmarshal(data, &fs); err != nil {
		return err
	}
	*o = Succeeded(fs)
	return nil
}
