package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/codelens/internal/analysis"
	"github.com/dshills/codelens/internal/static"
)

// PerFile holds one outcome per analysis kind for a single file.
type PerFile map[analysis.Kind]analysis.Outcome

// Results maps a source path to its per-kind outcomes. Treat values as
// immutable; use Record to derive a new one.
type Results map[string]PerFile

// DuplicateError is returned when an outcome is recorded twice for the same
// path and kind.
type DuplicateError struct {
	Path string
	Kind analysis.Kind
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("outcome for %s (%s) already recorded", e.Path, e.Kind)
}

// Record returns a copy of prev with outcome stored under (path, kind).
func Record(prev Results, path string, kind analysis.Kind, outcome analysis.Outcome) (Results, error) {
	if _, ok := prev[path][kind]; ok {
		return prev, &DuplicateError{Path: path, Kind: kind}
	}

	next := make(Results, len(prev)+1)
	for p, pf := range prev {
		next[p] = pf
	}
	pf := make(PerFile, len(prev[path])+1)
	for k, o := range prev[path] {
		pf[k] = o
	}
	pf[kind] = outcome
	next[path] = pf
	return next, nil
}

// Paths returns the recorded paths in sorted order.
func (r Results) Paths() []string {
	paths := make([]string, 0, len(r))
	for p := range r {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Kinds returns the kinds recorded for one file in report order.
func (pf PerFile) Kinds() []analysis.Kind {
	var kinds []analysis.Kind
	for _, k := range analysis.Kinds() {
		if _, ok := pf[k]; ok {
			kinds = append(kinds, k)
		}
	}
	var extra []analysis.Kind
	for k := range pf {
		if !isKnown(k) {
			extra = append(extra, k)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(kinds, extra...)
}

func isKnown(k analysis.Kind) bool {
	for _, known := range analysis.Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Summary is the rollup written to the JSON summary artifact.
type Summary struct {
	TotalVulnerabilities          int `json:"totalVulnerabilities"`
	HighSeverityVulnerabilities   int `json:"highSeverityVulnerabilities"`
	MediumSeverityVulnerabilities int `json:"mediumSeverityVulnerabilities"`
	LowSeverityVulnerabilities    int `json:"lowSeverityVulnerabilities"`
	TotalQualityIssues            int `json:"totalQualityIssues"`
	FilesAnalyzed                 int `json:"filesAnalyzed"`
	FilesWithErrors               int `json:"filesWithErrors"`
	ToolCount                     int `json:"toolCount"`
	StaticBugs                    int `json:"staticBugs"`
}

// Summarize computes the rollup. Error placeholders add no findings but mark
// their file once in FilesWithErrors. Vulnerabilities are bucketed by
// normalized severity, so unrecognized labels count as LOW.
func Summarize(tools map[string]static.Result, results Results) Summary {
	s := Summary{
		FilesAnalyzed: len(results),
		ToolCount:     len(tools),
	}
	for _, r := range tools {
		s.StaticBugs += static.BugCount(r)
	}

	for _, pf := range results {
		failed := false
		for _, o := range pf {
			if o.Failed() {
				failed = true
				continue
			}
			s.TotalQualityIssues += len(o.Findings.QualityIssues)
			for _, v := range o.Findings.Vulnerabilities {
				s.TotalVulnerabilities++
				switch analysis.NormalizeSeverity(v.Severity) {
				case analysis.SeverityHigh:
					s.HighSeverityVulnerabilities++
				case analysis.SeverityMedium:
					s.MediumSeverityVulnerabilities++
				default:
					s.LowSeverityVulnerabilities++
				}
			}
		}
		if failed {
			s.FilesWithErrors++
		}
	}
	return s
}

// Recommendation is one actionable line in the report's recommendations
// section.
type Recommendation struct {
	Path     string            `json:"path"`
	Kind     analysis.Kind     `json:"kind"`
	Type     string            `json:"type"`
	Severity analysis.Severity `json:"severity"`
	Text     string            `json:"recommendation"`
}

// Recommendations lists every finding that carries a recommendation, most
// severe first. Identical (type, text) pairs from different files or kinds
// are listed once, under the first path in sorted order.
func Recommendations(results Results) []Recommendation {
	var recs []Recommendation
	seen := make(map[string]bool)
	for _, path := range results.Paths() {
		pf := results[path]
		for _, kind := range pf.Kinds() {
			o := pf[kind]
			if o.Failed() {
				continue
			}
			for _, list := range [][]analysis.Finding{o.Findings.Vulnerabilities, o.Findings.QualityIssues} {
				for _, f := range list {
					text := strings.TrimSpace(f.Recommendation)
					if text == "" {
						continue
					}
					key := strings.ToLower(f.Type) + "\x00" + strings.ToLower(text)
					if seen[key] {
						continue
					}
					seen[key] = true
					recs = append(recs, Recommendation{
						Path:     path,
						Kind:     kind,
						Type:     f.Type,
						Severity: f.Severity,
						Text:     text,
					})
				}
			}
		}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return analysis.SeverityRank(recs[i].Severity) > analysis.SeverityRank(recs[j].Severity)
	})
	return recs
}
