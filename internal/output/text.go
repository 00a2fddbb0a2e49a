package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/codelens/internal/analysis"
	"github.com/dshills/codelens/internal/static"
)

// TextWriter outputs the console summary printed at the end of a run.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, doc *Document) error {
	ew := &errWriter{w: w}
	s := doc.Summary

	ew.printf("%s\n", doc.Title)
	ew.printf("Run %s\n", doc.RunID)
	ew.println(strings.Repeat("─", 60))
	ew.printf("Files analyzed: %d (%d with errors)\n", s.FilesAnalyzed, s.FilesWithErrors)
	ew.printf("Vulnerabilities: %d", s.TotalVulnerabilities)
	if s.TotalVulnerabilities > 0 {
		ew.printf(" (%d high, %d medium, %d low)",
			s.HighSeverityVulnerabilities,
			s.MediumSeverityVulnerabilities,
			s.LowSeverityVulnerabilities,
		)
	}
	ew.println("")
	ew.printf("Quality issues: %d\n", s.TotalQualityIssues)
	ew.printf("Static tools: %d (%d bugs)\n", s.ToolCount, s.StaticBugs)
	for _, name := range static.Names(doc.Static) {
		ew.printf("  %-10s %d bugs\n", name, static.BugCount(doc.Static[name]))
	}
	ew.println(strings.Repeat("─", 60))

	items := doc.Findings()
	if len(items) == 0 {
		ew.println("\nNo findings.")
	}
	grouped := groupBySeverity(items)
	for _, sev := range []analysis.Severity{analysis.SeverityHigh, analysis.SeverityMedium, analysis.SeverityLow} {
		group := grouped[sev]
		if len(group) == 0 {
			continue
		}
		ew.printf("\n%s %s\n", severityIcon(sev), sev)
		ew.println(strings.Repeat("─", 40))
		for _, it := range group {
			f := it.Finding
			ew.printf("\n  %s%s  %s\n", it.Path, lineSuffix(f.Line), displayType(f))
			ew.printf("  Kind: %s | Severity: %s\n", it.Kind, displaySeverity(f.Severity))
			for _, line := range wrapText(f.Description, 70) {
				if line != "" {
					ew.printf("    %s\n", line)
				}
			}
			if f.Recommendation != "" {
				ew.println("  Recommendation:")
				for _, line := range wrapText(f.Recommendation, 70) {
					ew.printf("    %s\n", line)
				}
			}
		}
	}

	failures := doc.Failures()
	if len(failures) > 0 {
		ew.printf("\n[x] ERRORS\n")
		ew.println(strings.Repeat("─", 40))
		for _, fl := range failures {
			ew.printf("  %s (%s): %s error: %s\n", fl.Path, fl.Kind, fl.Error.Kind, fl.Error.Message)
		}
	}

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func groupBySeverity(items []Item) map[analysis.Severity][]Item {
	m := make(map[analysis.Severity][]Item)
	for _, it := range items {
		sev := analysis.NormalizeSeverity(it.Finding.Severity)
		m[sev] = append(m[sev], it)
	}
	return m
}

func severityIcon(s analysis.Severity) string {
	switch s {
	case analysis.SeverityHigh:
		return "[!!]"
	case analysis.SeverityMedium:
		return "[!]"
	default:
		return "[-]"
	}
}

func lineSuffix(l analysis.Line) string {
	if l == "" {
		return ""
	}
	return ":" + string(l)
}

func displayType(f analysis.Finding) string {
	if f.Type == "" {
		return "(untyped finding)"
	}
	return f.Type
}

func displaySeverity(s analysis.Severity) string {
	if s == analysis.SeverityUnspecified {
		return "unspecified"
	}
	return string(s)
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
