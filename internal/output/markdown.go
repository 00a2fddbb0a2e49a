package output

import (
	"io"
	"strings"

	"github.com/dshills/codelens/internal/analysis"
	"github.com/dshills/codelens/internal/static"
)

// MarkdownWriter outputs a PR-comment-friendly markdown summary.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, doc *Document) error {
	ew := &errWriter{w: w}
	s := doc.Summary

	ew.printf("## %s\n\n", doc.Title)

	ew.printf("| Metric | Count |\n")
	ew.printf("|--------|-------|\n")
	ew.printf("| High severity | %d |\n", s.HighSeverityVulnerabilities)
	ew.printf("| Medium severity | %d |\n", s.MediumSeverityVulnerabilities)
	ew.printf("| Low severity | %d |\n", s.LowSeverityVulnerabilities)
	ew.printf("| **Vulnerabilities** | **%d** |\n", s.TotalVulnerabilities)
	ew.printf("| Quality issues | %d |\n", s.TotalQualityIssues)
	ew.printf("| Files analyzed | %d |\n", s.FilesAnalyzed)
	ew.printf("| Files with errors | %d |\n", s.FilesWithErrors)
	ew.printf("| Static tool bugs | %d |\n\n", s.StaticBugs)

	if len(doc.Static) > 0 {
		ew.printf("Static tools: ")
		names := static.Names(doc.Static)
		for i, name := range names {
			if i > 0 {
				ew.printf(", ")
			}
			ew.printf("`%s` (%d)", name, static.BugCount(doc.Static[name]))
		}
		ew.printf("\n\n")
	}

	items := doc.Findings()
	if len(items) == 0 {
		ew.println("No findings. :white_check_mark:")
	}

	grouped := groupBySeverity(items)
	for _, sev := range []analysis.Severity{analysis.SeverityHigh, analysis.SeverityMedium, analysis.SeverityLow} {
		group := grouped[sev]
		if len(group) == 0 {
			continue
		}

		ew.printf("<details>\n<summary>%s %s (%d)</summary>\n\n", mdSeverityIcon(sev), sev, len(group))
		for _, it := range group {
			f := it.Finding
			ew.printf("### %s\n\n", displayType(f))
			ew.printf("**`%s%s`** | %s | %s", it.Path, lineSuffix(f.Line), it.Kind, displaySeverity(f.Severity))
			if f.CWE != "" {
				ew.printf(" | %s", f.CWE)
			}
			ew.printf("\n\n")
			if f.Description != "" {
				ew.printf("%s\n\n", f.Description)
			}
			if f.Recommendation != "" {
				ew.printf("**Recommendation:**\n\n")
				if looksLikeCode(f.Recommendation) {
					ew.printf("```%s\n%s\n```\n\n", inferLang(it.Path), f.Recommendation)
				} else {
					ew.printf("> %s\n\n", strings.ReplaceAll(f.Recommendation, "\n", "\n> "))
				}
			}
			ew.printf("---\n\n")
		}
		ew.printf("</details>\n\n")
	}

	if failures := doc.Failures(); len(failures) > 0 {
		ew.printf("<details>\n<summary>:x: Errors (%d)</summary>\n\n", len(failures))
		for _, fl := range failures {
			ew.printf("- `%s` (%s): %s error: %s\n", fl.Path, fl.Kind, fl.Error.Kind, fl.Error.Message)
		}
		ew.printf("\n</details>\n\n")
	}

	ew.printf("*Run `%s` generated %s*\n", doc.RunID, doc.GeneratedAt.Format("2006-01-02 15:04 MST"))
	return ew.err
}

func mdSeverityIcon(s analysis.Severity) string {
	switch s {
	case analysis.SeverityHigh:
		return ":red_circle:"
	case analysis.SeverityMedium:
		return ":orange_circle:"
	default:
		return ":yellow_circle:"
	}
}

func looksLikeCode(s string) bool {
	codeIndicators := []string{
		"public ", "private ", "new ", "if (", "for (", "return ",
		"def ", "class ", "import ", "func ",
		"{", "}", "=>", "->", ":=", "==",
		"();",
	}
	for _, indicator := range codeIndicators {
		if strings.Contains(s, indicator) {
			return true
		}
	}
	return false
}

func inferLang(path string) string {
	langMap := map[string]string{
		".java":   "java",
		".kt":     "kotlin",
		".scala":  "scala",
		".groovy": "groovy",
		".go":     "go",
		".py":     "python",
		".js":     "javascript",
		".ts":     "typescript",
		".rs":     "rust",
		".rb":     "ruby",
		".cs":     "csharp",
		".php":    "php",
		".sql":    "sql",
		".xml":    "xml",
		".sh":     "bash",
	}
	for ext, lang := range langMap {
		if strings.HasSuffix(path, ext) {
			return lang
		}
	}
	return ""
}
