package output

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/dshills/codelens/internal/aggregate"
	"github.com/dshills/codelens/internal/analysis"
	"github.com/dshills/codelens/internal/static"
)

//go:embed templates/report.html
var reportHTMLTemplate string

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"severityClass": severityClass,
	"severityText":  displaySeverity,
}).Parse(reportHTMLTemplate))

// HTMLWriter outputs the standalone HTML report. Model text is escaped by
// html/template; severities are shown as the model wrote them.
type HTMLWriter struct{}

func (h *HTMLWriter) Write(w io.Writer, doc *Document) error {
	if err := reportTemplate.Execute(w, buildViewModel(doc)); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}
	return nil
}

// ---------- View Model & helpers ----------

type viewModel struct {
	Title           string
	RunID           string
	Version         string
	GeneratedAt     string
	Summary         aggregate.Summary
	Tools           []toolView
	Files           []fileView
	Recommendations []aggregate.Recommendation
	Metrics         []metricView
}

type toolView struct {
	Name    string
	Details []string
	Bugs    []static.Bug
}

type fileView struct {
	Path  string
	Kinds []kindView
}

type kindView struct {
	Kind            analysis.Kind
	Failed          bool
	ErrorKind       analysis.ErrorKind
	Error           string
	Raw             string
	Vulnerabilities []analysis.Finding
	QualityIssues   []analysis.Finding
	Summary         string
}

type metricView struct {
	Label string
	Value int
}

func buildViewModel(doc *Document) viewModel {
	s := doc.Summary
	vm := viewModel{
		Title:           doc.Title,
		RunID:           doc.RunID,
		Version:         doc.Version,
		GeneratedAt:     doc.GeneratedAt.Format(time.RFC1123),
		Summary:         s,
		Recommendations: doc.Recommendations,
		Metrics: []metricView{
			{"Files analyzed", s.FilesAnalyzed},
			{"Files with errors", s.FilesWithErrors},
			{"Total vulnerabilities", s.TotalVulnerabilities},
			{"High severity", s.HighSeverityVulnerabilities},
			{"Medium severity", s.MediumSeverityVulnerabilities},
			{"Low severity", s.LowSeverityVulnerabilities},
			{"Quality issues", s.TotalQualityIssues},
			{"Static tools", s.ToolCount},
			{"Static tool bugs", s.StaticBugs},
		},
	}
	if vm.Title == "" {
		vm.Title = "AI-Powered Security & Quality Analysis Report"
	}

	for _, name := range static.Names(doc.Static) {
		vm.Tools = append(vm.Tools, buildToolView(name, doc.Static[name]))
	}

	for _, path := range doc.Results.Paths() {
		pf := doc.Results[path]
		fv := fileView{Path: path}
		for _, kind := range pf.Kinds() {
			o := pf[kind]
			kv := kindView{Kind: kind, Failed: o.Failed()}
			switch {
			case o.Error != nil:
				kv.ErrorKind = o.Error.Kind
				kv.Error = o.Error.Message
				kv.Raw = o.Error.Raw
			case o.Findings != nil:
				kv.Vulnerabilities = o.Findings.Vulnerabilities
				kv.QualityIssues = o.Findings.QualityIssues
				kv.Summary = o.Findings.Summary
			default:
				kv.ErrorKind = analysis.ErrorBackend
				kv.Error = "no result"
			}
			fv.Kinds = append(fv.Kinds, kv)
		}
		vm.Files = append(vm.Files, fv)
	}
	return vm
}

func buildToolView(name string, r static.Result) toolView {
	tv := toolView{Name: name, Bugs: static.Bugs(r)}
	switch name {
	case static.OWASP:
		tv.Details = append(tv.Details, fmt.Sprintf("%d vulnerable dependencies", static.VulnerableDependencies(r)))
	case static.SonarQube:
		for _, key := range []string{"projectKey", "dashboardUrl", "ceTaskUrl"} {
			if v, ok := r[key].(string); ok && v != "" {
				tv.Details = append(tv.Details, key+": "+v)
			}
		}
	}
	if len(tv.Details) == 0 && tv.Bugs == nil && len(r) == 0 {
		tv.Details = append(tv.Details, "report present but empty or unreadable")
	}
	return tv
}

func severityClass(s analysis.Severity) string {
	return "severity-" + strings.ToLower(string(analysis.NormalizeSeverity(s)))
}
