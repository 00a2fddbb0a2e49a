package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/codelens/internal/aggregate"
	"github.com/dshills/codelens/internal/analysis"
	"github.com/dshills/codelens/internal/static"
)

// Document is everything a renderer needs. Writers are pure functions of it.
type Document struct {
	Title           string
	Tool            string
	Version         string
	RunID           string
	GeneratedAt     time.Time
	Static          map[string]static.Result
	Results         aggregate.Results
	Summary         aggregate.Summary
	Recommendations []aggregate.Recommendation
}

// NewDocument folds static and results into a Document with a fresh run ID.
func NewDocument(title, version string, tools map[string]static.Result, results aggregate.Results) *Document {
	if tools == nil {
		tools = map[string]static.Result{}
	}
	if results == nil {
		results = aggregate.Results{}
	}
	return &Document{
		Title:           title,
		Tool:            "codelens",
		Version:         version,
		RunID:           uuid.NewString(),
		GeneratedAt:     time.Now().UTC(),
		Static:          tools,
		Results:         results,
		Summary:         aggregate.Summarize(tools, results),
		Recommendations: aggregate.Recommendations(results),
	}
}

// Item is one finding together with where it came from.
type Item struct {
	Path    string
	Kind    analysis.Kind
	Finding analysis.Finding
}

// Findings flattens every successful outcome, most severe first, then by
// path and kind.
func (d *Document) Findings() []Item {
	var items []Item
	for _, path := range d.Results.Paths() {
		pf := d.Results[path]
		for _, kind := range pf.Kinds() {
			o := pf[kind]
			if o.Failed() {
				continue
			}
			for _, f := range o.Findings.Vulnerabilities {
				items = append(items, Item{Path: path, Kind: kind, Finding: f})
			}
			for _, f := range o.Findings.QualityIssues {
				items = append(items, Item{Path: path, Kind: kind, Finding: f})
			}
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return analysis.SeverityRank(items[i].Finding.Severity) > analysis.SeverityRank(items[j].Finding.Severity)
	})
	return items
}

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, doc *Document) error
}

// Formats lists the supported format names.
var Formats = []string{"text", "json", "html", "sarif", "markdown"}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "html":
		return &HTMLWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// Artifact pairs a format with the file it is written to.
type Artifact struct {
	Format string
	Path   string
}

// WriteArtifacts writes each artifact, creating parent directories and
// replacing any previous file. Artifacts with an empty path are skipped.
func WriteArtifacts(doc *Document, artifacts []Artifact) error {
	for _, a := range artifacts {
		if a.Path == "" {
			continue
		}
		if err := WriteToFile(doc, a.Format, a.Path); err != nil {
			return err
		}
	}
	return nil
}

// WriteToFile renders doc in format to path.
func WriteToFile(doc *Document, format, path string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := writer.Write(f, doc); err != nil {
		f.Close()
		return fmt.Errorf("writing %s report: %w", format, err)
	}
	return f.Close()
}

// WriteTo renders doc in format to w, usually the console.
func WriteTo(w io.Writer, doc *Document, format string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}
	if err := writer.Write(w, doc); err != nil {
		return fmt.Errorf("writing %s report: %w", format, err)
	}
	return nil
}

// Failure is one error placeholder together with where it came from.
type Failure struct {
	Path  string
	Kind  analysis.Kind
	Error analysis.OutcomeError
}

// Failures lists every error placeholder by path and kind.
func (d *Document) Failures() []Failure {
	var out []Failure
	for _, path := range d.Results.Paths() {
		pf := d.Results[path]
		for _, kind := range pf.Kinds() {
			o := pf[kind]
			if !o.Failed() {
				continue
			}
			e := analysis.OutcomeError{Message: "no result", Kind: analysis.ErrorBackend}
			if o.Error != nil {
				e = *o.Error
			}
			out = append(out, Failure{Path: path, Kind: kind, Error: e})
		}
	}
	return out
}
