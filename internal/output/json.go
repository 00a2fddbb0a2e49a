package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dshills/codelens/internal/aggregate"
	"github.com/dshills/codelens/internal/static"
)

// SummaryDocument is the JSON artifact. The counters sit at the top level so
// that gate scripts can read them without knowing the nested layout.
type SummaryDocument struct {
	RunID       string `json:"runId"`
	Tool        string `json:"tool"`
	Version     string `json:"version,omitempty"`
	GeneratedAt string `json:"generatedAt"`
	aggregate.Summary
	Static  map[string]static.Result `json:"static"`
	PerFile aggregate.Results        `json:"perFile"`
}

// JSONWriter outputs the summary document.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, doc *Document) error {
	sd := SummaryDocument{
		RunID:       doc.RunID,
		Tool:        doc.Tool,
		Version:     doc.Version,
		GeneratedAt: doc.GeneratedAt.Format(time.RFC3339),
		Summary:     doc.Summary,
		Static:      doc.Static,
		PerFile:     doc.Results,
	}
	data, err := json.MarshalIndent(sd, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// ReadSummary loads a summary document written by JSONWriter.
func ReadSummary(path string) (*SummaryDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading summary: %w", err)
	}
	var sd SummaryDocument
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, fmt.Errorf("parsing summary %s: %w", path, err)
	}
	return &sd, nil
}
