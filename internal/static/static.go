package static

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-hclog"

	"github.com/dshills/codelens/internal/logging"
)

// Result is the decoded payload of one tool report. Its shape depends on the
// tool: an arbitrary JSON mapping, properties, or {"bugs": [...]}.
type Result map[string]any

// Bug is one entry of a bug-list report.
type Bug struct {
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Category string `json:"category"`
}

// Parser decodes a report file.
type Parser func(data []byte) (Result, error)

// Tool describes where a tool writes its report and how to read it. Empty is
// the payload recorded when the report exists but does not parse.
type Tool struct {
	Name  string
	Path  string
	Parse Parser
	Empty func() Result
}

// Tool names.
const (
	SonarQube = "sonarqube"
	OWASP     = "owasp"
	SpotBugs  = "spotbugs"
	SARIF     = "sarif"
)

// DefaultPaths are the report locations relative to the project root.
var DefaultPaths = map[string]string{
	SonarQube: "target/sonar/report-task.txt",
	OWASP:     "target/dependency-check-report.json",
	SpotBugs:  "target/spotbugsXml.xml",
	SARIF:     "target/sarif/results.sarif",
}

// DefaultTools returns the known tools rooted at root. overrides replaces the
// report path per tool name; relative overrides are resolved against root.
func DefaultTools(root string, overrides map[string]string) []Tool {
	path := func(name string) string {
		p := DefaultPaths[name]
		if o, ok := overrides[name]; ok && o != "" {
			p = o
		}
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(root, p)
	}
	return []Tool{
		{Name: SonarQube, Path: path(SonarQube), Parse: ParseSonarQube, Empty: emptyMap},
		{Name: OWASP, Path: path(OWASP), Parse: ParseOWASP, Empty: emptyMap},
		{Name: SpotBugs, Path: path(SpotBugs), Parse: ParseSpotBugs, Empty: emptyBugs},
		{Name: SARIF, Path: path(SARIF), Parse: ParseSARIF, Empty: emptyBugs},
	}
}

func emptyMap() Result { return Result{} }

func emptyBugs() Result { return Result{"bugs": []Bug{}} }

// ToolParseError is logged when a report exists but cannot be decoded.
type ToolParseError struct {
	Tool string
	Path string
	Err  error
}

func (e *ToolParseError) Error() string {
	return fmt.Sprintf("parsing %s report %s: %v", e.Tool, e.Path, e.Err)
}

func (e *ToolParseError) Unwrap() error { return e.Err }

// Collector reads every configured tool report.
type Collector struct {
	tools  []Tool
	logger hclog.Logger
}

// NewCollector creates a Collector. A nil logger discards output.
func NewCollector(tools []Tool, logger hclog.Logger) *Collector {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Collector{tools: tools, logger: logger}
}

// Collect returns one entry per tool whose report file exists. It never fails.
func (c *Collector) Collect() map[string]Result {
	results := make(map[string]Result)
	for _, tool := range c.tools {
		data, err := os.ReadFile(tool.Path)
		if errors.Is(err, os.ErrNotExist) {
			c.logger.Debug("no report", "tool", tool.Name, "path", tool.Path)
			continue
		}
		if err == nil {
			var r Result
			r, err = tool.Parse(data)
			if err == nil {
				c.logger.Info("collected report", "tool", tool.Name, "path", tool.Path)
				results[tool.Name] = r
				continue
			}
		}
		perr := &ToolParseError{Tool: tool.Name, Path: tool.Path, Err: err}
		c.logger.Warn("report unreadable, recording empty result", "error", perr)
		results[tool.Name] = tool.Empty()
	}
	return results
}

// Bugs returns the bug list of a result, or nil when it has none.
func Bugs(r Result) []Bug {
	switch v := r["bugs"].(type) {
	case []Bug:
		return v
	case []any:
		bugs := make([]Bug, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			bugs = append(bugs, Bug{
				Type:     stringField(m, "type"),
				Priority: stringField(m, "priority"),
				Category: stringField(m, "category"),
			})
		}
		return bugs
	default:
		return nil
	}
}

// BugCount returns the number of bug entries in a result.
func BugCount(r Result) int {
	switch v := r["bugs"].(type) {
	case []Bug:
		return len(v)
	case []any:
		return len(v)
	default:
		return 0
	}
}

// Names returns the tool names present in results, sorted.
func Names(results map[string]Result) []string {
	names := make([]string, 0, len(results))
	for n := range results {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	if v, ok := m[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}
