package static

import (
	"bufio"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"
)

// ParseOWASP decodes an OWASP Dependency-Check JSON report as a generic map.
func ParseOWASP(data []byte) (Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errors.New("report is not a JSON object")
	}
	return r, nil
}

// VulnerableDependencies counts dependencies with at least one reported
// vulnerability in an OWASP result.
func VulnerableDependencies(r Result) int {
	deps, ok := r["dependencies"].([]any)
	if !ok {
		return 0
	}
	n := 0
	for _, d := range deps {
		m, ok := d.(map[string]any)
		if !ok {
			continue
		}
		if vulns, ok := m["vulnerabilities"].([]any); ok && len(vulns) > 0 {
			n++
		}
	}
	return n
}

// ParseSpotBugs walks a SpotBugs XML report and keeps the type, priority and
// category attributes of every BugInstance element.
func ParseSpotBugs(data []byte) (Result, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	bugs := []Bug{}
	sawRoot := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true
		if start.Name.Local != "BugInstance" {
			continue
		}
		var b Bug
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "type":
				b.Type = attr.Value
			case "priority":
				b.Priority = attr.Value
			case "category":
				b.Category = attr.Value
			}
		}
		bugs = append(bugs, b)
	}
	if !sawRoot {
		return nil, errors.New("no XML elements found")
	}
	return Result{"bugs": bugs}, nil
}

// ParseSonarQube reads the key=value properties of a SonarQube scanner
// report-task.txt file.
func ParseSonarQube(data []byte) (Result, error) {
	r := Result{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "!") {
			continue
		}
		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected key=value", line)
		}
		r[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return r, nil
}

// ParseSARIF flattens the results of every run in a SARIF log into bug
// entries: the rule id becomes the type, the level the priority and the
// driver name the category.
func ParseSARIF(data []byte) (Result, error) {
	var report sarif.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	if report.Version == "" && len(report.Runs) == 0 {
		return nil, errors.New("not a SARIF log")
	}

	bugs := []Bug{}
	for _, run := range report.Runs {
		tool := ""
		if run.Tool.Driver != nil {
			tool = run.Tool.Driver.Name
		}
		for _, res := range run.Results {
			b := Bug{Category: tool, Priority: "warning"}
			if res.RuleID != nil {
				b.Type = *res.RuleID
			}
			if res.Level != nil && *res.Level != "" {
				b.Priority = *res.Level
			}
			bugs = append(bugs, b)
		}
	}
	return Result{"bugs": bugs}, nil
}
