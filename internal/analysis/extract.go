package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractionReason classifies why a reply could not be turned into findings.
type ExtractionReason string

const (
	ReasonNoPayload ExtractionReason = "no structured payload found"
	ReasonMalformed ExtractionReason = "malformed payload"
)

// ExtractionError is returned when a successful model reply holds no usable
// JSON object. Raw is the unmodified reply text.
type ExtractionError struct {
	Reason ExtractionReason
	Raw    string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return string(e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// PayloadBounds returns the offsets of the first '{' and the last '}' in raw.
// ok is false when there is no such pair in that order.
func PayloadBounds(raw string) (start, end int, ok bool) {
	start = strings.IndexByte(raw, '{')
	end = strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return 0, 0, false
	}
	return start, end, true
}

// ScanPayload walks raw tracking brace depth, skipping braces inside JSON
// string literals, and returns the first balanced object that is valid JSON
// and carries a findings key. Objects without one, such as a single finding
// item left over from a truncated or malformed reply, are never returned.
func ScanPayload(raw string) (string, bool) {
	for _, obj := range scanObjects(raw) {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(obj), &fields); err != nil {
			continue
		}
		for _, key := range findingKeys {
			if _, ok := fields[key]; ok {
				return obj, true
			}
		}
	}
	return "", false
}

var findingKeys = []string{"vulnerabilities", "quality_issues", "issues"}

// scanObjects returns every outermost balanced object in raw that is valid JSON.
func scanObjects(raw string) []string {
	var objects []string
	for from := 0; from < len(raw); {
		i := strings.IndexByte(raw[from:], '{')
		if i < 0 {
			break
		}
		start := from + i
		end, closed := matchObject(raw, start)
		if closed && json.Valid([]byte(raw[start:end+1])) {
			objects = append(objects, raw[start:end+1])
			from = end + 1
			continue
		}
		from = start + 1
	}
	return objects
}

// matchObject returns the index of the '}' closing the object opened at start.
func matchObject(raw string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// rawFinding is the per-item shape accepted from the model.
type rawFinding struct {
	Type           flexString `json:"type"`
	Title          flexString `json:"title"`
	Severity       flexString `json:"severity"`
	Line           flexString `json:"line"`
	Description    flexString `json:"description"`
	Recommendation flexString `json:"recommendation"`
	Suggestion     flexString `json:"suggestion"`
	CWE            flexString `json:"cwe"`
	CWEID          flexString `json:"cwe_id"`
}

// flexString accepts any JSON scalar and keeps its text. Strings are
// unquoted, null becomes empty and numbers or nested values keep their
// JSON spelling.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	default:
		*f = flexString(data)
	}
	return nil
}

// Extract locates the structured payload in a model reply and decodes it.
// Without a scanned findings object the first '{' to last '}' slice is
// decoded instead, so a malformed reply fails rather than reading as clean.
// Missing collections default to empty and unknown fields are ignored.
func Extract(raw string) (FindingSet, error) {
	payload, ok := ScanPayload(raw)
	if !ok {
		start, end, found := PayloadBounds(raw)
		if !found {
			return FindingSet{}, &ExtractionError{Reason: ReasonNoPayload, Raw: raw}
		}
		payload = raw[start : end+1]
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return FindingSet{}, &ExtractionError{Reason: ReasonMalformed, Raw: raw, Err: err}
	}

	fs := FindingSet{
		Vulnerabilities: decodeFindings(fields["vulnerabilities"], ClassVulnerability),
		QualityIssues:   decodeFindings(fields["quality_issues"], ClassQuality),
	}
	fs.QualityIssues = append(fs.QualityIssues, decodeFindings(fields["issues"], ClassQuality)...)
	if s, ok := fields["summary"]; ok {
		_ = json.Unmarshal(s, &fs.Summary)
	}
	return fs, nil
}

// decodeFindings decodes a JSON array item by item. Items that are bare
// strings become descriptions; items that do not decode are dropped.
func decodeFindings(data json.RawMessage, class Class) []Finding {
	out := []Finding{}
	if len(data) == 0 {
		return out
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return out
	}
	for _, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			out = append(out, Finding{Class: class, Description: text})
			continue
		}
		var r rawFinding
		if err := json.Unmarshal(item, &r); err != nil {
			continue
		}
		out = append(out, r.toFinding(class))
	}
	return out
}

func (r rawFinding) toFinding(class Class) Finding {
	f := Finding{
		Class:          class,
		Type:           string(r.Type),
		Severity:       Severity(r.Severity),
		Line:           Line(r.Line),
		Description:    string(r.Description),
		Recommendation: string(r.Recommendation),
	}
	if f.Type == "" {
		f.Type = string(r.Title)
	}
	if f.Recommendation == "" {
		f.Recommendation = string(r.Suggestion)
	}
	if class == ClassVulnerability {
		f.CWE = string(r.CWE)
		if f.CWE == "" {
			f.CWE = string(r.CWEID)
		}
	}
	return f
}
