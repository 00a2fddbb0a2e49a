package redact

import (
	"regexp"

	"github.com/dshills/codelens/internal/source"
)

const placeholder = "[REDACTED]"

type pattern struct {
	name string
	re   *regexp.Regexp
}

// secretPatterns are regex heuristics for common secret types.
var secretPatterns = []pattern{
	{"api-key", regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`)},
	{"aws-access-key-id", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"aws-secret-access-key", regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`)},
	// JDBC URLs carrying credentials as parameters, e.g. ;password=x or ?password=x
	{"jdbc-password", regexp.MustCompile(`(?i)jdbc:[a-z0-9]+:[^\s"']*?(password|pwd)=[^&;\s"']+`)},
	// user:pass@host in connection strings
	{"url-credentials", regexp.MustCompile(`(?i)[a-z][a-z0-9+.-]*://[^\s:/@"']+:[^\s@/"']+@`)},
	{"assignment", regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`)},
	{"bearer", regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`)},
	{"jwt", regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`)},
	{"private-key", regexp.MustCompile(`-----BEGIN\s+(RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----`)},
	{"github-token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`)},
	{"slack-token", regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`)},
	{"google-api-key", regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`)},
	{"openai-key", regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`)},
	// Generic long hex strings that look like secrets (32+ chars in an assignment)
	{"hex-secret", regexp.MustCompile(`(?i)(key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`)},
}

// Secrets replaces detected secrets in text with [REDACTED] and reports how
// many replacements were made.
func Secrets(text string) (string, int) {
	result := text
	count := 0
	for _, p := range secretPatterns {
		result = p.re.ReplaceAllStringFunc(result, func(string) string {
			count++
			return placeholder
		})
	}
	return result, count
}

// ShouldRedactPath checks if a file path matches any of the redaction path patterns.
func ShouldRedactPath(path string, patterns []string) bool {
	return source.MatchesAny(path, patterns)
}

// Redactor scrubs source units before they leave the machine.
type Redactor struct {
	secrets bool
	paths   []string
}

// New creates a Redactor. When secrets is false only path policy applies.
func New(secrets bool, paths []string) *Redactor {
	return &Redactor{secrets: secrets, paths: paths}
}

// Unit returns u with its content redacted and the number of redactions.
// Files matching a path pattern are replaced wholesale and count as one.
func (r *Redactor) Unit(u source.Unit) (source.Unit, int) {
	if r == nil {
		return u, 0
	}
	if ShouldRedactPath(u.Path, r.paths) {
		u.Content = placeholder + " (file content redacted by path policy)\n"
		return u, 1
	}
	if !r.secrets {
		return u, 0
	}
	content, n := Secrets(u.Content)
	u.Content = content
	return u, n
}
