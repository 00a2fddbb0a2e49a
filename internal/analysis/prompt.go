package analysis

import (
	"fmt"
	"path/filepath"
	"strings"
)

const systemPrompt = `You are a strict, expert code reviewer working inside a CI pipeline. You review one complete source file at a time and report structured findings.

Rules:
1. Only report problems you can point to in the provided file.
2. Be concise and actionable. Every finding must include a concrete recommendation.
3. Give the approximate line number for each finding.
4. Rate severity as "HIGH", "MEDIUM" or "LOW".

You MUST respond with ONLY a JSON object. No markdown, no explanation, no preamble.`

// checklists hold the fixed instruction block for each analysis kind.
var checklists = map[Kind]string{
	KindSecurity: `Act as an application security expert. Check this file for:
- SQL, LDAP, XPath and other injection
- Cross-site scripting (XSS)
- Authentication and authorization flaws
- Missing or weak input validation
- Cryptographic weaknesses (weak algorithms, hard-coded keys, insecure randomness)
- Insecure deserialization
- Path traversal
- OS command injection
- Session handling problems (fixation, missing invalidation, insecure cookies)`,
	KindQuality: `Act as a code quality expert. Check this file for:
- Code smells and anti-patterns
- Excessive complexity
- Duplicated logic
- SOLID principle violations
- Poor exception handling (swallowed exceptions, overly broad catches)
- Unclear naming
- Performance problems
- Missing, stale or misleading comments`,
	KindGeneral: `Perform a comprehensive code review focusing on:
- Overall architecture and responsibilities
- Error handling
- Documentation quality
- Testing coverage gaps`,
}

const vulnerabilityShape = `Respond with this exact structure:
{
  "vulnerabilities": [
    {
      "type": "short name, e.g. SQL Injection",
      "severity": "HIGH|MEDIUM|LOW",
      "line": "approximate line number",
      "description": "what is wrong and why it matters",
      "recommendation": "how to fix it",
      "cwe": "CWE identifier if known, e.g. CWE-89"
    }
  ]
}

If there are no issues, respond with: {"vulnerabilities": []}`

const qualityShape = `Respond with this exact structure:
{
  "quality_issues": [
    {
      "type": "short name, e.g. God Class",
      "severity": "HIGH|MEDIUM|LOW",
      "line": "approximate line number",
      "description": "what is wrong and why it matters",
      "recommendation": "how to improve it"
    }
  ]
}

If there are no issues, respond with: {"quality_issues": []}`

// Prompt is the instruction pair sent to the backend for one request.
type Prompt struct {
	System string
	User   string
}

// PromptBuilder turns a file and an analysis kind into a prompt.
type PromptBuilder interface {
	Build(kind Kind, path, content string) Prompt
}

// DefaultPrompts is the built-in PromptBuilder. Rules may be nil.
type DefaultPrompts struct {
	Rules       *Rules
	MaxFindings int
}

// Build assembles the kind checklist, reply shape, optional policy section
// and the delimited file content.
func (d DefaultPrompts) Build(kind Kind, path, content string) Prompt {
	var b strings.Builder

	checklist, ok := checklists[kind]
	if !ok {
		checklist = checklists[KindGeneral]
	}
	b.WriteString(checklist)
	b.WriteString("\n\n")

	if kind == KindSecurity {
		b.WriteString(vulnerabilityShape)
	} else {
		b.WriteString(qualityShape)
	}
	b.WriteString("\n")

	if d.MaxFindings > 0 {
		fmt.Fprintf(&b, "\nReturn at most %d findings.\n", d.MaxFindings)
	}
	if lang := detectLanguage(path); lang != "" {
		fmt.Fprintf(&b, "Language: %s\n", lang)
	}
	b.WriteString(d.Rules.PromptSection())

	fmt.Fprintf(&b, "\nFile: %s\n", path)
	b.WriteString("--- BEGIN SOURCE ---\n")
	b.WriteString(content)
	b.WriteString("\n--- END SOURCE ---\n")

	return Prompt{System: systemPrompt, User: b.String()}
}

var languages = map[string]string{
	".go":     "Go",
	".py":     "Python",
	".js":     "JavaScript",
	".ts":     "TypeScript",
	".tsx":    "TypeScript/React",
	".jsx":    "JavaScript/React",
	".rs":     "Rust",
	".java":   "Java",
	".kt":     "Kotlin",
	".scala":  "Scala",
	".groovy": "Groovy",
	".rb":     "Ruby",
	".cpp":    "C++",
	".c":      "C",
	".h":      "C/C++",
	".cs":     "C#",
	".php":    "PHP",
	".swift":  "Swift",
	".sql":    "SQL",
	".sh":     "Shell",
}

func detectLanguage(path string) string {
	return languages[strings.ToLower(filepath.Ext(path))]
}
