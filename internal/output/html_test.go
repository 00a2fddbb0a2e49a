package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codelens/internal/aggregate"
	"github.com/dshills/codelens/internal/analysis"
)

func TestHTMLWriter_SectionsInOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&HTMLWriter{}).Write(&buf, testDocument(t)))
	out := buf.String()

	headings := []string{
		"<h2>Executive Summary</h2>",
		"<h2>Static Analysis Results</h2>",
		"<h2>AI-Enhanced Insights</h2>",
		"<h2>Recommendations</h2>",
		"<h2>Metrics</h2>",
	}
	last := -1
	for _, h := range headings {
		i := strings.Index(out, h)
		require.GreaterOrEqual(t, i, 0, "missing %s", h)
		assert.Greater(t, i, last, "%s out of order", h)
		last = i
	}
}

func TestHTMLWriter_EscapesModelText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&HTMLWriter{}).Write(&buf, testDocument(t)))
	out := buf.String()

	assert.NotContains(t, out, "<script>alert(1)</script>")
	assert.Contains(t, out, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.NotContains(t, out, "<b>help</b>")
	assert.Contains(t, out, "I cannot &lt;b&gt;help&lt;/b&gt;")
}

func TestHTMLWriter_SeverityVerbatimAndErrors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&HTMLWriter{}).Write(&buf, testDocument(t)))
	out := buf.String()

	assert.Contains(t, out, `<span class="severity-low">[low]</span>`)
	assert.Contains(t, out, `<span class="severity-high">[HIGH]</span>`)
	assert.Contains(t, out, "security analysis failed")
	assert.Contains(t, out, "extraction error: no structured payload found")
	assert.Contains(t, out, "NP_NULL_ON_SOME_PATH")
	assert.Contains(t, out, "CWE-89")
}

func TestHTMLWriter_ShowsModelSeverityWhenOverridden(t *testing.T) {
	r, err := aggregate.Record(nil, "A.java", analysis.KindSecurity, analysis.Succeeded(analysis.FindingSet{
		Vulnerabilities: []analysis.Finding{{Type: "Hardcoded Secret", Severity: "HIGH", ModelSeverity: "low"}},
	}))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, (&HTMLWriter{}).Write(&buf, NewDocument("", "", nil, r)))
	assert.Contains(t, buf.String(), `<span class="severity-high">[HIGH]</span> <span class="meta">(model: low)</span>`)
}

func TestHTMLWriter_EmptyDocument(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&HTMLWriter{}).Write(&buf, NewDocument("", "", nil, nil)))
	out := buf.String()

	assert.Contains(t, out, "AI-Powered Security &amp; Quality Analysis Report")
	assert.Contains(t, out, "No results: no static analysis reports were found.")
	assert.Contains(t, out, "No results: no source files were analyzed.")
	assert.Equal(t, 3, strings.Count(out, `class="empty"`))
}
