package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codelens/internal/github"
	"github.com/dshills/codelens/internal/output"
)

// workspace isolates the command from user config and returns a project
// directory holding one Java source file.
func workspace(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "app", "Login.java"),
		[]byte("class Login { String q = \"SELECT * FROM users WHERE name='\" + name + \"'\"; }\n"), 0o644))
	return dir
}

// fakeOllama answers security prompts with one high-severity finding and
// everything else with one quality issue.
func fakeOllama(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		reply := `{"quality_issues":[{"type":"Naming","severity":"LOW","description":"short names"}]}`
		if req.Model == "codellama:13b" {
			reply = "Here you go:\n```json\n" +
				`{"vulnerabilities":[{"type":"SQL Injection","severity":"HIGH","line":"1","description":"concatenated query","cwe":"CWE-89"}]}` +
				"\n```"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": reply})
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := run("version")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "codelens version "+version)
}

func TestUnknownCommand(t *testing.T) {
	code, _, _ := run("frobnicate")
	assert.Equal(t, ExitUsageError, code)
}

func TestAnalyze_NoSources(t *testing.T) {
	workspace(t)
	code, _, errOut := run("analyze", "--source-root", t.TempDir())
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, errOut, "no source files")
}

func TestAnalyze_WritesReports(t *testing.T) {
	dir := workspace(t)
	server, calls := fakeOllama(t)

	code, out, errOut := run("analyze", "--base-url", server.URL, "--sarif", "scan-results/ai-analysis.sarif")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls), "one call per file and kind")
	assert.Contains(t, out, "SQL Injection")

	sd, err := output.ReadSummary(filepath.Join(dir, "scan-results", "ai-analysis-summary.json"))
	require.NoError(t, err)
	assert.Equal(t, 1, sd.TotalVulnerabilities)
	assert.Equal(t, 1, sd.HighSeverityVulnerabilities)
	assert.Equal(t, 1, sd.TotalQualityIssues)
	assert.Equal(t, 1, sd.FilesAnalyzed)
	assert.Equal(t, 0, sd.FilesWithErrors)

	html, err := os.ReadFile(filepath.Join(dir, "scan-results", "ai-analysis-report.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "SQL Injection")
	assert.FileExists(t, filepath.Join(dir, "scan-results", "ai-analysis.sarif"))
}

func TestAnalyze_BackendDownStillSucceeds(t *testing.T) {
	dir := workspace(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	code, _, errOut := run("analyze", "--base-url", server.URL, "--format", "none")
	require.Equal(t, ExitSuccess, code, errOut)

	sd, err := output.ReadSummary(filepath.Join(dir, "scan-results", "ai-analysis-summary.json"))
	require.NoError(t, err)
	assert.Equal(t, 1, sd.FilesWithErrors)
	assert.Equal(t, 0, sd.TotalVulnerabilities)
}

func TestAnalyze_Gate(t *testing.T) {
	workspace(t)
	server, _ := fakeOllama(t)

	code, _, errOut := run("analyze", "--base-url", server.URL, "--format", "none", "--gate")
	assert.Equal(t, ExitGateFailed, code)
	assert.Contains(t, errOut, "highSeverityVulnerabilities = 1 exceeds 0")
}

func TestAnalyze_UnwritableOutput(t *testing.T) {
	dir := workspace(t)
	server, _ := fakeOllama(t)
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	code, _, _ := run("analyze", "--base-url", server.URL, "--format", "none",
		"--html", filepath.Join(blocker, "report.html"))
	assert.Equal(t, ExitRuntimeError, code)
}

func TestAnalyze_UnknownConsoleFormat(t *testing.T) {
	workspace(t)
	server, calls := fakeOllama(t)

	code, _, errOut := run("analyze", "--base-url", server.URL, "--format", "pdf")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, errOut, "unsupported output format")
	assert.Equal(t, int32(0), atomic.LoadInt32(calls), "rejected before any backend call")
}

func TestAnalyze_InvalidConfig(t *testing.T) {
	workspace(t)
	code, _, errOut := run("analyze", "--kinds", "style")
	assert.Equal(t, ExitRuntimeError, code)
	assert.Contains(t, errOut, "analysis.kinds")
}

func TestGate(t *testing.T) {
	dir := workspace(t)
	server, _ := fakeOllama(t)
	code, _, errOut := run("analyze", "--base-url", server.URL, "--format", "none")
	require.Equal(t, ExitSuccess, code, errOut)
	summary := filepath.Join(dir, "scan-results", "ai-analysis-summary.json")

	code, _, _ = run("gate", summary)
	assert.Equal(t, ExitGateFailed, code)

	code, out, _ := run("gate", summary, "--max-high", "1")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Quality gate passed")

	code, _, _ = run("gate", "--max-high=-1", "--max-quality=0")
	assert.Equal(t, ExitGateFailed, code, "default path is output.json")
}

func TestGate_MissingSummary(t *testing.T) {
	workspace(t)
	code, _, _ := run("gate", "missing.json")
	assert.Equal(t, ExitRuntimeError, code)
}

func TestConfigCommands(t *testing.T) {
	dir := workspace(t)
	path := filepath.Join(dir, "codelens.yaml")

	code, out, _ := run("config", "init", "--local")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "codelens.yaml")
	assert.FileExists(t, path)

	code, _, errOut := run("config", "init", "--local")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, errOut, "already exists")

	code, _, _ = run("config", "set", "--local", "backend.provider", "openai")
	require.Equal(t, ExitSuccess, code)
	code, _, _ = run("config", "set", "--local", "analysis.kinds", "security,general")
	require.Equal(t, ExitSuccess, code)

	code, _, _ = run("config", "set", "--local", "backend.provider", "bard")
	assert.Equal(t, ExitUsageError, code)
	code, _, _ = run("config", "set", "--local", "no.such.key", "1")
	assert.Equal(t, ExitUsageError, code)

	t.Setenv("CODELENS_BACKEND_API_KEY", "sk-live-secret")
	code, out, _ = run("config", "show")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "provider: openai")
	assert.Contains(t, out, "- general")
	assert.NotContains(t, out, "sk-live-secret")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-live-secret")
}

func TestConfigFlag(t *testing.T) {
	workspace(t)
	path := filepath.Join(t.TempDir(), "ci.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  title: Nightly\n"), 0o600))

	code, out, _ := run("config", "show", "--config", path)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "title: Nightly")
}

func TestModelsList(t *testing.T) {
	workspace(t)
	code, out, _ := run("models", "list")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "ollama")
	for _, want := range []string{"security", "codellama:13b", "quality", "general"} {
		assert.True(t, strings.Contains(out, want), "missing %q in %q", want, out)
	}
}

func TestModelsDoctor(t *testing.T) {
	workspace(t)
	server, _ := fakeOllama(t)

	t.Setenv("CODELENS_BACKEND_BASE_URL", server.URL)
	code, out, _ := run("models", "doctor", "--kind", "security")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "codellama:13b")
	assert.Contains(t, out, "OK")
}

func TestModelsDoctor_AuthFailure(t *testing.T) {
	workspace(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()
	t.Setenv("CODELENS_BACKEND_BASE_URL", server.URL)

	code, _, errOut := run("models", "doctor")
	assert.Equal(t, ExitRuntimeError, code)
	assert.Contains(t, errOut, "CODELENS_BACKEND_API_KEY")
}

type fakePoster struct {
	files  []string
	posted []github.ReviewRequest
	pr     int
}

func (f *fakePoster) GetPRFiles(ctx context.Context, owner, repo string, prNumber int) ([]string, error) {
	return f.files, nil
}

func (f *fakePoster) PostReview(ctx context.Context, owner, repo string, prNumber int, review github.ReviewRequest) error {
	f.pr = prNumber
	f.posted = append(f.posted, review)
	return nil
}

func TestPublish(t *testing.T) {
	workspace(t)
	server, _ := fakeOllama(t)
	code, _, errOut := run("analyze", "--base-url", server.URL, "--format", "none")
	require.Equal(t, ExitSuccess, code, errOut)

	poster := &fakePoster{files: []string{"src/app/Login.java"}}
	orig := newGitHubClient
	newGitHubClient = func() (reviewPoster, error) { return poster, nil }
	t.Cleanup(func() { newGitHubClient = orig })

	t.Setenv("GITHUB_REF", "refs/pull/17/merge")
	code, out, errOut := run("publish", "--repo", "acme/shop")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Contains(t, out, "acme/shop#17")
	require.Len(t, poster.posted, 1)
	assert.Equal(t, 17, poster.pr)
	require.Len(t, poster.posted[0].Comments, 1)
	assert.Equal(t, "src/app/Login.java", poster.posted[0].Comments[0].Path)
	assert.Equal(t, 1, poster.posted[0].Comments[0].Line)
}

func TestPublish_DryRunAndMissingPR(t *testing.T) {
	workspace(t)
	server, _ := fakeOllama(t)
	code, _, errOut := run("analyze", "--base-url", server.URL, "--format", "none")
	require.Equal(t, ExitSuccess, code, errOut)

	code, out, _ := run("publish", "--dry-run")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "| High severity | 1 |")

	t.Setenv("GITHUB_REF", "refs/heads/main")
	code, _, _ = run("publish", "--repo", "acme/shop")
	assert.Equal(t, ExitUsageError, code)
}
