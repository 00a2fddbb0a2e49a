package github

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dshills/codelens/internal/analysis"
	"github.com/dshills/codelens/internal/output"
)

const defaultAPIURL = "https://api.github.com"

// Client provides access to the GitHub REST API.
type Client struct {
	apiURL string
	http   *resty.Client
}

// NewClient creates a new GitHub client. Requires the GITHUB_TOKEN env var;
// GITHUB_API_URL overrides the API endpoint for GitHub Enterprise.
func NewClient() (*Client, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN environment variable is not set")
	}
	return newClient(os.Getenv("GITHUB_API_URL"), token), nil
}

func newClient(apiURL, token string) *Client {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	c := resty.New().
		SetTimeout(60*time.Second).
		SetAuthToken(token).
		SetHeader("Accept", "application/vnd.github.v3+json")
	return &Client{apiURL: strings.TrimRight(apiURL, "/"), http: c}
}

// PRFile represents a file changed in a pull request.
type PRFile struct {
	Filename string `json:"filename"`
}

// GetPRFiles fetches the paths of files changed in a pull request.
func (c *Client) GetPRFiles(ctx context.Context, owner, repo string, prNumber int) ([]string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/files", c.apiURL, owner, repo, prNumber)

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("per_page", "100").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching PR files: %w", err)
	}
	switch resp.StatusCode() {
	case 200:
	case 404:
		return nil, fmt.Errorf("PR #%d not found in %s/%s", prNumber, owner, repo)
	case 401, 403:
		return nil, fmt.Errorf("authentication failed: %s", resp.String())
	default:
		return nil, fmt.Errorf("GitHub API error (status %d): %s", resp.StatusCode(), resp.String())
	}

	var files []PRFile
	if err := json.Unmarshal(resp.Body(), &files); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Filename
	}
	return names, nil
}

// ReviewComment represents an inline comment on a PR review.
type ReviewComment struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Body string `json:"body"`
}

// ReviewRequest represents a PR review to post.
type ReviewRequest struct {
	Body     string          `json:"body"`
	Event    string          `json:"event"`
	Comments []ReviewComment `json:"comments"`
}

// PostReview posts a pull request review with inline comments.
func (c *Client) PostReview(ctx context.Context, owner, repo string, prNumber int, review ReviewRequest) error {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/reviews", c.apiURL, owner, repo, prNumber)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(review).
		Post(url)
	if err != nil {
		return fmt.Errorf("posting review: %w", err)
	}

	if resp.StatusCode() == 422 {
		return fmt.Errorf("GitHub rejected review (422): %s", resp.String())
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("GitHub API error (status %d): %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// BuildReview converts a report into a GitHub PR review. Findings with a line
// in a file that is part of the PR become inline comments; the rest are
// listed in the body. prFiles holds repository-relative paths and prefix is
// stripped from finding paths before matching.
func BuildReview(doc *output.Document, prFiles map[string]bool, prefix string) ReviewRequest {
	var bodyItems []string
	var comments []ReviewComment

	for _, it := range doc.Findings() {
		path := repoPath(it.Path, prefix)
		line, ok := it.Finding.Line.Start()
		if ok && prFiles[path] {
			comments = append(comments, ReviewComment{
				Path: path,
				Line: line,
				Body: formatInlineComment(it),
			})
			continue
		}
		bodyItems = append(bodyItems, formatFindingBody(it))
	}

	s := doc.Summary
	var sb strings.Builder
	sb.WriteString("## Codelens Analysis\n\n")
	sb.WriteString("| Metric | Count |\n|--------|-------|\n")
	fmt.Fprintf(&sb, "| High severity | %d |\n", s.HighSeverityVulnerabilities)
	fmt.Fprintf(&sb, "| Medium severity | %d |\n", s.MediumSeverityVulnerabilities)
	fmt.Fprintf(&sb, "| Low severity | %d |\n", s.LowSeverityVulnerabilities)
	fmt.Fprintf(&sb, "| Quality issues | %d |\n", s.TotalQualityIssues)
	fmt.Fprintf(&sb, "| Files analyzed | %d |\n", s.FilesAnalyzed)
	fmt.Fprintf(&sb, "| Files with errors | %d |\n", s.FilesWithErrors)
	fmt.Fprintf(&sb, "| Static tool bugs | %d |\n\n", s.StaticBugs)

	if len(bodyItems) > 0 {
		sb.WriteString("### Other Findings\n\n")
		for _, c := range bodyItems {
			sb.WriteString(c)
			sb.WriteString("\n")
		}
	}

	return ReviewRequest{
		Body:     sb.String(),
		Event:    "COMMENT",
		Comments: comments,
	}
}

func repoPath(path, prefix string) string {
	if prefix == "" {
		return path
	}
	return strings.TrimPrefix(strings.TrimPrefix(path, strings.TrimSuffix(prefix, "/")), "/")
}

func label(f analysis.Finding) string {
	if f.Type != "" {
		return f.Type
	}
	return "Finding"
}

func formatInlineComment(it output.Item) string {
	f := it.Finding
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** (%s, %s)\n\n", label(f), analysis.NormalizeSeverity(f.Severity), it.Kind)
	sb.WriteString(f.Description)
	if f.Recommendation != "" {
		fmt.Fprintf(&sb, "\n\n**Recommendation:** %s", f.Recommendation)
	}
	return sb.String()
}

func formatFindingBody(it output.Item) string {
	f := it.Finding
	var sb strings.Builder
	fmt.Fprintf(&sb, "- **%s** (%s) `%s`: %s", label(f), analysis.NormalizeSeverity(f.Severity), it.Path, f.Description)
	if f.Recommendation != "" {
		fmt.Fprintf(&sb, " *Recommendation: %s*", f.Recommendation)
	}
	return sb.String()
}

var (
	httpsRemoteRe = regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/.\s]+)`)
	sshRemoteRe   = regexp.MustCompile(`[^@]+@[^:]+:([^/]+)/([^/.\s]+)`)
	pullRefRe     = regexp.MustCompile(`^refs/pull/(\d+)/`)
)

// DetectRepo returns owner/repo from GITHUB_REPOSITORY when running in
// Actions, else from the git remote origin URL.
func DetectRepo() (owner, repo string, err error) {
	if r := os.Getenv("GITHUB_REPOSITORY"); r != "" {
		return ParseRepo(r)
	}
	out, err := exec.Command("git", "remote", "get-url", "origin").Output()
	if err != nil {
		return "", "", fmt.Errorf("cannot detect repo: git remote get-url origin failed: %w", err)
	}
	return ParseRemoteURL(strings.TrimSpace(string(out)))
}

// PRNumberFromRef extracts the pull request number from a ref such as
// GITHUB_REF="refs/pull/42/merge".
func PRNumberFromRef(ref string) (int, bool) {
	m := pullRefRe.FindStringSubmatch(ref)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ParseRepo splits an "owner/repo" string.
func ParseRepo(s string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository %q, want owner/repo", s)
	}
	return owner, repo, nil
}

// ParseRemoteURL extracts owner/repo from a git remote URL.
func ParseRemoteURL(url string) (owner, repo string, err error) {
	url = strings.TrimSuffix(url, ".git")

	if m := httpsRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	if m := sshRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("cannot parse owner/repo from remote URL: %s", url)
}
