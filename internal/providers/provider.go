package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Request is one generation call against the backend.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Reply is the text payload returned by a successful call.
type Reply struct {
	Text       string
	TokensUsed int
}

// Client is the backend abstraction. Implementations issue exactly one HTTP
// request per call: they never retry and never cache.
type Client interface {
	Generate(ctx context.Context, req Request) (Reply, error)
	Name() string
}

// Options configures a backend client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// DefaultTimeout bounds a single backend call when Options.Timeout is zero.
const DefaultTimeout = 120 * time.Second

// New creates a client by provider name.
func New(provider string, opts Options) (Client, error) {
	switch strings.ToLower(provider) {
	case "ollama":
		return NewOllama(opts), nil
	case "openai", "lmstudio", "vllm":
		return NewOpenAI(opts), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

// newHTTPClient builds the resty client shared by all backends. Resty's own
// retry support stays disabled.
func newHTTPClient(opts Options) *resty.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if opts.APIKey != "" {
		c.SetAuthToken(opts.APIKey)
	}
	return c
}

// post sends body to url and maps every failure onto the typed errors in
// errors.go. On success it returns the raw response body.
func post(ctx context.Context, c *resty.Client, url string, body any) ([]byte, error) {
	resp, err := c.R().
		SetContext(ctx).
		SetBody(body).
		Post(url)
	if err != nil {
		return nil, classify(err)
	}
	if resp.StatusCode() != 200 {
		return nil, &StatusError{Code: resp.StatusCode(), Body: string(resp.Body())}
	}
	return resp.Body(), nil
}
