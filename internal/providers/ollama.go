package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

const defaultOllamaURL = "http://localhost:11434"

// Ollama talks to the native Ollama generate endpoint.
type Ollama struct {
	url    string
	client *resty.Client
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// NewOllama creates an Ollama client. An empty base URL means a local server.
func NewOllama(opts Options) *Ollama {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultOllamaURL
	}
	base = strings.TrimSuffix(base, "/api/generate")
	base = strings.TrimSuffix(base, "/api")
	return &Ollama{
		url:    base + "/api/generate",
		client: newHTTPClient(opts),
	}
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Generate(ctx context.Context, req Request) (Reply, error) {
	body := ollamaRequest{
		Model:  req.Model,
		System: req.System,
		Prompt: req.Prompt,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			NumPredict:  req.MaxTokens,
		},
	}

	data, err := post(ctx, o.client, o.url, body)
	if err != nil {
		return Reply{}, err
	}

	var result ollamaResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return Reply{}, &TransportError{Err: fmt.Errorf("parsing response: %w", err)}
	}
	return Reply{
		Text:       result.Response,
		TokensUsed: result.PromptEvalCount + result.EvalCount,
	}, nil
}
