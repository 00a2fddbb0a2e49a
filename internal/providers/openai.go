package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

const defaultOpenAIURL = "https://api.openai.com"

// OpenAI talks to any OpenAI-compatible chat completions endpoint, which
// covers LM Studio and vLLM as well.
type OpenAI struct {
	url    string
	client *resty.Client
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	TopP        float64         `json:"top_p"`
	MaxTokens   int             `json:"max_tokens"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// NewOpenAI creates a chat completions client.
func NewOpenAI(opts Options) *OpenAI {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultOpenAIURL
	}
	// Accept base URLs given with or without the API path.
	base = strings.TrimSuffix(base, "/v1/chat/completions")
	base = strings.TrimSuffix(base, "/v1")
	return &OpenAI{
		url:    base + "/v1/chat/completions",
		client: newHTTPClient(opts),
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Generate(ctx context.Context, req Request) (Reply, error) {
	var messages []openaiMessage
	if req.System != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openaiMessage{Role: "user", Content: req.Prompt})

	body := openaiRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	}

	data, err := post(ctx, o.client, o.url, body)
	if err != nil {
		return Reply{}, err
	}

	var result openaiResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return Reply{}, &TransportError{Err: fmt.Errorf("parsing response: %w", err)}
	}
	if len(result.Choices) == 0 {
		return Reply{}, &TransportError{Err: fmt.Errorf("no choices in response")}
	}
	return Reply{
		Text:       result.Choices[0].Message.Content,
		TokensUsed: result.Usage.TotalTokens,
	}, nil
}
