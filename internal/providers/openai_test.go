package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAI_Generate(t *testing.T) {
	var got openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}],"usage":{"total_tokens":77}}`))
	}))
	defer server.Close()

	c := NewOpenAI(Options{BaseURL: server.URL + "/v1", APIKey: "sk-test"})
	reply, err := c.Generate(context.Background(), Request{
		Model:       "mistral:7b",
		System:      "be brief",
		Prompt:      "review",
		Temperature: 0.1,
		TopP:        0.9,
		MaxTokens:   2048,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", reply.Text)
	assert.Equal(t, 77, reply.TokensUsed)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "review", got.Messages[1].Content)
	assert.Equal(t, 2048, got.MaxTokens)
	assert.Equal(t, 0.9, got.TopP)
}

func TestOpenAI_NoSystemMessage(t *testing.T) {
	var got openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"x"}}]}`))
	}))
	defer server.Close()

	_, err := NewOpenAI(Options{BaseURL: server.URL}).Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestOpenAI_AuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer server.Close()

	_, err := NewOpenAI(Options{BaseURL: server.URL}).Generate(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.False(t, IsTransient(err))
}

func TestOpenAI_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := NewOpenAI(Options{BaseURL: server.URL}).Generate(context.Background(), Request{Prompt: "p"})
	var tr *TransportError
	assert.ErrorAs(t, err, &tr)
}

func TestOpenAI_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewOpenAI(Options{BaseURL: url}).Generate(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}
