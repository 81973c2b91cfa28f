package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// OllamaClient talks to an Ollama server's /api/chat endpoint.
type OllamaClient struct {
	client  *ollama.Client
	model   string
	timeout time.Duration
}

// NewOllamaClient builds a client for host and model. Every call is bounded
// by timeout in addition to the caller's context.
func NewOllamaClient(host, model string, timeout time.Duration) (*OllamaClient, error) {
	base, err := url.Parse(strings.TrimRight(host, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid ollama host %q", host)
	}
	if model == "" {
		return nil, fmt.Errorf("ollama model is required")
	}
	return &OllamaClient{
		client:  ollama.NewClient(base, &http.Client{}),
		model:   strings.TrimPrefix(model, "ollama:"),
		timeout: timeout,
	}, nil
}

// Model returns the configured model name.
func (c *OllamaClient) Model() string {
	return c.model
}

// Chat sends messages with stream disabled and returns message.content.
func (c *OllamaClient) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	ollamaMessages := make([]ollama.Message, len(messages))
	for i, msg := range messages {
		ollamaMessages[i] = ollama.Message{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	stream := false
	req := &ollama.ChatRequest{
		Model:    c.model,
		Messages: ollamaMessages,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": opts.Temperature,
			"top_p":       opts.TopP,
			"num_ctx":     opts.NumCtx,
		},
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var content strings.Builder
	respFunc := func(res ollama.ChatResponse) error {
		content.WriteString(res.Message.Content)
		return nil
	}

	if err := c.client.Chat(ctx, req, respFunc); err != nil {
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}
	return content.String(), nil
}
