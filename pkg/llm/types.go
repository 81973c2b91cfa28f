package llm

import "context"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options are the sampling parameters sent with each request.
type Options struct {
	Temperature float64
	TopP        float64
	NumCtx      int
}

// ChatClient is a synchronous, non-streaming chat completion.
type ChatClient interface {
	Chat(ctx context.Context, messages []Message, opts Options) (string, error)
}

// ChatFunc adapts a function to ChatClient.
type ChatFunc func(ctx context.Context, messages []Message, opts Options) (string, error)

// Chat implements ChatClient.
func (f ChatFunc) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	return f(ctx, messages, opts)
}
