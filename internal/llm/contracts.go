package llm

import "context"

// Request is one chat completion: a system prompt, a user prompt and sampling limits.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Completer is the model-invocation collaborator. It returns the raw
// assistant text; callers parse JSON out of it.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
