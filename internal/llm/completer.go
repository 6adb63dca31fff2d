package llm

import "context"

// Completer is the single seam to the external text-completion service: a
// prompt goes in, text that should parse as JSON comes out.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
