package llm

import "context"

type Provider interface {
	Name() string
	// Complete returns the full model answer for a system + user prompt.
	Complete(ctx context.Context, system, prompt string) (string, error)
	Close() error
}
