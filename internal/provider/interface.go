package provider

import "context"

// BrandContext carries the brand profile a completion is being asked about.
// The live provider folds it into the system prompt; the deterministic
// provider uses it to synthesize a plausible answer.
type BrandContext struct {
	Brand       string
	Industry    string
	Competitors []string
	Keywords    []string
}

// CompletionRequest is one prompt sent to the completion service.
type CompletionRequest struct {
	System      string
	Prompt      string
	Context     BrandContext
	MaxTokens   int
	Temperature float64
}

// Completion is the raw answer text plus the token count billed for it.
type Completion struct {
	Text       string
	TokenCount int
}

// Provider is the single capability the pipeline needs from an LLM: turn one
// query into text. Implementations are selected once at construction; callers
// never check whether a "real" provider is configured.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}
