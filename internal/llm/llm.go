// Package llm defines the sole interface the core consumes for narrative
// and vision generation. The real client (model selection, API transport,
// cost accounting) is an external collaborator; this package only
// specifies the contract plus a deterministic stub used by tests and as a
// safe default.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/stonezone/surfcast-fusion/internal/domain"
)

// ImageDetail is the vision-attachment detail level, trading fidelity for
// token cost.
type ImageDetail string

const (
	DetailHigh ImageDetail = "high"
	DetailAuto ImageDetail = "auto"
	DetailLow  ImageDetail = "low"
)

// Image is one vision attachment passed alongside a prompt.
type Image struct {
	Path   string
	Detail ImageDetail
}

// Usage reports token consumption for cost tracking, per §6's contract
// requirement.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client is the sole LLM surface the core depends on.
type Client interface {
	// GenerateText issues one completion call, optionally with image
	// attachments for vision-capable prompts. Returns the generated text
	// and token usage; an empty string with a nil error is a caller bug,
	// never the client's own signal — empty content is surfaced by the
	// caller as domain.ErrEmptyLLMResponse.
	GenerateText(ctx context.Context, systemPrompt, userPrompt string, images []Image) (string, Usage, error)
}

// StubClient is a deterministic, template-based Client used in tests and
// as the zero-configuration default. It never calls out to a real model;
// its narrative is a direct echo of the prompts' lengths and image count,
// sufficient for golden-path tests that assert non-empty narrative content
// without depending on real model output.
type StubClient struct{}

// NewStubClient constructs a StubClient.
func NewStubClient() *StubClient { return &StubClient{} }

// GenerateText implements Client.
func (StubClient) GenerateText(_ context.Context, systemPrompt, userPrompt string, images []Image) (string, Usage, error) {
	narrative := fmt.Sprintf(
		"[stub narrative] system=%d chars, user=%d chars, images=%d",
		len(systemPrompt), len(userPrompt), len(images),
	)
	usage := Usage{
		PromptTokens:     (len(systemPrompt) + len(userPrompt)) / 4,
		CompletionTokens: len(narrative) / 4,
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return narrative, usage, nil
}

// RetryConfig bounds the §5/§7 retry-with-backoff contract wrapping every
// GenerateText call: up to MaxRetries attempts, exponential backoff
// starting at InitialBackoff.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
}

// DefaultRetryConfig is the spec's documented default: up to 3 attempts,
// backoff starting at 2s.
var DefaultRetryConfig = RetryConfig{MaxRetries: 3, InitialBackoff: 2 * time.Second}

// GenerateWithRetry wraps a Client call with the retry/backoff contract and
// the empty-response check. Exhausting retries surfaces
// domain.ErrLLMUnavailable; a transport error on the final attempt is
// wrapped in it. An empty-but-no-error response surfaces
// domain.ErrEmptyLLMResponse immediately, without retrying — an empty
// completion is not a transient fault.
func GenerateWithRetry(ctx context.Context, client Client, cfg RetryConfig, systemPrompt, userPrompt string, images []Image) (string, Usage, error) {
	if cfg.MaxRetries <= 0 {
		cfg = DefaultRetryConfig
	}
	backoff := cfg.InitialBackoff
	if backoff <= 0 {
		backoff = DefaultRetryConfig.InitialBackoff
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		text, usage, err := client.GenerateText(ctx, systemPrompt, userPrompt, images)
		if err == nil {
			if text == "" {
				return "", usage, domain.ErrEmptyLLMResponse
			}
			return text, usage, nil
		}
		lastErr = err

		if attempt == cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return "", Usage{}, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return "", Usage{}, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, lastErr)
}
