package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Config selects and configures the provider.
type Config struct {
	// Provider is "gemini" or "mock".
	Provider string
	APIKey   string
	Model    string
	Retry    RetryConfig

	// Timeout bounds a single request including retries.
	Timeout time.Duration
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// NewProvider creates a Provider from configuration, wrapped with retry
// and logging middleware.
func NewProvider(ctx context.Context, cfg Config, logger *slog.Logger) (Provider, error) {
	var base Provider
	switch cfg.Provider {
	case "gemini":
		p, err := NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("initializing gemini provider: %w", err)
		}
		base = p
	case "mock":
		// Canned responses are not transient; retrying only adds backoff.
		return WithLogging(NewMockProvider(), logger), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}

	// caller → retry → logging → base
	return WithRetry(WithLogging(base, logger), cfg.Retry), nil
}
