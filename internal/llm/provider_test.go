package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"google.golang.org/genai"
)

func TestNewProvider(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p, err := NewProvider(context.Background(), Config{Provider: "mock", Retry: retryConfig()}, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "mock" {
		t.Errorf("expected mock model, got %s", p.ModelID())
	}
	if _, ok := p.(*RetryProvider); ok {
		t.Error("expected the mock provider not to be wrapped with retries")
	}
	var unavailable *ErrProviderUnavailable
	if _, err := p.Generate(context.Background(), Request{}); !errors.As(err, &unavailable) {
		t.Errorf("expected ErrProviderUnavailable from an empty mock, got %v", err)
	}

	if _, err := NewProvider(context.Background(), Config{Provider: "gemini"}, logger); err == nil {
		t.Error("expected an error for gemini without an API key")
	}
	if _, err := NewProvider(context.Background(), Config{Provider: "openai"}, logger); err == nil {
		t.Error("expected an error for an unknown provider")
	}
}

func TestLoggingProviderPassesThrough(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mock := NewMockProvider(MockResponse{Text: "hello"}, MockResponse{Err: &ErrRejected{Code: 400}})
	p := WithLogging(mock, logger)

	resp, err := p.Generate(context.Background(), Request{Prompt: "hi"})
	if err != nil || resp.Text != "hello" {
		t.Fatalf("Generate() = %v, %v", resp, err)
	}
	if _, err := p.Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected the inner error to be returned")
	}
	if mock.Calls[0].Prompt != "hi" {
		t.Errorf("expected the request to reach the inner provider, got %+v", mock.Calls[0])
	}
}

func TestMapGeminiError(t *testing.T) {
	testCases := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"rate limit", &genai.APIError{Code: http.StatusTooManyRequests}, func(err error) bool {
			var rl *ErrRateLimit
			return errors.As(err, &rl)
		}},
		{"server error", &genai.APIError{Code: http.StatusServiceUnavailable}, func(err error) bool {
			var u *ErrProviderUnavailable
			return errors.As(err, &u)
		}},
		{"bad request", &genai.APIError{Code: http.StatusBadRequest}, func(err error) bool {
			var r *ErrRejected
			return errors.As(err, &r) && r.Code == http.StatusBadRequest
		}},
		{"deadline", context.DeadlineExceeded, func(err error) bool {
			return errors.Is(err, context.DeadlineExceeded)
		}},
		{"network", errors.New("connection reset"), func(err error) bool {
			var u *ErrProviderUnavailable
			return errors.As(err, &u)
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mapGeminiError(tc.err); !tc.check(got) {
				t.Errorf("unexpected mapping: %T %v", got, got)
			}
		})
	}
}

func TestResolveModel(t *testing.T) {
	if got := resolveModel("gemini-flash", geminiModels); got != "gemini-2.0-flash" {
		t.Errorf("expected alias to resolve, got %s", got)
	}
	if got := resolveModel("gemini-1.5-flash-8b", geminiModels); got != "gemini-1.5-flash-8b" {
		t.Errorf("expected unknown names to pass through, got %s", got)
	}
}
