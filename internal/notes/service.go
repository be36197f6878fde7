package notes

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/conorfennell/notemaker/internal/domain"
	"github.com/conorfennell/notemaker/internal/llm"
)

// HistoryLimit is how many generated notes are kept.
const HistoryLimit = 20

// Request holds the parameters for one generated note.
type Request struct {
	Topic       string  `json:"topic" validate:"required,max=2000"`
	Format      string  `json:"format" validate:"required,note_format"`
	Detail      string  `json:"detail" validate:"required,oneof=Brief Standard Comprehensive"`
	Education   string  `json:"education" validate:"required,education_level"`
	Temperature float64 `json:"temperature" validate:"gte=0.1,lte=1"`
}

// Defaults fills unset request fields.
type Defaults struct {
	Detail      string
	Education   string
	Temperature float64
}

// HistoryStore keeps recently generated notes.
type HistoryStore interface {
	SaveNote(ctx context.Context, note domain.Note, keep int) error
	RecentNotes(ctx context.Context, limit int) ([]domain.Note, error)
	GetNote(ctx context.Context, id string) (domain.Note, error)
	ClearNotes(ctx context.Context) error
}

// Service generates notes through an LLM provider and records them.
type Service struct {
	provider llm.Provider
	history  HistoryStore
	defaults Defaults
	timeout  time.Duration
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService creates a note service. A zero timeout means no deadline
// beyond the caller's context.
func NewService(provider llm.Provider, history HistoryStore, defaults Defaults, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider: provider,
		history:  history,
		defaults: defaults,
		timeout:  timeout,
		validate: newValidator(),
		logger:   logger,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterValidations adds the note_format and education_level tags to v.
func RegisterValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("note_format", func(fl validator.FieldLevel) bool {
		_, ok := templates[fl.Field().String()]
		return ok
	}); err != nil {
		return fmt.Errorf("register note_format: %w", err)
	}
	if err := v.RegisterValidation("education_level", func(fl validator.FieldLevel) bool {
		return slices.Contains(EducationLevels, fl.Field().String())
	}); err != nil {
		return fmt.Errorf("register education_level: %w", err)
	}
	return nil
}

func (s *Service) withDefaults(req Request) Request {
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Detail == "" {
		req.Detail = s.defaults.Detail
	}
	if req.Education == "" {
		req.Education = s.defaults.Education
	}
	if req.Temperature == 0 {
		req.Temperature = s.defaults.Temperature
	}
	return req
}

// Generate renders the prompt for req, calls the model and saves the
// resulting note to the history.
func (s *Service) Generate(ctx context.Context, req Request, now time.Time) (domain.Note, error) {
	req = s.withDefaults(req)
	if err := s.validate.Struct(req); err != nil {
		return domain.Note{}, fmt.Errorf("invalid note request: %w", err)
	}

	prompt, err := BuildPrompt(req)
	if err != nil {
		return domain.Note{}, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.provider.Generate(ctx, llm.Request{
		Prompt:      prompt,
		MaxTokens:   DetailLevels[req.Detail],
		Temperature: req.Temperature,
	})
	if err != nil {
		return domain.Note{}, fmt.Errorf("generate %s notes: %w", req.Format, err)
	}
	if resp.StopReason == "max_tokens" {
		s.logger.Warn("note truncated at max tokens", "topic", req.Topic, "detail", req.Detail)
	}

	note := domain.Note{
		ID:      uuid.NewString(),
		Format:  req.Format,
		Topic:   req.Topic,
		Output:  resp.Text,
		Created: now,
	}
	if err := s.history.SaveNote(ctx, note, HistoryLimit); err != nil {
		return domain.Note{}, fmt.Errorf("save note to history: %w", err)
	}
	return note, nil
}

// Recent returns up to limit notes, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]domain.Note, error) {
	return s.history.RecentNotes(ctx, limit)
}

// Get returns a note from the history.
func (s *Service) Get(ctx context.Context, id string) (domain.Note, error) {
	return s.history.GetNote(ctx, id)
}

// Clear empties the history.
func (s *Service) Clear(ctx context.Context) error {
	return s.history.ClearNotes(ctx)
}
