package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/notemaker/internal/domain"
	"github.com/conorfennell/notemaker/internal/llm"
	"github.com/conorfennell/notemaker/internal/notes"
	"github.com/conorfennell/notemaker/internal/parser"
	"github.com/conorfennell/notemaker/internal/review"
	"github.com/conorfennell/notemaker/internal/sm2"
	"github.com/conorfennell/notemaker/internal/storage"
	cardsync "github.com/conorfennell/notemaker/internal/sync"
)

// maxBodyBytes limits JSON request bodies.
const maxBodyBytes = 1 << 20

// SourceStore lists and removes card sources.
type SourceStore interface {
	GetAllSources(ctx context.Context) ([]domain.Source, error)
	DeleteSource(ctx context.Context, sourceID int64) error
}

// Syncer registers sources and imports their cards.
type Syncer interface {
	AddSource(ctx context.Context, path string) (int64, error)
	Run(ctx context.Context) ([]cardsync.Result, error)
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	reviews *review.Service
	notes   *notes.Service
	sources SourceStore
	syncer  Syncer
	logger  *slog.Logger
	router  *http.ServeMux
	now     func() time.Time

	mu      sync.Mutex
	session *review.Session
}

// NewServer creates and configures a new server. Source routes answer 501
// until WithSources is called.
func NewServer(reviews *review.Service, noteSvc *notes.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		reviews: reviews,
		notes:   noteSvc,
		logger:  logger,
		router:  http.NewServeMux(),
		now:     time.Now,
	}
	s.routes()
	return s
}

// WithSources enables source management and sync.
func (s *Server) WithSources(store SourceStore, syncer Syncer) *Server {
	s.sources = store
	s.syncer = syncer
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("GET /cards", s.handleListCards())
	s.router.HandleFunc("DELETE /cards/{id}", s.handleDeleteCard())
	s.router.HandleFunc("GET /cards/{id}/reviews", s.handleCardReviews())
	s.router.HandleFunc("GET /deck", s.handleGetDeck())

	s.router.HandleFunc("POST /review/start", s.handleStartReview())
	s.router.HandleFunc("GET /review/current", s.handleCurrentReview())
	s.router.HandleFunc("POST /review/grade", s.handleGradeReview())

	s.router.HandleFunc("GET /formats", s.handleGetFormats())
	s.router.HandleFunc("POST /generate", s.handleGenerate())
	s.router.HandleFunc("GET /history", s.handleGetHistory())
	s.router.HandleFunc("DELETE /history", s.handleClearHistory())
	s.router.HandleFunc("GET /history/{id}/export", s.handleExportNote())

	s.router.HandleFunc("GET /sources", s.handleGetSources())
	s.router.HandleFunc("POST /sources", s.handlePostSource())
	s.router.HandleFunc("DELETE /sources/{id}", s.handleDeleteSource())
	s.router.HandleFunc("POST /sync", s.handlePostSync())
}

type cardView struct {
	ID          string    `json:"id"`
	Topic       string    `json:"topic"`
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	Created     time.Time `json:"created"`
	NextReview  time.Time `json:"next_review"`
	EaseFactor  float64   `json:"ease_factor"`
	Interval    float64   `json:"interval"`
	Repetitions int       `json:"repetitions"`
}

func toCardView(c domain.Flashcard) cardView {
	return cardView{
		ID:          c.ID,
		Topic:       c.Topic,
		Question:    c.Question,
		Answer:      c.Answer,
		Created:     c.Created,
		NextReview:  c.NextReview,
		EaseFactor:  c.EaseFactor,
		Interval:    c.Interval,
		Repetitions: c.Repetitions,
	}
}

func toCardViews(cards []domain.Flashcard) []cardView {
	out := make([]cardView, 0, len(cards))
	for _, c := range cards {
		out = append(out, toCardView(c))
	}
	return out
}

type sessionView struct {
	Position int       `json:"position"`
	Total    int       `json:"total"`
	Done     bool      `json:"done"`
	Card     *cardView `json:"card,omitempty"`
}

func toSessionView(sess *review.Session) sessionView {
	v := sessionView{Position: sess.Position(), Total: sess.Len(), Done: sess.Done()}
	if c, ok := sess.Current(); ok {
		cv := toCardView(c)
		v.Card = &cv
	}
	return v
}

type noteView struct {
	ID      string    `json:"id"`
	Format  string    `json:"format"`
	Topic   string    `json:"topic"`
	Output  string    `json:"output"`
	Created time.Time `json:"created"`
}

func toNoteView(n domain.Note) noteView {
	return noteView{ID: n.ID, Format: n.Format, Topic: n.Topic, Output: n.Output, Created: n.Created}
}

type sourceView struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	Type        string     `json:"type"`
	LastScanned *time.Time `json:"last_scanned,omitempty"`
}

func toSourceViews(sources []domain.Source) []sourceView {
	out := make([]sourceView, 0, len(sources))
	for _, src := range sources {
		v := sourceView{ID: src.ID, Path: src.Path, Type: src.Type}
		if !src.LastScanned.IsZero() {
			t := src.LastScanned
			v.LastScanned = &t
		}
		out = append(out, v)
	}
	return out
}

// handleListCards lists all cards, or those matching ?q=.
func (s *Server) handleListCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cards, err := s.reviews.Search(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			s.serverError(w, "Error listing cards", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cards": toCardViews(cards)})
	}
}

func (s *Server) handleDeleteCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := s.reviews.Delete(r.Context(), id); err != nil {
			if errors.Is(err, review.ErrUnknownCard) {
				writeError(w, http.StatusNotFound, "card not found")
				return
			}
			s.serverError(w, "Error deleting card", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type reviewView struct {
	Timestamp   time.Time `json:"timestamp"`
	Grade       string    `json:"grade"`
	Interval    float64   `json:"interval"`
	EaseFactor  float64   `json:"ease_factor"`
	Repetitions int       `json:"repetitions"`
}

// handleCardReviews lists a card's grading history, oldest first.
func (s *Server) handleCardReviews() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := s.reviews.Reviews(r.Context(), r.PathValue("id"))
		if err != nil {
			if errors.Is(err, review.ErrUnknownCard) {
				writeError(w, http.StatusNotFound, "card not found")
				return
			}
			s.serverError(w, "Error getting card reviews", err)
			return
		}
		views := make([]reviewView, 0, len(logs))
		for _, l := range logs {
			views = append(views, reviewView{
				Timestamp:   l.Timestamp,
				Grade:       l.Grade,
				Interval:    l.Interval,
				EaseFactor:  l.EaseFactor,
				Repetitions: l.Repetitions,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"reviews": views})
	}
}

// handleGetDeck reports the due count and collection statistics.
func (s *Server) handleGetDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.reviews.Stats(r.Context(), s.now())
		if err != nil {
			s.serverError(w, "Error getting deck stats", err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// handleStartReview snapshots the due cards into a new session, replacing
// any session in progress.
func (s *Server) handleStartReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		due, err := s.reviews.DueCards(r.Context(), s.now())
		if err != nil {
			s.serverError(w, "Error getting due cards", err)
			return
		}

		s.mu.Lock()
		s.session = review.NewSession(due)
		view := toSessionView(s.session)
		s.mu.Unlock()

		writeJSON(w, http.StatusOK, view)
	}
}

func (s *Server) handleCurrentReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.session == nil {
			writeError(w, http.StatusNotFound, "no review session in progress")
			return
		}
		writeJSON(w, http.StatusOK, toSessionView(s.session))
	}
}

type gradeRequest struct {
	Grade string `json:"grade"`
}

// handleGradeReview grades or skips the current session card.
func (s *Server) handleGradeReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gradeRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.session == nil {
			writeError(w, http.StatusNotFound, "no review session in progress")
			return
		}
		if s.session.Done() {
			writeError(w, http.StatusConflict, review.ErrSessionDone.Error())
			return
		}

		if strings.EqualFold(strings.TrimSpace(req.Grade), "skip") {
			s.session.Skip()
			writeJSON(w, http.StatusOK, toSessionView(s.session))
			return
		}

		grade, err := sm2.ParseGrade(req.Grade)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, err := s.session.Grade(r.Context(), s.reviews, grade, s.now()); err != nil {
			if errors.Is(err, review.ErrUnknownCard) {
				writeError(w, http.StatusNotFound, "card no longer exists, skip it to continue")
				return
			}
			s.serverError(w, "Error grading card", err)
			return
		}
		writeJSON(w, http.StatusOK, toSessionView(s.session))
	}
}

type formatsResponse struct {
	Categories      map[string][]string `json:"categories"`
	DetailLevels    map[string]int      `json:"detail_levels"`
	EducationLevels []string            `json:"education_levels"`
}

// handleGetFormats lists the note formats by category and the accepted
// detail and education levels.
func (s *Server) handleGetFormats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, formatsResponse{
			Categories:      notes.Categories,
			DetailLevels:    notes.DetailLevels,
			EducationLevels: notes.EducationLevels,
		})
	}
}

type generateResponse struct {
	Note       noteView `json:"note"`
	CardsAdded int      `json:"cards_added"`
	Warning    string   `json:"warning,omitempty"`
}

// handleGenerate produces a note and, for the flashcard format, adds the
// extracted cards to the collection.
func (s *Server) handleGenerate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req notes.Request
		if !decodeJSON(w, r, &req) {
			return
		}

		now := s.now()
		note, err := s.notes.Generate(r.Context(), req, now)
		if err != nil {
			s.generateError(w, err)
			return
		}

		resp := generateResponse{Note: toNoteView(note)}
		if note.Format == notes.FormatFlashcards {
			pairs := parser.Extract(note.Output)
			n, err := s.reviews.AddCards(r.Context(), note.Topic, pairs, now)
			if err != nil {
				s.serverError(w, "Error saving generated cards", err)
				return
			}
			resp.CardsAdded = n
			if n == 0 {
				resp.Warning = "could not parse any flashcards from the generated output"
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) generateError(w http.ResponseWriter, err error) {
	var (
		invalid     validator.ValidationErrors
		rateLimit   *llm.ErrRateLimit
		unavailable *llm.ErrProviderUnavailable
		rejected    *llm.ErrRejected
		empty       *llm.ErrEmptyResponse
	)
	switch {
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &rateLimit):
		if rateLimit.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(rateLimit.RetryAfter.Seconds())))
		}
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &unavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &rejected), errors.As(err, &empty):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "note generation timed out")
	default:
		s.serverError(w, "Error generating note", err)
	}
}

// handleGetHistory lists generated notes, newest first, up to ?limit=.
func (s *Server) handleGetHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := notes.HistoryLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = n
		}
		recent, err := s.notes.Recent(r.Context(), limit)
		if err != nil {
			s.serverError(w, "Error getting history", err)
			return
		}
		views := make([]noteView, 0, len(recent))
		for _, n := range recent {
			views = append(views, toNoteView(n))
		}
		writeJSON(w, http.StatusOK, map[string]any{"notes": views})
	}
}

func (s *Server) handleClearHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.notes.Clear(r.Context()); err != nil {
			s.serverError(w, "Error clearing history", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleExportNote downloads a note as ?format=md (default) or txt.
func (s *Server) handleExportNote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := r.URL.Query().Get("format")
		if format == "" {
			format = notes.ExportMarkdown
		}

		note, err := s.notes.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "note not found")
				return
			}
			s.serverError(w, "Error getting note", err)
			return
		}
		body, err := notes.Export(note.Output, format)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		contentType := "text/plain; charset=utf-8"
		if format == notes.ExportMarkdown {
			contentType = "text/markdown; charset=utf-8"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", notes.ExportFilename(note.Topic, format, s.now())))
		w.Write([]byte(body))
	}
}

func (s *Server) sourcesEnabled(w http.ResponseWriter) bool {
	if s.sources == nil || s.syncer == nil {
		writeError(w, http.StatusNotImplemented, "sources require sqlite storage")
		return false
	}
	return true
}

func (s *Server) writeSources(w http.ResponseWriter, r *http.Request, status int) {
	sources, err := s.sources.GetAllSources(r.Context())
	if err != nil {
		s.serverError(w, "Error getting sources", err)
		return
	}
	writeJSON(w, status, map[string]any{"sources": toSourceViews(sources)})
}

func (s *Server) handleGetSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.sourcesEnabled(w) {
			return
		}
		s.writeSources(w, r, http.StatusOK)
	}
}

type sourceRequest struct {
	Path string `json:"path"`
}

// handlePostSource adds a new source and returns the source list.
func (s *Server) handlePostSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.sourcesEnabled(w) {
			return
		}
		var req sourceRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		path := strings.TrimSpace(req.Path)
		if path == "" {
			writeError(w, http.StatusBadRequest, "path cannot be empty")
			return
		}
		if _, err := s.syncer.AddSource(r.Context(), path); err != nil {
			s.logger.Warn("Error adding source", "path", path, "error", err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeSources(w, r, http.StatusCreated)
	}
}

// handleDeleteSource deletes a source and its cards.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.sourcesEnabled(w) {
			return
		}
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid source ID")
			return
		}
		if err := s.sources.DeleteSource(r.Context(), id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "source not found")
				return
			}
			s.serverError(w, "Error deleting source", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePostSync runs a sync in the foreground and reports each source.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.sourcesEnabled(w) {
			return
		}
		results, err := s.syncer.Run(r.Context())
		if err != nil {
			s.serverError(w, "Error running sync", err)
			return
		}
		if results == nil {
			results = []cardsync.Result{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	}
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
