package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/notemaker/internal/config"
	"github.com/conorfennell/notemaker/internal/llm"
	"github.com/conorfennell/notemaker/internal/notes"
	"github.com/conorfennell/notemaker/internal/parser"
	"github.com/conorfennell/notemaker/internal/review"
	"github.com/conorfennell/notemaker/internal/storage"
	cardsync "github.com/conorfennell/notemaker/internal/sync"
	"github.com/conorfennell/notemaker/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("notemaker failed", "error", err)
		os.Exit(1)
	}
}

type commands struct {
	addSource  string
	sync       bool
	importFile string
	topic      string
	serve      bool
}

func run(args []string) error {
	// 1. Define and parse command-line flags
	fs := pflag.NewFlagSet("notemaker", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	var cmd commands
	fs.StringVar(&cmd.addSource, "add-source", "", "Add a new source (local directory or git URL)")
	fs.BoolVar(&cmd.sync, "sync", false, "Sync all sources")
	fs.StringVar(&cmd.importFile, "import", "", "Import flashcards from a Q:/A: file")
	fs.StringVar(&cmd.topic, "topic", "", "Topic for imported cards (defaults to the file name)")
	fs.BoolVar(&cmd.serve, "serve", false, "Start the HTTP server")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Open storage
	var (
		cards   review.CardStore
		history notes.HistoryStore
		db      *storage.DB
	)
	switch cfg.Storage.Driver {
	case "memory":
		mem := storage.NewMemory()
		cards, history = mem, mem
		logger.Warn("Using in-memory storage: cards are lost on exit and sources are disabled")
	default:
		db, err = storage.Open(cfg.Storage.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Info("Database opened successfully", "path", cfg.Storage.DSN)
		cards, history = db, db
	}

	// 3. Wire services
	llmCfg := cfg.LLMProvider()
	provider, err := llm.NewProvider(ctx, llmCfg, logger)
	if err != nil {
		return err
	}
	reviews := review.NewService(cards, logger)
	noteSvc := notes.NewService(provider, history, cfg.NoteDefaults(), llmCfg.Timeout, logger)
	var syncer *cardsync.Syncer
	if db != nil {
		syncer = cardsync.NewSyncer(db, cfg.Sync.ReposDir, logger)
	}

	// 4. Run the requested commands
	ran := false
	if cmd.addSource != "" {
		ran = true
		if syncer == nil {
			return errors.New("--add-source requires sqlite storage")
		}
		if _, err := syncer.AddSource(ctx, cmd.addSource); err != nil {
			return err
		}
	}
	if cmd.sync {
		ran = true
		if syncer == nil {
			return errors.New("--sync requires sqlite storage")
		}
		if _, err := syncer.Run(ctx); err != nil {
			return err
		}
	}
	if cmd.importFile != "" {
		ran = true
		if err := importCards(ctx, reviews, cmd.importFile, cmd.topic, logger); err != nil {
			return err
		}
	}
	if cmd.serve || !ran {
		srv := web.NewServer(reviews, noteSvc, logger)
		if db != nil {
			srv.WithSources(db, syncer)
		}
		return serve(ctx, cfg.Server.Addr, srv, logger)
	}
	return nil
}

func newLogger(cfg config.LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}

func importCards(ctx context.Context, reviews *review.Service, path, topic string, logger *slog.Logger) error {
	pairs, err := parser.ExtractFile(path)
	if err != nil {
		return err
	}
	if topic == "" {
		base := filepath.Base(path)
		topic = strings.TrimSuffix(base, filepath.Ext(base))
	}
	n, err := reviews.AddCards(ctx, topic, pairs, time.Now())
	if err != nil {
		return err
	}
	if n == 0 {
		logger.Warn("Could not parse any flashcards", "path", path)
		return nil
	}
	logger.Info("Imported flashcards", "path", path, "topic", topic, "count", n)
	return nil
}

func serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
