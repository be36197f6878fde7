package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conorfennell/notemaker/internal/domain"
	"github.com/conorfennell/notemaker/internal/gitsource"
	"github.com/conorfennell/notemaker/internal/knol"
	"github.com/conorfennell/notemaker/internal/parser"
)

// Store is the persistence the syncer reconciles sources against.
type Store interface {
	InsertSource(ctx context.Context, path, sourceType string) (int64, error)
	FindSourceByPath(ctx context.Context, path string) (*domain.Source, error)
	GetAllSources(ctx context.Context) ([]domain.Source, error)
	UpdateSourceLastScanned(ctx context.Context, sourceID int64, at time.Time) error
	FindCardByHash(ctx context.Context, sourceID int64, hash string) (*domain.Flashcard, error)
	GetCardsBySourceID(ctx context.Context, sourceID int64) ([]domain.Flashcard, error)
	Add(ctx context.Context, card domain.Flashcard) error
	Delete(ctx context.Context, id string) error
}

// GitSyncFunc clones or pulls url into localPath.
type GitSyncFunc func(ctx context.Context, url, localPath string, progress io.Writer) error

// Syncer imports flashcards from local directories and git repositories.
type Syncer struct {
	db       Store
	reposDir string
	gitSync  GitSyncFunc
	logger   *slog.Logger
	now      func() time.Time
}

// NewSyncer creates a syncer that keeps git checkouts under reposDir.
func NewSyncer(db Store, reposDir string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		db:       db,
		reposDir: reposDir,
		gitSync:  gitsource.Sync,
		logger:   logger,
		now:      time.Now,
	}
}

// Result summarizes the reconciliation of one source.
type Result struct {
	SourceID int64  `json:"source_id"`
	Path     string `json:"path"`
	Parsed   int    `json:"parsed"`
	Added    int    `json:"added"`
	Removed  int    `json:"removed"`
	Errors   int    `json:"errors"`
}

// DetectType classifies a source path as a git URL or a local directory.
func DetectType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return domain.SourceGit
	}
	return domain.SourceLocal
}

// AddSource registers a new source and returns its ID. Local paths are
// stored as absolute paths.
func (s *Syncer) AddSource(ctx context.Context, path string) (int64, error) {
	sourceType := DetectType(path)
	if sourceType == domain.SourceLocal {
		abs, err := filepath.Abs(path)
		if err != nil {
			return 0, fmt.Errorf("resolve source path %s: %w", path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return 0, fmt.Errorf("source path %s: %w", abs, err)
		}
		if !info.IsDir() {
			return 0, fmt.Errorf("source path %s is not a directory", abs)
		}
		path = abs
	}

	existing, err := s.db.FindSourceByPath(ctx, path)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}
	id, err := s.db.InsertSource(ctx, path, sourceType)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Source added", "id", id, "type", sourceType, "path", path)
	return id, nil
}

// Run iterates over all sources and reconciles them. A failing source is
// logged and skipped; the error is returned only when sources cannot be
// listed.
func (s *Syncer) Run(ctx context.Context) ([]Result, error) {
	s.logger.Info("Starting sync process for all sources...")
	sources, err := s.db.GetAllSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		s.logger.Info("No sources configured. Add one with --add-source <path/or/url.git>")
		return nil, nil
	}

	var results []Result
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		s.logger.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		dir := source.Path
		if source.Type == domain.SourceGit {
			localRepoPath, err := gitURLToLocalPath(s.reposDir, source.Path)
			if err != nil {
				s.logger.Error("Error determining local path for git repo", "url", source.Path, "error", err)
				continue
			}
			if err := os.MkdirAll(filepath.Dir(localRepoPath), os.ModePerm); err != nil {
				s.logger.Error("Failed to create repos directory", "error", err)
				continue
			}
			if err := s.gitSync(ctx, source.Path, localRepoPath, nil); err != nil {
				s.logger.Error("Error syncing git repo", "url", source.Path, "error", err)
				continue
			}
			dir = localRepoPath
		}

		res, err := s.reconcile(ctx, source, dir)
		if err != nil {
			s.logger.Error("Error reconciling source", "source_id", source.ID, "error", err)
			continue
		}
		results = append(results, res)
	}
	s.logger.Info("Sync process complete.")
	return results, nil
}

func isCardFile(name string) bool {
	name = strings.ToLower(name)
	return strings.HasSuffix(name, ".md") || strings.HasSuffix(name, ".txt")
}

func (s *Syncer) reconcile(ctx context.Context, source domain.Source, dir string) (Result, error) {
	res := Result{SourceID: source.ID, Path: source.Path}
	found := make(map[string]bool)
	now := s.now()

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !isCardFile(d.Name()) {
			return nil
		}

		pairs, parseErr := parser.ExtractFile(path)
		if parseErr != nil {
			res.Errors++
			s.logger.Warn("Failed to read card file", "path", path, "error", parseErr)
			return nil
		}
		topic := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		for _, p := range pairs {
			res.Parsed++
			card := domain.NewFlashcard(topic, p.Question, p.Answer, now)
			card.Hash = knol.Hash(card)
			card.SourceID = source.ID
			found[card.Hash] = true

			existing, findErr := s.db.FindCardByHash(ctx, source.ID, card.Hash)
			if findErr != nil {
				res.Errors++
				s.logger.Warn("db check failed", "hash", card.Hash, "error", findErr)
				continue
			}
			if existing != nil {
				continue
			}
			if insertErr := s.db.Add(ctx, card); insertErr != nil {
				res.Errors++
				s.logger.Warn("db insert failed", "hash", card.Hash, "error", insertErr)
				continue
			}
			res.Added++
		}
		return nil
	})
	if walkErr != nil {
		return res, fmt.Errorf("walk %s: %w", dir, walkErr)
	}

	dbCards, err := s.db.GetCardsBySourceID(ctx, source.ID)
	if err != nil {
		return res, err
	}
	for _, c := range dbCards {
		if found[c.Hash] {
			continue
		}
		s.logger.Info("Orphaned card, deleting", "hash", c.Hash)
		if err := s.db.Delete(ctx, c.ID); err != nil {
			res.Errors++
			s.logger.Warn("Failed to delete orphaned card", "hash", c.Hash, "error", err)
			continue
		}
		res.Removed++
	}

	if err := s.db.UpdateSourceLastScanned(ctx, source.ID, now); err != nil {
		s.logger.Warn("Failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	s.logger.Info("reconciliation complete",
		"path", source.Path,
		"parsed_cards", res.Parsed,
		"added", res.Added,
		"orphaned_deleted", res.Removed,
		"errors", res.Errors,
	)
	return res, nil
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		// scp-like form: git@host:owner/repo.git
		if user, rest, ok := strings.Cut(repoURL, "@"); ok && user != "" {
			host, repoPath, ok := strings.Cut(rest, ":")
			if ok && host != "" && repoPath != "" {
				return filepath.Join(baseDir, host, strings.TrimSuffix(repoPath, ".git")), nil
			}
		}
		return "", errors.New("could not parse git URL: " + repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
