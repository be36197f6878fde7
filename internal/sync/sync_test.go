package sync

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/conorfennell/notemaker/internal/domain"
	"github.com/conorfennell/notemaker/internal/storage"
)

func newTestSyncer(t *testing.T) (*Syncer, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := NewSyncer(db, filepath.Join(t.TempDir(), "repos"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, db
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectType(t *testing.T) {
	testCases := []struct {
		path string
		want string
	}{
		{"https://github.com/user/repo.git", domain.SourceGit},
		{"git@github.com:user/repo.git", domain.SourceGit},
		{"https://github.com/user/repo", domain.SourceGit},
		{"/home/user/notes", domain.SourceLocal},
		{"./notes", domain.SourceLocal},
	}
	for _, tc := range testCases {
		if got := DetectType(tc.path); got != tc.want {
			t.Errorf("DetectType(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestGitURLToLocalPath(t *testing.T) {
	testCases := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://github.com/user/repo.git", filepath.Join("base", "github.com", "user", "repo"), false},
		{"git@github.com:user/repo.git", filepath.Join("base", "github.com", "user", "repo"), false},
		{"not a url", "", true},
	}
	for _, tc := range testCases {
		got, err := gitURLToLocalPath("base", tc.url)
		if (err != nil) != tc.wantErr {
			t.Errorf("gitURLToLocalPath(%q) error = %v, wantErr %v", tc.url, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("gitURLToLocalPath(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestRunLocalSource(t *testing.T) {
	ctx := context.Background()
	s, db := newTestSyncer(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "golang.md"), "Q: Who designed Go?\nA: Griesemer, Pike, Thompson\n---\nQ: What is a goroutine?\nA: A lightweight thread\n---\nnot a card")
	writeFile(t, filepath.Join(dir, "ignored.go"), "Q: x\nA: y")

	id, err := s.AddSource(ctx, dir)
	if err != nil {
		t.Fatalf("AddSource() returned an unexpected error: %v", err)
	}
	if again, err := s.AddSource(ctx, dir); err != nil || again != id {
		t.Errorf("Expected re-adding a source to return %d, got %d, %v", id, again, err)
	}

	results, err := s.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Added != 2 || results[0].Parsed != 2 {
		t.Fatalf("Unexpected first sync result: %+v", results)
	}
	cards, _ := db.GetCardsBySourceID(ctx, id)
	if len(cards) != 2 || cards[0].Topic != "golang" || cards[0].Hash == "" {
		t.Fatalf("Unexpected synced cards: %+v", cards)
	}

	// Grade state survives a re-sync of unchanged content.
	graded := cards[0]
	graded.Repetitions = 3
	if err := db.Update(ctx, graded); err != nil {
		t.Fatal(err)
	}
	results, _ = s.Run(ctx)
	if results[0].Added != 0 || results[0].Removed != 0 {
		t.Errorf("Expected an unchanged source to be a no-op, got %+v", results[0])
	}
	kept, err := db.Get(ctx, graded.ID)
	if err != nil || kept.Repetitions != 3 {
		t.Errorf("Expected graded card to be kept, got %+v, %v", kept, err)
	}

	writeFile(t, filepath.Join(dir, "golang.md"), "Q: Who designed Go?\nA: Griesemer, Pike, Thompson")
	results, _ = s.Run(ctx)
	if results[0].Removed != 1 {
		t.Errorf("Expected 1 orphaned card removed, got %+v", results[0])
	}
	cards, _ = db.GetCardsBySourceID(ctx, id)
	if len(cards) != 1 {
		t.Errorf("Expected 1 card left, got %d", len(cards))
	}

	sources, _ := db.GetAllSources(ctx)
	if !sources[0].LastScanned.Equal(s.now()) {
		t.Errorf("Expected last scanned to be updated, got %v", sources[0].LastScanned)
	}
}

func TestRunGitSource(t *testing.T) {
	ctx := context.Background()
	s, db := newTestSyncer(t)

	var gotURL, gotPath string
	s.gitSync = func(_ context.Context, url, localPath string, _ io.Writer) error {
		gotURL, gotPath = url, localPath
		if err := os.MkdirAll(localPath, 0o755); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(localPath, "deck.txt"), []byte("Q: 2+2?\nA: 4"), 0o644)
	}

	const repo = "https://example.com/me/cards.git"
	id, err := s.AddSource(ctx, repo)
	if err != nil {
		t.Fatal(err)
	}
	results, err := s.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if gotURL != repo || gotPath != filepath.Join(s.reposDir, "example.com", "me", "cards") {
		t.Errorf("Unexpected git sync call: %s -> %s", gotURL, gotPath)
	}
	if len(results) != 1 || results[0].Added != 1 {
		t.Fatalf("Unexpected result: %+v", results)
	}
	cards, _ := db.GetCardsBySourceID(ctx, id)
	if len(cards) != 1 || cards[0].Topic != "deck" {
		t.Errorf("Unexpected cards: %+v", cards)
	}
}

func TestAddSourceRejectsMissingDir(t *testing.T) {
	s, _ := newTestSyncer(t)
	if _, err := s.AddSource(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected an error for a missing directory")
	}
}
