package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	fs.Bool("serve", false, "")
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() returned an unexpected error: %v", err)
	}
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(parseFlags(t, "--provider", "mock"))
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	want := Default()
	want.LLM.Provider = "mock"
	if cfg != want {
		t.Errorf("Load() = %+v, want %+v", cfg, want)
	}
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notemaker.yaml")
	yaml := `
storage:
  dsn: from-file.db
server:
  addr: ":9000"
llm:
  provider: mock
  timeout: 45s
  retry:
    max_attempts: 5
notes:
  temperature: 0.3
  education: High School
log:
  format: json
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NOTEMAKER_SERVER__ADDR", ":9100")
	t.Setenv("NOTEMAKER_NOTES__DETAIL", "Brief")

	cfg, err := Load(parseFlags(t, "--config", path, "--db", "from-flag.db"))
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}

	testCases := []struct {
		name string
		got  any
		want any
	}{
		{"flag beats file", cfg.Storage.DSN, "from-flag.db"},
		{"env beats file", cfg.Server.Addr, ":9100"},
		{"env only", cfg.Notes.Detail, "Brief"},
		{"file duration", cfg.LLM.Timeout, 45 * time.Second},
		{"file nested", cfg.LLM.Retry.MaxAttempts, 5},
		{"default kept beside file value", cfg.LLM.Retry.Multiplier, 2.0},
		{"file float", cfg.Notes.Temperature, 0.3},
		{"file string with space", cfg.Notes.Education, "High School"},
		{"default", cfg.Log.Level, "info"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %v, want %v", tc.got, tc.want)
			}
		})
	}
}

func TestLoadValidation(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		env  map[string]string
		want string
	}{
		{"gemini without key", nil, nil, "APIKey"},
		{"unknown provider", []string{"--provider", "gpt"}, nil, "Provider"},
		{"temperature out of range", []string{"--provider", "mock"}, map[string]string{"NOTEMAKER_NOTES__TEMPERATURE": "1.5"}, "Temperature"},
		{"unknown education", []string{"--provider", "mock"}, map[string]string{"NOTEMAKER_NOTES__EDUCATION": "Kindergarten"}, "Education"},
		{"unknown log level", []string{"--provider", "mock", "--log-level", "loud"}, nil, "Level"},
		{"bad storage driver", []string{"--provider", "mock"}, map[string]string{"NOTEMAKER_STORAGE__DRIVER": "postgres"}, "Driver"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load(parseFlags(t, tc.args...))
			if err == nil {
				t.Fatal("Expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Expected error to mention %q, got %v", tc.want, err)
			}
		})
	}
}

func TestMissingConfigFile(t *testing.T) {
	if _, err := Load(parseFlags(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"))); err == nil {
		t.Error("Expected an error for a missing config file")
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	lc := cfg.LLMProvider()
	if lc.Provider != "gemini" || lc.Retry.MaxAttempts != 3 || lc.Timeout != 2*time.Minute {
		t.Errorf("Unexpected llm config: %+v", lc)
	}
	nd := cfg.NoteDefaults()
	if nd.Detail != "Standard" || nd.Education != "Undergraduate" || nd.Temperature != 0.7 {
		t.Errorf("Unexpected note defaults: %+v", nd)
	}
}
