// Package config loads settings from defaults, an optional YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/notemaker/internal/llm"
	"github.com/conorfennell/notemaker/internal/notes"
)

// EnvPrefix marks environment variables read as configuration. Nested keys
// are separated by a double underscore, e.g. NOTEMAKER_LLM__API_KEY.
const EnvPrefix = "NOTEMAKER_"

type Config struct {
	Storage StorageConfig `koanf:"storage"`
	Server  ServerConfig  `koanf:"server"`
	LLM     LLMConfig     `koanf:"llm"`
	Notes   NotesConfig   `koanf:"notes"`
	Sync    SyncConfig    `koanf:"sync"`
	Log     LogConfig     `koanf:"log"`
}

type StorageConfig struct {
	Driver string `koanf:"driver" validate:"oneof=sqlite memory"`
	DSN    string `koanf:"dsn" validate:"required_if=Driver sqlite"`
}

type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required"`
}

type LLMConfig struct {
	Provider string        `koanf:"provider" validate:"oneof=gemini mock"`
	APIKey   string        `koanf:"api_key" validate:"required_if=Provider gemini"`
	Model    string        `koanf:"model"`
	Timeout  time.Duration `koanf:"timeout" validate:"gte=0"`
	Retry    RetryConfig   `koanf:"retry"`
}

type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts" validate:"gte=1,lte=10"`
	InitialWait time.Duration `koanf:"initial_wait" validate:"gte=0"`
	MaxWait     time.Duration `koanf:"max_wait" validate:"gtefield=InitialWait"`
	Multiplier  float64       `koanf:"multiplier" validate:"gte=1"`
}

type NotesConfig struct {
	Temperature float64 `koanf:"temperature" validate:"gte=0.1,lte=1"`
	Detail      string  `koanf:"detail" validate:"oneof=Brief Standard Comprehensive"`
	Education   string  `koanf:"education" validate:"education_level"`
}

type SyncConfig struct {
	ReposDir string `koanf:"repos_dir" validate:"required"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Storage: StorageConfig{Driver: "sqlite", DSN: "notemaker.db"},
		Server:  ServerConfig{Addr: ":8080"},
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-flash",
			Timeout:  2 * time.Minute,
			Retry: RetryConfig{
				MaxAttempts: 3,
				InitialWait: time.Second,
				MaxWait:     30 * time.Second,
				Multiplier:  2,
			},
		},
		Notes: NotesConfig{Temperature: 0.7, Detail: "Standard", Education: "Undergraduate"},
		Sync:  SyncConfig{ReposDir: ".notemaker/repos"},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// flagKeys maps command-line flags to configuration keys. Flags not listed
// here are not configuration.
var flagKeys = map[string]string{
	"db":        "storage.dsn",
	"addr":      "server.addr",
	"provider":  "llm.provider",
	"log-level": "log.level",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML configuration file")
	fs.String("db", "", "Path to the SQLite database file")
	fs.String("addr", "", "HTTP listen address")
	fs.String("provider", "", "LLM provider (gemini or mock)")
	fs.String("log-level", "", "Log level (debug, info, warn, error)")
}

// Load builds the configuration. fs must already be parsed and carry the
// flags added by RegisterFlags.
func Load(fs *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	path, err := fs.GetString("config")
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	// A nil koanf makes posflag skip flags the user did not set, so their
	// empty defaults never mask lower layers.
	if err := k.Load(posflag.ProviderWithFlag(fs, ".", nil, func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load flags: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks value ranges and required combinations.
func Validate(cfg Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := notes.RegisterValidations(v); err != nil {
		return err
	}
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LLMProvider converts the llm section for llm.NewProvider.
func (c Config) LLMProvider() llm.Config {
	return llm.Config{
		Provider: c.LLM.Provider,
		APIKey:   c.LLM.APIKey,
		Model:    c.LLM.Model,
		Timeout:  c.LLM.Timeout,
		Retry: llm.RetryConfig{
			MaxAttempts: c.LLM.Retry.MaxAttempts,
			InitialWait: c.LLM.Retry.InitialWait,
			MaxWait:     c.LLM.Retry.MaxWait,
			Multiplier:  c.LLM.Retry.Multiplier,
		},
	}
}

// NoteDefaults returns the fallbacks for note requests.
func (c Config) NoteDefaults() notes.Defaults {
	return notes.Defaults{
		Detail:      c.Notes.Detail,
		Education:   c.Notes.Education,
		Temperature: c.Notes.Temperature,
	}
}
