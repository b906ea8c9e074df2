// Package config handles loading and parsing application configuration.
// It supports two sources for the YAML path (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Before the YAML is read an optional .env file in the working directory
// is loaded into the environment, so secrets such as GEMINI_API_KEY can
// stay out of the YAML file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Storage backends accepted in the "storage" key.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// DefaultStoragePath keeps the SQLite directory in memory.
const DefaultStoragePath = "file::memory:?cache=shared"

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-required:"true"`

	// Storage selects the student directory backend: "memory" or "sqlite".
	Storage string `yaml:"storage" env:"STORAGE" env-default:"memory"`

	// StoragePath is the SQLite DSN, only used when Storage is "sqlite".
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-default:"file::memory:?cache=shared"`

	HTTPServer `yaml:"http_server"`

	GenAI GenAI `yaml:"genai"`

	Lookup Lookup `yaml:"lookup"`
}

// HTTPServer holds settings specific to the HTTP server.
type HTTPServer struct {
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-required:"true"`
}

// GenAI configures the message generator's Gemini client.
// An empty APIKey is allowed: every message then uses the fallback text.
type GenAI struct {
	APIKey      string        `yaml:"api_key"     env:"GEMINI_API_KEY,API_KEY"`
	Model       string        `yaml:"model"       env:"GENAI_MODEL"       env-default:"gemini-3-flash-preview"`
	Temperature float32       `yaml:"temperature" env:"GENAI_TEMPERATURE" env-default:"0.8"`
	TopP        float32       `yaml:"top_p"       env:"GENAI_TOP_P"       env-default:"0.9"`
	Timeout     time.Duration `yaml:"timeout"     env:"GENAI_TIMEOUT"     env-default:"20s"`
}

// Lookup configures the per-session lookup controllers.
type Lookup struct {
	// Delay is the artificial pause before the directory is queried.
	Delay time.Duration `yaml:"delay" env:"LOOKUP_DELAY" env-default:"1500ms"`

	// SessionTTL is how long an idle browser session keeps its controller.
	SessionTTL time.Duration `yaml:"session_ttl" env:"LOOKUP_SESSION_TTL" env-default:"30m"`
}

// Load reads the YAML file at path, applies env overrides and defaults,
// and checks the values cleanenv cannot.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	switch cfg.Storage {
	case StorageMemory, StorageSQLite:
	default:
		return nil, fmt.Errorf("unknown storage %q: want %q or %q", cfg.Storage, StorageMemory, StorageSQLite)
	}
	if cfg.Lookup.Delay < 0 {
		return nil, fmt.Errorf("lookup.delay must not be negative, got %s", cfg.Lookup.Delay)
	}

	return &cfg, nil
}

// MustLoad reads, validates, and returns the application config.
// Functions prefixed with "Must" are allowed to fatal on failure: if this
// returns, the config is valid.
func MustLoad() *Config {
	// A missing .env is fine; everything can come from the real environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("cannot load .env file: %s", err.Error())
	}

	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err.Error())
	}

	return cfg
}
