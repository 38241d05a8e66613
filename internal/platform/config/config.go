package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	HistorySQLite    = "sqlite"
	HistoryFirestore = "firestore"
	HistoryMemory    = "memory"

	CacheFile   = "file"
	CacheBadger = "badger"

	DedupeStartTime         = "start_time"
	DedupeStartTimeClientID = "start_time_client_id"
)

type Config struct {
	VaultPath string `yaml:"-" validate:"required"`
	DBPath    string `yaml:"-"`
	CachePath string `yaml:"-"`
	LogPath   string `yaml:"-"`
	NotesPath string `yaml:"-"`

	UserID           string `yaml:"user_id" validate:"required"`
	HistoryBackend   string `yaml:"history_backend" validate:"oneof=sqlite firestore memory"`
	FirestoreProject string `yaml:"firestore_project" validate:"required_if=HistoryBackend firestore"`
	CacheBackend     string `yaml:"cache_backend" validate:"oneof=file badger"`
	HistoryLimit     int    `yaml:"history_limit" validate:"min=1,max=500"`
	DedupeKey        string `yaml:"dedupe_key" validate:"oneof=start_time start_time_client_id"`
	DefaultIntensity int    `yaml:"default_intensity" validate:"min=1,max=10"`
	Notes            bool   `yaml:"notes"`
	LogLevel         string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat        string `yaml:"log_format" validate:"oneof=text json"`
	MetricsAddr      string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
}

var validate = validator.New()

// New returns the default configuration for a vault.
func New(vaultPath string) (Config, error) {
	if vaultPath == "" {
		return Config{}, fmt.Errorf("vault path is required")
	}
	dir := filepath.Join(vaultPath, ".storkwatch")
	return Config{
		VaultPath: vaultPath,
		DBPath:    filepath.Join(dir, "storkwatch.db"),
		CachePath: filepath.Join(dir, "cache"),
		LogPath:   filepath.Join(dir, "storkwatch.log"),
		NotesPath: filepath.Join(vaultPath, "contractions"),

		UserID:           "local",
		HistoryBackend:   HistorySQLite,
		CacheBackend:     CacheFile,
		HistoryLimit:     50,
		DedupeKey:        DedupeStartTime,
		DefaultIntensity: 5,
		Notes:            true,
		LogLevel:         "info",
		LogFormat:        "text",
	}, nil
}

// FilePath is where Load looks for the optional yaml file.
func FilePath(vaultPath string) string {
	return filepath.Join(vaultPath, ".storkwatch", "config.yaml")
}

type Option func(*Config)

// WithUserID overrides the configured user when id is non-empty.
func WithUserID(id string) Option {
	return func(c *Config) {
		if strings.TrimSpace(id) != "" {
			c.UserID = strings.TrimSpace(id)
		}
	}
}

// WithHistoryLimit overrides how many saved events are fetched when n is positive.
func WithHistoryLimit(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.HistoryLimit = n
		}
	}
}

// Load builds the config from defaults, the vault config file, STORKWATCH_* env vars and opts, in that order.
func Load(vaultPath string, opts ...Option) (Config, error) {
	cfg, err := New(vaultPath)
	if err != nil {
		return Config{}, err
	}
	raw, err := os.ReadFile(FilePath(vaultPath))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("STORKWATCH_USER_ID", &cfg.UserID)
	setString("STORKWATCH_HISTORY_BACKEND", &cfg.HistoryBackend)
	setString("STORKWATCH_FIRESTORE_PROJECT", &cfg.FirestoreProject)
	setString("STORKWATCH_CACHE_BACKEND", &cfg.CacheBackend)
	setString("STORKWATCH_DEDUPE_KEY", &cfg.DedupeKey)
	setString("STORKWATCH_LOG_LEVEL", &cfg.LogLevel)
	setString("STORKWATCH_LOG_FORMAT", &cfg.LogFormat)
	setString("STORKWATCH_METRICS_ADDR", &cfg.MetricsAddr)

	if v := os.Getenv("STORKWATCH_HISTORY_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STORKWATCH_HISTORY_LIMIT: %w", err)
		}
		cfg.HistoryLimit = n
	}
	if v := os.Getenv("STORKWATCH_NOTES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STORKWATCH_NOTES: %w", err)
		}
		cfg.Notes = b
	}
	return nil
}
