// Package config loads tickstory settings from a YAML/JSON file and TICKSTORY_*
// environment variables. Environment values override the file.
package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces the environment variables read by Load.
const EnvPrefix = "TICKSTORY_"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the full application configuration.
type Config struct {
	// Stories is the directory holding the story files.
	Stories string       `yaml:"stories" json:"stories" mapstructure:"stories"`
	Store   StoreConfig  `yaml:"store" json:"store" mapstructure:"store"`
	Engine  EngineConfig `yaml:"engine" json:"engine" mapstructure:"engine"`
	HTTP    HTTPConfig   `yaml:"http" json:"http" mapstructure:"http"`
	Log     LogConfig    `yaml:"log" json:"log" mapstructure:"log"`
}

// StoreConfig selects and configures the session store.
type StoreConfig struct {
	Backend string `yaml:"backend" json:"backend" mapstructure:"backend"`
	// Path is the session directory (file) or the database file (sqlite).
	Path          string        `yaml:"path" json:"path" mapstructure:"path"`
	RedisAddr     string        `yaml:"redis_addr" json:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string        `yaml:"redis_password" json:"redis_password" mapstructure:"redis_password"`
	RedisDB       int           `yaml:"redis_db" json:"redis_db" mapstructure:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix" json:"redis_prefix" mapstructure:"redis_prefix"`
	TTL           time.Duration `yaml:"ttl" json:"ttl" mapstructure:"ttl"`
	// EncryptionKey is a base64 encoded 32 byte AES key. Empty disables encryption.
	EncryptionKey string   `yaml:"encryption_key" json:"encryption_key" mapstructure:"encryption_key"`
	PIIPatterns   []string `yaml:"pii_patterns" json:"pii_patterns" mapstructure:"pii_patterns"`
}

// EngineConfig tunes turn processing.
type EngineConfig struct {
	RepetitionNb        int           `yaml:"repetition_nb" json:"repetition_nb" mapstructure:"repetition_nb"`
	UnknownRepetitionNb int           `yaml:"unknown_repetition_nb" json:"unknown_repetition_nb" mapstructure:"unknown_repetition_nb"`
	RedirectStory       string        `yaml:"redirect_story" json:"redirect_story" mapstructure:"redirect_story"`
	MaxIterations       int           `yaml:"max_iterations" json:"max_iterations" mapstructure:"max_iterations"`
	Debug               bool          `yaml:"debug" json:"debug" mapstructure:"debug"`
	EndingStoryRule     bool          `yaml:"ending_story_rule" json:"ending_story_rule" mapstructure:"ending_story_rule"`
	FallbackMessage     string        `yaml:"fallback_message" json:"fallback_message" mapstructure:"fallback_message"`
	LockTTL             time.Duration `yaml:"lock_ttl" json:"lock_ttl" mapstructure:"lock_ttl"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr    string `yaml:"addr" json:"addr" mapstructure:"addr"`
	Metrics bool   `yaml:"metrics" json:"metrics" mapstructure:"metrics"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level" json:"level" mapstructure:"level"`
	Format string `yaml:"format" json:"format" mapstructure:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Stories: ".",
		Store: StoreConfig{
			Backend:     BackendMemory,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "tickstory:",
		},
		Engine: EngineConfig{
			RepetitionNb:    domain.DefaultRepetitionNb,
			MaxIterations:   32,
			FallbackMessage: "Sorry, something went wrong. Please try again later.",
			LockTTL:         30 * time.Second,
		},
		HTTP: HTTPConfig{Addr: ":8080", Metrics: true},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (if not empty) over the defaults, then applies the
// TICKSTORY_* variables found in environ (os.Environ() format).
// A missing file is an error only when path was given explicitly.
func Load(path string, environ []string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(environ); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

var sections = map[string]bool{"store": true, "engine": true, "http": true, "log": true}

// applyEnv maps TICKSTORY_<SECTION>_<FIELD> onto the matching section field,
// e.g. TICKSTORY_STORE_REDIS_ADDR sets store.redis_addr.
func (c *Config) applyEnv(environ []string) error {
	raw := make(map[string]any)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
		section, field, nested := strings.Cut(key, "_")
		if nested && sections[section] {
			sub, _ := raw[section].(map[string]any)
			if sub == nil {
				sub = make(map[string]any)
				raw[section] = sub
			}
			sub[field] = value
			continue
		}
		raw[key] = value
	}
	if len(raw) == 0 {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           c,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid %s environment: %w", EnvPrefix+"*", err)
	}
	return nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.Store.Backend == BackendSQLite && c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required for the sqlite backend"))
	}
	if c.Store.EncryptionKey != "" {
		if _, err := c.Store.Key(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Engine.RepetitionNb < 0 || c.Engine.UnknownRepetitionNb < 0 {
		errs = append(errs, errors.New("repetition numbers cannot be negative"))
	}
	if c.Engine.MaxIterations < 0 {
		errs = append(errs, errors.New("engine.max_iterations cannot be negative"))
	}
	return errors.Join(errs...)
}

// Key decodes the encryption key. It returns nil when encryption is disabled.
func (s StoreConfig) Key() ([]byte, error) {
	if s.EncryptionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(s.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("store.encryption_key is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("store.encryption_key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Settings returns the story settings derived from the engine section.
func (e EngineConfig) Settings() domain.StorySettings {
	s := domain.StorySettings{
		RepetitionNb:        e.RepetitionNb,
		RedirectStory:       e.RedirectStory,
		UnknownRepetitionNb: e.UnknownRepetitionNb,
	}
	if s.RepetitionNb == 0 {
		s.RepetitionNb = domain.DefaultRepetitionNb
	}
	return s
}
