package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/parlance/internal/domain"
)

// LocalConfig holds configuration for the CLI and the local daemon
type LocalConfig struct {
	Daemon     DaemonConfig     `yaml:"daemon"`
	LLM        LLMConfig        `yaml:"llm"`
	Speech     SpeechConfig     `yaml:"speech"`
	Session    SessionConfig    `yaml:"session"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Vocabulary VocabularyConfig `yaml:"vocabulary"`
	Events     EventsConfig     `yaml:"events"`
}

// DaemonConfig holds daemon server settings
type DaemonConfig struct {
	Port      int             `yaml:"port"`
	Bind      string          `yaml:"bind"`
	LogLevel  string          `yaml:"log_level"`
	LogFile   string          `yaml:"log_file,omitempty"` // default: <dir>/logs/parlanced.log
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig bounds requests per client
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	Burst             int `yaml:"burst"`
}

// LLMConfig holds challenge provider settings
type LLMConfig struct {
	DefaultProvider string                     `yaml:"default_provider"`
	Temperature     float64                    `yaml:"temperature"`
	Providers       map[string]*ProviderConfig `yaml:"providers"`
}

// ProviderConfig holds settings for a single LLM provider
type ProviderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	URL     string `yaml:"url,omitempty"`
	APIKey  string `yaml:"-"` // secrets.yaml or environment
}

// SpeechConfig selects and tunes the speech adapters
type SpeechConfig struct {
	// Synthesizer is "google", "text" or "none"
	Synthesizer string `yaml:"synthesizer"`
	// Recognizer is "console", "remote" or "none"
	Recognizer    string        `yaml:"recognizer"`
	LanguageCode  string        `yaml:"language_code"`
	VoiceName     string        `yaml:"voice_name,omitempty"`
	SpeakingRate  float64       `yaml:"speaking_rate"`
	PlayerCommand []string      `yaml:"player_command,omitempty"`
	RearmDelay    time.Duration `yaml:"rearm_delay"`
	GoogleURL     string        `yaml:"google_url,omitempty"`
	GoogleAPIKey  string        `yaml:"-"`
}

// SessionConfig holds the defaults for a new session
type SessionConfig struct {
	DefaultLevel string `yaml:"default_level"`
	DefaultMode  string `yaml:"default_speech_mode"`
	Prewarm      bool   `yaml:"prewarm"`
}

// ResilienceConfig tunes the rate limiters, retries and circuit breaker
type ResilienceConfig struct {
	MaxAttempts      int           `yaml:"max_attempts"`
	BaseDelay        time.Duration `yaml:"base_delay"`
	LLMPerMinute     int           `yaml:"llm_per_minute"`
	SpeechPerMinute  int           `yaml:"speech_per_minute"`
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerTimeout   time.Duration `yaml:"breaker_timeout"`
}

// VocabularyConfig selects where words come from
type VocabularyConfig struct {
	// Backend is "memory" (embedded + YAML packs) or "sqlite"
	Backend    string `yaml:"backend"`
	PacksPath  string `yaml:"packs_path,omitempty"`  // default: <dir>/packs
	SQLitePath string `yaml:"sqlite_path,omitempty"` // default: <dir>/parlance.db
}

// EventsConfig configures domain event publishing
type EventsConfig struct {
	AMQPURL    string        `yaml:"amqp_url,omitempty"`
	Queue      string        `yaml:"queue"`
	MessageTTL time.Duration `yaml:"message_ttl"`
}

// SecretsConfig holds API keys loaded from secrets.yaml
type SecretsConfig struct {
	Providers map[string]Secret `yaml:"providers,omitempty"`
	Speech    map[string]Secret `yaml:"speech,omitempty"`
}

// Secret is a single credential
type Secret struct {
	APIKey string `yaml:"api_key"`
}

// DefaultLocalConfig returns sensible defaults for local mode
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		Daemon: DaemonConfig{
			Port:     7433,
			Bind:     "127.0.0.1",
			LogLevel: "info",
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 20,
				Burst:             40,
			},
		},
		LLM: LLMConfig{
			DefaultProvider: "auto",
			Temperature:     0.8,
			Providers: map[string]*ProviderConfig{
				"claude": {
					Enabled: true,
					Model:   "claude-3-5-haiku-latest",
				},
				"openai": {
					Enabled: false,
					Model:   "gpt-4o-mini",
				},
				"ollama": {
					Enabled: false,
					URL:     "http://localhost:11434",
					Model:   "llama3.2",
				},
			},
		},
		Speech: SpeechConfig{
			Synthesizer:  "text",
			Recognizer:   "console",
			LanguageCode: "en-US",
			SpeakingRate: 1.0,
			RearmDelay:   300 * time.Millisecond,
		},
		Session: SessionConfig{
			DefaultLevel: string(domain.LevelA1),
			DefaultMode:  string(domain.SpeechFull),
			Prewarm:      true,
		},
		Resilience: ResilienceConfig{
			MaxAttempts:      3,
			BaseDelay:        time.Second,
			LLMPerMinute:     60,
			SpeechPerMinute:  60,
			BreakerThreshold: 3,
			BreakerTimeout:   time.Minute,
		},
		Vocabulary: VocabularyConfig{
			Backend: "memory",
		},
		Events: EventsConfig{
			Queue:      "parlance.events",
			MessageTTL: 24 * time.Hour,
		},
	}
}

// Validate checks values that would otherwise fail deep inside a session.
func (c *LocalConfig) Validate() error {
	var errs []error

	if c.Daemon.Port < 0 || c.Daemon.Port > 65535 {
		errs = append(errs, fmt.Errorf("daemon.port %d out of range", c.Daemon.Port))
	}
	if _, err := domain.ParseLevel(c.Session.DefaultLevel); err != nil {
		errs = append(errs, fmt.Errorf("session.default_level: %w", err))
	}
	if _, err := domain.ParseSpeechMode(c.Session.DefaultMode); err != nil {
		errs = append(errs, fmt.Errorf("session.default_speech_mode: %w", err))
	}
	if !oneOf(c.Speech.Synthesizer, "google", "text", "none") {
		errs = append(errs, fmt.Errorf("speech.synthesizer %q: want google, text or none", c.Speech.Synthesizer))
	}
	if !oneOf(c.Speech.Recognizer, "console", "remote", "none") {
		errs = append(errs, fmt.Errorf("speech.recognizer %q: want console, remote or none", c.Speech.Recognizer))
	}
	if !oneOf(c.Vocabulary.Backend, "memory", "sqlite") {
		errs = append(errs, fmt.Errorf("vocabulary.backend %q: want memory or sqlite", c.Vocabulary.Backend))
	}
	if c.Resilience.MaxAttempts < 1 {
		errs = append(errs, errors.New("resilience.max_attempts must be at least 1"))
	}
	if c.Resilience.LLMPerMinute < 1 || c.Resilience.SpeechPerMinute < 1 {
		errs = append(errs, errors.New("resilience per-minute ceilings must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}

// LoadLocalConfig loads configuration from ~/.parlance
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := ParlanceDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(dir)
}

// LoadFrom reads config.yaml and secrets.yaml in dir over the defaults,
// then applies environment overrides. A missing config file yields defaults.
func LoadFrom(dir string) (*LocalConfig, error) {
	cfg := DefaultLocalConfig()

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadSecrets(dir, cfg); err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}
	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadSecrets loads API keys from secrets.yaml
func loadSecrets(dir string, cfg *LocalConfig) error {
	data, err := os.ReadFile(filepath.Join(dir, "secrets.yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read secrets: %w", err)
	}

	var secrets SecretsConfig
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return fmt.Errorf("parse secrets: %w", err)
	}

	for name, secret := range secrets.Providers {
		if provider, ok := cfg.LLM.Providers[name]; ok {
			provider.APIKey = secret.APIKey
		}
	}
	if s, ok := secrets.Speech["google"]; ok {
		cfg.Speech.GoogleAPIKey = s.APIKey
	}
	return nil
}

// SaveTo writes config.yaml into dir. Secrets are never written here.
func SaveTo(dir string, cfg *LocalConfig) error {
	if err := EnsureDir(dir); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// SaveSecretsTo writes secrets.yaml into dir, readable by the owner only.
func SaveSecretsTo(dir string, secrets SecretsConfig) error {
	if err := EnsureDir(dir); err != nil {
		return err
	}

	data, err := yaml.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), data, 0600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}
	return nil
}
