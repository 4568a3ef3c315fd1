// Package config loads parlance settings from ~/.parlance, an optional
// .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Environment variables that override file settings.
const (
	EnvHome        = "PARLANCE_HOME"
	EnvLogLevel    = "PARLANCE_LOG_LEVEL"
	EnvAMQPURL     = "PARLANCE_AMQP_URL"
	EnvAnthropic   = "ANTHROPIC_API_KEY"
	EnvOpenAI      = "OPENAI_API_KEY"
	EnvGoogleTTS   = "GOOGLE_TTS_API_KEY"
	EnvLLMProvider = "PARLANCE_LLM_PROVIDER"
)

// ParlanceDir returns $PARLANCE_HOME or ~/.parlance.
func ParlanceDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".parlance"), nil
}

// EnsureDir creates dir and its standard subdirectories.
func EnsureDir(dir string) error {
	for _, sub := range []string{"", "logs", "packs", "preferences"} {
		path := filepath.Join(dir, sub)
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("create dir %s: %w", path, err)
		}
	}
	return nil
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped; variables already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", p, err)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// ApplyEnv overrides file settings with environment variables.
func ApplyEnv(cfg *LocalConfig) {
	if v := getEnv(EnvLogLevel); v != "" {
		cfg.Daemon.LogLevel = strings.ToLower(v)
	}
	if v := getEnv(EnvAMQPURL); v != "" {
		cfg.Events.AMQPURL = v
	}
	if v := getEnv(EnvLLMProvider); v != "" {
		cfg.LLM.DefaultProvider = v
	}
	if v := getEnv(EnvGoogleTTS); v != "" {
		cfg.Speech.GoogleAPIKey = v
	}
	applyProviderKey(cfg, "claude", getEnv(EnvAnthropic))
	applyProviderKey(cfg, "openai", getEnv(EnvOpenAI))
}

func applyProviderKey(cfg *LocalConfig, name, key string) {
	if key == "" {
		return
	}
	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = make(map[string]*ProviderConfig)
	}
	p, ok := cfg.LLM.Providers[name]
	if !ok {
		p = &ProviderConfig{}
		cfg.LLM.Providers[name] = p
	}
	p.APIKey = key
	p.Enabled = true
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// Paths resolves the file locations derived from the config directory.
type Paths struct {
	Dir         string
	Config      string
	Secrets     string
	LogFile     string
	Packs       string
	SQLite      string
	Preferences string
}

// ResolvePaths fills in defaults for paths left empty in cfg.
func ResolvePaths(dir string, cfg *LocalConfig) Paths {
	p := Paths{
		Dir:         dir,
		Config:      filepath.Join(dir, "config.yaml"),
		Secrets:     filepath.Join(dir, "secrets.yaml"),
		LogFile:     cfg.Daemon.LogFile,
		Packs:       cfg.Vocabulary.PacksPath,
		SQLite:      cfg.Vocabulary.SQLitePath,
		Preferences: filepath.Join(dir, "preferences"),
	}
	if p.LogFile == "" {
		p.LogFile = filepath.Join(dir, "logs", "parlanced.log")
	}
	if p.Packs == "" {
		p.Packs = filepath.Join(dir, "packs")
	}
	if p.SQLite == "" {
		p.SQLite = filepath.Join(dir, "parlance.db")
	}
	return p
}
