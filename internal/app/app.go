// Package app assembles a quiz engine and its collaborators from config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/felixgeelhaar/parlance/internal/cache"
	"github.com/felixgeelhaar/parlance/internal/challenge"
	"github.com/felixgeelhaar/parlance/internal/config"
	"github.com/felixgeelhaar/parlance/internal/conversation"
	"github.com/felixgeelhaar/parlance/internal/domain"
	"github.com/felixgeelhaar/parlance/internal/llm"
	"github.com/felixgeelhaar/parlance/internal/preferences"
	"github.com/felixgeelhaar/parlance/internal/queue"
	"github.com/felixgeelhaar/parlance/internal/resilience"
	"github.com/felixgeelhaar/parlance/internal/speech"
	"github.com/felixgeelhaar/parlance/internal/storage/sqlite"
	"github.com/felixgeelhaar/parlance/internal/vocabulary"
)

// Options controls how the app is assembled.
type Options struct {
	Config *config.LocalConfig
	Dir    string
	Logger *slog.Logger

	// Console I/O for the "text" synthesizer and "console" recognizer.
	In  io.Reader
	Out io.Writer

	Presenter conversation.Presenter
}

// App owns the engine and everything it depends on.
type App struct {
	Config      *config.LocalConfig
	Paths       config.Paths
	Logger      *slog.Logger
	Engine      *conversation.Engine
	Display     *conversation.Broadcaster
	Cache       *cache.ResponseCache
	Vocabulary  vocabulary.Store
	LLM         *llm.Registry
	Speech      speech.Provider
	Remote      *speech.RemoteRecognizer
	Preferences *preferences.Store
	Events      queue.Sink

	closers []func() error
}

// New wires the app. Call Close when done.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Config == nil {
		opts.Config = config.DefaultLocalConfig()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	cfg := opts.Config

	a := &App{
		Config:  cfg,
		Paths:   config.ResolvePaths(opts.Dir, cfg),
		Logger:  opts.Logger,
		Display: conversation.NewBroadcaster(),
		Cache:   cache.New(),
		LLM:     llm.NewRegistry(),
	}

	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	if err := a.setupLLMProviders(); err != nil {
		return nil, fmt.Errorf("setup llm providers: %w", err)
	}

	store, err := a.openVocabulary(ctx)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	a.Vocabulary = store

	a.Speech = a.buildSpeech(opts.In, opts.Out)
	a.Events = a.buildEvents()

	a.Preferences, err = preferences.Open(a.Paths.Preferences, preferences.Preferences{
		SpeechMode: domain.SpeechMode(cfg.Session.DefaultMode),
		Level:      domain.Level(cfg.Session.DefaultLevel),
	})
	if err != nil {
		return nil, err
	}
	prefs, err := a.Preferences.Load()
	if err != nil {
		a.Logger.Warn("failed to load preferences, using defaults", "error", err)
	}

	policy := resilience.Policy{
		MaxAttempts: cfg.Resilience.MaxAttempts,
		BaseDelay:   cfg.Resilience.BaseDelay,
	}
	orchestrator := challenge.NewOrchestrator(challenge.Config{
		Provider: a.challengeProvider(),
		Store:    store,
		Guard:    resilience.NewGuard("llm", resilience.NewLimiter(cfg.Resilience.LLMPerMinute, resilience.DefaultWindow), policy),
		Logger:   a.Logger.With("component", "challenge"),
	})

	presenters := conversation.Presenters{a.Display}
	if opts.Presenter != nil {
		presenters = append(presenters, opts.Presenter)
	}

	a.Engine, err = conversation.New(conversation.Config{
		Challenges:   orchestrator,
		Speech:       a.Speech,
		Cache:        a.Cache,
		SpeechGuard:  resilience.NewGuard("speech", resilience.NewLimiter(cfg.Resilience.SpeechPerMinute, resilience.DefaultWindow), policy),
		Preferences:  a.Preferences,
		Events:       a.Events,
		Presenter:    presenters,
		Logger:       a.Logger.With("component", "conversation"),
		RearmDelay:   cfg.Speech.RearmDelay,
		InitialLevel: prefs.Level,
		InitialMode:  prefs.SpeechMode,
	})
	if err != nil {
		return nil, err
	}

	ok = true
	return a, nil
}

// setupLLMProviders registers the configured providers in a fixed order so
// "auto" resolves predictably.
func (a *App) setupLLMProviders() error {
	cfg := a.Config.LLM
	bcfg := llm.DefaultBreakerConfig()
	bcfg.FailureThreshold = a.Config.Resilience.BreakerThreshold
	bcfg.OpenTimeout = a.Config.Resilience.BreakerTimeout
	bcfg.Logger = a.Logger.With("component", "llm")

	for _, name := range []string{"claude", "openai", "ollama"} {
		pc, ok := cfg.Providers[name]
		if !ok || pc == nil || !pc.Enabled {
			continue
		}

		var p llm.Provider
		switch name {
		case "claude":
			if pc.APIKey == "" {
				a.Logger.Debug("Claude provider enabled but no API key set")
				continue
			}
			p = llm.NewClaude(llm.ClaudeConfig{APIKey: pc.APIKey, Model: pc.Model, BaseURL: pc.URL})
		case "openai":
			if pc.APIKey == "" {
				a.Logger.Debug("OpenAI provider enabled but no API key set")
				continue
			}
			p = llm.NewOpenAI(llm.OpenAIConfig{APIKey: pc.APIKey, Model: pc.Model, BaseURL: pc.URL})
		case "ollama":
			p = llm.NewOllama(llm.OllamaConfig{BaseURL: pc.URL, Model: pc.Model})
		}

		a.LLM.Register(name, llm.WithBreaker(p, bcfg), pc.Model)
		a.Logger.Info("registered LLM provider", "name", name, "model", pc.Model)
	}

	// An unknown preference only matters once something is registered.
	if err := a.LLM.Prefer(cfg.DefaultProvider); err != nil && len(a.LLM.Names()) > 0 {
		return err
	}
	return nil
}

func (a *App) challengeProvider() challenge.Provider {
	sel, err := a.LLM.Select()
	if err != nil {
		a.Logger.Info("no LLM provider configured, challenges come from the word list")
		return nil
	}
	a.Logger.Debug("challenges from LLM", "provider", sel.Name, "model", sel.Model)
	return challenge.NewLLMProvider(sel.Provider, challenge.LLMProviderConfig{
		Model:       sel.Model,
		Temperature: a.Config.LLM.Temperature,
	})
}

func (a *App) openVocabulary(ctx context.Context) (vocabulary.Store, error) {
	switch a.Config.Vocabulary.Backend {
	case "sqlite":
		db, err := sqlite.Open(ctx, a.Paths.SQLite)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return nil, err
		}

		store := sqlite.NewVocabularyStore(db)
		n, err := store.Count(ctx)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			pack, err := vocabulary.DefaultPack()
			if err != nil {
				return nil, err
			}
			if _, err := store.Import(ctx, pack); err != nil {
				return nil, fmt.Errorf("seed vocabulary: %w", err)
			}
			a.Logger.Info("seeded vocabulary database", "entries", len(pack.Entries))
		}
		return store, nil

	default:
		return LoadMemoryVocabulary(a.Paths.Packs)
	}
}

// LoadMemoryVocabulary combines the embedded pack with YAML packs in dir.
func LoadMemoryVocabulary(dir string) (*vocabulary.MemoryStore, error) {
	builtin, err := vocabulary.DefaultPack()
	if err != nil {
		return nil, err
	}
	packs, err := vocabulary.NewLoader(dir).LoadAll()
	if err != nil {
		return nil, err
	}
	return vocabulary.NewMemoryStore(append([]*vocabulary.Pack{builtin}, packs...)...), nil
}

func (a *App) buildSpeech(in io.Reader, out io.Writer) speech.Provider {
	cfg := a.Config.Speech

	var synth speech.Synthesizer
	switch cfg.Synthesizer {
	case "google":
		if cfg.GoogleAPIKey == "" {
			a.Logger.Warn("google synthesizer selected without an API key, speaking as text")
			synth = speech.TextSynthesizer{}
		} else {
			synth = speech.NewGoogleSynthesizer(speech.GoogleConfig{
				APIKey:       cfg.GoogleAPIKey,
				BaseURL:      cfg.GoogleURL,
				LanguageCode: cfg.LanguageCode,
				VoiceName:    cfg.VoiceName,
				SpeakingRate: cfg.SpeakingRate,
			})
		}
	case "text":
		synth = speech.TextSynthesizer{}
	}

	var player speech.Player
	switch {
	case len(cfg.PlayerCommand) > 0:
		player = speech.NewCommandPlayer(cfg.PlayerCommand[0], cfg.PlayerCommand[1:]...)
	case synth != nil:
		player = speech.NewConsolePlayer(out)
	}

	var rec speech.Recognizer
	switch cfg.Recognizer {
	case "console":
		rec = speech.NewConsoleRecognizer(in)
	case "remote":
		a.Remote = speech.NewRemoteRecognizer()
		rec = a.Remote
	}

	return speech.NewDevice(synth, player, rec)
}

func (a *App) buildEvents() queue.Sink {
	logSink := queue.NewLogSink(a.Logger)
	url := a.Config.Events.AMQPURL
	if url == "" {
		return logSink
	}

	conn, err := queue.NewConnection(url, queue.ConnectionConfig{
		Queue:      a.Config.Events.Queue,
		MessageTTL: a.Config.Events.MessageTTL,
		Logger:     a.Logger,
	})
	if err != nil {
		a.Logger.Warn("event broker unavailable, logging events instead", "error", err)
		return logSink
	}
	a.closers = append(a.closers, conn.Close)
	return queue.Fanout{logSink, queue.NewProducer(conn)}
}

// Prewarm caches the fixed phrases for the current speech mode.
func (a *App) Prewarm(ctx context.Context) cache.PrewarmReport {
	return a.PrewarmMode(ctx, a.Engine.Snapshot().Mode)
}

// PrewarmMode caches the fixed phrases for mode.
func (a *App) PrewarmMode(ctx context.Context, mode domain.SpeechMode) cache.PrewarmReport {
	report := a.Engine.Speaker().Prewarm(ctx, mode)
	a.Logger.Info("prewarmed speech cache",
		"mode", mode,
		"cached", report.Cached,
		"skipped", report.Skipped,
		"failed", report.Failed)
	return report
}

// Close releases databases and broker connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
