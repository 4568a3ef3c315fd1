package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/felixgeelhaar/parlance/internal/app"
	"github.com/felixgeelhaar/parlance/internal/config"
	"github.com/felixgeelhaar/parlance/internal/daemon"
)

const pidFileName = "parlanced.pid"

func main() {
	if err := run(); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	dir, err := config.ParlanceDir()
	if err != nil {
		return err
	}
	if err := config.EnsureDir(dir); err != nil {
		return fmt.Errorf("ensure parlance dir: %w", err)
	}
	if err := config.LoadDotEnv(filepath.Join(dir, ".env")); err != nil {
		return err
	}

	cfg, err := config.LoadFrom(dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// No terminal here: speech arrives through the transcript endpoint.
	if cfg.Speech.Recognizer == "console" {
		cfg.Speech.Recognizer = "remote"
	}

	paths := config.ResolvePaths(dir, cfg)
	logger, logFile := setupLogging(paths.LogFile, parseLogLevel(cfg.Daemon.LogLevel))
	defer logFile.Close()
	slog.SetDefault(logger)

	pidPath := filepath.Join(dir, pidFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, app.Options{
		Config: cfg,
		Dir:    dir,
		Logger: logger,
		In:     eofReader{},
		Out:    io.Discard,
	})
	if err != nil {
		return fmt.Errorf("assemble app: %w", err)
	}
	defer a.Close()

	engineDone := make(chan error, 1)
	go func() { engineDone <- a.Engine.Run(ctx) }()

	if cfg.Session.Prewarm {
		go a.Prewarm(ctx)
	}

	server, err := daemon.NewServer(daemon.ServerConfig{
		Config: cfg,
		App:    a,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig.String())
		case err := <-engineDone:
			logger.Error("engine stopped", "error", err)
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
		cancel()
	}()

	if err := server.Start(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("daemon stopped")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupLogging writes JSON to a rotated file and text to stderr for
// foreground runs.
func setupLogging(path string, level slog.Level) (*slog.Logger, io.Closer) {
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	opts := &slog.HandlerOptions{Level: level}
	handler := &multiHandler{
		handlers: []slog.Handler{
			slog.NewJSONHandler(file, opts),
			slog.NewTextHandler(os.Stderr, opts),
		},
	}
	return slog.New(handler), file
}

func writePIDFile(path string) error {
	return os.WriteFile(path, fmt.Appendf(nil, "%d\n", os.Getpid()), 0644)
}

// eofReader stands in for stdin, which a detached daemon does not have.
type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

// multiHandler logs to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			errs = append(errs, handler.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
