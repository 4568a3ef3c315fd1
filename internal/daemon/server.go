package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/parlance/internal/app"
	"github.com/felixgeelhaar/parlance/internal/config"
	"github.com/felixgeelhaar/parlance/internal/conversation"
	"github.com/felixgeelhaar/parlance/internal/domain"
	"github.com/felixgeelhaar/parlance/internal/speech"
)

// Version is reported by the status endpoint.
var Version = "0.1.0"

// Server represents the Parlance daemon HTTP server
type Server struct {
	cfg     *config.LocalConfig
	app     *app.App
	logger  *slog.Logger
	server  *http.Server
	router  *http.ServeMux
	limiter ratelimit.RateLimiter
	started time.Time
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config *config.LocalConfig
	App    *app.App
	Logger *slog.Logger
}

// NewServer creates a new daemon server around an assembled app. The caller
// runs the app's engine.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("daemon: app is required")
	}
	if cfg.Config == nil {
		cfg.Config = cfg.App.Config
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg.Config,
		app:     cfg.App,
		logger:  cfg.Logger,
		router:  http.NewServeMux(),
		started: time.Now(),
	}

	rl := cfg.Config.Daemon.RateLimit
	if rl.RequestsPerSecond > 0 {
		burst := rl.Burst
		if burst < rl.RequestsPerSecond {
			burst = rl.RequestsPerSecond
		}
		s.limiter = ratelimit.New(&ratelimit.Config{
			Rate:     rl.RequestsPerSecond,
			Burst:    burst,
			Interval: time.Second,
		})
	}

	s.setupRoutes()

	mws := []middleware{recoveryMiddleware(s.logger), correlationIDMiddleware, loggingMiddleware(s.logger)}
	if s.limiter != nil {
		mws = append(mws, rateLimitMiddleware(s.limiter))
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Config.Daemon.Bind, cfg.Config.Daemon.Port),
		Handler:      chain(s.router, mws...),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // the display stream stays open
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)

	// Session
	s.router.HandleFunc("GET /v1/session", s.handleGetSession)
	s.router.HandleFunc("POST /v1/session/start", s.handleStart)
	s.router.HandleFunc("PUT /v1/session/level", s.handleChangeLevel)
	s.router.HandleFunc("PUT /v1/session/mode", s.handleChangeMode)
	s.router.HandleFunc("POST /v1/session/answer", s.handleAnswer)
	s.router.HandleFunc("POST /v1/session/choice", s.handleChoice)
	s.router.HandleFunc("POST /v1/session/next", s.handleNext)
	s.router.HandleFunc("POST /v1/session/home", s.handleHome)
	s.router.HandleFunc("POST /v1/session/transcript", s.handleTranscript)
	s.router.HandleFunc("GET /v1/session/stream", s.handleStream)

	// Content
	s.router.HandleFunc("GET /v1/vocabulary", s.handleVocabulary)
	s.router.HandleFunc("GET /v1/audio", s.handleAudio)
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting parlance daemon",
		"addr", s.server.Addr,
		"llm_providers", s.app.LLM.Names(),
		"vocabulary", s.cfg.Vocabulary.Backend,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down daemon...")

	err := s.server.Shutdown(ctx)
	if s.limiter != nil {
		if cerr := s.limiter.Close(); cerr != nil {
			s.logger.Warn("failed to close rate limiter", "error", cerr)
		}
	}
	return err
}

// Handler implementations

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.app.Engine.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "running",
		"version":        Version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"llm_providers":  s.app.LLM.Names(),
		"vocabulary":     s.cfg.Vocabulary.Backend,
		"synthesizer":    s.cfg.Speech.Synthesizer,
		"recognizer":     s.cfg.Speech.Recognizer,
		"cached_phrases": s.app.Cache.Len(),
		"state":          snap.State,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Engine.Snapshot())
}

// StartRequest is the body of POST /v1/session/start. Empty fields keep the
// current selection.
type StartRequest struct {
	Level      string `json:"level"`
	SpeechMode string `json:"speech_mode"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	s.act(w, s.app.Engine.StartSession(r.Context(), domain.Level(req.Level), domain.SpeechMode(req.SpeechMode)))
}

func (s *Server) handleChangeLevel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level string `json:"level"`
	}
	if !decodeBody(w, r, &req, false) {
		return
	}
	s.act(w, s.app.Engine.ChangeLevel(r.Context(), domain.Level(req.Level)))
}

func (s *Server) handleChangeMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SpeechMode string `json:"speech_mode"`
	}
	if !decodeBody(w, r, &req, false) {
		return
	}
	s.act(w, s.app.Engine.ChangeSpeechMode(r.Context(), domain.SpeechMode(req.SpeechMode)))
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &req, false) {
		return
	}
	s.act(w, s.app.Engine.SubmitManualAnswer(r.Context(), req.Text))
}

func (s *Server) handleChoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Option string `json:"option"`
	}
	if !decodeBody(w, r, &req, false) {
		return
	}
	s.act(w, s.app.Engine.SubmitChoice(r.Context(), req.Option))
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.act(w, s.app.Engine.RequestNext(r.Context()))
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.act(w, s.app.Engine.RequestHome(r.Context()))
}

// TranscriptRequest carries the result of client-side speech recognition.
type TranscriptRequest struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if s.app.Remote == nil {
		writeError(w, http.StatusConflict, "remote recognizer not enabled", nil)
		return
	}
	var req TranscriptRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	var err error
	if req.Error != "" {
		err = s.app.Remote.Fail(errors.New(req.Error))
	} else {
		err = s.app.Remote.Deliver(req.Text)
	}
	if errors.Is(err, speech.ErrNotListening) {
		writeError(w, http.StatusConflict, "not listening", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to deliver transcript", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleStream sends every display as a server-sent event until the client
// disconnects or the engine stops.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported", nil)
		return
	}

	displays, unsubscribe := s.app.Display.Subscribe(32)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	current := conversation.Display{Kind: conversation.DisplayState, Snapshot: s.app.Engine.Snapshot()}
	if err := writeEvent(w, current); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.app.Engine.Done():
			fmt.Fprint(w, "event: done\ndata: {}\n\n")
			flusher.Flush()
			return
		case d := <-displays:
			if err := writeEvent(w, d); err != nil {
				s.logger.Debug("display stream closed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, d conversation.Display) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", d.Kind, data)
	return err
}

func (s *Server) handleVocabulary(w http.ResponseWriter, r *http.Request) {
	level := domain.LevelAny
	if q := r.URL.Query().Get("level"); q != "" {
		parsed, err := domain.ParseLevel(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid level", err)
			return
		}
		level = parsed
	}

	entries, err := s.app.Vocabulary.ByLevel(r.Context(), level)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load vocabulary", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"level":   level,
		"count":   len(entries),
		"entries": entries,
	})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	phrase := r.URL.Query().Get("phrase")
	if phrase == "" {
		writeError(w, http.StatusBadRequest, "phrase is required", nil)
		return
	}
	audio, ok := s.app.Cache.Get(phrase)
	if !ok {
		writeError(w, http.StatusNotFound, "phrase not cached", nil)
		return
	}
	contentType := audio.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(audio.Data)
}

// Helper methods

// act replies with the snapshot after a successful action, or maps the
// engine error to a status code.
func (s *Server) act(w http.ResponseWriter, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, s.app.Engine.Snapshot())
		return
	}
	status, message := statusFor(err)
	if status >= 500 {
		s.logger.Error("session action failed", "error", err)
	}
	writeError(w, status, message, err)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidAction):
		return http.StatusConflict, "action not valid in current state"
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidLevel),
		errors.Is(err, domain.ErrInvalidSpeechMode):
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, conversation.ErrEngineStopped):
		return http.StatusServiceUnavailable, "session engine stopped"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled"
	default:
		return http.StatusInternalServerError, "session action failed"
	}
}

// decodeBody reads a JSON body. An empty body is accepted when optional.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	writeError(w, http.StatusBadRequest, "invalid request body", err)
	return false
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	writeJSON(w, status, response)
}
