package mcp

import (
	"context"
	"fmt"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
	"github.com/felixgeelhaar/parlance/internal/conversation"
	"github.com/felixgeelhaar/parlance/internal/domain"
)

// Quiz is the part of the conversation engine the tools drive.
type Quiz interface {
	Snapshot() conversation.Snapshot
	StartSession(ctx context.Context, level domain.Level, mode domain.SpeechMode) error
	ChangeSpeechMode(ctx context.Context, mode domain.SpeechMode) error
	SubmitManualAnswer(ctx context.Context, text string) error
	SubmitChoice(ctx context.Context, option string) error
	RequestNext(ctx context.Context) error
	RequestHome(ctx context.Context) error
}

// Server wraps the MCP server with quiz tools
type Server struct {
	mcpServer *server.Server
	quiz      Quiz
}

// Config contains configuration for the MCP server
type Config struct {
	Quiz    Quiz
	Version string
}

// NewServer creates a new MCP server for Parlance
func NewServer(cfg Config) *Server {
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}
	s := &Server{quiz: cfg.Quiz}

	s.mcpServer = server.New(server.Info{
		Name:    "parlance",
		Version: cfg.Version,
	}, server.WithInstructions(`
Parlance is a vocabulary quiz. Each round shows a clue with the target word
blanked out and four options. Answer by typing the word or picking an option.

Available tools:
- quiz_start: Start a session at a level (A1, A2, B1, B2 or any)
- quiz_status: Show the current state, clue, options and score
- quiz_answer: Type an answer (silent mode only)
- quiz_choose: Pick one of the four options
- quiz_next: Move to the next word after feedback
- quiz_home: End the session and reset the score
- quiz_mode: Switch between full, concise and silent speech

The target word is only revealed once the round is graded.
`))

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("quiz_start").
		Description("Start a quiz session. Defaults to silent mode.").
		Handler(s.handleStart)

	s.mcpServer.Tool("quiz_status").
		Description("Get the current round and score.").
		Handler(s.handleStatus)

	s.mcpServer.Tool("quiz_answer").
		Description("Submit a typed answer for the current clue.").
		Handler(s.handleAnswer)

	s.mcpServer.Tool("quiz_choose").
		Description("Choose one of the displayed options.").
		Handler(s.handleChoose)

	s.mcpServer.Tool("quiz_next").
		Description("Continue to the next word.").
		Handler(s.handleNext)

	s.mcpServer.Tool("quiz_home").
		Description("End the session and return to setup.").
		Handler(s.handleHome)

	s.mcpServer.Tool("quiz_mode").
		Description("Change the speech mode.").
		Handler(s.handleMode)
}

// Input/Output types for tools

type StartInput struct {
	Level      string `json:"level,omitempty" jsonschema:"description=CEFR level,enum=A1,enum=A2,enum=B1,enum=B2,enum=any"`
	SpeechMode string `json:"speech_mode,omitempty" jsonschema:"description=Speech mode (default: silent),enum=full,enum=concise,enum=silent"`
}

type StatusInput struct{}

type AnswerInput struct {
	Text string `json:"text" jsonschema:"description=The word you think the clue describes"`
}

type ChooseInput struct {
	Option string `json:"option" jsonschema:"description=One of the four displayed options"`
}

type NextInput struct{}

type HomeInput struct{}

type ModeInput struct {
	SpeechMode string `json:"speech_mode" jsonschema:"description=Speech mode,enum=full,enum=concise,enum=silent"`
}

// RoundOutput describes the session after a tool call. Answer is only set
// once the round has been graded.
type RoundOutput struct {
	State      string   `json:"state"`
	Level      string   `json:"level"`
	SpeechMode string   `json:"speech_mode"`
	Clue       string   `json:"clue,omitempty"`
	Options    []string `json:"options,omitempty"`
	Answer     string   `json:"answer,omitempty"`
	Correct    *bool    `json:"correct,omitempty"`
	Attempted  int      `json:"attempted"`
	Score      int      `json:"score"`
	Streak     int      `json:"streak"`
	BestStreak int      `json:"best_streak"`
	Message    string   `json:"message"`
}

// Tool handlers

func (s *Server) handleStart(ctx context.Context, input StartInput) (RoundOutput, error) {
	mode := domain.SpeechMode(input.SpeechMode)
	if mode == "" {
		mode = domain.SpeechSilent
	}
	if err := s.quiz.StartSession(ctx, domain.Level(input.Level), mode); err != nil {
		return RoundOutput{}, fmt.Errorf("failed to start session: %w", err)
	}
	return roundOutput(s.quiz.Snapshot(), nil), nil
}

func (s *Server) handleStatus(ctx context.Context, input StatusInput) (RoundOutput, error) {
	return roundOutput(s.quiz.Snapshot(), nil), nil
}

func (s *Server) handleAnswer(ctx context.Context, input AnswerInput) (RoundOutput, error) {
	return s.graded(ctx, func(ctx context.Context) error {
		return s.quiz.SubmitManualAnswer(ctx, input.Text)
	})
}

func (s *Server) handleChoose(ctx context.Context, input ChooseInput) (RoundOutput, error) {
	return s.graded(ctx, func(ctx context.Context) error {
		return s.quiz.SubmitChoice(ctx, input.Option)
	})
}

func (s *Server) handleNext(ctx context.Context, input NextInput) (RoundOutput, error) {
	if err := s.quiz.RequestNext(ctx); err != nil {
		return RoundOutput{}, fmt.Errorf("failed to continue: %w", err)
	}
	return roundOutput(s.quiz.Snapshot(), nil), nil
}

func (s *Server) handleHome(ctx context.Context, input HomeInput) (RoundOutput, error) {
	before := s.quiz.Snapshot().Stats
	if err := s.quiz.RequestHome(ctx); err != nil {
		return RoundOutput{}, fmt.Errorf("failed to end session: %w", err)
	}
	out := roundOutput(s.quiz.Snapshot(), nil)
	if before.TotalAttempted > 0 {
		out.Message = fmt.Sprintf("Session over: %d of %d correct, best streak %d. %s",
			before.CorrectAnswers, before.TotalAttempted, before.BestStreak, out.Message)
	}
	return out, nil
}

func (s *Server) handleMode(ctx context.Context, input ModeInput) (RoundOutput, error) {
	if err := s.quiz.ChangeSpeechMode(ctx, domain.SpeechMode(input.SpeechMode)); err != nil {
		return RoundOutput{}, fmt.Errorf("failed to change speech mode: %w", err)
	}
	return roundOutput(s.quiz.Snapshot(), nil), nil
}

// graded runs an answer action and reports whether it scored.
func (s *Server) graded(ctx context.Context, submit func(context.Context) error) (RoundOutput, error) {
	before := s.quiz.Snapshot().Stats
	if err := submit(ctx); err != nil {
		return RoundOutput{}, fmt.Errorf("failed to submit answer: %w", err)
	}
	snap := s.quiz.Snapshot()
	correct := snap.Stats.CorrectAnswers > before.CorrectAnswers
	return roundOutput(snap, &correct), nil
}

func roundOutput(snap conversation.Snapshot, correct *bool) RoundOutput {
	out := RoundOutput{
		State:      string(snap.State),
		Level:      string(snap.Level),
		SpeechMode: string(snap.Mode),
		Correct:    correct,
		Attempted:  snap.Stats.TotalAttempted,
		Score:      snap.Stats.CorrectAnswers,
		Streak:     snap.Stats.CurrentStreak,
		BestStreak: snap.Stats.BestStreak,
	}

	if c := snap.Challenge; c != nil {
		out.Clue = c.ClueText
		out.Options = c.Options
		if snap.State == domain.StateFeedback || snap.State == domain.StateAwaitingCommand {
			out.Answer = c.Target.SurfaceForm
		}
	}

	pc := conversation.PromptContext{Challenge: snap.Challenge}
	if correct != nil {
		pc.Correct = *correct
	}
	out.Message = conversation.RenderPrompt(snap.State, domain.SpeechSilent, pc).Text()
	if correct != nil {
		// feedback carries the verdict; the command hint follows
		feedback := conversation.RenderPrompt(domain.StateFeedback, domain.SpeechSilent, pc).Text()
		out.Message = feedback + " " + out.Message
	}
	return out
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport)
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
