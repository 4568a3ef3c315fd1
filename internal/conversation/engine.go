// Package conversation runs the quiz state machine: present a challenge,
// collect an answer, give feedback, then wait for a navigation command.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/parlance/internal/cache"
	"github.com/felixgeelhaar/parlance/internal/challenge"
	"github.com/felixgeelhaar/parlance/internal/domain"
	"github.com/felixgeelhaar/parlance/internal/resilience"
	"github.com/felixgeelhaar/parlance/internal/speech"
)

var (
	// ErrEngineStopped is returned by actions after Run has exited.
	ErrEngineStopped = errors.New("conversation engine stopped")
)

// DefaultRearmDelay is the pause before listening again after a failed
// recognition session.
const DefaultRearmDelay = 300 * time.Millisecond

// ChallengeSource supplies one challenge per round. It must never fail.
type ChallengeSource interface {
	Fetch(ctx context.Context, level domain.Level) *domain.Challenge
}

// EventSink receives domain events. Publishing is best effort.
type EventSink interface {
	Publish(ctx context.Context, event domain.Event) error
}

// PreferenceStore persists the chosen speech mode and level.
type PreferenceStore interface {
	SaveSpeechMode(mode domain.SpeechMode) error
	SaveLevel(level domain.Level) error
}

// Config wires the engine's collaborators. Only Challenges is required.
type Config struct {
	Challenges  ChallengeSource
	Speech      speech.Provider
	Cache       *cache.ResponseCache
	SpeechGuard *resilience.Guard
	Preferences PreferenceStore
	Events      EventSink
	Presenter   Presenter
	Logger      *slog.Logger

	RearmDelay   time.Duration
	InitialLevel domain.Level
	InitialMode  domain.SpeechMode
}

// Snapshot is a consistent copy of the engine's observable state.
type Snapshot struct {
	SessionID uuid.UUID                `json:"session_id"`
	State     domain.ConversationState `json:"state"`
	Mode      domain.SpeechMode        `json:"speech_mode"`
	Level     domain.Level             `json:"level"`
	Stats     domain.SessionStats      `json:"stats"`
	Challenge *domain.Challenge        `json:"challenge,omitempty"`
	Listening bool                     `json:"listening"`
}

type actionKind int

const (
	actionStart actionKind = iota
	actionChangeLevel
	actionChangeMode
	actionManualAnswer
	actionChoice
	actionNext
	actionHome
)

type action struct {
	kind  actionKind
	level domain.Level
	mode  domain.SpeechMode
	text  string
	reply chan error
}

// Engine is the single owner of session state. All transitions run on the
// goroutine executing Run; actions are queued to it and processed one at a
// time.
type Engine struct {
	challenges ChallengeSource
	speaker    *Speaker
	cache      *cache.ResponseCache
	prefs      PreferenceStore
	events     EventSink
	presenter  Presenter
	logger     *slog.Logger
	listener   *Listener
	handles    *handles

	actions chan action
	heard   chan Heard
	done    chan struct{}
	stopErr error

	// Owned by the Run goroutine.
	runCtx    context.Context
	sessionID uuid.UUID
	state     domain.ConversationState
	mode      domain.SpeechMode
	level     domain.Level
	stats     domain.SessionStats
	current   *domain.Challenge
	// inputClosed is set once the recognizer reports exhausted input.
	inputClosed bool

	snapMu sync.RWMutex
	snap   Snapshot
}

// New creates an engine in the setup state. Call Run to start processing.
func New(cfg Config) (*Engine, error) {
	if cfg.Challenges == nil {
		return nil, fmt.Errorf("%w: challenge source required", domain.ErrInvalidInput)
	}
	if cfg.Speech == nil {
		cfg.Speech = speech.NoOp{}
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.New()
	}
	if cfg.Presenter == nil {
		cfg.Presenter = discardPresenter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RearmDelay <= 0 {
		cfg.RearmDelay = DefaultRearmDelay
	}
	if cfg.InitialLevel == "" {
		cfg.InitialLevel = domain.LevelA1
	}
	if cfg.InitialMode == "" {
		cfg.InitialMode = domain.SpeechFull
	}

	heard := make(chan Heard)
	e := &Engine{
		challenges: cfg.Challenges,
		speaker:    NewSpeaker(cfg.Speech, cfg.Cache, cfg.SpeechGuard, cfg.Logger),
		cache:      cfg.Cache,
		prefs:      cfg.Preferences,
		events:     cfg.Events,
		presenter:  cfg.Presenter,
		logger:     cfg.Logger,
		listener:   NewListener(cfg.Speech, heard, cfg.RearmDelay),
		handles:    newHandles(),
		actions:    make(chan action),
		heard:      heard,
		done:       make(chan struct{}),
		state:      domain.StateSetup,
		mode:       cfg.InitialMode,
		level:      cfg.InitialLevel,
	}
	e.publishSnapshot()
	return e, nil
}

// Run processes actions and recognition results until ctx is done or an
// internal invariant is violated, in which case that error is returned.
func (e *Engine) Run(ctx context.Context) error {
	e.runCtx = ctx
	defer func() {
		e.handles.CancelAll()
		e.listener.Stop()
		e.speaker.Stop()
		close(e.done)
	}()

	for {
		select {
		case <-ctx.Done():
			e.stopErr = ErrEngineStopped
			return nil

		case a := <-e.actions:
			err := e.apply(a)
			a.reply <- err
			if challenge.IsInvariantViolation(err) {
				e.logger.Error("conversation invariant violated", "error", err)
				e.stopErr = err
				return err
			}

		case h := <-e.heard:
			if err := e.onHeard(h); challenge.IsInvariantViolation(err) {
				e.logger.Error("conversation invariant violated", "error", err)
				e.stopErr = err
				return err
			}
		}
	}
}

// Done is closed when Run returns.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Snapshot returns the state published after the last transition.
func (e *Engine) Snapshot() Snapshot {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	s := e.snap
	s.Challenge = s.Challenge.Clone()
	return s
}

// Speaker exposes the engine's speaker, e.g. for prewarming at startup.
func (e *Engine) Speaker() *Speaker {
	return e.speaker
}

// -----------------------------------------------------------------------------
// Actions
// -----------------------------------------------------------------------------

// StartSession leaves setup and presents the first challenge. It returns
// once the engine is awaiting an answer.
func (e *Engine) StartSession(ctx context.Context, level domain.Level, mode domain.SpeechMode) error {
	return e.do(ctx, action{kind: actionStart, level: level, mode: mode})
}

// ChangeLevel selects the level for the next session. Only valid in setup.
func (e *Engine) ChangeLevel(ctx context.Context, level domain.Level) error {
	return e.do(ctx, action{kind: actionChangeLevel, level: level})
}

// ChangeSpeechMode switches the speech mode in any state.
func (e *Engine) ChangeSpeechMode(ctx context.Context, mode domain.SpeechMode) error {
	return e.do(ctx, action{kind: actionChangeMode, mode: mode})
}

// SubmitManualAnswer grades typed text. Only valid in silent mode while
// awaiting an answer.
func (e *Engine) SubmitManualAnswer(ctx context.Context, text string) error {
	return e.do(ctx, action{kind: actionManualAnswer, text: text})
}

// SubmitChoice grades one of the displayed options.
func (e *Engine) SubmitChoice(ctx context.Context, option string) error {
	return e.do(ctx, action{kind: actionChoice, text: option})
}

// RequestNext starts the next round from the awaiting-command state.
func (e *Engine) RequestNext(ctx context.Context) error {
	return e.do(ctx, action{kind: actionNext})
}

// RequestHome resets to setup from any state. In-flight fetches and
// backoff waits are cancelled before the request is queued.
func (e *Engine) RequestHome(ctx context.Context) error {
	e.handles.CancelAll()
	return e.do(ctx, action{kind: actionHome})
}

func (e *Engine) do(ctx context.Context, a action) error {
	a.reply = make(chan error, 1)

	select {
	case e.actions <- a:
	case <-e.done:
		return e.stoppedErr()
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-a.reply:
		return err
	case <-e.done:
		select {
		case err := <-a.reply:
			return err
		default:
			return e.stoppedErr()
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) stoppedErr() error {
	if e.stopErr != nil {
		return e.stopErr
	}
	return ErrEngineStopped
}

func (e *Engine) apply(a action) error {
	switch a.kind {
	case actionStart:
		return e.startSession(a.level, a.mode)
	case actionChangeLevel:
		return e.changeLevel(a.level)
	case actionChangeMode:
		return e.changeSpeechMode(a.mode)
	case actionManualAnswer:
		if e.state != domain.StateAwaitingAnswer || e.mode != domain.SpeechSilent {
			return e.invalid("submit manual answer")
		}
		return e.grade(a.text)
	case actionChoice:
		return e.submitChoice(a.text)
	case actionNext:
		if e.state != domain.StateAwaitingCommand {
			return e.invalid("request next")
		}
		e.listener.Stop()
		e.present()
		return nil
	case actionHome:
		e.reset()
		return nil
	}
	return fmt.Errorf("%w: unknown action %d", domain.ErrInvalidInput, a.kind)
}

func (e *Engine) invalid(what string) error {
	return fmt.Errorf("%w: %s in %s", domain.ErrInvalidAction, what, e.state)
}

func (e *Engine) startSession(level domain.Level, mode domain.SpeechMode) error {
	if e.state != domain.StateSetup {
		return e.invalid("start session")
	}
	if level == "" {
		level = e.level
	}
	if mode == "" {
		mode = e.mode
	}
	level, err := domain.ParseLevel(string(level))
	if err != nil {
		return err
	}
	mode, err = domain.ParseSpeechMode(string(mode))
	if err != nil {
		return err
	}

	e.setLevel(level)
	e.setMode(mode)
	e.stats = domain.SessionStats{}
	e.sessionID = uuid.New()
	e.logger.Info("session started", "session_id", e.sessionID, "level", level, "speech_mode", mode)
	e.publish(domain.NewSessionStartedEvent(e.sessionID, level, mode))

	e.present()
	return nil
}

func (e *Engine) changeLevel(level domain.Level) error {
	if e.state != domain.StateSetup {
		return e.invalid("change level")
	}
	level, err := domain.ParseLevel(string(level))
	if err != nil {
		return err
	}
	e.setLevel(level)
	e.refresh()
	return nil
}

func (e *Engine) changeSpeechMode(mode domain.SpeechMode) error {
	mode, err := domain.ParseSpeechMode(string(mode))
	if err != nil {
		return err
	}
	e.setMode(mode)

	if !mode.Voiced() {
		e.listener.Stop()
		e.refresh()
		return nil
	}

	_, purpose, active := e.listener.Current()
	switch {
	case e.state == domain.StateAwaitingAnswer && !(active && purpose == PurposeAnswer):
		e.listen(PurposeAnswer)
	case e.state == domain.StateAwaitingCommand && !(active && purpose == PurposeCommand):
		e.listen(PurposeCommand)
	}
	e.refresh()
	return nil
}

func (e *Engine) setLevel(level domain.Level) {
	e.level = level
	if e.prefs != nil {
		if err := e.prefs.SaveLevel(level); err != nil {
			e.logger.Warn("failed to save level", "error", err)
		}
	}
}

func (e *Engine) setMode(mode domain.SpeechMode) {
	e.mode = mode
	if e.prefs != nil {
		if err := e.prefs.SaveSpeechMode(mode); err != nil {
			e.logger.Warn("failed to save speech mode preference", "error", err)
		}
	}
}

func (e *Engine) submitChoice(option string) error {
	if e.state != domain.StateAwaitingAnswer {
		return e.invalid("submit choice")
	}
	if e.current == nil {
		return domain.ErrNoActiveChallenge
	}
	if !containsFold(e.current.Options, option) {
		return fmt.Errorf("%w: %q is not an option", domain.ErrInvalidInput, option)
	}
	return e.grade(option)
}

// -----------------------------------------------------------------------------
// Transitions
// -----------------------------------------------------------------------------

// present runs the presenting state and moves on to awaiting an answer.
func (e *Engine) present() {
	e.current = nil
	e.transition(domain.StatePresenting)

	ctx, release := e.handles.Track(e.runCtx)
	defer release()

	c := e.challenges.Fetch(ctx, e.level)
	if ctx.Err() != nil {
		// A reset arrived mid-fetch; the queued home action finishes the job.
		e.logger.Debug("presenting interrupted")
		return
	}
	e.current = c
	e.publishSnapshot()
	if c != nil {
		e.publish(domain.NewChallengePresentedEvent(e.sessionID, c))
	}

	prompt := RenderPrompt(domain.StatePresenting, e.mode, PromptContext{Challenge: c})
	e.show(DisplayChallenge, prompt.Text())
	if e.mode.Voiced() {
		if err := e.speaker.Say(ctx, prompt); err != nil {
			e.logger.Warn("failed to speak challenge", "error", err)
		}
		if ctx.Err() != nil {
			return
		}
	}

	e.transition(domain.StateAwaitingAnswer)
	e.show(DisplayHint, RenderPrompt(domain.StateAwaitingAnswer, e.mode, PromptContext{}).Text())
	if e.mode.Voiced() {
		e.listen(PurposeAnswer)
	}
}

// grade records the result and runs feedback into awaiting a command.
func (e *Engine) grade(submitted string) error {
	correct, err := challenge.Grade(e.current, submitted)
	if err != nil {
		return err
	}
	e.listener.Stop()

	e.stats.Record(correct)
	e.logger.Debug("answer graded", "correct", correct, "total", e.stats.TotalAttempted)
	e.publish(domain.NewAnswerGradedEvent(e.sessionID, e.current.Target.SurfaceForm, submitted, correct, e.stats))

	e.transition(domain.StateFeedback)
	prompt := RenderPrompt(domain.StateFeedback, e.mode, PromptContext{Challenge: e.current, Correct: correct})
	e.show(DisplayFeedback, prompt.Text())
	if e.mode.Voiced() {
		ctx, release := e.handles.Track(e.runCtx)
		if err := e.speaker.Say(ctx, prompt); err != nil {
			e.logger.Warn("failed to speak feedback", "error", err)
		}
		release()
	}

	e.transition(domain.StateAwaitingCommand)
	if e.mode.Voiced() {
		e.listen(PurposeCommand)
	} else {
		e.show(DisplayHint, RenderPrompt(domain.StateAwaitingCommand, e.mode, PromptContext{}).Text())
	}
	return nil
}

func (e *Engine) onHeard(h Heard) error {
	if !e.listener.Accept(h) {
		e.logger.Debug("discarding stale recognition result", "purpose", h.Purpose, "generation", h.Generation)
		return nil
	}

	want := domain.StateAwaitingAnswer
	if h.Purpose == PurposeCommand {
		want = domain.StateAwaitingCommand
	}
	if e.state != want || !e.mode.Voiced() {
		return nil
	}

	if h.Err != nil {
		if errors.Is(h.Err, speech.ErrCancelled) {
			return nil
		}
		if errors.Is(h.Err, speech.ErrInputClosed) {
			e.logger.Info("speech input closed, no longer listening")
			e.inputClosed = true
			e.refresh()
			return nil
		}
		e.logger.Warn("recognition failed, listening again", "purpose", h.Purpose, "error", h.Err)
		e.listen(h.Purpose)
		return nil
	}

	if h.Purpose == PurposeAnswer {
		return e.grade(h.Transcript)
	}

	switch ParseCommand(h.Transcript) {
	case CommandNext:
		e.present()
	case CommandHome:
		e.reset()
	default:
		e.logger.Debug("command not understood", "transcript", h.Transcript)
		prompt := RenderPrompt(domain.StateAwaitingCommand, e.mode, PromptContext{Unrecognized: true})
		e.show(DisplayNotice, prompt.Text())
		ctx, release := e.handles.Track(e.runCtx)
		if err := e.speaker.Say(ctx, prompt); err != nil {
			e.logger.Warn("failed to speak prompt", "error", err)
		}
		release()
		e.listen(PurposeCommand)
	}
	return nil
}

// reset tears down in-flight work and returns to setup with fresh stats.
func (e *Engine) reset() {
	e.handles.CancelAll()
	e.listener.Stop()
	e.speaker.Stop()
	e.cache.Clear()

	final := e.stats
	wasActive := e.state != domain.StateSetup
	e.current = nil
	e.stats = domain.SessionStats{}
	e.transition(domain.StateSetup)

	if wasActive {
		e.logger.Info("session reset", "session_id", e.sessionID,
			"attempted", final.TotalAttempted, "correct", final.CorrectAnswers)
		e.publish(domain.NewSessionResetEvent(e.sessionID, final))
	}
	e.show(DisplayNotice, RenderPrompt(domain.StateSetup, e.mode, PromptContext{}).Text())
}

func (e *Engine) listen(purpose Purpose) {
	if e.inputClosed {
		return
	}
	e.listener.Start(e.runCtx, purpose)
	e.publishSnapshot()
}

func (e *Engine) transition(to domain.ConversationState) {
	from := e.state
	e.state = to
	e.publishSnapshot()
	e.logger.Debug("state transition", "from", from, "to", to)
	e.presenter.Show(Display{Kind: DisplayState, Snapshot: e.Snapshot()})
}

// refresh republishes the snapshot for changes that are not transitions.
func (e *Engine) refresh() {
	e.publishSnapshot()
	e.presenter.Show(Display{Kind: DisplayState, Snapshot: e.Snapshot()})
}

func (e *Engine) publishSnapshot() {
	_, _, listening := e.listener.Current()
	s := Snapshot{
		SessionID: e.sessionID,
		State:     e.state,
		Mode:      e.mode,
		Level:     e.level,
		Stats:     e.stats,
		Challenge: e.current.Clone(),
		Listening: listening,
	}
	e.snapMu.Lock()
	e.snap = s
	e.snapMu.Unlock()
}

func (e *Engine) show(kind DisplayKind, text string) {
	if text == "" {
		return
	}
	e.presenter.Show(Display{Kind: kind, Text: text, Snapshot: e.Snapshot()})
}

func (e *Engine) publish(event domain.Event) {
	if e.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(e.runCtx), 2*time.Second)
	defer cancel()
	if err := e.events.Publish(ctx, event); err != nil {
		e.logger.Warn("failed to publish event", "type", event.EventType(), "error", err)
	}
}

func containsFold(options []string, s string) bool {
	s = strings.TrimSpace(s)
	for _, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), s) {
			return true
		}
	}
	return false
}
