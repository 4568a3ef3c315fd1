package domain

import (
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Event Interface and Base Event
// -----------------------------------------------------------------------------

// Event represents a domain event
type Event interface {
	// EventID returns the unique identifier for this event
	EventID() uuid.UUID
	// EventType returns the type name of this event
	EventType() string
	// OccurredAt returns when this event occurred
	OccurredAt() time.Time
	// SessionID returns the quiz session that produced this event
	SessionID() uuid.UUID
}

// BaseEvent provides common event fields
type BaseEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Session   uuid.UUID `json:"session_id"`
}

// NewBaseEvent creates a new BaseEvent
func NewBaseEvent(eventType string, sessionID uuid.UUID) BaseEvent {
	return BaseEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now(),
		Session:   sessionID,
	}
}

func (e BaseEvent) EventID() uuid.UUID    { return e.ID }
func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) SessionID() uuid.UUID  { return e.Session }

// -----------------------------------------------------------------------------
// Quiz Events
// -----------------------------------------------------------------------------

const (
	EventSessionStarted     = "session.started"
	EventChallengePresented = "challenge.presented"
	EventAnswerGraded       = "answer.graded"
	EventSessionReset       = "session.reset"
)

// SessionStartedEvent is published when the user leaves setup
type SessionStartedEvent struct {
	BaseEvent
	Level      Level      `json:"level"`
	SpeechMode SpeechMode `json:"speech_mode"`
}

// NewSessionStartedEvent creates a new session started event
func NewSessionStartedEvent(sessionID uuid.UUID, level Level, mode SpeechMode) SessionStartedEvent {
	return SessionStartedEvent{
		BaseEvent:  NewBaseEvent(EventSessionStarted, sessionID),
		Level:      level,
		SpeechMode: mode,
	}
}

// ChallengePresentedEvent is published each time a round begins
type ChallengePresentedEvent struct {
	BaseEvent
	Word   string          `json:"word"`
	Level  Level           `json:"level"`
	Source ChallengeSource `json:"source"`
}

// NewChallengePresentedEvent creates a new challenge presented event
func NewChallengePresentedEvent(sessionID uuid.UUID, c *Challenge) ChallengePresentedEvent {
	return ChallengePresentedEvent{
		BaseEvent: NewBaseEvent(EventChallengePresented, sessionID),
		Word:      c.Target.SurfaceForm,
		Level:     c.Target.Level,
		Source:    c.Source,
	}
}

// AnswerGradedEvent is published after an answer has been graded
type AnswerGradedEvent struct {
	BaseEvent
	Word      string       `json:"word"`
	Submitted string       `json:"submitted"`
	Correct   bool         `json:"correct"`
	Stats     SessionStats `json:"stats"`
}

// NewAnswerGradedEvent creates a new answer graded event
func NewAnswerGradedEvent(sessionID uuid.UUID, word, submitted string, correct bool, stats SessionStats) AnswerGradedEvent {
	return AnswerGradedEvent{
		BaseEvent: NewBaseEvent(EventAnswerGraded, sessionID),
		Word:      word,
		Submitted: submitted,
		Correct:   correct,
		Stats:     stats,
	}
}

// SessionResetEvent is published when the session returns to setup
type SessionResetEvent struct {
	BaseEvent
	FinalStats SessionStats `json:"final_stats"`
}

// NewSessionResetEvent creates a new session reset event
func NewSessionResetEvent(sessionID uuid.UUID, final SessionStats) SessionResetEvent {
	return SessionResetEvent{
		BaseEvent:  NewBaseEvent(EventSessionReset, sessionID),
		FinalStats: final,
	}
}
