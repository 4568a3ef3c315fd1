package domain

import (
	"fmt"
	"strings"
)

// ConversationState is a node of the quiz state machine.
type ConversationState string

const (
	StateSetup           ConversationState = "setup"
	StatePresenting      ConversationState = "presenting"
	StateAwaitingAnswer  ConversationState = "awaiting_answer"
	StateFeedback        ConversationState = "feedback"
	StateAwaitingCommand ConversationState = "awaiting_command"
)

func (s ConversationState) String() string {
	return string(s)
}

// SpeechMode controls how much is spoken and whether listening engages.
type SpeechMode string

const (
	SpeechFull    SpeechMode = "full"
	SpeechConcise SpeechMode = "concise"
	SpeechSilent  SpeechMode = "silent"
)

// ParseSpeechMode parses a speech mode case-insensitively.
func ParseSpeechMode(s string) (SpeechMode, error) {
	switch SpeechMode(strings.ToLower(strings.TrimSpace(s))) {
	case SpeechFull:
		return SpeechFull, nil
	case SpeechConcise:
		return SpeechConcise, nil
	case SpeechSilent:
		return SpeechSilent, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSpeechMode, s)
}

// Voiced reports whether prompts are spoken and the listener engages.
func (m SpeechMode) Voiced() bool {
	return m == SpeechFull || m == SpeechConcise
}

func (m SpeechMode) String() string {
	return string(m)
}
