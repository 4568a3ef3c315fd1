package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures shared by the vocabulary,
// challenge and conversation packages.
// -----------------------------------------------------------------------------

// Vocabulary errors
var (
	ErrInvalidLevel    = errors.New("invalid level")
	ErrEntryNotFound   = errors.New("vocabulary entry not found")
	ErrVocabularyEmpty = errors.New("vocabulary is empty")
	ErrInvalidEntry    = errors.New("invalid vocabulary entry")
)

// Challenge errors
var (
	ErrNoActiveChallenge = errors.New("no active challenge")
	ErrInvalidChallenge  = errors.New("invalid challenge")
)

// Conversation errors
var (
	ErrInvalidSpeechMode = errors.New("invalid speech mode")
	ErrInvalidAction     = errors.New("action not valid in current state")
)

// General errors
var (
	ErrInvalidInput = errors.New("invalid input")
)
