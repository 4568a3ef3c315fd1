// Package preferences persists user choices that outlive a session.
package preferences

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/parlance/internal/domain"
	"github.com/felixgeelhaar/parlance/internal/storage/local"
)

// Preferences is the persisted record.
type Preferences struct {
	SpeechMode domain.SpeechMode `json:"speech_mode"`
	Level      domain.Level      `json:"level,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Store reads and writes preferences as dir/default.json. defaults are
// returned until something is saved.
type Store struct {
	mu       sync.Mutex
	doc      *local.Document[Preferences]
	defaults Preferences
}

func Open(dir string, defaults Preferences) (*Store, error) {
	doc, err := local.Open[Preferences](dir, "default")
	if err != nil {
		return nil, fmt.Errorf("open preferences: %w", err)
	}
	if defaults.SpeechMode == "" {
		defaults.SpeechMode = domain.SpeechFull
	}
	return &Store{doc: doc, defaults: defaults}, nil
}

// Load returns the saved preferences, falling back to defaults for a
// missing record or unparseable fields.
func (s *Store) Load() (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (Preferences, error) {
	p, err := s.doc.Read()
	if err != nil {
		if errors.Is(err, local.ErrNotFound) {
			return s.defaults, nil
		}
		return s.defaults, fmt.Errorf("load preferences: %w", err)
	}

	if mode, err := domain.ParseSpeechMode(string(p.SpeechMode)); err == nil {
		p.SpeechMode = mode
	} else {
		p.SpeechMode = s.defaults.SpeechMode
	}
	if p.Level != "" {
		if level, err := domain.ParseLevel(string(p.Level)); err == nil {
			p.Level = level
		} else {
			p.Level = s.defaults.Level
		}
	}
	return p, nil
}

// SaveSpeechMode persists the speech mode, keeping other fields.
func (s *Store) SaveSpeechMode(mode domain.SpeechMode) error {
	if _, err := domain.ParseSpeechMode(string(mode)); err != nil {
		return err
	}
	return s.update(func(p *Preferences) { p.SpeechMode = mode })
}

// SaveLevel persists the last chosen level.
func (s *Store) SaveLevel(level domain.Level) error {
	if _, err := domain.ParseLevel(string(level)); err != nil {
		return err
	}
	return s.update(func(p *Preferences) { p.Level = level })
}

func (s *Store) update(fn func(*Preferences)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load()
	if err != nil {
		p = s.defaults
	}
	fn(&p)
	p.UpdatedAt = time.Now().UTC()

	if err := s.doc.Write(p); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}
