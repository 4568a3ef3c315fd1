package vocabulary

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/felixgeelhaar/parlance/internal/domain"
)

// Store provides read access to the word list
type Store interface {
	// All returns every entry
	All(ctx context.Context) ([]domain.VocabularyEntry, error)
	// ByLevel returns entries matching level; LevelAny returns all
	ByLevel(ctx context.Context, level domain.Level) ([]domain.VocabularyEntry, error)
}

// MemoryStore is an in-memory Store keyed by lower-cased surface form.
// Later packs override earlier entries for the same word.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []domain.VocabularyEntry
	index   map[string]int
}

// NewMemoryStore creates a store holding the given packs
func NewMemoryStore(packs ...*Pack) *MemoryStore {
	s := &MemoryStore{index: make(map[string]int)}
	for _, p := range packs {
		s.Add(p.Entries...)
	}
	return s
}

// Add inserts or replaces entries
func (s *MemoryStore) Add(entries ...domain.VocabularyEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		key := strings.ToLower(e.SurfaceForm)
		if i, ok := s.index[key]; ok {
			s.entries[i] = e
			continue
		}
		s.index[key] = len(s.entries)
		s.entries = append(s.entries, e)
	}
}

func (s *MemoryStore) All(ctx context.Context) ([]domain.VocabularyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.VocabularyEntry(nil), s.entries...), nil
}

func (s *MemoryStore) ByLevel(ctx context.Context, level domain.Level) ([]domain.VocabularyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.VocabularyEntry(nil), domain.FilterByLevel(s.entries, level)...), nil
}

// Len returns the number of entries
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ Store = (*MemoryStore)(nil)

// Pick returns a uniformly random entry from entries.
func Pick(entries []domain.VocabularyEntry, rng *rand.Rand) (domain.VocabularyEntry, error) {
	if len(entries) == 0 {
		return domain.VocabularyEntry{}, domain.ErrVocabularyEmpty
	}
	if rng == nil {
		return entries[rand.IntN(len(entries))], nil
	}
	return entries[rng.IntN(len(entries))], nil
}
