package domain

import (
	"fmt"
	"strings"
)

// Level is a CEFR proficiency level attached to vocabulary entries.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"

	// LevelAny is only valid in requests; entries always carry a concrete level.
	LevelAny Level = "any"
)

// Levels lists the concrete levels in ascending order.
func Levels() []Level {
	return []Level{LevelA1, LevelA2, LevelB1, LevelB2}
}

// ParseLevel parses a level case-insensitively.
func ParseLevel(s string) (Level, error) {
	v := strings.TrimSpace(s)
	if strings.EqualFold(v, string(LevelAny)) {
		return LevelAny, nil
	}
	for _, l := range Levels() {
		if strings.EqualFold(v, string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// IsConcrete reports whether l names a real level rather than the any filter.
func (l Level) IsConcrete() bool {
	switch l {
	case LevelA1, LevelA2, LevelB1, LevelB2:
		return true
	}
	return false
}

// Matches reports whether an entry at level entry satisfies a request for l.
func (l Level) Matches(entry Level) bool {
	return l == LevelAny || l == entry
}

func (l Level) String() string {
	return string(l)
}
