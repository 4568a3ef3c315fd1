package domain

import (
	"errors"
	"testing"
)

func TestChallengeValidate(t *testing.T) {
	target := VocabularyEntry{SurfaceForm: "example", Level: LevelA1, Definition: "a typical instance"}

	tests := []struct {
		name    string
		c       *Challenge
		wantErr error
	}{
		{
			name: "valid",
			c:    &Challenge{Target: target, ClueText: "For _____, this one.", Options: []string{"sample", "Example", "idea", "cat"}},
		},
		{
			name:    "nil challenge",
			c:       nil,
			wantErr: ErrNoActiveChallenge,
		},
		{
			name:    "three options",
			c:       &Challenge{Target: target, ClueText: "x ___", Options: []string{"example", "a", "b"}},
			wantErr: ErrInvalidChallenge,
		},
		{
			name:    "duplicate ignoring case",
			c:       &Challenge{Target: target, ClueText: "x ___", Options: []string{"example", "Cat", "cat", "b"}},
			wantErr: ErrInvalidChallenge,
		},
		{
			name:    "target missing",
			c:       &Challenge{Target: target, ClueText: "x ___", Options: []string{"a", "b", "c", "d"}},
			wantErr: ErrInvalidChallenge,
		},
		{
			name:    "empty clue",
			c:       &Challenge{Target: target, Options: []string{"example", "b", "c", "d"}},
			wantErr: ErrInvalidChallenge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestChallengeClone(t *testing.T) {
	c := &Challenge{Options: []string{"a", "b", "c", "d"}}
	clone := c.Clone()
	clone.Options[0] = "z"

	if c.Options[0] != "a" {
		t.Error("Clone() should copy options")
	}
	var nilChallenge *Challenge
	if nilChallenge.Clone() != nil {
		t.Error("Clone() of nil should be nil")
	}
}
