package conversation

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/parlance/internal/domain"
)

// Segment is one piece of a prompt. Fixed segments never vary between
// rounds, so their synthesized audio is cacheable.
type Segment struct {
	Text  string
	Fixed bool
}

// Prompt is the text for one state, split into segments.
type Prompt struct {
	Segments []Segment
}

// Text joins the segments for display.
func (p Prompt) Text() string {
	parts := make([]string, 0, len(p.Segments))
	for _, s := range p.Segments {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Empty reports whether the prompt has nothing to show.
func (p Prompt) Empty() bool {
	return p.Text() == ""
}

// PromptContext carries the round data a prompt may reference.
type PromptContext struct {
	Challenge    *domain.Challenge
	Correct      bool
	Unrecognized bool
}

// Fixed phrases. Keep these stable: they double as cache keys.
const (
	phraseWelcome        = "Choose a level and a speech mode to begin."
	phraseNextWordFull   = "Here is your next word."
	phraseListeningFull  = "Say your answer when you are ready."
	phraseCorrectFull    = "Correct! Well done."
	phraseIncorrectFull  = "Not quite."
	phraseNavigateFull   = `Say "next word" to continue, or "go home" to finish.`
	phraseRetryFull      = `Sorry, I didn't catch that. Say "next word" or "go home".`
	phraseCorrectShort   = "Correct."
	phraseIncorrectShort = "Wrong."
	phraseNavigateShort  = "Next word, or go home?"
	phraseRetryShort     = "Again? Next word, or go home?"
	phraseCorrectSilent  = "Correct!"
	phraseWrongSilent    = "Not quite."
	phraseAnswerSilent   = "Type your answer or pick an option."
	phraseAnswerVoiced   = "Say your answer or pick an option."
	phraseCommandSilent  = "Press next to continue or home to finish."
)

// RenderPrompt returns the mode-specific prompt for state.
func RenderPrompt(state domain.ConversationState, mode domain.SpeechMode, pc PromptContext) Prompt {
	switch state {
	case domain.StateSetup:
		return Prompt{Segments: []Segment{{Text: phraseWelcome, Fixed: true}}}

	case domain.StatePresenting:
		return presentingPrompt(mode, pc.Challenge)

	case domain.StateAwaitingAnswer:
		if mode.Voiced() {
			return Prompt{Segments: []Segment{{Text: phraseAnswerVoiced, Fixed: true}}}
		}
		return Prompt{Segments: []Segment{{Text: phraseAnswerSilent, Fixed: true}}}

	case domain.StateFeedback:
		return feedbackPrompt(mode, pc)

	case domain.StateAwaitingCommand:
		switch {
		case mode == domain.SpeechSilent:
			return Prompt{Segments: []Segment{{Text: phraseCommandSilent, Fixed: true}}}
		case mode == domain.SpeechConcise && pc.Unrecognized:
			return Prompt{Segments: []Segment{{Text: phraseRetryShort, Fixed: true}}}
		case mode == domain.SpeechConcise:
			return Prompt{Segments: []Segment{{Text: phraseNavigateShort, Fixed: true}}}
		case pc.Unrecognized:
			return Prompt{Segments: []Segment{{Text: phraseRetryFull, Fixed: true}}}
		default:
			return Prompt{Segments: []Segment{{Text: phraseNavigateFull, Fixed: true}}}
		}
	}
	return Prompt{}
}

func presentingPrompt(mode domain.SpeechMode, c *domain.Challenge) Prompt {
	if c == nil {
		return Prompt{}
	}
	options := listOptions(c.Options)

	switch mode {
	case domain.SpeechFull:
		return Prompt{Segments: []Segment{
			{Text: phraseNextWordFull, Fixed: true},
			{Text: c.ClueText},
			{Text: fmt.Sprintf("Is it %s?", options)},
			{Text: phraseListeningFull, Fixed: true},
		}}
	case domain.SpeechConcise:
		return Prompt{Segments: []Segment{
			{Text: c.ClueText},
			{Text: options + "?"},
		}}
	default:
		return Prompt{Segments: []Segment{
			{Text: c.ClueText},
			{Text: "Options: " + strings.Join(c.Options, ", ") + "."},
		}}
	}
}

func feedbackPrompt(mode domain.SpeechMode, pc PromptContext) Prompt {
	word := ""
	if pc.Challenge != nil {
		word = pc.Challenge.Target.SurfaceForm
	}

	switch mode {
	case domain.SpeechFull:
		verdict := phraseIncorrectFull
		if pc.Correct {
			verdict = phraseCorrectFull
		}
		return Prompt{Segments: []Segment{
			{Text: verdict, Fixed: true},
			{Text: fmt.Sprintf("The word was %q.", word)},
			{Text: phraseNavigateFull, Fixed: true},
		}}
	case domain.SpeechConcise:
		verdict := phraseIncorrectShort
		if pc.Correct {
			verdict = phraseCorrectShort
		}
		return Prompt{Segments: []Segment{
			{Text: verdict, Fixed: true},
			{Text: word + "."},
			{Text: phraseNavigateShort, Fixed: true},
		}}
	default:
		verdict := phraseWrongSilent
		if pc.Correct {
			verdict = phraseCorrectSilent
		}
		return Prompt{Segments: []Segment{
			{Text: verdict, Fixed: true},
			{Text: fmt.Sprintf("The word was %q.", word)},
		}}
	}
}

// listOptions renders "a, b, c or d".
func listOptions(options []string) string {
	switch len(options) {
	case 0:
		return ""
	case 1:
		return options[0]
	}
	return strings.Join(options[:len(options)-1], ", ") + " or " + options[len(options)-1]
}

// PriorityPhrases lists the fixed phrases spoken in mode, for prewarming.
func PriorityPhrases(mode domain.SpeechMode) []string {
	switch mode {
	case domain.SpeechFull:
		return []string{
			phraseNextWordFull, phraseListeningFull,
			phraseCorrectFull, phraseIncorrectFull,
			phraseNavigateFull, phraseRetryFull,
		}
	case domain.SpeechConcise:
		return []string{
			phraseCorrectShort, phraseIncorrectShort,
			phraseNavigateShort, phraseRetryShort,
		}
	}
	return nil
}
