package conversation

import "strings"

// Command is a navigation command recognized in the awaiting-command state.
type Command int

const (
	CommandUnknown Command = iota
	CommandNext
	CommandHome
)

func (c Command) String() string {
	switch c {
	case CommandNext:
		return "next"
	case CommandHome:
		return "home"
	default:
		return "unknown"
	}
}

// ParseCommand matches case-insensitive substrings of a transcript.
// "next word" is checked first, so it wins when both phrases are present.
func ParseCommand(transcript string) Command {
	t := strings.ToLower(strings.Join(strings.Fields(transcript), " "))
	switch {
	case strings.Contains(t, "next word"):
		return CommandNext
	case strings.Contains(t, "go home"):
		return CommandHome
	default:
		return CommandUnknown
	}
}
