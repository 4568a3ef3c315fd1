package challenge

import (
	"fmt"

	"github.com/felixgeelhaar/parlance/internal/domain"
)

// builtinEntries keep the fallback path alive even with an empty store.
var builtinEntries = []domain.VocabularyEntry{
	{SurfaceForm: "apple", Level: domain.LevelA1, PartOfSpeech: "noun",
		Definition: "a round fruit with red or green skin", ExampleSentence: "She eats an apple every morning."},
	{SurfaceForm: "happy", Level: domain.LevelA1, PartOfSpeech: "adjective",
		Definition: "feeling or showing pleasure", ExampleSentence: "The children were happy to see the snow."},
	{SurfaceForm: "borrow", Level: domain.LevelA2, PartOfSpeech: "verb",
		Definition: "to take something that you will give back later", ExampleSentence: "Can I borrow your pen for a minute?"},
	{SurfaceForm: "reliable", Level: domain.LevelB1, PartOfSpeech: "adjective",
		Definition: "able to be trusted to do what is expected", ExampleSentence: "He needs a reliable car for the long commute."},
	{SurfaceForm: "mitigate", Level: domain.LevelB2, PartOfSpeech: "verb",
		Definition: "to make something less harmful or serious", ExampleSentence: "Planting trees can mitigate the effects of heat in cities."},
}

// MaskClue builds a clue for entry by blanking the word in its example
// sentence. When the example does not contain the word exactly once, the
// definition template is used instead.
func MaskClue(entry domain.VocabularyEntry) string {
	if entry.ExampleSentence != "" {
		pattern := wordPattern(entry.SurfaceForm)
		if len(pattern.FindAllStringIndex(entry.ExampleSentence, -1)) == 1 {
			return pattern.ReplaceAllLiteralString(entry.ExampleSentence, Blank)
		}
	}
	return fmt.Sprintf("%s means %q.", Blank, entry.Definition)
}
