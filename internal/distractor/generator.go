// Package distractor picks plausible wrong answers for a challenge.
package distractor

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/felixgeelhaar/parlance/internal/domain"
)

// GenericWords seed distractors when the vocabulary pool runs dry.
var GenericWords = []string{
	"moment", "window", "answer", "garden", "silver",
	"promise", "journey", "balance", "pattern", "signal",
	"harvest", "measure",
}

// Generator draws distractors from same-part-of-speech entries first, then
// the whole pool, then GenericWords.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a generator. A nil rng uses a randomly seeded source.
func New(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{rng: rng}
}

// Generate returns exactly count distinct strings, none equal to the
// correct surface form (both compared case-insensitively).
func (g *Generator) Generate(correct domain.VocabularyEntry, pool []domain.VocabularyEntry, count int) []string {
	if count <= 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	used := map[string]bool{normalize(correct.SurfaceForm): true}
	out := make([]string, 0, count)

	take := func(candidates []string) {
		g.rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		for _, c := range candidates {
			if len(out) == count {
				return
			}
			key := normalize(c)
			if key == "" || used[key] {
				continue
			}
			used[key] = true
			out = append(out, strings.TrimSpace(c))
		}
	}

	if pos := correct.PartOfSpeech; pos != "" {
		var same []string
		for _, e := range pool {
			if strings.EqualFold(e.PartOfSpeech, pos) {
				same = append(same, e.SurfaceForm)
			}
		}
		take(same)
	}

	if len(out) < count {
		all := make([]string, 0, len(pool))
		for _, e := range pool {
			all = append(all, e.SurfaceForm)
		}
		take(all)
	}

	if len(out) < count {
		take(append([]string(nil), GenericWords...))
	}

	for n := 1; len(out) < count; n++ {
		placeholder := fmt.Sprintf("option %d", n)
		if !used[placeholder] {
			used[placeholder] = true
			out = append(out, placeholder)
		}
	}

	return out
}

// Options returns correct plus distractors in uniformly shuffled order.
func (g *Generator) Options(correct string, distractors []string) []string {
	options := make([]string, 0, len(distractors)+1)
	options = append(options, correct)
	options = append(options, distractors...)

	g.mu.Lock()
	defer g.mu.Unlock()
	// rand.Shuffle is a Fisher-Yates shuffle.
	g.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
