package challenge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/parlance/internal/domain"
	"github.com/felixgeelhaar/parlance/internal/llm"
	"github.com/felixgeelhaar/parlance/internal/resilience"
)

const systemPrompt = `You write vocabulary quiz items for English learners.
Reply with a single JSON object and nothing else, using these keys:
"word", "definition", "clue", "example", "part_of_speech", "level", "distractors".
The clue is one sentence that uses the word, with the word replaced by "_____".
The clue must contain exactly one "_____" and must not contain the word itself.
"distractors" holds three different words of the same part of speech that do not fit the clue.`

// LLMProvider generates challenges with a language model.
type LLMProvider struct {
	llm         llm.Provider
	model       string
	temperature float64
}

// LLMProviderConfig configures the model call.
type LLMProviderConfig struct {
	Model       string
	Temperature float64
}

// NewLLMProvider creates a provider backed by p.
func NewLLMProvider(p llm.Provider, cfg LLMProviderConfig) *LLMProvider {
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.9
	}
	return &LLMProvider{llm: p, model: cfg.Model, temperature: cfg.Temperature}
}

func (p *LLMProvider) Generate(ctx context.Context, level domain.Level) (*Payload, error) {
	out, err := p.llm.Complete(ctx, &llm.Prompt{
		Model:       p.model,
		System:      systemPrompt,
		User:        userPrompt(level),
		MaxTokens:   400,
		Temperature: p.temperature,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate challenge with %s: %w", p.llm.Name(), err)
	}
	return ParsePayload(out.Text)
}

func userPrompt(level domain.Level) string {
	if level == domain.LevelAny {
		return "Create one quiz item for a learner at any CEFR level from A1 to B2. Set \"level\" to the level you chose."
	}
	return fmt.Sprintf("Create one quiz item for a learner at CEFR level %s. Set \"level\" to %q.", level, level)
}

// ParsePayload decodes model output, tolerating surrounding prose and
// markdown code fences.
func ParsePayload(content string) (*Payload, error) {
	raw := strings.TrimSpace(content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, resilience.Validation(fmt.Errorf("no JSON object in model output"))
	}

	var p Payload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &p); err != nil {
		return nil, resilience.Validation(fmt.Errorf("decode payload: %w", err))
	}
	return &p, nil
}

var _ Provider = (*LLMProvider)(nil)
