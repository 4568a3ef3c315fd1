package challenge

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/parlance/internal/domain"
	"github.com/felixgeelhaar/parlance/internal/llm"
	"github.com/felixgeelhaar/parlance/internal/resilience"
)

func TestPayloadValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Payload)
		wantErr bool
	}{
		{"valid", func(p *Payload) {}, false},
		{"missing word", func(p *Payload) { p.Word = " " }, true},
		{"missing definition", func(p *Payload) { p.Definition = "" }, true},
		{"missing clue", func(p *Payload) { p.Clue = "" }, true},
		{"no blank", func(p *Payload) { p.Clue = "No blank here." }, true},
		{"two blanks", func(p *Payload) { p.Clue = "__ and __" }, true},
		{"reveals word", func(p *Payload) { p.Clue = "A resilient child is ___." }, true},
		{"word inside another word is fine", func(p *Payload) { p.Word = "art"; p.Clue = "Let's start the ___ class." }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr {
				if resilience.Classify(err) != resilience.ClassValidation {
					t.Errorf("Validate() = %v, want a validation error", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestPayloadEntry(t *testing.T) {
	p := &Payload{Word: " Cat ", Definition: "pet", PartOfSpeech: "Noun"}

	if got := p.Entry(domain.LevelA2).Level; got != domain.LevelA2 {
		t.Errorf("level = %s, want requested A2", got)
	}
	if got := p.Entry(domain.LevelAny).Level; got != domain.LevelB1 {
		t.Errorf("level = %s, want B1 for any", got)
	}

	p.Level = "b2"
	e := p.Entry(domain.LevelA1)
	if e.Level != domain.LevelB2 || e.SurfaceForm != "Cat" || e.PartOfSpeech != "noun" {
		t.Errorf("entry = %+v", e)
	}
}

func TestParsePayload(t *testing.T) {
	content := "Here you go:\n```json\n{\"word\":\"cat\",\"definition\":\"pet\",\"clue\":\"The ___ sleeps.\"}\n```"
	p, err := ParsePayload(content)
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if p.Word != "cat" || p.Clue != "The ___ sleeps." {
		t.Errorf("payload = %+v", p)
	}

	for _, bad := range []string{"no json", "{not json}"} {
		if _, err := ParsePayload(bad); resilience.Classify(err) != resilience.ClassValidation {
			t.Errorf("ParsePayload(%q) error = %v, want validation", bad, err)
		}
	}
}

func TestMaskClue(t *testing.T) {
	tests := []struct {
		entry domain.VocabularyEntry
		want  string
	}{
		{
			domain.VocabularyEntry{SurfaceForm: "apple", ExampleSentence: "An Apple a day."},
			"An _____ a day.",
		},
		{
			domain.VocabularyEntry{SurfaceForm: "run", Definition: "to move fast", ExampleSentence: "She runs daily."},
			`_____ means "to move fast".`,
		},
		{
			domain.VocabularyEntry{SurfaceForm: "cold", Definition: "low temperature"},
			`_____ means "low temperature".`,
		},
	}

	for _, tt := range tests {
		got := MaskClue(tt.entry)
		if got != tt.want {
			t.Errorf("MaskClue(%s) = %q, want %q", tt.entry.SurfaceForm, got, tt.want)
		}
		if CountBlanks(got) != 1 {
			t.Errorf("MaskClue(%s) has %d blanks", tt.entry.SurfaceForm, CountBlanks(got))
		}
	}
}

type stubLLM struct {
	content string
	err     error
	last    *llm.Prompt
}

func (s *stubLLM) Name() string { return "stub" }

func (s *stubLLM) Complete(ctx context.Context, p *llm.Prompt) (*llm.Completion, error) {
	s.last = p
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Completion{Text: s.content}, nil
}

func TestLLMProvider_Generate(t *testing.T) {
	stub := &stubLLM{content: `{"word":"journey","definition":"a trip","clue":"The ___ took four hours.","level":"A2"}`}
	p := NewLLMProvider(stub, LLMProviderConfig{})

	payload, err := p.Generate(context.Background(), domain.LevelA2)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if payload.Word != "journey" {
		t.Errorf("Word = %q", payload.Word)
	}
	if !stub.last.JSON {
		t.Error("request should ask for JSON output")
	}
	if stub.last.System == "" {
		t.Error("request should carry the system prompt")
	}
}

func TestLLMProvider_KeepsErrorClass(t *testing.T) {
	stub := &stubLLM{err: resilience.StatusError(429, "slow down")}
	p := NewLLMProvider(stub, LLMProviderConfig{})

	_, err := p.Generate(context.Background(), domain.LevelA1)
	if resilience.Classify(err) != resilience.ClassRateLimit {
		t.Errorf("class = %v, want rate_limit", resilience.Classify(err))
	}
}
