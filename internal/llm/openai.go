package llm

import (
	"cmp"
	"context"
)

// OpenAIConfig configures an OpenAI-compatible chat completions backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // default: https://api.openai.com
	Model   string // default: gpt-4o-mini
}

type OpenAI struct {
	endpoint
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	base := cmp.Or(cfg.BaseURL, "https://api.openai.com")
	model := cmp.Or(cfg.Model, "gpt-4o-mini")
	return &OpenAI{newEndpoint(base, "/v1/chat/completions", model, map[string]string{
		"Authorization": "Bearer " + cfg.APIKey,
	})}
}

func (o *OpenAI) Name() string { return "openai" }

type openaiRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openaiResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (o *OpenAI) Complete(ctx context.Context, p *Prompt) (*Completion, error) {
	req := openaiRequest{
		Model:       o.modelFor(p),
		Messages:    chatMessages(p),
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
	}
	if p.JSON {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var out openaiResponse
	if err := o.post(ctx, req, &out); err != nil {
		return nil, err
	}

	c := &Completion{
		InputTokens:  out.Usage.PromptTokens,
		OutputTokens: out.Usage.CompletionTokens,
	}
	if len(out.Choices) > 0 {
		c.Text = out.Choices[0].Message.Content
		c.StopReason = out.Choices[0].FinishReason
	}
	return c, nil
}
