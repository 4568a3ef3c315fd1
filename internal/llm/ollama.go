package llm

import (
	"cmp"
	"context"
)

// OllamaConfig configures a local Ollama server.
type OllamaConfig struct {
	BaseURL string // default: http://localhost:11434
	Model   string // default: llama3.2
}

// Ollama needs no credentials, so it is the offline choice.
type Ollama struct {
	endpoint
}

func NewOllama(cfg OllamaConfig) *Ollama {
	base := cmp.Or(cfg.BaseURL, "http://localhost:11434")
	return &Ollama{newEndpoint(base, "/api/chat", cmp.Or(cfg.Model, "llama3.2"), nil)}
}

func (o *Ollama) Name() string { return "ollama" }

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format,omitempty"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Message         chatMessage `json:"message"`
	DoneReason      string      `json:"done_reason"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

func (o *Ollama) Complete(ctx context.Context, p *Prompt) (*Completion, error) {
	req := ollamaRequest{Model: o.modelFor(p), Messages: chatMessages(p)}
	if p.JSON {
		req.Format = "json"
	}
	if p.Temperature != 0 || p.MaxTokens != 0 {
		req.Options = &ollamaOptions{Temperature: p.Temperature, NumPredict: p.MaxTokens}
	}

	var out ollamaResponse
	if err := o.post(ctx, req, &out); err != nil {
		return nil, err
	}
	return &Completion{
		Text:         out.Message.Content,
		StopReason:   out.DoneReason,
		InputTokens:  out.PromptEvalCount,
		OutputTokens: out.EvalCount,
	}, nil
}
