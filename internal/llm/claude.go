package llm

import (
	"cmp"
	"context"
	"strings"
)

// ClaudeConfig configures the Anthropic Messages API backend.
type ClaudeConfig struct {
	APIKey  string
	BaseURL string // default: https://api.anthropic.com
	Model   string // default: claude-3-5-haiku-latest
}

// Claude completes prompts with Anthropic's Messages API.
type Claude struct {
	endpoint
}

func NewClaude(cfg ClaudeConfig) *Claude {
	base := cmp.Or(cfg.BaseURL, "https://api.anthropic.com")
	model := cmp.Or(cfg.Model, "claude-3-5-haiku-latest")
	return &Claude{newEndpoint(base, "/v1/messages", model, map[string]string{
		"x-api-key":         cfg.APIKey,
		"anthropic-version": "2023-06-01",
	})}
}

func (c *Claude) Name() string { return "claude" }

type claudeRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends the system text as Claude's top-level system field. Claude
// has no JSON switch; the system text asks for JSON instead.
func (c *Claude) Complete(ctx context.Context, p *Prompt) (*Completion, error) {
	req := claudeRequest{
		Model:       c.modelFor(p),
		MaxTokens:   p.MaxTokens,
		System:      p.System,
		Messages:    []chatMessage{{Role: "user", Content: p.User}},
		Temperature: p.Temperature,
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = 512
	}

	var out claudeResponse
	if err := c.post(ctx, req, &out); err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return &Completion{
		Text:         text.String(),
		StopReason:   out.StopReason,
		InputTokens:  out.Usage.InputTokens,
		OutputTokens: out.Usage.OutputTokens,
	}, nil
}
