package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/parlance/internal/resilience"
)

// endpoint is the HTTP plumbing shared by every backend.
type endpoint struct {
	url     string
	model   string
	headers map[string]string
	client  *http.Client
}

func newEndpoint(baseURL, path, model string, headers map[string]string) endpoint {
	return endpoint{
		url:     strings.TrimRight(baseURL, "/") + path,
		model:   model,
		headers: headers,
		client:  newHTTPClient(),
	}
}

// modelFor lets a prompt override the configured model.
func (e endpoint) modelFor(p *Prompt) string {
	if p.Model != "" {
		return p.Model
	}
	return e.model
}

// newHTTPClient is tuned for short, non-streaming completions.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   2,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Timeout: 45 * time.Second, Transport: transport}
}

// post sends payload and decodes a 200 response into out. Failures carry a
// resilience class so the guard can decide whether to retry.
func (e endpoint) post(ctx context.Context, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return resilience.Validation(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return resilience.Validation(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range e.headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		class := resilience.ClassNetwork
		if ctx.Err() != nil {
			class = resilience.ClassTimeout
		}
		return resilience.NewError(class, fmt.Errorf("post %s: %w", e.url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resilience.StatusError(resp.StatusCode, string(snippet))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resilience.NewError(resilience.ClassServer, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// chatMessage is the role/content pair both OpenAI and Ollama accept.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatMessages puts the system text first when present.
func chatMessages(p *Prompt) []chatMessage {
	msgs := make([]chatMessage, 0, 2)
	if p.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: p.System})
	}
	return append(msgs, chatMessage{Role: "user", Content: p.User})
}
