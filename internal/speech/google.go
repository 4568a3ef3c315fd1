package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/parlance/internal/resilience"
)

// GoogleConfig configures the Google Cloud Text-to-Speech client.
type GoogleConfig struct {
	APIKey       string
	BaseURL      string // default: https://texttospeech.googleapis.com
	LanguageCode string // default: en-US
	VoiceName    string // optional, e.g. en-US-Neural2-C
	SpeakingRate float64
}

// GoogleSynthesizer calls the Google Cloud TTS REST API and returns MP3 audio.
type GoogleSynthesizer struct {
	cfg        GoogleConfig
	httpClient *http.Client
}

// NewGoogleSynthesizer creates a Google TTS client.
func NewGoogleSynthesizer(cfg GoogleConfig) *GoogleSynthesizer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://texttospeech.googleapis.com"
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &GoogleSynthesizer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type googleSynthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name,omitempty"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate,omitempty"`
	} `json:"audioConfig"`
}

// Synthesize converts text to MP3 audio.
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text string) (Audio, error) {
	if g.cfg.APIKey == "" {
		return Audio{}, resilience.NewError(resilience.ClassAuthentication, fmt.Errorf("google tts: no API key configured"))
	}

	var req googleSynthesizeRequest
	req.Input.Text = text
	req.Voice.LanguageCode = g.cfg.LanguageCode
	req.Voice.Name = g.cfg.VoiceName
	req.AudioConfig.AudioEncoding = "MP3"
	req.AudioConfig.SpeakingRate = g.cfg.SpeakingRate

	body, err := json.Marshal(req)
	if err != nil {
		return Audio{}, resilience.Validation(fmt.Errorf("marshal request: %w", err))
	}

	endpoint := g.cfg.BaseURL + "/v1/text:synthesize?key=" + url.QueryEscape(g.cfg.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Audio{}, resilience.Validation(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		// The URL carries the key, so report only the class of failure.
		if ctx.Err() != nil {
			return Audio{}, resilience.NewError(resilience.ClassTimeout, ctx.Err())
		}
		return Audio{}, resilience.NewError(resilience.ClassNetwork, fmt.Errorf("tts request failed"))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Audio{}, resilience.NewError(resilience.ClassNetwork, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return Audio{}, resilience.StatusError(resp.StatusCode, string(respBody))
	}

	var result struct {
		AudioContent string `json:"audioContent"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Audio{}, resilience.NewError(resilience.ClassServer, fmt.Errorf("parse response: %w", err))
	}

	data, err := base64.StdEncoding.DecodeString(result.AudioContent)
	if err != nil {
		return Audio{}, resilience.NewError(resilience.ClassServer, fmt.Errorf("decode audio: %w", err))
	}

	return Audio{Data: data, ContentType: "audio/mpeg"}, nil
}

var _ Synthesizer = (*GoogleSynthesizer)(nil)
