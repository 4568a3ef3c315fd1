package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/felixgeelhaar/parlance/internal/resilience"
)

func TestGoogleSynthesizer_Synthesize(t *testing.T) {
	var got googleSynthesizeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text:synthesize" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "secret" {
			t.Errorf("key = %q, want secret", r.URL.Query().Get("key"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString([]byte("mp3-bytes")),
		})
	}))
	defer server.Close()

	g := NewGoogleSynthesizer(GoogleConfig{APIKey: "secret", BaseURL: server.URL, VoiceName: "en-US-Neural2-C"})
	audio, err := g.Synthesize(context.Background(), "Correct!")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	if string(audio.Data) != "mp3-bytes" {
		t.Errorf("Data = %q", audio.Data)
	}
	if audio.ContentType != "audio/mpeg" {
		t.Errorf("ContentType = %q", audio.ContentType)
	}
	if got.Input.Text != "Correct!" || got.Voice.LanguageCode != "en-US" || got.Voice.Name != "en-US-Neural2-C" {
		t.Errorf("request = %+v", got)
	}
}

func TestGoogleSynthesizer_Errors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		g := NewGoogleSynthesizer(GoogleConfig{})
		_, err := g.Synthesize(context.Background(), "hi")
		if resilience.Classify(err) != resilience.ClassAuthentication {
			t.Errorf("class = %v, want authentication", resilience.Classify(err))
		}
	})

	t.Run("quota", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota", http.StatusTooManyRequests)
		}))
		defer server.Close()

		g := NewGoogleSynthesizer(GoogleConfig{APIKey: "k", BaseURL: server.URL})
		_, err := g.Synthesize(context.Background(), "hi")
		if resilience.Classify(err) != resilience.ClassRateLimit {
			t.Errorf("class = %v, want rate_limit", resilience.Classify(err))
		}
	})

	t.Run("bad payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"audioContent":"!!not base64!!"}`))
		}))
		defer server.Close()

		g := NewGoogleSynthesizer(GoogleConfig{APIKey: "k", BaseURL: server.URL})
		_, err := g.Synthesize(context.Background(), "hi")
		if resilience.Classify(err) != resilience.ClassServer {
			t.Errorf("class = %v, want server", resilience.Classify(err))
		}
	})
}
