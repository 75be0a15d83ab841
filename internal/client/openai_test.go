package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aitypeset/typeset-go/internal/settings"
	apperrors "github.com/aitypeset/typeset-go/pkg/errors"
	"go.uber.org/zap"
)

type chatBody struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func openAIConfig(baseURL string) settings.Config {
	cfg := settings.Defaults()
	cfg.OpenAIBaseURL = baseURL + "/v1"
	cfg.OpenAIAPIKey = "sk-test"
	cfg.Model = "gpt-4o-mini"
	cfg.PromptSystem = "format it"
	return cfg
}

func TestOpenAITypesetSuccess(t *testing.T) {
	var got chatBody
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"<p>ok</p>"}}]}`))
	}))
	defer srv.Close()

	out, err := NewOpenAIClient(srv.Client(), zap.NewNop()).
		Typeset(context.Background(), openAIConfig(srv.URL), "<p>raw & unwrapped</p>")
	if err != nil {
		t.Fatal(err)
	}
	if out != "<p>ok</p>" {
		t.Fatalf("got %q", out)
	}

	if path != "/v1/chat/completions" {
		t.Fatalf("path = %q", path)
	}
	if auth != "Bearer sk-test" {
		t.Fatalf("Authorization = %q", auth)
	}
	if got.Model != "gpt-4o-mini" || len(got.Messages) != 2 {
		t.Fatalf("body = %+v", got)
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != "format it" {
		t.Fatalf("system message = %+v", got.Messages[0])
	}
	if got.Messages[1].Role != "user" || got.Messages[1].Content != "<p>raw & unwrapped</p>" {
		t.Fatalf("user message = %+v", got.Messages[1])
	}
}

func TestOpenAIFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   apperrors.Kind
		text   string
	}{
		{"api error", 401, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, apperrors.KindRemoteError, "HTTP 401"},
		{"plain error", 502, `upstream down`, apperrors.KindRemoteError, "HTTP 502"},
		{"no choices", 200, `{"choices":[]}`, apperrors.KindMalformedResponse, "invalid response"},
		{"empty content", 200, `{"choices":[{"message":{"role":"assistant"}}]}`, apperrors.KindMalformedResponse, "invalid response"},
		{"not json", 200, `not json`, apperrors.KindMalformedResponse, "invalid JSON"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewOpenAIClient(srv.Client(), zap.NewNop()).
				Typeset(context.Background(), openAIConfig(srv.URL), "<p>x</p>")
			if !apperrors.Is(err, tc.kind) {
				t.Fatalf("want %s, got %v", tc.kind, err)
			}
			if !strings.Contains(err.Error(), tc.text) {
				t.Fatalf("message %q should contain %q", err.Error(), tc.text)
			}
		})
	}
}

func TestOpenAITransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewOpenAIClient(nil, zap.NewNop()).
		Typeset(context.Background(), openAIConfig(url), "<p>x</p>")
	if !apperrors.Is(err, apperrors.KindTransportError) {
		t.Fatalf("want TransportError, got %v", err)
	}
}

func TestOpenAIUnsupportedModel(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	cfg := openAIConfig(srv.URL)
	cfg.Model = "text-davinci-003"

	_, err := NewOpenAIClient(srv.Client(), zap.NewNop()).Typeset(context.Background(), cfg, "<p>x</p>")
	if !apperrors.Is(err, apperrors.KindInvalidInput) {
		t.Fatalf("want InvalidInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "model not supported") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("no request should be sent, got %d", hits)
	}
}
