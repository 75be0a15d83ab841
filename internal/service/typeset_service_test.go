package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aitypeset/typeset-go/internal/client"
	"github.com/aitypeset/typeset-go/internal/model"
	"github.com/aitypeset/typeset-go/internal/settings"
	apperrors "github.com/aitypeset/typeset-go/pkg/errors"
	"go.uber.org/zap"
)

type stubBackend struct {
	name   string
	out    string
	err    error
	calls  int
	inputs []string
}

func (b *stubBackend) Name() string { return b.name }

func (b *stubBackend) Typeset(_ context.Context, _ settings.Config, html string) (string, error) {
	b.calls++
	b.inputs = append(b.inputs, html)
	return b.out, b.err
}

type stubResolver struct {
	cfg settings.Config
	err error
}

func (r stubResolver) Resolve(context.Context) (settings.Config, error) { return r.cfg, r.err }

func newService(cfg settings.Config) (*TypesetService, *stubBackend, *stubBackend) {
	hi := &stubBackend{name: settings.MethodHiAgent, out: "<div>hi</div>"}
	oa := &stubBackend{name: settings.MethodOpenAI, out: "<p>oa</p>"}
	return NewTypesetService(stubResolver{cfg: cfg}, hi, oa, 0, zap.NewNop()), hi, oa
}

func configWith(method, hiKey, oaKey string) settings.Config {
	cfg := settings.Defaults()
	cfg.AIMethod = method
	cfg.HiAgentAppKey = hiKey
	cfg.OpenAIAPIKey = oaKey
	return cfg
}

func TestFormatEmptyContent(t *testing.T) {
	svc, hi, oa := newService(configWith("openai", "k", "k"))
	res := svc.Format(context.Background(), "", configWith("openai", "k", "k"))

	if res.OK || res.ErrorMessage != "invalid content" || res.Kind != apperrors.KindInvalidInput {
		t.Fatalf("got %+v", res)
	}
	if hi.calls+oa.calls != 0 {
		t.Fatal("no backend call expected")
	}
}

func TestFormatUnknownMethodUsesOpenAI(t *testing.T) {
	for _, method := range []string{"", "openai", "gemini"} {
		cfg := configWith(method, "hk", "ok")
		svc, hi, oa := newService(cfg)

		res := svc.Format(context.Background(), "<p>x</p>", cfg)
		if !res.OK || res.FormattedHTML != "<p>oa</p>" || res.Backend != settings.MethodOpenAI {
			t.Fatalf("method %q: got %+v", method, res)
		}
		if hi.calls != 0 || oa.calls != 1 {
			t.Fatalf("method %q: hiagent=%d openai=%d", method, hi.calls, oa.calls)
		}
		if oa.inputs[0] != "<p>x</p>" {
			t.Fatalf("openai input must be unwrapped: %q", oa.inputs[0])
		}
	}
}

func TestFormatHiAgentWrapsContent(t *testing.T) {
	cfg := configWith("hiagent", "hk", "")
	svc, hi, oa := newService(cfg)

	for _, h := range []string{"<p>a</p>", "plain text", "<div>nested</div><p>b</p>"} {
		res := svc.Format(context.Background(), h, cfg)
		if !res.OK || res.FormattedHTML != "<div>hi</div>" {
			t.Fatalf("got %+v", res)
		}
		if got := hi.inputs[len(hi.inputs)-1]; got != "<div>"+h+"</div>" {
			t.Fatalf("query = %q", got)
		}
	}
	if oa.calls != 0 {
		t.Fatal("openai must not be called")
	}
}

func TestFormatMissingCredential(t *testing.T) {
	cases := []settings.Config{
		configWith("hiagent", "", "ok"),
		configWith("openai", "hk", ""),
		configWith("bogus", "hk", ""),
	}
	for _, cfg := range cases {
		svc, hi, oa := newService(cfg)
		res := svc.Format(context.Background(), "<p>x</p>", cfg)
		if res.OK || res.Kind != apperrors.KindMissingCredential {
			t.Fatalf("method %q: got %+v", cfg.AIMethod, res)
		}
		if hi.calls+oa.calls != 0 {
			t.Fatalf("method %q: backend called", cfg.AIMethod)
		}
	}
}

func TestFormatMissingHiAgentKeyIssuesNoHTTPCalls(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	cfg := configWith("hiagent", "", "")
	cfg.HiAgentBaseURL = srv.URL
	svc := NewTypesetService(stubResolver{cfg: cfg},
		client.NewHiAgentClient(srv.Client(), zap.NewNop()),
		client.NewOpenAIClient(srv.Client(), zap.NewNop()),
		0, zap.NewNop())

	res := svc.Format(context.Background(), "<p>x</p>", cfg)
	if res.Kind != apperrors.KindMissingCredential || hits != 0 {
		t.Fatalf("kind=%s hits=%d", res.Kind, hits)
	}
}

func TestFormatBackendErrorPassesThrough(t *testing.T) {
	cfg := configWith("openai", "", "ok")
	svc, _, oa := newService(cfg)
	oa.err = apperrors.Remote(500, "Internal Server Error")

	res := svc.Format(context.Background(), "<p>x</p>", cfg)
	if res.OK || res.Kind != apperrors.KindRemoteError || res.ErrorMessage != "HTTP 500 - Internal Server Error" {
		t.Fatalf("got %+v", res)
	}
	if oa.calls != 1 {
		t.Fatalf("expected exactly one call, got %d", oa.calls)
	}
}

func TestTypesetSettingsUnavailable(t *testing.T) {
	hi := &stubBackend{name: settings.MethodHiAgent}
	oa := &stubBackend{name: settings.MethodOpenAI}
	resolverErr := apperrors.Wrap(apperrors.KindSettingsUnavailable, "settings unavailable", errors.New("redis down"))
	svc := NewTypesetService(stubResolver{err: resolverErr}, hi, oa, 0, zap.NewNop())

	res := svc.Typeset(context.Background(), "<p>x</p>")
	if res.OK || res.Kind != apperrors.KindSettingsUnavailable {
		t.Fatalf("got %+v", res)
	}
	if !strings.Contains(res.ErrorMessage, "settings unavailable") {
		t.Fatalf("message %q", res.ErrorMessage)
	}
}

func TestTypesetEndToEndOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"<p>ok</p>"}}]}`))
	}))
	defer srv.Close()

	store := settings.NewMemoryStore(map[string]string{
		settings.KeyOpenAIBaseURL: srv.URL,
		settings.KeyOpenAIAPIKey:  "sk-test",
	})
	svc := NewTypesetService(settings.NewResolver(store, zap.NewNop()),
		client.NewHiAgentClient(srv.Client(), zap.NewNop()),
		client.NewOpenAIClient(srv.Client(), zap.NewNop()),
		5*time.Second, zap.NewNop())

	res := svc.Typeset(context.Background(), "<p>raw</p>")
	if !res.OK || res.FormattedHTML != "<p>ok</p>" {
		t.Fatalf("got %+v", res)
	}
}

func TestTypesetTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := configWith("openai", "", "sk")
	cfg.OpenAIBaseURL = srv.URL
	svc := NewTypesetService(stubResolver{cfg: cfg},
		client.NewHiAgentClient(srv.Client(), zap.NewNop()),
		client.NewOpenAIClient(srv.Client(), zap.NewNop()),
		50*time.Millisecond, zap.NewNop())

	res := svc.Typeset(context.Background(), "<p>x</p>")
	if res.OK || res.Kind != apperrors.KindTransportError {
		t.Fatalf("got %+v", res)
	}
}

func TestHandleAction(t *testing.T) {
	cfg := configWith("openai", "", "ok")
	svc, _, _ := newService(cfg)
	ctx := context.Background()

	resp, n := svc.HandleAction(ctx, model.ActionRequest{})
	if resp.Success || resp.Error != "Invalid request" || n != nil {
		t.Fatalf("empty action: %+v %+v", resp, n)
	}

	resp, n = svc.HandleAction(ctx, model.ActionRequest{Action: "nope"})
	if resp.Success || resp.Error != "Unknown action" || n != nil {
		t.Fatalf("unknown action: %+v %+v", resp, n)
	}

	resp, n = svc.HandleAction(ctx, model.ActionRequest{Action: model.ActionOneClickTypeset, Content: "<p>x</p>"})
	if !resp.Success || resp.FormattedContent != "<p>oa</p>" || n == nil || n.Type != model.NotificationSuccess {
		t.Fatalf("typeset: %+v %+v", resp, n)
	}

	resp, n = svc.HandleAction(ctx, model.ActionRequest{Action: model.ActionAITypeset})
	if resp.Success || resp.Error != "invalid content" || n == nil || n.Type != model.NotificationError {
		t.Fatalf("empty typeset: %+v %+v", resp, n)
	}

	resp, n = svc.HandleAction(ctx, model.ActionRequest{Action: model.ActionShowNotification, Title: "t", Message: "m"})
	if !resp.Success || n == nil || n.Type != model.NotificationInfo || n.Title != "t" {
		t.Fatalf("notification: %+v %+v", resp, n)
	}
}
