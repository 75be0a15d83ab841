package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aitypeset/typeset-go/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAllowOrigin(t *testing.T) {
	allowed := map[string]bool{"https://sites.ynu.edu.cn": true}
	cases := map[string]bool{
		"chrome-extension://abcdef": true,
		"moz-extension://1234":      true,
		"https://sites.ynu.edu.cn":  true,
		"https://evil.example.com":  false,
		"http://sites.ynu.edu.cn":   false,
	}
	for origin, want := range cases {
		if got := AllowOrigin(origin, allowed); got != want {
			t.Fatalf("AllowOrigin(%q) = %v", origin, got)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://sites.ynu.edu.cn/"}))
	r.POST("/api/typeset", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/typeset", nil)
	req.Header.Set("Origin", "chrome-extension://abc")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "chrome-extension://abc" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestID(), Logger(zap.NewNop()), Metrics())
	r.GET("/x", func(c *gin.Context) {
		seen = logger.RequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "given-id")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if seen != "given-id" || w.Header().Get(RequestIDHeader) != "given-id" {
		t.Fatalf("seen=%q header=%q", seen, w.Header().Get(RequestIDHeader))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Header().Get(RequestIDHeader) == "" || seen == "" {
		t.Fatal("request id should be generated")
	}
}
