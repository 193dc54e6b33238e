package main

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestOriginAllowed(t *testing.T) {
	allowed := buildOriginSet([]string{"https://app.example.com"})

	cases := []struct {
		name   string
		host   string
		origin string
		want   bool
	}{
		{"no origin header", "relay.example.com", "", true},
		{"same origin", "relay.example.com", "http://relay.example.com", true},
		{"same origin with port", "relay.example.com:5000", "http://relay.example.com:5000", true},
		{"same host without port", "relay.example.com:80", "http://relay.example.com", true},
		{"case-insensitive", "relay.example.com", "HTTP://Relay.Example.Com", true},
		{"allowlisted extra origin", "relay.example.com", "https://app.example.com", true},
		{"foreign origin", "relay.example.com", "https://evil.example", false},
		{"scheme mismatch", "relay.example.com", "https://relay.example.com", false},
		{"garbage origin", "relay.example.com", "not a url", false},
	}

	for _, tc := range cases {
		r := httptest.NewRequest("GET", "http://"+tc.host+"/ws/abcdef", nil)
		r.Host = tc.host
		if tc.origin != "" {
			r.Header.Set("Origin", tc.origin)
		}
		if got := originAllowed(r, allowed); got != tc.want {
			t.Errorf("%s: originAllowed = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestOriginAllowedHonorsForwardedProto(t *testing.T) {
	r := httptest.NewRequest("GET", "http://relay.example.com/ws/abcdef", nil)
	r.Host = "relay.example.com"
	r.Header.Set("X-Forwarded-Proto", "https")
	r.Header.Set("Origin", "https://relay.example.com")

	if !originAllowed(r, nil) {
		t.Fatal("expected https origin to match behind a TLS-terminating proxy")
	}
}

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := Config{HSTS: true}

	r := gin.New()
	r.Use(SecurityHeaders(cfg))
	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	csp := w.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "default-src 'self'") || !strings.Contains(csp, "'nonce-") {
		t.Fatalf("unexpected CSP header: %q", csp)
	}
	if got := w.Header().Get("Referrer-Policy"); got != "no-referrer" {
		t.Fatalf("unexpected Referrer-Policy: %q", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("unexpected X-Content-Type-Options: %q", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("unexpected X-Frame-Options: %q", got)
	}
	if w.Header().Get("Strict-Transport-Security") == "" {
		t.Fatal("expected HSTS header when enabled")
	}
}

func TestSecurityHeadersWithoutHSTS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(SecurityHeaders(Config{HSTS: false}))
	r.GET("/", func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("expected no HSTS header when disabled")
	}
}

func TestCSPNonceIsFresh(t *testing.T) {
	if cspNonce() == cspNonce() {
		t.Fatal("expected a fresh nonce per call")
	}
}
