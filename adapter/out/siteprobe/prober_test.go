package siteprobe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractURL(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"url first", "please check [https://example.com/app | Production]", "https://example.com/app"},
		{"label first", "down again: [Production | https://example.com/app]", "https://example.com/app"},
		{"no brackets", "visit https://example.com directly", ""},
		{"no url", "[Production | not-a-url]", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractURL(tt.body); got != tt.want {
				t.Errorf("ExtractURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckSiteUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewProber()
	msg := p.CheckSite(context.Background(), "[ "+srv.URL+" | Staging ]")
	if !strings.Contains(msg, "✅ Site is Up and Running.") {
		t.Errorf("message = %q", msg)
	}
	if !strings.Contains(msg, "📶 Status: HTTP 200") {
		t.Errorf("status line missing: %q", msg)
	}
}

func TestCheckSiteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewProber()
	msg := p.CheckSite(context.Background(), "["+srv.URL+" | prod]")
	if !strings.Contains(msg, "⚠️ Site responded but may have issues.") {
		t.Errorf("message = %q", msg)
	}
	if strings.Contains(msg, "HTTP 2") {
		t.Errorf("5xx must not look healthy: %q", msg)
	}
}

func TestCheckSiteNoURL(t *testing.T) {
	p := NewProber()
	if msg := p.CheckSite(context.Background(), "no links here"); !strings.Contains(msg, "No valid URL") {
		t.Errorf("message = %q", msg)
	}
}

func TestCheckSiteUnreachable(t *testing.T) {
	p := NewProber()
	msg := p.CheckSite(context.Background(), "[http://127.0.0.1:1 | dead]")
	if !strings.Contains(msg, "Down or Unreachable") {
		t.Errorf("message = %q", msg)
	}
}
