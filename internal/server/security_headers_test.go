package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSecurityHeadersMiddleware_BaselineHeaders(t *testing.T) {
	h := securityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/liveSeller/liveSellerList", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options=%q, want nosniff", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options=%q, want DENY", got)
	}
	if got := rr.Header().Get("Referrer-Policy"); got != "strict-origin-when-cross-origin" {
		t.Fatalf("Referrer-Policy=%q, want strict-origin-when-cross-origin", got)
	}
	if got := rr.Header().Get("Content-Security-Policy"); got == "" {
		t.Fatalf("expected Content-Security-Policy header")
	}
	if got := rr.Header().Get("Strict-Transport-Security"); got != "" {
		t.Fatalf("expected no HSTS on non-HTTPS request, got %q", got)
	}
}

func TestSecurityHeadersMiddleware_SetsHSTSOnHTTPS(t *testing.T) {
	h := securityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/liveSeller/liveSellerList", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Fatalf("Strict-Transport-Security=%q, want max-age=31536000; includeSubDomains", got)
	}
}

func TestTimeoutMiddleware_SkipsWebSocketUpgrade(t *testing.T) {
	var hadDeadline bool
	h := timeoutMiddleware(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadDeadline = r.Context().Deadline()
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name         string
		upgrade      string
		wantDeadline bool
	}{
		{"plain request", "", true},
		{"websocket upgrade", "websocket", false},
		{"mixed case upgrade", "WebSocket", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/liveSeller/events", nil)
		if tt.upgrade != "" {
			req.Header.Set("Upgrade", tt.upgrade)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)
		if hadDeadline != tt.wantDeadline {
			t.Fatalf("%s: deadline=%v, want %v", tt.name, hadDeadline, tt.wantDeadline)
		}
	}
}
