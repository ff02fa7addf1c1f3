package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sessionService "github.com/zhouzirui/research-desk/backend/internal/service/session"
)

func newSessions() *sessionService.Service {
	return sessionService.NewService(sessionService.Config{TTL: time.Hour, CookieName: "sid"})
}

func TestSessionsIssuesAndReusesCookie(t *testing.T) {
	svc := newSessions()

	var seen []string
	h := Sessions(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, svc.ID(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := first.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "sid" {
		t.Fatalf("expected session cookie, got %v", cookies)
	}
	if !cookies[0].HttpOnly || cookies[0].SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected cookie attributes: %+v", cookies[0])
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)

	if len(second.Result().Cookies()) != 0 {
		t.Fatal("known session must not be re-issued")
	}
	if len(seen) != 2 || seen[0] == "" || seen[0] != seen[1] {
		t.Fatalf("expected the same session id twice, got %v", seen)
	}
}

func TestSessionsReplacesUnknownCookie(t *testing.T) {
	svc := newSessions()
	h := Sessions(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if svc.ID(r.Context()) == "" {
			t.Error("expected a fresh session id")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "stale"})
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	cookies := resp.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value == "stale" {
		t.Fatalf("expected a fresh cookie, got %v", cookies)
	}
}

func TestLoadSessionsRequiresExistingSession(t *testing.T) {
	svc := newSessions()
	h := LoadSessions(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request without a session must not reach the handler")
	}))

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/research/stream", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if len(resp.Result().Cookies()) != 0 {
		t.Fatal("load-only routes must not issue cookies")
	}
}

func TestLoadSessionsResolvesCookie(t *testing.T) {
	svc := newSessions()
	var issued string
	start := Sessions(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		issued = svc.ID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	first := httptest.NewRecorder()
	start.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))

	var got string
	h := LoadSessions(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = svc.ID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/research/stream", nil)
	req.AddCookie(first.Result().Cookies()[0])
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == "" || got != issued {
		t.Fatalf("expected session %q, got %q", issued, got)
	}
}
