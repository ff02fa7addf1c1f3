package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	model "github.com/zhouzirui/research-desk/backend/internal/model/session"
	session "github.com/zhouzirui/research-desk/backend/internal/service/session"
)

func newService() *session.Service {
	return session.NewService(session.Config{TTL: time.Hour, CookieName: "sid"})
}

func load(t *testing.T, svc *session.Service, token string) context.Context {
	t.Helper()
	ctx, err := svc.Load(context.Background(), token)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	return ctx
}

// commit persists the session in ctx and returns its token.
func commit(t *testing.T, svc *session.Service, ctx context.Context) string {
	t.Helper()
	token, _, err := svc.Manager().Commit(ctx)
	if err != nil {
		t.Fatalf("Commit err: %v", err)
	}
	return token
}

func TestServiceEnsureIsStable(t *testing.T) {
	svc := newService()
	ctx := load(t, svc, "")

	id, created := svc.Ensure(ctx)
	if !created || id == "" {
		t.Fatalf("expected a new session id, got %q (created=%v)", id, created)
	}
	token := commit(t, svc, ctx)

	again := load(t, svc, token)
	got, created := svc.Ensure(again)
	if created || got != id {
		t.Fatalf("expected session %s to be reused, got %s (created=%v)", id, got, created)
	}
}

func TestServiceInfoNotFound(t *testing.T) {
	svc := newService()
	if _, err := svc.Info(load(t, svc, "unknown-token")); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestServiceInfoReportsThreadAndBusy(t *testing.T) {
	svc := newService()
	ctx := load(t, svc, "")
	id, _ := svc.Ensure(ctx)
	if err := svc.Scope(ctx).SetValue(model.KeyThreadID, "thread-1"); err != nil {
		t.Fatalf("SetValue err: %v", err)
	}
	if err := svc.Acquire(id); err != nil {
		t.Fatalf("Acquire err: %v", err)
	}

	info, err := svc.Info(ctx)
	if err != nil {
		t.Fatalf("Info err: %v", err)
	}
	if info.ID != id || info.ThreadID != "thread-1" || !info.Busy {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.CreatedAt.IsZero() || !info.ExpiresAt.After(info.CreatedAt) {
		t.Fatalf("unexpected timestamps: %+v", info)
	}
}

func TestScopeSetValueIsVisibleToLaterRequests(t *testing.T) {
	svc := newService()
	ctx := load(t, svc, "")
	svc.Ensure(ctx)
	token := commit(t, svc, ctx)

	if err := svc.Scope(ctx).SetValue(model.KeyThreadID, "thread-9"); err != nil {
		t.Fatalf("SetValue err: %v", err)
	}

	got, ok := svc.Scope(load(t, svc, token)).Value(model.KeyThreadID)
	if !ok || got != "thread-9" {
		t.Fatalf("expected committed thread id, got %q (ok=%v)", got, ok)
	}
}

func TestServiceAcquireIsExclusive(t *testing.T) {
	svc := newService()
	ctx := load(t, svc, "")
	id, _ := svc.Ensure(ctx)

	if err := svc.Acquire(id); err != nil {
		t.Fatalf("first Acquire err: %v", err)
	}
	if err := svc.Acquire(id); !errors.Is(err, session.ErrSessionBusy) {
		t.Fatalf("expected ErrSessionBusy, got %v", err)
	}
	svc.Release(id)
	if err := svc.Acquire(id); err != nil {
		t.Fatalf("Acquire after Release err: %v", err)
	}
}

func TestServiceAcquireRequiresSession(t *testing.T) {
	if err := newService().Acquire(""); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestServiceEndClearsStorage(t *testing.T) {
	svc := newService()
	ctx := load(t, svc, "")
	svc.Ensure(ctx)
	if err := svc.Scope(ctx).SetValue(model.KeyThreadID, "thread-1"); err != nil {
		t.Fatalf("SetValue err: %v", err)
	}
	token := commit(t, svc, ctx)

	if err := svc.End(ctx); err != nil {
		t.Fatalf("End err: %v", err)
	}
	after := load(t, svc, token)
	if _, ok := svc.Scope(after).Value(model.KeyThreadID); ok {
		t.Fatal("expected storage to be cleared after End")
	}
	if svc.ID(after) != "" {
		t.Fatal("expected the session id to be gone after End")
	}
}

func TestBusyFlagOutlivesSessionRemoval(t *testing.T) {
	svc := newService()
	ctx := load(t, svc, "")
	id, _ := svc.Ensure(ctx)
	commit(t, svc, ctx)

	if err := svc.Acquire(id); err != nil {
		t.Fatalf("Acquire err: %v", err)
	}
	if err := svc.End(ctx); err != nil {
		t.Fatalf("End err: %v", err)
	}

	if !svc.Busy(id) {
		t.Fatal("removing the session must not clear the flag of a running submission")
	}
	if err := svc.Acquire(id); !errors.Is(err, session.ErrSessionBusy) {
		t.Fatalf("expected ErrSessionBusy while the run is in flight, got %v", err)
	}
	svc.Release(id)
	if svc.Busy(id) {
		t.Fatal("expected Release to clear the flag")
	}
}
