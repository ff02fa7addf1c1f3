package session

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/google/uuid"
	"github.com/zhouzirui/research-desk/backend/internal/model/session"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionBusy     = errors.New("session busy: a research run is already in progress")
)

// Config tunes browser session handling.
type Config struct {
	TTL        time.Duration
	CookieName string
	Secure     bool
}

// Service manages browser sessions. Cookies, expiry and the per-session
// key-value storage are handled by scs; the busy flags of in-flight runs are
// kept here, outside the session store, so expiring a session never drops
// the flag of a run that is still going.
type Service struct {
	manager *scs.SessionManager

	mu   sync.Mutex
	busy map[string]struct{}
}

// NewService bootstraps the session service on an in-memory scs store. A
// zero TTL keeps the scs default lifetime.
func NewService(cfg Config) *Service {
	manager := scs.New()
	manager.Store = memstore.New()
	if cfg.TTL > 0 {
		manager.Lifetime = cfg.TTL
	}
	if cfg.CookieName != "" {
		manager.Cookie.Name = cfg.CookieName
	}
	manager.Cookie.Path = "/"
	manager.Cookie.HttpOnly = true
	manager.Cookie.Secure = cfg.Secure
	manager.Cookie.SameSite = http.SameSiteLaxMode

	return &Service{
		manager: manager,
		busy:    make(map[string]struct{}),
	}
}

// Manager exposes the scs session manager for the HTTP middleware.
func (s *Service) Manager() *scs.SessionManager {
	return s.manager
}

// CookieName is the name of the session cookie.
func (s *Service) CookieName() string {
	return s.manager.Cookie.Name
}

// Load attaches the session identified by token to ctx. An unknown or
// expired token yields an empty session.
func (s *Service) Load(ctx context.Context, token string) (context.Context, error) {
	return s.manager.Load(ctx, token)
}

// Ensure gives the session loaded into ctx a stable id, provisioning one on
// first use. The returned bool reports whether the id was just created.
func (s *Service) Ensure(ctx context.Context) (string, bool) {
	if id := s.ID(ctx); id != "" {
		return id, false
	}
	id := uuid.NewString()
	s.manager.Put(ctx, session.KeyID, id)
	s.manager.Put(ctx, session.KeyCreatedAt, time.Now().Unix())
	log.Printf("[session] started session=%s", id)
	return id, true
}

// ID returns the id of the session loaded into ctx, or "" when there is none.
func (s *Service) ID(ctx context.Context) string {
	return s.manager.GetString(ctx, session.KeyID)
}

// Info describes the session loaded into ctx.
func (s *Service) Info(ctx context.Context) (session.Info, error) {
	id := s.ID(ctx)
	if id == "" {
		return session.Info{}, ErrSessionNotFound
	}
	return session.Info{
		ID:        id,
		ThreadID:  s.manager.GetString(ctx, session.KeyThreadID),
		Busy:      s.Busy(id),
		CreatedAt: time.Unix(s.manager.GetInt64(ctx, session.KeyCreatedAt), 0).UTC(),
		ExpiresAt: s.manager.Deadline(ctx),
	}, nil
}

// End destroys the session loaded into ctx together with its storage. The
// cookie is expired when the response is written.
func (s *Service) End(ctx context.Context) error {
	id := s.ID(ctx)
	if id == "" {
		return ErrSessionNotFound
	}
	if err := s.manager.Destroy(ctx); err != nil {
		return err
	}
	log.Printf("[session] ended session=%s", id)
	return nil
}

// Acquire marks the session busy. It fails with ErrSessionBusy when another
// run already holds it.
func (s *Service) Acquire(id string) error {
	if id == "" {
		return ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.busy[id]; ok {
		return ErrSessionBusy
	}
	s.busy[id] = struct{}{}
	return nil
}

// Release clears the busy flag.
func (s *Service) Release(id string) {
	s.mu.Lock()
	delete(s.busy, id)
	s.mu.Unlock()
}

// Busy reports whether a run is in flight for the session.
func (s *Service) Busy(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.busy[id]
	return ok
}

// Scope returns the key-value storage of the session loaded into ctx.
func (s *Service) Scope(ctx context.Context) *Scope {
	return &Scope{manager: s.manager, ctx: ctx}
}
