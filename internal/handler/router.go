package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/research-desk/backend/internal/handler/research"
	"github.com/zhouzirui/research-desk/backend/internal/handler/session"
	middlewarePkg "github.com/zhouzirui/research-desk/backend/internal/middleware"
	sessionService "github.com/zhouzirui/research-desk/backend/internal/service/session"
	"github.com/zhouzirui/research-desk/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(runner research.Runner, sessions *sessionService.Service, origins *middlewarePkg.OriginPolicy) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(origins.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	researchHandler := research.New(runner, sessions, origins)
	sessionHandler := session.New(sessions)

	// Form page, JSON API and session endpoints; scs saves the session and
	// issues the cookie.
	r.Group(func(app chi.Router) {
		app.Use(middlewarePkg.Sessions(sessions))
		researchHandler.RegisterRoutes(app)
		sessionHandler.RegisterRoutes(app)
	})

	// Long-lived SSE and WebSocket responses only load an existing session.
	r.Group(func(live chi.Router) {
		live.Use(middlewarePkg.LoadSessions(sessions))
		researchHandler.RegisterStreamRoutes(live)
	})

	return r
}
