package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/zhouzirui/research-desk/backend/internal/config"
	"github.com/zhouzirui/research-desk/backend/internal/handler"
	middlewarePkg "github.com/zhouzirui/research-desk/backend/internal/middleware"
	"github.com/zhouzirui/research-desk/backend/internal/service/langgraph"
	"github.com/zhouzirui/research-desk/backend/internal/service/research"
	"github.com/zhouzirui/research-desk/backend/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	var opts []langgraph.Option
	if cfg.Research.APIKey != "" {
		opts = append(opts, langgraph.WithAPIKey(cfg.Research.APIKey))
	}
	graphClient, err := langgraph.NewClient(cfg.Research.ServiceURL, opts...)
	if err != nil {
		log.Fatalf("failed to create graph client: %v", err)
	}

	researchService := research.NewService(graphClient, research.Config{
		AssistantID: cfg.Research.AssistantID,
		Timeout:     cfg.Research.RunTimeout,
	})
	log.Printf("research workflow %q at %s", researchService.AssistantID(), cfg.Research.ServiceURL)
	if cfg.Research.RunTimeout == 0 {
		log.Println("no run timeout configured; a stalled stream blocks its session until the client disconnects")
	}

	sessionService := session.NewService(session.Config{
		TTL:        cfg.Session.TTL,
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.SecureOnly,
	})

	origins := middlewarePkg.NewOriginPolicy(cfg.Server.AllowedOrigins)
	if len(cfg.Server.AllowedOrigins) == 0 {
		log.Println("no CORS_ALLOWED_ORIGINS configured; only same-origin browser clients are accepted")
	}
	router := handler.NewRouter(researchService, sessionService, origins)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Research assistant listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
