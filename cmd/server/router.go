package main

import (
	"net/http"

	"github.com/ashureev/kalnadai-care/internal/api"
	"github.com/ashureev/kalnadai-care/internal/config"
	"github.com/ashureev/kalnadai-care/internal/conversation"
	"github.com/ashureev/kalnadai-care/internal/identity"
	"github.com/ashureev/kalnadai-care/internal/middleware"
	"github.com/ashureev/kalnadai-care/internal/realtime"
	"github.com/ashureev/kalnadai-care/internal/store"
	"github.com/ashureev/kalnadai-care/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func newRouter(cfg *config.Config, repo store.Repository, registry *conversation.Registry, hub *realtime.Hub) http.Handler {
	baseHandler := api.NewHandler(repo, registry, cfg.MaxUploadBytes)
	conversationHandler := api.NewConversationHandler(baseHandler)
	pageHandler := web.NewPageHandler(baseHandler)
	wsHandler := realtime.NewHandler(registry, hub, cfg.FrontendURL, cfg.IsDevelopment(), cfg.MaxUploadBytes)

	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))

	// Public routes.
	r.Get("/health", baseHandler.Health)
	r.Handle("/static/*", web.StaticHandler())

	// Everything else is tied to the device cookie.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment(), cfg.DefaultLanguage))
		conversationHandler.RegisterRoutes(r)
		pageHandler.RegisterRoutes(r)
		r.Get("/ws/conversation", wsHandler.ServeHTTP)
	})

	return r
}
