package handler

import (
	"fmt"
	"net/http"
	"time"

	"timeline-hub-backend/pkg/config"
	"timeline-hub-backend/pkg/database"
	"timeline-hub-backend/pkg/handlers"
	customMiddleware "timeline-hub-backend/pkg/middleware"
	"timeline-hub-backend/pkg/policy"
	"timeline-hub-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler is the serverless entry point. All endpoints live in one chi router
// so a single function serves the whole API.
func Handler(w http.ResponseWriter, r *http.Request) {
	cfg := config.GetCached()

	if err := cfg.Validate(); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	// The connection is shared across warm invocations; no Close here.
	db := database.GetSharedDatabase(database.DatabaseConfig{
		Driver:      cfg.DatabaseDriver,
		PostgresDSN: cfg.PostgresDSN,
		SQLitePath:  cfg.SQLitePath,
		Debug:       cfg.Debug,
	})

	router := chi.NewRouter()
	setupMiddleware(router, cfg)
	setupRoutes(router, cfg, db)

	router.ServeHTTP(w, r)
}

func setupMiddleware(router *chi.Mux, cfg *config.Config) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(cfg))
	router.Use(customMiddleware.Recovery(cfg))

	router.Use(customMiddleware.CORS(cfg))

	// Stay under the platform's function time limit with some buffer.
	router.Use(middleware.Timeout(25 * time.Second))

	router.Use(middleware.Compress(5))
	router.Use(customMiddleware.MaxBodySize(1 << 20))

	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

func setupRoutes(router *chi.Mux, cfg *config.Config, db database.DatabaseInterface) {
	// One policy stack shared by all handlers. The resolver and engine read
	// raw rows from the store; handlers never check roles themselves.
	resolver := policy.NewResolver(db)
	engine := policy.NewEngine(resolver, db)
	lifecycle := policy.NewLifecycle(db, resolver)

	topicsHandler := handlers.NewTopicsHandler(db, engine)
	eventsHandler := handlers.NewEventsHandler(db, engine)
	orgsHandler := handlers.NewOrganizationsHandler(db, resolver, lifecycle)
	adminHandler := handlers.NewAdminHandler(db, resolver, lifecycle)
	healthHandler := handlers.NewHealthHandler(db)

	router.Get("/", healthHandler.Health)
	router.Get("/health", healthHandler.Health)

	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, database.GetConnectionStats())
		})

		router.Get("/debug/env-check", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, map[string]interface{}{
				"database_driver":  cfg.DatabaseDriver,
				"jwt_secret":       cfg.JWTSecret != "",
				"bootstrap_admins": len(cfg.BootstrapAdminEmails),
				"allowed_origins":  cfg.AllowedOrigins,
			})
		})
	}

	router.Route("/api", func(r chi.Router) {
		// Read endpoints accept anonymous requests; the policy engine limits
		// what each actor can see.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.OptionalAuthMiddleware(cfg, db))

			r.Get("/topics", topicsHandler.ListTopics)
			r.Get("/topics/{topicID}", topicsHandler.GetTopic)
			r.Get("/topics/{topicID}/events", eventsHandler.ListTopicEvents)
			r.Get("/events/{eventID}", eventsHandler.GetEvent)
		})

		// Everything else requires authentication.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(cfg, db))
			r.Use(customMiddleware.ContentTypeJSON)

			r.Route("/topics", func(r chi.Router) {
				r.Post("/", topicsHandler.CreateTopic)
				r.Put("/{topicID}", topicsHandler.UpdateTopic)
				r.Delete("/{topicID}", topicsHandler.DeleteTopic)
				r.Post("/{topicID}/events", eventsHandler.CreateEvent)
			})

			r.Route("/events", func(r chi.Router) {
				r.Put("/{eventID}", eventsHandler.UpdateEvent)
				r.Delete("/{eventID}", eventsHandler.DeleteEvent)
			})

			r.Route("/orgs", func(r chi.Router) {
				r.Get("/", orgsHandler.ListMyOrganizations)
				r.Post("/", orgsHandler.CreateOrganization)
				r.Get("/{orgID}", orgsHandler.GetOrganization)
				r.Put("/{orgID}", orgsHandler.UpdateOrganization)
				r.Get("/{orgID}/members", orgsHandler.ListMembers)
				r.Put("/{orgID}/members", orgsHandler.UpsertMember)
				r.Delete("/{orgID}/members/{userID}", orgsHandler.RemoveMember)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Get("/orgs/pending", adminHandler.ListPendingOrganizations)
				r.Post("/orgs/{orgID}/approve", adminHandler.ApproveOrganization)
				r.Post("/orgs/{orgID}/reject", adminHandler.RejectOrganization)
				r.Put("/users/{userID}/role", adminHandler.SetGlobalRole)
			})
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
