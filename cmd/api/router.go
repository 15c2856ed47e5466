package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appmiddleware "github.com/modhub/platform/internal/middleware"
)

// setupRouter mounts the global middleware stack, then every spec
// endpoint grouped by resource kind under /api/v2.
func setupRouter(c *Container) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(appmiddleware.RequestLogger(c.Logger))
	r.Use(appmiddleware.RecoveryLogger(c.Logger))
	r.Use(appmiddleware.SecurityHeaders)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", handleRoot(c))
	r.Get("/health", handleHealth(c))

	r.Route("/api/v2", func(r chi.Router) {
		r.Use(c.PrincipalMiddleware.OptionalPrincipal)
		if c.RateLimiter != nil {
			r.Use(c.RateLimiter.RateLimitByIP(appmiddleware.DefaultRateLimitConfigs["ip"]))
		}

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", c.ProjectHandler.GetMany)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", c.ProjectHandler.Get)
				r.Patch("/", c.ProjectHandler.Patch)
				r.Delete("/", c.ProjectHandler.Delete)
				r.Post("/follow", c.ProjectHandler.Follow)
				r.Delete("/follow", c.ProjectHandler.Unfollow)
				r.Get("/thread", c.ThreadHandler.Get)
				r.Get("/versions", c.VersionHandler.ListByProject)
				r.Post("/versions", c.VersionHandler.Create)
			})
		})

		r.Route("/versions", func(r chi.Router) {
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", c.VersionHandler.Get)
				r.Patch("/", c.VersionHandler.Patch)
				r.Delete("/", c.VersionHandler.Delete)
				r.Get("/download", c.VersionHandler.Download)
			})
		})

		r.Route("/teams", func(r chi.Router) {
			r.Route("/{teamId}", func(r chi.Router) {
				r.Get("/members", c.TeamHandler.ListMembers)
				r.Post("/members", c.TeamHandler.Invite)
				r.Post("/join", c.TeamHandler.Accept)
				r.Post("/owner", c.TeamHandler.TransferOwnership)
				r.Route("/members/{userId}", func(r chi.Router) {
					r.Patch("/", c.TeamHandler.EditMember)
					r.Delete("/", c.TeamHandler.RemoveMember)
				})
			})
		})

		r.Route("/organizations", func(r chi.Router) {
			r.Get("/", c.OrganizationHandler.GetMany)
			r.Post("/", c.OrganizationHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", c.OrganizationHandler.Get)
				r.Delete("/", c.OrganizationHandler.Delete)
				r.Post("/projects", c.OrganizationHandler.Adopt)
				r.Delete("/projects", c.OrganizationHandler.Release)
			})
		})

		r.Route("/threads", func(r chi.Router) {
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", c.ThreadHandler.Get)
				r.Post("/messages", c.ThreadHandler.PostMessage)
				r.Delete("/messages/{messageId}", c.ThreadHandler.DeleteMessage)
			})
		})
	})

	return r
}

func handleRoot(c *Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"name": "modhub-platform",
			"self": c.Config.SelfAddr,
		})
	}
}

func handleHealth(c *Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.Store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}
}
