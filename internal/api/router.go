package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each dependency probe in /health.
const healthCheckTimeout = 2 * time.Second

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/actions", func(r chi.Router) {
			r.Get("/", s.handleListActions)
			r.Post("/", s.handleCreateAction)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetAction)
				r.Put("/", s.handleUpdateAction)
				r.Delete("/", s.handleDeleteAction)
				r.Post("/invoke", s.handleInvokeAction)
			})
		})

		r.Route("/scenes", func(r chi.Router) {
			r.Get("/", s.handleListScenes)
			r.Post("/", s.handleCreateScene)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetScene)
				r.Put("/", s.handleUpdateScene)
				r.Delete("/", s.handleDeleteScene)
				r.Post("/activate", s.handleActivateScene)
				r.Post("/deactivate", s.handleDeactivateScene)
				r.Post("/toggle", s.handleToggleScene)
			})
		})

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleSaveDevice)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Delete("/", s.handleDeleteDevice)
				r.Post("/commands", s.handleDeviceCommand)
			})
		})

		r.Delete("/rooms/{id}/devices", s.handleRemoveRoomFromDevices)

		r.Route("/modules", func(r chi.Router) {
			r.Get("/", s.handleListModules)
			r.Post("/{id}/enable", s.handleEnableModule)
			r.Post("/{id}/disable", s.handleDisableModule)
		})

		r.Get("/audit", s.handleListAudit)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth reports "ok", or "degraded" when the broker is unreachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	checks := map[string]string{}
	if s.mqtt != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.mqtt.HealthCheck(ctx); err != nil {
			status = "degraded"
			checks["mqtt"] = err.Error()
		} else {
			checks["mqtt"] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  checks,
	})
}
