// Package api exposes the collection and the maintenance engine over a
// small REST surface consumed by the application frontends.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/retroshelf/retroshelf/internal/history"
	"github.com/retroshelf/retroshelf/internal/service"
)

const errInvalidJSONBody = "invalid JSON body"

// Server holds all dependencies for the REST API handlers.
type Server struct {
	itemSvc service.ItemService
	history history.Store
	logger  *slog.Logger
}

// New creates a new API Server backed by the provided services.
func New(itemSvc service.ItemService, hist history.Store, logger *slog.Logger) *Server {
	return &Server{itemSvc: itemSvc, history: hist, logger: logger}
}

// Mount registers all API routes under the given router.
func (s *Server) Mount(r chi.Router) {
	// Collection CRUD
	r.Get("/consoles", s.handleListConsoles)
	r.Post("/consoles", s.handleCreateConsole)
	r.Get("/accessories", s.handleListAccessories)
	r.Post("/accessories", s.handleCreateAccessory)
	r.Get("/items/{id}", s.handleGetItem)
	r.Put("/items/{id}", s.handleUpdateItem)
	r.Delete("/items/{id}", s.handleDeleteItem)
	r.Post("/items/{id}/maintenance", s.handleRecordMaintenance)

	// Maintenance engine
	r.Get("/maintenance/upcoming", s.handleUpcoming)

	// Notification history
	r.Get("/notifications", s.handleListNotifications)
	r.Get("/notifications/unread-count", s.handleUnreadCount)
	r.Post("/notifications/{id}/read", s.handleMarkRead)
	r.Post("/notifications/read-all", s.handleMarkAllRead)
	r.Delete("/notifications", s.handleClearNotifications)
}

// ─── Shared helpers ───────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps typed service errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var notFound *service.NotFoundError
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, notFound.Error())
		return
	}
	var validation *service.ValidationError
	if errors.As(err, &validation) {
		writeError(w, http.StatusBadRequest, validation.Error())
		return
	}
	s.logger.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
