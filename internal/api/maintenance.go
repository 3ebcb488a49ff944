package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/retroshelf/retroshelf/internal/maintenance"
)

// handleUpcoming returns the due-soon list: items due within 30 days or
// already overdue, most urgent first.
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	entries, err := s.itemSvc.Upcoming(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []maintenance.ListEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleRecordMaintenance records a completed maintenance for an item. The
// optional body carries the regional date; an empty body means today.
func (s *Server) handleRecordMaintenance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, errInvalidJSONBody)
			return
		}
	}

	item, err := s.itemSvc.RecordMaintenance(r.Context(), chi.URLParam(r, "id"), req.Date)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
