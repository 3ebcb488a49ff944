package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/retroshelf/retroshelf/internal/storage"
)

// itemRequest is the JSON body accepted by the create/update endpoints.
// Ids, types and timestamps are controlled server-side.
type itemRequest struct {
	Name                string `json:"name"`
	Subtype             string `json:"subtype"`
	Manufacturer        string `json:"manufacturer"`
	Notes               string `json:"notes"`
	LastMaintenanceDate string `json:"last_maintenance_date"`
	IntervalMonths      int    `json:"maintenance_interval_months"`
}

func (r *itemRequest) toItem(t storage.ItemType) *storage.Item {
	return &storage.Item{
		Name:                r.Name,
		Type:                t,
		Subtype:             r.Subtype,
		Manufacturer:        r.Manufacturer,
		Notes:               r.Notes,
		LastMaintenanceDate: r.LastMaintenanceDate,
		IntervalMonths:      r.IntervalMonths,
	}
}

func (s *Server) handleListConsoles(w http.ResponseWriter, r *http.Request) {
	items, err := s.itemSvc.ListConsoles(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if items == nil {
		items = []*storage.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleListAccessories(w http.ResponseWriter, r *http.Request) {
	items, err := s.itemSvc.ListAccessories(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if items == nil {
		items = []*storage.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateConsole(w http.ResponseWriter, r *http.Request) {
	s.createItem(w, r, storage.ItemTypeConsole)
}

func (s *Server) handleCreateAccessory(w http.ResponseWriter, r *http.Request) {
	s.createItem(w, r, storage.ItemTypeAccessory)
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request, t storage.ItemType) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	created, err := s.itemSvc.CreateItem(r.Context(), req.toItem(t))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.itemSvc.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	// The item's stored type wins; the service refuses type changes.
	updated, err := s.itemSvc.UpdateItem(r.Context(), chi.URLParam(r, "id"), req.toItem(""))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.itemSvc.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
