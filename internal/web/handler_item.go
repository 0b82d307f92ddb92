package web

import (
	"net/http"

	"github.com/vbonduro/lockerinv/internal/domain"
	"github.com/vbonduro/lockerinv/internal/service"
)

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	var (
		filter domain.ItemFilter
		err    error
	)
	if filter.CategoryID, err = queryID(r, "categoryId"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if filter.LockerID, err = queryID(r, "lockerId"); err != nil {
		s.writeError(w, r, err)
		return
	}
	filter.Query = r.URL.Query().Get("q")

	items, err := s.svc.Items.ListItems(r.Context(), userOf(r).ID, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(items))
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.svc.Items.GetItem(r.Context(), userOf(r).ID, itemID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleCreateItems(w http.ResponseWriter, r *http.Request) {
	var in service.ItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.svc.Items.CreateItems(r.Context(), userOf(r).ID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"items": items})
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in service.ItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.svc.Items.UpdateItem(r.Context(), userOf(r).ID, itemID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Items.DeleteItem(r.Context(), userOf(r).ID, itemID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
