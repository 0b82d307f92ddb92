package web

import (
	"net/http"

	"github.com/vbonduro/lockerinv/internal/service"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.svc.Categories.ListCategories(r.Context(), userOf(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(categories))
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	category, items, err := s.svc.Categories.GetCategoryWithItems(r.Context(), userOf(r).ID, categoryID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"items":    orEmpty(items),
	})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in service.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	category, err := s.svc.Categories.CreateCategory(r.Context(), userOf(r).ID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in service.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	category, err := s.svc.Categories.UpdateCategory(r.Context(), userOf(r).ID, categoryID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := deleteOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Categories.DeleteCategory(r.Context(), userOf(r).ID, categoryID, opts); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
