package web

import (
	"net/http"
)

// handleSearch ignores any userId parameter; the caller is always the
// authenticated user.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	results, err := s.svc.Dashboard.Search(r.Context(), userOf(r).ID, r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":      results.Items,
		"lockers":    toLockers(results.Lockers),
		"categories": results.Categories,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Dashboard.Stats(r.Context(), userOf(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
