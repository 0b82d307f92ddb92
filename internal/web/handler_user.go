package web

import (
	"net/http"

	"github.com/vbonduro/lockerinv/internal/service"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Users.ListUsers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUsers(users))
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in service.UserInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.svc.Users.CreateUser(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("user created by admin", "admin_id", userOf(r).ID, "user_id", user.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"user": toUser(user)})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in service.UserInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.svc.Users.UpdateUser(r.Context(), userOf(r).ID, userID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUser(user)})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	admin := userOf(r)
	if err := s.svc.Users.DeleteUser(r.Context(), admin.ID, userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("user deleted by admin", "admin_id", admin.ID, "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
