package web

import (
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/csrf"

	"github.com/vbonduro/lockerinv/internal/domain"
	"github.com/vbonduro/lockerinv/internal/service"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.svc.Users.Register(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusCreated, map[string]any{"user": toUser(user)})
}

// clientIP is the remote address without its port. Deployments behind a
// proxy are expected to rewrite RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	key := clientIP(r) + "|" + strings.ToLower(strings.TrimSpace(in.Email))
	retry, err := s.deps.Limiter.Check(ctx, key)
	if err != nil {
		// Fail open: a limiter outage must not lock everyone out.
		s.logger.Warn("rate limiter check failed", "error", err)
	}
	if retry > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "Terlalu banyak percobaan login. Coba lagi nanti"})
		return
	}

	user, err := s.svc.Users.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			if ferr := s.deps.Limiter.Fail(ctx, key); ferr != nil {
				s.logger.Warn("rate limiter record failed", "error", ferr)
			}
		}
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Limiter.Reset(ctx, key); err != nil {
		s.logger.Warn("rate limiter reset failed", "error", err)
	}

	if err := s.startSession(w, r, user.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"user": toUser(user)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.endSession(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if !s.deps.CSRFEnabled {
		writeJSON(w, http.StatusOK, map[string]string{"token": ""})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": csrf.Token(r)})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"user": toUser(userOf(r))})
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	token, expires, err := s.deps.Tokens.Issue(userOf(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"expiresAt": expires.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in service.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.svc.Users.UpdateProfile(r.Context(), userOf(r).ID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUser(user)})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	user := userOf(r)
	if err := s.svc.Users.DeleteAccount(r.Context(), user.ID, in.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.endSession(w, r); err != nil {
		s.logger.Warn("end session after account delete failed", "user_id", user.ID, "error", err)
	}
	s.logger.Info("account deleted", "user_id", user.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUploadProfilePicture(w http.ResponseWriter, r *http.Request) {
	data, mimeType, err := s.readUpload(w, r, "file", maxAvatarSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if mimeType == "image/webp" {
		s.writeError(w, r, badRequest("Format gambar harus JPEG, PNG atau GIF"))
		return
	}
	user, err := s.svc.Users.SetProfilePicture(r.Context(), userOf(r).ID, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"url":  fileURL(user.ProfilePictureKey),
		"user": toUser(user),
	})
}
