package web

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionName   = "lockerinv-session"
	sessionUserID = "user_id"
	sessionMaxAge = 7 * 24 * 60 * 60
)

// NewSessionStore returns the signed cookie store used for browser sessions.
func NewSessionStore(key []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func (s *Server) sessionUserID(r *http.Request) (int64, bool) {
	session, err := s.deps.Sessions.Get(r, sessionName)
	if err != nil {
		// A cookie signed with a rotated key decodes as an error; treat it
		// as logged out.
		return 0, false
	}
	id, ok := session.Values[sessionUserID].(int64)
	return id, ok && id > 0
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, userID int64) error {
	session, _ := s.deps.Sessions.Get(r, sessionName)
	session.Values[sessionUserID] = userID
	return session.Save(r, w)
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.deps.Sessions.Get(r, sessionName)
	delete(session.Values, sessionUserID)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
