package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/vbonduro/lockerinv/internal/auth"
	"github.com/vbonduro/lockerinv/internal/photostore"
	"github.com/vbonduro/lockerinv/internal/ratelimit"
	"github.com/vbonduro/lockerinv/internal/service"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Services groups the application services the handlers call into.
type Services struct {
	Users      *service.UserService
	Lockers    *service.LockerService
	Categories *service.CategoryService
	Items      *service.ItemService
	Dashboard  *service.DashboardService
	Data       *service.DataService
}

// Deps are the collaborators of a Server besides the services.
type Deps struct {
	Sessions sessions.Store
	Tokens   *auth.TokenIssuer
	Limiter  ratelimit.Limiter
	Blobs    photostore.PhotoStore
	DB       Pinger
	Logger   *slog.Logger

	ServiceName    string
	CSRFEnabled    bool
	CSRFKey        []byte
	CookieSecure   bool
	TrustedOrigins []string
}

type Server struct {
	svc     Services
	deps    Deps
	mux     *http.ServeMux
	handler http.Handler
	logger  *slog.Logger
}

func NewServer(svc Services, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.ServiceName == "" {
		deps.ServiceName = "lockerinv"
	}
	s := &Server{
		svc:    svc,
		deps:   deps,
		mux:    http.NewServeMux(),
		logger: deps.Logger,
	}
	s.registerRoutes()

	var h http.Handler = s.mux
	if deps.CSRFEnabled {
		h = csrfProtect(deps.CSRFKey, deps.CookieSecure, deps.TrustedOrigins)(h)
	}
	h = tracing(deps.ServiceName, h)
	h = securityHeaders(h)
	s.handler = requestLogger(s.logger, h)
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	s.mux.HandleFunc("GET /api/auth/csrf", s.handleCSRFToken)
	s.mux.HandleFunc("GET /api/auth/me", s.requireAuth(s.handleMe))
	s.mux.HandleFunc("POST /api/auth/token", s.requireAuth(s.handleIssueToken))
	s.mux.HandleFunc("PUT /api/auth/profile", s.requireAuth(s.handleUpdateProfile))
	s.mux.HandleFunc("DELETE /api/auth/delete-account", s.requireAuth(s.handleDeleteAccount))
	s.mux.HandleFunc("POST /api/upload/profile-picture", s.requireAuth(s.handleUploadProfilePicture))

	s.mux.HandleFunc("GET /api/users", s.requireAdmin(s.handleListUsers))
	s.mux.HandleFunc("POST /api/users", s.requireAdmin(s.handleCreateUser))
	s.mux.HandleFunc("PUT /api/users/{id}", s.requireAdmin(s.handleUpdateUser))
	s.mux.HandleFunc("DELETE /api/users/{id}", s.requireAdmin(s.handleDeleteUser))

	s.mux.HandleFunc("GET /api/lockers", s.requireAuth(s.handleListLockers))
	s.mux.HandleFunc("POST /api/lockers", s.requireAuth(s.handleCreateLocker))
	s.mux.HandleFunc("GET /api/lockers/generate-code", s.requireAuth(s.handleGenerateCode))
	s.mux.HandleFunc("GET /api/lockers/lookup", s.requireAuth(s.handleLockerByCode))
	s.mux.HandleFunc("POST /api/lockers/scan", s.requireAuth(s.handleScanLocker))
	s.mux.HandleFunc("GET /api/lockers/{id}", s.requireAuth(s.handleGetLocker))
	s.mux.HandleFunc("PUT /api/lockers/{id}", s.requireAuth(s.handleUpdateLocker))
	s.mux.HandleFunc("DELETE /api/lockers/{id}", s.requireAuth(s.handleDeleteLocker))
	s.mux.HandleFunc("GET /api/lockers/{id}/qr", s.requireAuth(s.handleLockerQR))
	s.mux.HandleFunc("POST /api/lockers/{id}/photo", s.requireAuth(s.handleUploadPhoto))
	s.mux.HandleFunc("GET /api/lockers/{id}/photo", s.requireAuth(s.handleGetPhoto))
	s.mux.HandleFunc("DELETE /api/lockers/{id}/photo", s.requireAuth(s.handleDeletePhoto))

	s.mux.HandleFunc("GET /api/categories", s.requireAuth(s.handleListCategories))
	s.mux.HandleFunc("POST /api/categories", s.requireAuth(s.handleCreateCategory))
	s.mux.HandleFunc("GET /api/categories/{id}", s.requireAuth(s.handleGetCategory))
	s.mux.HandleFunc("PUT /api/categories/{id}", s.requireAuth(s.handleUpdateCategory))
	s.mux.HandleFunc("DELETE /api/categories/{id}", s.requireAuth(s.handleDeleteCategory))

	s.mux.HandleFunc("GET /api/items", s.requireAuth(s.handleListItems))
	s.mux.HandleFunc("POST /api/items", s.requireAuth(s.handleCreateItems))
	s.mux.HandleFunc("GET /api/items/{id}", s.requireAuth(s.handleGetItem))
	s.mux.HandleFunc("PUT /api/items/{id}", s.requireAuth(s.handleUpdateItem))
	s.mux.HandleFunc("DELETE /api/items/{id}", s.requireAuth(s.handleDeleteItem))

	s.mux.HandleFunc("GET /api/search", s.requireAuth(s.handleSearch))
	s.mux.HandleFunc("GET /api/stats", s.requireAuth(s.handleStats))

	s.mux.HandleFunc("GET /api/data/export", s.requireAuth(s.handleExport))
	s.mux.HandleFunc("POST /api/data/import", s.requireAuth(s.handleImport))
	s.mux.HandleFunc("POST /api/data/reset", s.requireAuth(s.handleReset))

	s.mux.HandleFunc("GET /files/{key}", s.requireAuth(s.handleGetFile))

	s.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Endpoint tidak ditemukan"})
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// HTTPServer returns an *http.Server bound to addr with the timeouts used in
// production. Uploads run vision analysis inline, so writes get a long budget.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if s.deps.DB != nil {
		if err := s.deps.DB.PingContext(ctx); err != nil {
			s.logger.Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
