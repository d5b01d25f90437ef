package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"saral/internal/ratelimit"
	"saral/internal/util"
	"saral/pkg/answer"
	"saral/pkg/auth"
	"saral/pkg/domain"
	"saral/pkg/navigation"
	"saral/pkg/simulate"
	"saral/services/gateway/internal/app"
)

const (
	defaultCookieName     = "saral_session"
	defaultMaxUploadBytes = 200 << 20
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
	Hub *Hub
	// LoginLimiter throttles login attempts per client IP. Nil disables it.
	LoginLimiter   ratelimit.Limiter
	TrustedProxies *util.TrustedProxies
	AllowedOrigins []string
	CookieName     string
	CookieSecure   bool
	SessionTTL     time.Duration
	MaxUploadBytes int64
}

// Server exposes the dashboard pages and the JSON API.
type Server struct {
	app            *app.App
	hub            *Hub
	mux            *http.ServeMux
	pages          *pages
	loginLimiter   ratelimit.Limiter
	trusted        *util.TrustedProxies
	allowedOrigins []string
	cookieName     string
	cookieSecure   bool
	sessionTTL     time.Duration
	maxUploadBytes int64
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	if cfg.Hub == nil {
		return nil, errors.New("event hub required")
	}
	p, err := loadPages()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	s := &Server{
		app:            cfg.App,
		hub:            cfg.Hub,
		mux:            http.NewServeMux(),
		pages:          p,
		loginLimiter:   cfg.LoginLimiter,
		trusted:        cfg.TrustedProxies,
		allowedOrigins: cfg.AllowedOrigins,
		cookieName:     cfg.CookieName,
		cookieSecure:   cfg.CookieSecure,
		sessionTTL:     cfg.SessionTTL,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
	if s.cookieName == "" {
		s.cookieName = defaultCookieName
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = defaultMaxUploadBytes
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.allowedOrigins, s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// pages
	s.mux.HandleFunc("/", s.handleLanding)
	s.mux.Handle("/static/", staticHandler())
	s.mux.HandleFunc("/login", s.handleLoginForm)
	s.mux.HandleFunc("/logout", s.handleLogoutForm)
	s.mux.HandleFunc("/dashboard", s.handleDashboardPage)
	s.mux.HandleFunc("/dashboard/", s.handleDashboardAction)

	// auth
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.Handle("/api/auth/logout", s.authenticated(s.handleLogout))
	s.mux.Handle("/api/users/me", s.authenticated(s.handleMe))
	s.mux.Handle("/api/navigation", s.authenticated(s.handleNavigation))

	// ask (both roles)
	s.mux.Handle("/api/ask", s.authenticated(s.handleAsk))
	s.mux.Handle("/api/ask/messages", s.authenticated(s.handleMessages))
	s.mux.Handle("/ws", s.authenticated(s.handleEvents))

	// officer panels
	s.mux.Handle("/api/uploads/items", s.officerOnly(s.handleUploadItems))
	s.mux.Handle("/api/uploads/items/", s.officerOnly(s.handleUploadItemByID))
	s.mux.Handle("/api/uploads/start", s.officerOnly(s.handleUploadStart))
	s.mux.Handle("/api/connect/", s.officerOnly(s.handleConnect))
	s.mux.Handle("/api/history/uploads", s.officerOnly(s.handleUploadHistory))
	s.mux.Handle("/api/history/queries", s.officerOnly(s.handleQueryHistory))
	s.mux.Handle("/api/settings", s.officerOnly(s.handleSettings))
	s.mux.Handle("/api/dashboard", s.officerOnly(s.handleDashboard))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, *app.Workspace)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, ws)
	})
}

func (s *Server) officerOnly(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if ws.User().Role != domain.RoleOfficer {
			s.audit(r, "gateway.officer.authorize", "fail", "email", ws.User().Email, "reason", "forbidden")
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r, ws)
	})
}

func (s *Server) authorize(r *http.Request) (*app.Workspace, bool) {
	token, ok := s.sessionToken(r)
	if !ok {
		s.audit(r, "gateway.session.verify", "fail", "reason", "missing_token")
		return nil, false
	}
	ws, ok := s.app.Workspace(r.Context(), token)
	if !ok {
		s.audit(r, "gateway.session.verify", "fail", "reason", "invalid_session")
		return nil, false
	}
	return ws, true
}

// sessionToken reads the bearer token, falling back to the session cookie.
func (s *Server) sessionToken(r *http.Request) (string, bool) {
	if token, ok := bearerToken(r); ok {
		return token, true
	}
	c, err := r.Cookie(s.cookieName)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(c.Value)
	return token, token != ""
}

// login signs a user in and sets the session cookie. Both the JSON API and
// the landing form go through it.
func (s *Server) login(w http.ResponseWriter, r *http.Request, email, password string) (*app.Workspace, string, error) {
	user, token, err := s.app.Login(r.Context(), email, password)
	if err != nil {
		reason := "internal"
		if errors.Is(err, auth.ErrInvalidCredentials) {
			reason = "invalid_credentials"
		}
		s.audit(r, "gateway.login", "fail", "reason", reason)
		return nil, "", err
	}
	s.audit(r, "gateway.login", "success", "email", user.Email, "role", user.Role)
	ws, ok := s.app.Workspace(r.Context(), token)
	if !ok {
		return nil, "", app.ErrSessionEnded
	}
	s.setSessionCookie(w, token)
	return ws, token, nil
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) error {
	token, ok := s.sessionToken(r)
	s.clearSessionCookie(w)
	if !ok {
		return nil
	}
	if err := s.app.Logout(token); err != nil {
		s.audit(r, "gateway.logout", "fail", "reason", err.Error())
		return err
	}
	s.audit(r, "gateway.logout", "success")
	return nil
}

// auth handlers
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, "too many login attempts") {
		s.audit(r, "gateway.login", "rate_limited")
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.audit(r, "gateway.login", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	ws, token, err := s.login(w, r, req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:      token,
		User:       ws.User(),
		Navigation: ws.Navigation(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ *app.Workspace) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.logout(w, r); err != nil {
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: ws.User(), Initials: ws.User().Initials(), Navigation: ws.Navigation()})
}

func (s *Server) handleNavigation(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, ws.Navigation())
	case http.MethodPost:
		var req navigationRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		nav, err := ws.SelectPanel(req.Panel)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, nav)
	default:
		methodNotAllowed(w)
	}
}

// /api/ask
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req askRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	msg, err := ws.Ask(r.Context(), req.Query)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	msgs := ws.Messages()
	writeJSON(w, http.StatusOK, map[string]any{
		"items":    msgs,
		"count":    len(msgs),
		"examples": answer.ExampleQueries,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	s.hub.ServeWS(w, r, ws.ID())
}

// /api/uploads
func (s *Server) handleUploadItems(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	switch r.Method {
	case http.MethodGet:
		items := ws.Items()
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
	case http.MethodPost:
		s.handleAddItems(w, r, ws)
	case http.MethodDelete:
		if err := ws.ClearItems(); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAddItems(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	headers := formFiles(r.MultipartForm)
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, simulate.ErrNoFiles.Error())
		return
	}
	for _, header := range headers {
		if err := simulate.AcceptFile(header.Filename, header.Size); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	added := make([]domain.UploadItem, 0, len(headers))
	for _, header := range headers {
		data, err := readFormFile(header)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read "+header.Filename)
			return
		}
		item, err := ws.AddItem(header.Filename, header.Header.Get("Content-Type"), data)
		if err != nil {
			writeAppError(w, err)
			return
		}
		added = append(added, item)
	}
	writeJSON(w, http.StatusCreated, map[string]any{"items": added, "count": len(added)})
}

func (s *Server) handleUploadItemByID(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/uploads/items/"), "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "item id is required")
		return
	}
	if err := ws.RemoveItem(id); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUploadStart(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if _, err := ws.StartUpload(); err != nil {
		writeAppError(w, err)
		return
	}
	items := ws.Items()
	writeJSON(w, http.StatusAccepted, map[string]any{"status": domain.UploadUploading, "items": items})
}

// /api/connect/{web,database}
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	kind := domain.ConnectKind(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/connect/"), "/"))
	switch r.Method {
	case http.MethodGet:
		state, err := ws.ConnectState(kind)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	case http.MethodPost:
		var req connectRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := ws.Connect(kind, req.Input); err != nil {
			writeAppError(w, err)
			return
		}
		state, _ := ws.ConnectState(kind)
		writeJSON(w, http.StatusAccepted, state)
	default:
		methodNotAllowed(w)
	}
}

// /api/history
func (s *Server) handleUploadHistory(w http.ResponseWriter, r *http.Request, _ *app.Workspace) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	items, err := s.app.UploadHistory(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) handleQueryHistory(w http.ResponseWriter, r *http.Request, _ *app.Workspace) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	items, err := s.app.QueryHistory(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.app.Settings(r.Context(), ws.User())
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var req settingsRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		settings, err := s.app.SaveSettings(r.Context(), ws.User(), req.Notifications)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settingsResponse{Settings: settings, Message: app.SettingsSavedMessage})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, _ *app.Workspace) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	overview, err := s.app.Dashboard(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token      string             `json:"token"`
	User       domain.User        `json:"user"`
	Navigation app.NavigationView `json:"navigation"`
}

type meResponse struct {
	User       domain.User        `json:"user"`
	Initials   string             `json:"initials"`
	Navigation app.NavigationView `json:"navigation"`
}

type navigationRequest struct {
	Panel domain.Panel `json:"panel"`
}

type askRequest struct {
	Query string `json:"query"`
}

type connectRequest struct {
	Input string `json:"input"`
}

type settingsRequest struct {
	Notifications domain.NotificationPrefs `json:"notifications"`
}

type settingsResponse struct {
	Settings domain.Settings `json:"settings"`
	Message  string          `json:"message"`
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

func formFiles(form *multipart.Form) []*multipart.FileHeader {
	if form == nil {
		return nil
	}
	headers := append([]*multipart.FileHeader(nil), form.File["files"]...)
	return append(headers, form.File["file"]...)
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps domain errors to HTTP statuses. Known errors keep their
// message since it is the toast the dashboard shows.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, app.ErrSessionEnded):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, answer.ErrEmptyQuery),
		errors.Is(err, answer.ErrQueryTooLong),
		errors.Is(err, simulate.ErrNoFiles),
		errors.Is(err, simulate.ErrUnsupportedType),
		errors.Is(err, simulate.ErrFileTooLarge),
		errors.Is(err, simulate.ErrInvalidURL),
		errors.Is(err, simulate.ErrInvalidConnectionString):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, navigation.ErrPanelNotAllowed):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, app.ErrItemNotFound), errors.Is(err, app.ErrUnknownConnect):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, answer.ErrResponderBusy),
		errors.Is(err, app.ErrUploadBusy),
		errors.Is(err, app.ErrItemNotPending),
		errors.Is(err, simulate.ErrConnectBusy):
		return http.StatusConflict, err.Error()
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "request cancelled"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeAppError(w http.ResponseWriter, err error) {
	status, msg := errorStatus(err)
	writeError(w, status, msg)
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trusted),
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, msg string) bool {
	if s.loginLimiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trusted)
	if s.loginLimiter.Allow(r.Context(), key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}
