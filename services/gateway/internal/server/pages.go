package server

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"saral/internal/util"
	"saral/pkg/analytics"
	"saral/pkg/answer"
	"saral/pkg/domain"
	"saral/pkg/simulate"
	"saral/services/gateway/internal/app"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// DemoVideoURL is the product walkthrough linked from the landing page.
const DemoVideoURL = "https://youtu.be/bN9i3VQWVm4"

type feature struct {
	Title       string
	Description string
}

var landingFeatures = []feature{
	{Title: "Intelligent Search", Description: "Ask questions in natural language and get precise answers from regulations, policies, and schemes."},
	{Title: "Unified Data Access", Description: "Documents, databases, and web sources brought together in one searchable place."},
	{Title: "Lightning Fast", Description: "Answers in seconds instead of hours spent reading circulars."},
	{Title: "Secure Access", Description: "Role-based access keeps officer tools separate from public queries."},
	{Title: "AI-Powered Insights", Description: "Every answer comes with the sources it was drawn from."},
	{Title: "Smart Analytics", Description: "Track query trends, content mix, and system load at a glance."},
}

type pages struct {
	landing   *template.Template
	dashboard *template.Template
}

var pageFuncs = template.FuncMap{
	"fileSize": simulate.FormatFileSize,
	"clock": func(t time.Time) string {
		return t.Format("03:04 PM")
	},
	"isLink": func(source string) bool {
		return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
	},
	"percent": func(v, max int) int {
		if max <= 0 {
			return 0
		}
		return v * 100 / max
	},
}

func loadPages() (*pages, error) {
	landing, err := template.New("landing.html").Funcs(pageFuncs).ParseFS(templateFS, "templates/base.html", "templates/landing.html")
	if err != nil {
		return nil, err
	}
	dashboard, err := template.New("dashboard.html").Funcs(pageFuncs).ParseFS(templateFS, "templates/base.html", "templates/dashboard.html")
	if err != nil {
		return nil, err
	}
	return &pages{landing: landing, dashboard: dashboard}, nil
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}

type landingView struct {
	Email    string
	Error    string
	Features []feature
	VideoURL string
}

type dashboardView struct {
	User       domain.User
	Initials   string
	Navigation app.NavigationView
	Notice     string
	Error      string

	Overview *analytics.Overview

	Messages []domain.ChatMessage
	Examples []string

	Items    []domain.UploadItem
	Web      domain.ConnectState
	Database domain.ConnectState

	Tab     string
	Uploads []domain.UploadHistoryRecord
	Queries []domain.QueryHistoryRecord

	Settings *domain.Settings
}

func (s *Server) renderLanding(w http.ResponseWriter, r *http.Request, status int, view landingView) {
	view.Features = landingFeatures
	view.VideoURL = DemoVideoURL
	s.render(w, r, s.pages.landing, status, view)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, tmpl *template.Template, status int, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		util.LoggerFromContext(r.Context()).Error("render page failed", "template", tmpl.Name(), "err", err)
	}
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if token, ok := s.sessionToken(r); ok {
		if _, ok := s.app.UserFromToken(token); ok {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
	}
	s.renderLanding(w, r, http.StatusOK, landingView{})
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderLanding(w, r, http.StatusBadRequest, landingView{Error: "invalid form data"})
		return
	}
	email := r.PostFormValue("email")
	view := landingView{Email: email}
	if !s.loginAllowed(r) {
		s.audit(r, "gateway.login", "rate_limited")
		w.Header().Set("Retry-After", "60")
		view.Error = "too many login attempts"
		s.renderLanding(w, r, http.StatusTooManyRequests, view)
		return
	}
	if _, _, err := s.login(w, r, email, r.PostFormValue("password")); err != nil {
		status, msg := errorStatus(err)
		view.Error = msg
		s.renderLanding(w, r, status, view)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) loginAllowed(r *http.Request) bool {
	if s.loginLimiter == nil {
		return true
	}
	return s.loginLimiter.Allow(r.Context(), r.URL.Path+"|"+util.ClientIP(r, s.trusted))
}

func (s *Server) handleLogoutForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.logout(w, r); err != nil {
		util.LoggerFromContext(r.Context()).Warn("logout failed", "err", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	ws, ok := s.authorize(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	q := r.URL.Query()
	view := dashboardView{Notice: q.Get("notice"), Error: q.Get("error")}
	status := http.StatusOK
	if panel := q.Get("panel"); panel != "" {
		if _, err := ws.SelectPanel(domain.Panel(panel)); err != nil {
			status, view.Error = errorStatus(err)
		}
	}
	if err := s.fillDashboard(r, ws, &view, q.Get("tab")); err != nil {
		util.LoggerFromContext(r.Context()).Error("load dashboard failed", "err", err)
		status, view.Error = errorStatus(err)
	}
	s.render(w, r, s.pages.dashboard, status, view)
}

func (s *Server) fillDashboard(r *http.Request, ws *app.Workspace, view *dashboardView, tab string) error {
	ctx := r.Context()
	view.User = ws.User()
	view.Initials = ws.User().Initials()
	view.Navigation = ws.Navigation()
	switch view.Navigation.Active {
	case domain.PanelDashboard:
		overview, err := s.app.Dashboard(ctx)
		if err != nil {
			return err
		}
		view.Overview = &overview
	case domain.PanelAskSaral:
		view.Messages = ws.Messages()
		view.Examples = answer.ExampleQueries
	case domain.PanelAddData:
		view.Items = ws.Items()
		view.Web, _ = ws.ConnectState(domain.ConnectWeb)
		view.Database, _ = ws.ConnectState(domain.ConnectDatabase)
	case domain.PanelHistory:
		view.Tab = "uploads"
		if tab == "queries" {
			view.Tab = tab
		}
		uploads, err := s.app.UploadHistory(ctx)
		if err != nil {
			return err
		}
		queries, err := s.app.QueryHistory(ctx)
		if err != nil {
			return err
		}
		view.Uploads, view.Queries = uploads, queries
	case domain.PanelSettings:
		settings, err := s.app.Settings(ctx, ws.User())
		if err != nil {
			return err
		}
		view.Settings = &settings
	}
	return nil
}

// handleDashboardAction serves the form posts of the server-rendered
// dashboard and redirects back to the panel with a notice or an error.
func (s *Server) handleDashboardAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	ws, ok := s.authorize(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/dashboard/"), "/")
	panel := domain.PanelAddData
	var notice string
	var err error
	switch action {
	case "ask":
		panel = domain.PanelAskSaral
		_, err = ws.Ask(r.Context(), r.PostFormValue("query"))
	default:
		if ws.User().Role != domain.RoleOfficer {
			s.audit(r, "gateway.officer.authorize", "fail", "email", ws.User().Email, "reason", "forbidden")
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		panel, notice, err = s.officerAction(w, r, ws, action)
	}
	if errors.Is(err, errUnknownAction) {
		http.NotFound(w, r)
		return
	}
	target := url.Values{"panel": {string(panel)}}
	if err != nil {
		_, msg := errorStatus(err)
		target.Set("error", msg)
	} else if notice != "" {
		target.Set("notice", notice)
	}
	http.Redirect(w, r, "/dashboard?"+target.Encode(), http.StatusSeeOther)
}

var errUnknownAction = errors.New("unknown dashboard action")

func (s *Server) officerAction(w http.ResponseWriter, r *http.Request, ws *app.Workspace, action string) (domain.Panel, string, error) {
	switch action {
	case "items":
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return domain.PanelAddData, "", simulate.ErrNoFiles
		}
		headers := formFiles(r.MultipartForm)
		if len(headers) == 0 {
			return domain.PanelAddData, "", simulate.ErrNoFiles
		}
		for _, header := range headers {
			data, err := readFormFile(header)
			if err != nil {
				return domain.PanelAddData, "", err
			}
			if _, err := ws.AddItem(header.Filename, header.Header.Get("Content-Type"), data); err != nil {
				return domain.PanelAddData, "", err
			}
		}
		return domain.PanelAddData, "", nil
	case "remove":
		return domain.PanelAddData, "", ws.RemoveItem(r.PostFormValue("id"))
	case "clear":
		return domain.PanelAddData, "", ws.ClearItems()
	case "upload":
		_, err := ws.StartUpload()
		return domain.PanelAddData, "", err
	case "connect":
		kind := domain.ConnectKind(r.PostFormValue("kind"))
		return domain.PanelAddData, "", ws.Connect(kind, r.PostFormValue("input"))
	case "settings":
		prefs := domain.NotificationPrefs{
			Email:   r.PostFormValue("emailNotifications") == "on",
			Uploads: r.PostFormValue("uploadNotifications") == "on",
			Queries: r.PostFormValue("queryAlerts") == "on",
			System:  r.PostFormValue("systemUpdates") == "on",
		}
		if _, err := s.app.SaveSettings(r.Context(), ws.User(), prefs); err != nil {
			return domain.PanelSettings, "", err
		}
		return domain.PanelSettings, app.SettingsSavedMessage, nil
	default:
		return domain.PanelAddData, "", errUnknownAction
	}
}
