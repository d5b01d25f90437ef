package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"saral/internal/ratelimit"
	"saral/pkg/answer"
	"saral/pkg/auth"
	"saral/pkg/domain"
	"saral/pkg/simulate"
	"saral/pkg/storage"
	"saral/pkg/store"
	"saral/services/gateway/internal/app"
)

const (
	officerEmail    = "officer@mail.gov.in"
	officerPassword = "officer123"
	userEmail       = "user@mail.in"
	userPassword    = "user123"
)

type testGateway struct {
	srv    *httptest.Server
	server *Server
	app    *app.App
	hub    *Hub
}

type gatewayOption func(*Config, *app.Config)

func withLimiter(l ratelimit.Limiter) gatewayOption {
	return func(c *Config, _ *app.Config) { c.LoginLimiter = l }
}

func withSessions(s store.SessionStore) gatewayOption {
	return func(_ *Config, a *app.Config) { a.Sessions = s }
}

func newTestGateway(t *testing.T, opts ...gatewayOption) *testGateway {
	t.Helper()
	table, err := auth.NewCredentialTable(auth.DemoAccounts())
	if err != nil {
		t.Fatalf("credential table: %v", err)
	}
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	hub := NewHub(nil)
	appCfg := app.Config{
		Store:     store.NewMemoryStore(),
		Sessions:  store.NewMemorySessionStore(time.Hour),
		Directory: table,
		Responder: answer.NewKeywordResponder(time.Millisecond),
		Objects:   files,
		Events:    hub,
		NewUploader: func() *simulate.Uploader {
			u := simulate.NewUploader()
			u.Interval = time.Millisecond
			u.Rand = func() float64 { return 1 }
			return u
		},
		ConnectDelay: 20 * time.Millisecond,
		ResetDelay:   20 * time.Millisecond,
		ClearDelay:   time.Hour,
	}
	srvCfg := Config{Hub: hub, SessionTTL: time.Hour}
	for _, opt := range opts {
		opt(&srvCfg, &appCfg)
	}
	a, err := app.New(appCfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srvCfg.App = a
	s, err := New(srvCfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		ts.Close()
		hub.Close()
		a.Close()
	})
	return &testGateway{srv: ts, server: s, app: a, hub: hub}
}

func (g *testGateway) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, g.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return g.send(t, req)
}

func (g *testGateway) send(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func (g *testGateway) login(t *testing.T, email, password string) loginResponse {
	t.Helper()
	resp, body := g.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: email, Password: password})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, resp.StatusCode, body)
	}
	var out loginResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return out
}

func decodeError(t *testing.T, body []byte) string {
	t.Helper()
	var out map[string]string
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return out["error"]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestHealth(t *testing.T) {
	g := newTestGateway(t)
	resp, body := g.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ok") {
		t.Fatalf("healthz = %d %s", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("missing request id header")
	}
}

func TestLoginReturnsRoleNavigation(t *testing.T) {
	g := newTestGateway(t)
	tests := []struct {
		email, password string
		role            domain.UserRole
		items           int
		active          domain.Panel
	}{
		{officerEmail, officerPassword, domain.RoleOfficer, 5, domain.PanelDashboard},
		{userEmail, userPassword, domain.RoleUser, 1, domain.PanelAskSaral},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			out := g.login(t, tt.email, tt.password)
			if out.Token == "" || out.User.Role != tt.role {
				t.Fatalf("login response = %+v", out)
			}
			if len(out.Navigation.Items) != tt.items || out.Navigation.Active != tt.active {
				t.Fatalf("navigation = %+v", out.Navigation)
			}
		})
	}
}

func TestLoginFailures(t *testing.T) {
	g := newTestGateway(t)
	tests := []struct {
		name   string
		body   any
		status int
		msg    string
	}{
		{"wrong password", loginRequest{Email: officerEmail, Password: "nope"}, http.StatusUnauthorized, "Invalid email or password"},
		{"cross pair", loginRequest{Email: userEmail, Password: officerPassword}, http.StatusUnauthorized, "Invalid email or password"},
		{"empty", loginRequest{}, http.StatusBadRequest, "email and password are required"},
		{"bad json", "{", http.StatusBadRequest, "invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := g.do(t, http.MethodPost, "/api/auth/login", "", tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.status, body)
			}
			if msg := decodeError(t, body); msg != tt.msg {
				t.Fatalf("error = %q, want %q", msg, tt.msg)
			}
			if len(resp.Cookies()) != 0 {
				t.Fatalf("failed login must not set a session cookie")
			}
		})
	}
}

func TestLoginRateLimit(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := ratelimit.NewFixedWindowLimiter(ratelimit.Options{Addr: redis.Addr(), Limit: 1, Window: time.Minute})
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}
	t.Cleanup(func() { _ = limiter.Close() })
	g := newTestGateway(t, withLimiter(limiter))

	g.login(t, officerEmail, officerPassword)
	resp, body := g.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: officerEmail, Password: officerPassword})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second login status = %d (%s)", resp.StatusCode, body)
	}
	if resp.Header.Get("Retry-After") != "60" {
		t.Fatalf("missing Retry-After")
	}
}

func TestSessionFromBearerOrCookie(t *testing.T) {
	g := newTestGateway(t)
	out := g.login(t, userEmail, userPassword)

	resp, _ := g.do(t, http.MethodGet, "/api/users/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous me = %d", resp.StatusCode)
	}
	resp, body := g.do(t, http.MethodGet, "/api/users/me", out.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bearer me = %d", resp.StatusCode)
	}
	var me meResponse
	if err := json.Unmarshal(body, &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.User.Email != userEmail || me.Initials != "US" {
		t.Fatalf("me = %+v", me)
	}

	req, _ := http.NewRequest(http.MethodGet, g.srv.URL+"/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: defaultCookieName, Value: out.Token})
	if resp, _ := g.send(t, req); resp.StatusCode != http.StatusOK {
		t.Fatalf("cookie me = %d", resp.StatusCode)
	}
}

func TestLogoutRevokesJWTSession(t *testing.T) {
	sessions, err := store.NewJWTSessionStore(strings.Repeat("s", 32), time.Hour, store.NewMemoryTokenRevoker(), store.JWTOptions{})
	if err != nil {
		t.Fatalf("jwt store: %v", err)
	}
	g := newTestGateway(t, withSessions(sessions))
	out := g.login(t, officerEmail, officerPassword)

	resp, _ := g.do(t, http.MethodPost, "/api/auth/logout", out.Token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout = %d", resp.StatusCode)
	}
	resp, _ = g.do(t, http.MethodGet, "/api/users/me", out.Token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after logout = %d", resp.StatusCode)
	}
}

func TestOfficerOnlyRoutes(t *testing.T) {
	g := newTestGateway(t)
	user := g.login(t, userEmail, userPassword)
	officer := g.login(t, officerEmail, officerPassword)

	paths := []string{
		"/api/history/uploads",
		"/api/history/queries",
		"/api/settings",
		"/api/dashboard",
		"/api/uploads/items",
		"/api/connect/web",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			if resp, _ := g.do(t, http.MethodGet, path, user.Token, nil); resp.StatusCode != http.StatusForbidden {
				t.Fatalf("user status = %d", resp.StatusCode)
			}
			if resp, body := g.do(t, http.MethodGet, path, officer.Token, nil); resp.StatusCode != http.StatusOK {
				t.Fatalf("officer status = %d (%s)", resp.StatusCode, body)
			}
		})
	}
}

func TestNavigationSelect(t *testing.T) {
	g := newTestGateway(t)
	user := g.login(t, userEmail, userPassword)
	officer := g.login(t, officerEmail, officerPassword)

	resp, body := g.do(t, http.MethodPost, "/api/navigation", officer.Token, navigationRequest{Panel: domain.PanelHistory})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("officer select = %d", resp.StatusCode)
	}
	var nav app.NavigationView
	if err := json.Unmarshal(body, &nav); err != nil || nav.Active != domain.PanelHistory {
		t.Fatalf("navigation = %+v, %v", nav, err)
	}
	resp, _ = g.do(t, http.MethodPost, "/api/navigation", user.Token, navigationRequest{Panel: domain.PanelSettings})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("user select = %d", resp.StatusCode)
	}
}

func TestAskEndpoint(t *testing.T) {
	g := newTestGateway(t)
	user := g.login(t, userEmail, userPassword)

	resp, body := g.do(t, http.MethodPost, "/api/ask", user.Token, askRequest{Query: "What are the eligibility criteria for UGC scholarships?"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ask = %d (%s)", resp.StatusCode, body)
	}
	var msg domain.ChatMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != domain.MessageBot || len(msg.Sources) != 4 {
		t.Fatalf("message = %+v", msg)
	}

	resp, body = g.do(t, http.MethodPost, "/api/ask", user.Token, askRequest{Query: "  "})
	if resp.StatusCode != http.StatusBadRequest || decodeError(t, body) != answer.ErrEmptyQuery.Error() {
		t.Fatalf("blank ask = %d (%s)", resp.StatusCode, body)
	}

	resp, body = g.do(t, http.MethodGet, "/api/ask/messages", user.Token, nil)
	var list struct {
		Count    int      `json:"count"`
		Examples []string `json:"examples"`
	}
	if err := json.Unmarshal(body, &list); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("messages = %d, %v", resp.StatusCode, err)
	}
	if list.Count != 2 || len(list.Examples) != 4 {
		t.Fatalf("messages = %+v", list)
	}
}

func uploadRequest(t *testing.T, url, token string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestUploadFlow(t *testing.T) {
	g := newTestGateway(t)
	officer := g.login(t, officerEmail, officerPassword)

	resp, body := g.do(t, http.MethodPost, "/api/uploads/start", officer.Token, nil)
	if resp.StatusCode != http.StatusBadRequest || decodeError(t, body) != "Please select at least one file" {
		t.Fatalf("empty start = %d (%s)", resp.StatusCode, body)
	}

	req := uploadRequest(t, g.srv.URL+"/api/uploads/items", officer.Token, map[string][]byte{"malware.exe": []byte("x")})
	if resp, body := g.send(t, req); resp.StatusCode != http.StatusBadRequest || decodeError(t, body) != "malware.exe: unsupported file type" {
		t.Fatalf("exe upload = %d (%s)", resp.StatusCode, body)
	}

	req = uploadRequest(t, g.srv.URL+"/api/uploads/items", officer.Token, map[string][]byte{"NEP_2020.txt": bytes.Repeat([]byte("a"), 2048)})
	resp, body = g.send(t, req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add items = %d (%s)", resp.StatusCode, body)
	}

	resp, body = g.do(t, http.MethodPost, "/api/uploads/start", officer.Token, nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("start = %d (%s)", resp.StatusCode, body)
	}

	var history struct {
		Items []domain.UploadHistoryRecord `json:"items"`
	}
	waitFor(t, func() bool {
		_, body := g.do(t, http.MethodGet, "/api/history/uploads", officer.Token, nil)
		return json.Unmarshal(body, &history) == nil && len(history.Items) == 1
	})
	rec := history.Items[0]
	if rec.Name != "NEP_2020.txt" || rec.Status != domain.RecordSuccess || rec.Size != "0.00 MB" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestRemoveUploadItem(t *testing.T) {
	g := newTestGateway(t)
	officer := g.login(t, officerEmail, officerPassword)
	req := uploadRequest(t, g.srv.URL+"/api/uploads/items", officer.Token, map[string][]byte{"a.pdf": []byte("x")})
	_, body := g.send(t, req)
	var added struct {
		Items []domain.UploadItem `json:"items"`
	}
	if err := json.Unmarshal(body, &added); err != nil || len(added.Items) != 1 {
		t.Fatalf("added = %s", body)
	}

	if resp, _ := g.do(t, http.MethodDelete, "/api/uploads/items/unknown", officer.Token, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("remove unknown = %d", resp.StatusCode)
	}
	if resp, _ := g.do(t, http.MethodDelete, "/api/uploads/items/"+added.Items[0].ID, officer.Token, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("remove = %d", resp.StatusCode)
	}
}

func TestConnectEndpoints(t *testing.T) {
	g := newTestGateway(t)
	officer := g.login(t, officerEmail, officerPassword)

	resp, body := g.do(t, http.MethodPost, "/api/connect/web", officer.Token, connectRequest{Input: ""})
	if resp.StatusCode != http.StatusBadRequest || decodeError(t, body) != "Please enter a valid URL" {
		t.Fatalf("empty url = %d (%s)", resp.StatusCode, body)
	}
	if resp, _ := g.do(t, http.MethodPost, "/api/connect/ftp", officer.Token, connectRequest{Input: "x"}); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown kind = %d", resp.StatusCode)
	}

	resp, body = g.do(t, http.MethodPost, "/api/connect/database", officer.Token, connectRequest{Input: "postgres://u:p@db.gov.in:5432/aicte"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("connect = %d (%s)", resp.StatusCode, body)
	}
	var state domain.ConnectState
	if err := json.Unmarshal(body, &state); err != nil || state.Status != domain.ConnectConnecting {
		t.Fatalf("state = %+v, %v", state, err)
	}
	if resp, _ := g.do(t, http.MethodPost, "/api/connect/database", officer.Token, connectRequest{Input: "x"}); resp.StatusCode != http.StatusConflict {
		t.Fatalf("busy connect = %d", resp.StatusCode)
	}

	waitFor(t, func() bool {
		_, body := g.do(t, http.MethodGet, "/api/connect/database", officer.Token, nil)
		return json.Unmarshal(body, &state) == nil && state.Status == domain.ConnectIdle
	})
	_, body = g.do(t, http.MethodGet, "/api/history/uploads", officer.Token, nil)
	if !strings.Contains(string(body), "db.gov.in:5432/aicte") || strings.Contains(string(body), "u:p@") {
		t.Fatalf("history = %s", body)
	}
}

func TestSettingsEndpoint(t *testing.T) {
	g := newTestGateway(t)
	officer := g.login(t, officerEmail, officerPassword)

	_, body := g.do(t, http.MethodGet, "/api/settings", officer.Token, nil)
	var settings domain.Settings
	if err := json.Unmarshal(body, &settings); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if settings.Notifications != domain.DefaultNotificationPrefs() || settings.Initials != "OS" {
		t.Fatalf("settings = %+v", settings)
	}

	prefs := domain.NotificationPrefs{Email: false, Uploads: true, Queries: true, System: false}
	resp, body := g.do(t, http.MethodPut, "/api/settings", officer.Token, settingsRequest{Notifications: prefs})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save = %d", resp.StatusCode)
	}
	var saved settingsResponse
	if err := json.Unmarshal(body, &saved); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if saved.Message != "Settings saved successfully!" || saved.Settings.Notifications != prefs {
		t.Fatalf("saved = %+v", saved)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	g := newTestGateway(t)
	officer := g.login(t, officerEmail, officerPassword)
	resp, body := g.do(t, http.MethodGet, "/api/dashboard", officer.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard = %d", resp.StatusCode)
	}
	for _, want := range []string{"Dashboard Overview", "System Operational", "Total Documents", "queryData"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("dashboard body missing %q", want)
		}
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{app.ErrSessionEnded, http.StatusUnauthorized},
		{answer.ErrQueryTooLong, http.StatusBadRequest},
		{simulate.ErrInvalidConnectionString, http.StatusBadRequest},
		{answer.ErrResponderBusy, http.StatusConflict},
		{app.ErrItemNotPending, http.StatusConflict},
		{app.ErrUnknownConnect, http.StatusNotFound},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if status, _ := errorStatus(tt.err); status != tt.status {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, status, tt.status)
		}
	}
}
