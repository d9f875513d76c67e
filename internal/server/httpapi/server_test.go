package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/abateiq-edge/internal/common"
	"github.com/dmitrijs2005/abateiq-edge/internal/logging"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/delivery"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/models"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/oauth"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/repositories/submissions"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/services"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/sessions"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeliverer struct {
	res   delivery.Result
	err   error
	calls int
	last  delivery.Submission
}

func (f *fakeDeliverer) Deliver(_ context.Context, sub delivery.Submission) (delivery.Result, error) {
	f.calls++
	f.last = sub
	return f.res, f.err
}

type fakeAuth struct {
	session  *sessions.AuthSession
	info     *services.SessionInfo
	err      error
	lastMeta sessions.RequestMeta
	lastTok  string
}

func (f *fakeAuth) SignIn(_ context.Context, _, _ string, meta sessions.RequestMeta) (*sessions.AuthSession, error) {
	f.lastMeta = meta
	return f.session, f.err
}

func (f *fakeAuth) StartTrial(_ context.Context, _, _, _, _ string, meta sessions.RequestMeta) (*sessions.AuthSession, error) {
	f.lastMeta = meta
	return f.session, f.err
}

func (f *fakeAuth) ForgotPassword(context.Context, string) error { return f.err }

func (f *fakeAuth) CurrentSession(_ context.Context, token string) (*services.SessionInfo, error) {
	f.lastTok = token
	return f.info, f.err
}

func (f *fakeAuth) SignOut(_ context.Context, token string) error {
	f.lastTok = token
	return f.err
}

func newTestServer(t *testing.T, deps Deps) *httptest.Server {
	t.Helper()
	if deps.Log == nil {
		deps.Log = logging.Nop{}
	}
	srv := httptest.NewServer(NewHandler(deps).Router())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, target, body string, headers ...string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, target, strings.NewReader(body))
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

const validContact = `{"name":"Ann","company":"Acme","email":"ann@acme.io","role":"EHS","companySize":"50-200","primaryHazard":"asbestos"}`

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Deps{HasDatabase: true})

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		resp, body := do(t, method, srv.URL+"/api/health", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
		assert.Equal(t, map[string]any{
			"ok":              true,
			"service":         "abateiq-marketing-edge",
			"hasUpstreamAuth": false,
			"hasD1":           true,
		}, body)
	}
}

func TestUnknownAPIRoute(t *testing.T) {
	srv := newTestServer(t, Deps{})
	resp, body := do(t, http.MethodGet, srv.URL+"/api/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "API route not found.", body["message"])
}

func TestStaticFallback(t *testing.T) {
	assets := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "asset:"+r.URL.Path)
	})
	srv := newTestServer(t, Deps{Assets: assets})

	for _, path := range []string{"/", "/pricing", "/img/logo.svg"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "asset:"+path, string(raw))
	}
}

func TestStaticFallback_DefaultNotFound(t *testing.T) {
	srv := newTestServer(t, Deps{})
	resp, err := http.Get(srv.URL + "/about")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestContact(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		deliverer  *fakeDeliverer
		wantStatus int
		wantMsg    string
		wantCalls  int
	}{
		{"wrong method", http.MethodGet, "", &fakeDeliverer{}, 405, "Method not allowed.", 0},
		{"not json", http.MethodPost, "hello", &fakeDeliverer{}, 400, "Invalid JSON payload.", 0},
		{"json array", http.MethodPost, "[1]", &fakeDeliverer{}, 400, "Invalid JSON payload.", 0},
		{"missing field", http.MethodPost, `{"name":"Ann"}`, &fakeDeliverer{}, 400, "Missing required field: company", 0},
		{"not configured", http.MethodPost, validContact, &fakeDeliverer{err: common.ErrNotConfigured}, 503,
			"No contact handlers configured. Configure API_ORIGIN, EMAIL binding, or D1 DB.", 1},
		{"all failed", http.MethodPost, validContact,
			&fakeDeliverer{err: &delivery.DeliveryError{Kind: models.KindContact, Errors: []string{"a", "b"}}}, 502,
			"Contact submission failed.", 1},
		{"delivered", http.MethodPost, validContact,
			&fakeDeliverer{res: delivery.Result{DeliveredByEmail: true}}, 200, "Contact request received.", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, Deps{Contact: tt.deliverer})
			resp, body := do(t, tt.method, srv.URL+"/api/contact", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantMsg, body["message"])
			assert.Equal(t, tt.wantCalls, tt.deliverer.calls)
		})
	}
}

func TestContact_FailureListsErrors(t *testing.T) {
	d := &fakeDeliverer{err: &delivery.DeliveryError{Kind: models.KindContact, Errors: []string{"a", "b"}}}
	srv := newTestServer(t, Deps{Contact: d})
	_, body := do(t, http.MethodPost, srv.URL+"/api/contact", validContact)
	assert.Equal(t, []any{"a", "b"}, body["errors"])
}

func TestContact_StoredInDatabase(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO contact_submissions`).WillReturnResult(sqlmock.NewResult(0, 1))

	router := delivery.NewRouter(models.KindContact, logging.Nop{},
		delivery.NewDatabaseSink(submissions.NewSQLRepository(db)))
	srv := newTestServer(t, Deps{Contact: router})

	resp, body := do(t, http.MethodPost, srv.URL+"/api/contact", validContact)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{
		"ok":                  true,
		"message":             "Contact request received.",
		"deliveredToUpstream": false,
		"deliveredByEmail":    false,
		"storedInD1":          true,
	}, body)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlist(t *testing.T) {
	d := &fakeDeliverer{res: delivery.Result{DeliveredToUpstream: true}}
	srv := newTestServer(t, Deps{Waitlist: d})

	resp, body := do(t, http.MethodPost, srv.URL+"/api/waitlist", `{"name":"Bo","organization":"Org","email":"bo@org.io"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Waitlist submission received.", body["message"])
	assert.Equal(t, true, body["deliveredToUpstream"])
	assert.Equal(t, models.KindWaitlist, d.last.Kind())

	resp, body = do(t, http.MethodPost, srv.URL+"/api/waitlist", `{"name":"Bo","organization":"Org","email":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid email address.", body["message"])
}

func TestAuth_NotConfigured(t *testing.T) {
	srv := newTestServer(t, Deps{})

	resp, body := do(t, http.MethodPost, srv.URL+"/api/auth/login", "not json")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, msgAuthNotConfigured, body["message"])

	resp, body = do(t, http.MethodGet, srv.URL+"/api/auth/login", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "Method not allowed.", body["message"])
}

func TestLogin(t *testing.T) {
	session := &sessions.AuthSession{
		AccessToken:  "tok",
		ExpiresAt:    "2026-01-01T12:00:00.000Z",
		DashboardURL: "https://app.abateiq.com",
		User:         sessions.AuthUser{ID: "u1", Email: "ann@acme.io"},
	}

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"bad json", "{", nil, 400, "Invalid JSON payload."},
		{"validation", `{}`, common.NewValidationError("Email and password are required."), 400, "Email and password are required."},
		{"bad credentials", `{"email":"a@b.co","password":"x"}`, common.ErrInvalidCredentials, 401, "Invalid email or password."},
		{"backend", `{"email":"a@b.co","password":"x"}`, common.ErrBackendUnavailable, 500, msgAuthTables},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, Deps{Auth: &fakeAuth{err: tt.err}})
			resp, body := do(t, http.MethodPost, srv.URL+"/api/auth/login", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantMsg, body["message"])
		})
	}

	t.Run("success", func(t *testing.T) {
		auth := &fakeAuth{session: session}
		srv := newTestServer(t, Deps{Auth: auth})
		resp, body := do(t, http.MethodPost, srv.URL+"/api/auth/login", `{"email":"ann@acme.io","password":"pw"}`,
			"CF-Connecting-IP", "203.0.113.7", "User-Agent", "test-agent")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "tok", body["accessToken"])
		assert.NotContains(t, body, "ok")
		assert.Equal(t, sessions.RequestMeta{UserAgent: "test-agent", IPAddress: "203.0.113.7"}, auth.lastMeta)
	})
}

func TestTrial(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"created", nil, http.StatusCreated},
		{"duplicate", common.ErrDuplicateAccount, http.StatusConflict},
		{"backend", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuth{session: &sessions.AuthSession{AccessToken: "t"}, err: tt.err}
			srv := newTestServer(t, Deps{Auth: auth})
			resp, _ := do(t, http.MethodPost, srv.URL+"/api/auth/trial",
				`{"name":"A","company":"C","email":"a@c.io","password":"longenough"}`,
				"X-Forwarded-For", "198.51.100.2, 10.0.0.1")
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "198.51.100.2", auth.lastMeta.IPAddress)
		})
	}
}

func TestForgotPassword(t *testing.T) {
	srv := newTestServer(t, Deps{Auth: &fakeAuth{}})
	resp, body := do(t, http.MethodPost, srv.URL+"/api/auth/forgot-password", `{"email":"ghost@acme.io"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, msgResetAccepted, body["message"])

	srv = newTestServer(t, Deps{Auth: &fakeAuth{err: errors.New("no such table")}})
	resp, body = do(t, http.MethodPost, srv.URL+"/api/auth/forgot-password", `{"email":"ghost@acme.io"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, msgResetNotReady, body["message"])
}

func TestSessionAndLogout(t *testing.T) {
	auth := &fakeAuth{info: &services.SessionInfo{
		ExpiresAt: "2026-01-01T12:00:00.000Z",
		User:      sessions.AuthUser{ID: "u1", Email: "ann@acme.io"},
	}}
	srv := newTestServer(t, Deps{Auth: auth})

	resp, body := do(t, http.MethodGet, srv.URL+"/api/auth/session", "", "Authorization", "Bearer abc")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "abc", auth.lastTok)

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/auth/logout", "", "Authorization", "Bearer abc")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	auth.err = common.ErrSessionExpired
	resp, body = do(t, http.MethodGet, srv.URL+"/api/auth/session", "", "Authorization", "Bearer abc")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, msgInvalidSession, body["message"])
}

func TestAuth_ProxyMode(t *testing.T) {
	var gotPath, gotAuth, gotBody string
	status := http.StatusOK
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Upstream", "1")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"accessToken":"up"}`)
	}))
	defer up.Close()

	auth := &fakeAuth{}
	srv := newTestServer(t, Deps{
		Auth:      auth,
		AuthProxy: upstream.New(up.URL, "", time.Second, logging.Nop{}),
		AuthPaths: map[string]string{"/api/auth/login": "/v1/login"},
	})

	resp, body := do(t, http.MethodPost, srv.URL+"/api/auth/login", `not even json`, "Authorization", "Bearer caller")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-Upstream"))
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "up", body["accessToken"])
	assert.Equal(t, "/v1/login", gotPath)
	assert.Equal(t, "Bearer caller", gotAuth)
	assert.Equal(t, "not even json", gotBody)
	assert.Empty(t, auth.lastMeta)

	status = http.StatusUnauthorized
	resp, body = do(t, http.MethodGet, srv.URL+"/api/auth/session", "")
	assert.Equal(t, "/api/auth/session", gotPath)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Upstream API returned 401.", body["message"])
	assert.Equal(t, []any{`{"accessToken":"up"}`}, body["errors"])
}

func TestAuth_ProxyTransportError(t *testing.T) {
	up := httptest.NewServer(http.NotFoundHandler())
	origin := up.URL
	up.Close()

	srv := newTestServer(t, Deps{AuthProxy: upstream.New(origin, "", time.Second, logging.Nop{})})
	resp, body := do(t, http.MethodPost, srv.URL+"/api/auth/trial", `{}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "Upstream API request failed.", body["message"])
}

func TestCMSAuthorize(t *testing.T) {
	gh := oauth.NewGitHub(oauth.Config{ClientID: "cid", ClientSecret: "secret"}, logging.Nop{})
	srv := newTestServer(t, Deps{OAuth: gh})

	for _, path := range []string{"/auth", "/api/cms/auth"} {
		resp, _ := do(t, http.MethodGet, srv.URL+path, "")
		require.Equal(t, http.StatusFound, resp.StatusCode, path)
		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "github.com", loc.Host)
		assert.Equal(t, "cid", loc.Query().Get("client_id"))
		assert.NotEmpty(t, loc.Query().Get("state"))
	}

	resp, body := do(t, http.MethodGet, srv.URL+"/auth?provider=gitlab", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Unsupported provider.", body["message"])

	srv = newTestServer(t, Deps{OAuth: oauth.NewGitHub(oauth.Config{}, logging.Nop{})})
	resp, body = do(t, http.MethodGet, srv.URL+"/auth", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "Missing GITHUB_OAUTH_ID secret.", body["message"])
}

func TestCMSCallback_RendersHandshake(t *testing.T) {
	gh := oauth.NewGitHub(oauth.Config{ClientID: "cid", ClientSecret: "secret"}, logging.Nop{})
	srv := newTestServer(t, Deps{OAuth: gh})

	resp, err := http.Get(srv.URL + "/callback?provider=github")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))
	assert.Contains(t, string(raw), "authorization:github:error")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, Deps{})
	_, _ = do(t, http.MethodGet, srv.URL+"/api/health", "")

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), `edge_http_requests_total{method="GET",route="/api/health",status="200"}`)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken(""))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", clientIP(r))

	r.Header.Set("X-Forwarded-For", " 198.51.100.9 , 10.0.0.1")
	assert.Equal(t, "198.51.100.9", clientIP(r))

	r.Header.Set("CF-Connecting-IP", "203.0.113.5")
	assert.Equal(t, "203.0.113.5", clientIP(r))
}
