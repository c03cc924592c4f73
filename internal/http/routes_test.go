package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/placementcell/portal-auth/internal/adapters/sessiontoken"
	domainauth "github.com/placementcell/portal-auth/internal/domain/auth"
	apperrors "github.com/placementcell/portal-auth/internal/errors"
	"github.com/placementcell/portal-auth/internal/mocks"
	"github.com/placementcell/portal-auth/internal/service"
)

type routerFixture struct {
	handler  http.Handler
	sessions *mocks.MockSessionStore
	csrf     string
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	sessions := mocks.NewMockSessionStore(ctrl)
	csrf := newTestCSRF(t, func() time.Time { return testNow })
	token, err := csrf.Issue()
	require.NoError(t, err)

	h := NewRouter(RouterServices{
		Auth:          service.NewAuthService(service.AuthServiceOptions{Sessions: sessions}),
		CSRF:          csrf,
		Decoder:       sessiontoken.Decoder{},
		SessionMaxAge: sessiontoken.DefaultTTL,
		Now:           func() time.Time { return testNow },
	})
	return &routerFixture{handler: h, sessions: sessions, csrf: token}
}

func (f *routerFixture) post(path, body, session string, withCSRF bool) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if withCSRF {
		r.Header.Set(DefaultCSRFHeaderName, f.csrf)
		r.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: f.csrf})
	}
	if session != "" {
		r.AddCookie(&http.Cookie{Name: DefaultSessionCookieName, Value: session})
	}
	return serve(f.handler, r)
}

func (f *routerFixture) get(path, session string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if session != "" {
		r.AddCookie(&http.Cookie{Name: DefaultSessionCookieName, Value: session})
	}
	return serve(f.handler, r)
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	code, _ := body["error"].(string)
	return code
}

func claimsFor(uid string, role domainauth.Role) *domainauth.SessionClaims {
	return &domainauth.SessionClaims{
		UID:       uid,
		Email:     uid + "@college.edu",
		Role:      role,
		IssuedAt:  testNow,
		ExpiresAt: testNow.Add(sessiontoken.DefaultTTL),
	}
}

func TestRouter_RequestIDUniquePerRequest(t *testing.T) {
	f := newRouterFixture(t)

	first := f.get("/healthz", "")
	second := f.get("/healthz", "")
	require.Equal(t, http.StatusOK, first.Code)

	a, b := first.Header().Get(RequestIDHeader), second.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, a)
	assert.NotEmpty(t, b)
	assert.NotEqual(t, a, b)

	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.Header.Set(RequestIDHeader, "client-chosen")
	assert.NotEqual(t, "client-chosen", serve(f.handler, r).Header().Get(RequestIDHeader))
}

func TestRouter_EdgeGuardsPages(t *testing.T) {
	f := newRouterFixture(t)

	w := f.get("/dashboard", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?redirect=/dashboard", w.Header().Get("Location"))

	w = f.get("/admin/students", mintCredential(t, "stu-1", domainauth.RoleStudent))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	w = f.get("/login", mintCredential(t, "adm-1", domainauth.RoleAdmin))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin", w.Header().Get("Location"))

	// No page upstream configured: allowed navigations fall through to 404.
	assert.Equal(t, http.StatusNotFound, f.get("/dashboard", mintCredential(t, "stu-1", domainauth.RoleStudent)).Code)
}

func TestRouter_CreateSession(t *testing.T) {
	t.Run("rejects without csrf token", func(t *testing.T) {
		f := newRouterFixture(t)
		w := f.post("/api/auth/session", `{"idToken":"proof"}`, "", false)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "csrf_rejected", errorCode(t, w))
	})

	t.Run("sets session cookie", func(t *testing.T) {
		f := newRouterFixture(t)
		f.sessions.EXPECT().MintSessionCredential(gomock.Any(), "proof").Return("cred", nil)
		f.sessions.EXPECT().VerifySessionCredential(gomock.Any(), "cred").Return(claimsFor("tpo-1", domainauth.RoleTPO), nil)

		w := f.post("/api/auth/session", `{"idToken":"proof"}`, "", true)
		require.Equal(t, http.StatusOK, w.Code)

		var body sessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "/admin", body.RedirectTo)
		assert.Equal(t, "tpo", body.User.Role)

		cookie := findCookie(w.Result(), DefaultSessionCookieName)
		require.NotNil(t, cookie)
		assert.Equal(t, "cred", cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.Equal(t, int(sessiontoken.DefaultTTL.Seconds()), cookie.MaxAge)
	})

	t.Run("rejected proof is 401", func(t *testing.T) {
		f := newRouterFixture(t)
		f.sessions.EXPECT().MintSessionCredential(gomock.Any(), "bad").
			Return("", apperrors.InvalidCredential(errors.New("signature")))
		w := f.post("/api/auth/session", `{"idToken":"bad"}`, "", true)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid_credential", errorCode(t, w))
	})

	t.Run("backend outage is 503", func(t *testing.T) {
		f := newRouterFixture(t)
		f.sessions.EXPECT().MintSessionCredential(gomock.Any(), "proof").
			Return("", apperrors.BackendUnavailable(errors.New("discovery")))
		w := f.post("/api/auth/session", `{"idToken":"proof"}`, "", true)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		f := newRouterFixture(t)
		w := f.post("/api/auth/session", `{"idToken":"p","role":"admin"}`, "", true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRouter_Me(t *testing.T) {
	tests := []struct {
		name     string
		session  string
		setup    func(*mocks.MockSessionStore)
		wantCode int
		wantErr  string
	}{
		{name: "no cookie", wantCode: http.StatusUnauthorized, wantErr: "authentication_missing"},
		{
			name:    "invalid credential",
			session: "stale",
			setup: func(m *mocks.MockSessionStore) {
				m.EXPECT().VerifySessionCredential(gomock.Any(), "stale").Return(nil, nil)
			},
			wantCode: http.StatusUnauthorized,
			wantErr:  "authentication_invalid",
		},
		{
			name:    "backend outage",
			session: "cred",
			setup: func(m *mocks.MockSessionStore) {
				m.EXPECT().VerifySessionCredential(gomock.Any(), "cred").
					Return(nil, apperrors.BackendUnavailable(errors.New("redis")))
			},
			wantCode: http.StatusServiceUnavailable,
			wantErr:  "backend_unavailable",
		},
		{
			name:    "verified",
			session: "cred",
			setup: func(m *mocks.MockSessionStore) {
				m.EXPECT().VerifySessionCredential(gomock.Any(), "cred").Return(claimsFor("stu-1", domainauth.RoleStudent), nil)
			},
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t)
			if tt.setup != nil {
				tt.setup(f.sessions)
			}
			w := f.get("/api/auth/me", tt.session)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, errorCode(t, w))
			}
		})
	}
}

func TestRouter_AdminSetRole(t *testing.T) {
	t.Run("student is forbidden", func(t *testing.T) {
		f := newRouterFixture(t)
		f.sessions.EXPECT().VerifySessionCredential(gomock.Any(), "stu").Return(claimsFor("stu-1", domainauth.RoleStudent), nil)
		w := f.post("/api/admin/users/u9/role", `{"role":"tpo"}`, "stu", true)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "authorization_denied", errorCode(t, w))
	})

	t.Run("tpo is forbidden", func(t *testing.T) {
		f := newRouterFixture(t)
		f.sessions.EXPECT().VerifySessionCredential(gomock.Any(), "tpo").Return(claimsFor("tpo-1", domainauth.RoleTPO), nil)
		w := f.post("/api/admin/users/u9/role", `{"role":"admin"}`, "tpo", true)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin sets role and revokes", func(t *testing.T) {
		f := newRouterFixture(t)
		f.sessions.EXPECT().VerifySessionCredential(gomock.Any(), "adm").Return(claimsFor("adm-1", domainauth.RoleAdmin), nil)
		gomock.InOrder(
			f.sessions.EXPECT().SetClaims(gomock.Any(), "u9", domainauth.PrincipalClaims{Role: domainauth.RoleTPO, ProgramCode: "MCA"}).Return(nil),
			f.sessions.EXPECT().RevokeAllSessions(gomock.Any(), "u9").Return(nil),
		)
		w := f.post("/api/admin/users/u9/role", `{"role":"tpo","programCode":"MCA"}`, "adm", true)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid role is 400", func(t *testing.T) {
		f := newRouterFixture(t)
		f.sessions.EXPECT().VerifySessionCredential(gomock.Any(), "adm").Return(claimsFor("adm-1", domainauth.RoleAdmin), nil)
		w := f.post("/api/admin/users/u9/role", `{"role":"root"}`, "adm", true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation", errorCode(t, w))
	})

	t.Run("csrf checked before the backend", func(t *testing.T) {
		f := newRouterFixture(t)
		w := f.post("/api/admin/users/u9/role", `{"role":"tpo"}`, "adm", false)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "csrf_rejected", errorCode(t, w))
	})
}

func TestRouter_Logout(t *testing.T) {
	f := newRouterFixture(t)
	f.sessions.EXPECT().VerifySessionCredential(gomock.Any(), "cred").Return(claimsFor("stu-1", domainauth.RoleStudent), nil)
	f.sessions.EXPECT().RevokeAllSessions(gomock.Any(), "stu-1").Return(nil)

	w := f.post("/api/auth/logout", "", "cred", true)
	assert.Equal(t, http.StatusOK, w.Code)
	cleared := findCookie(w.Result(), DefaultSessionCookieName)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
}
