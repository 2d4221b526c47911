package api_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hugh/clubhub/internal/api"
	"github.com/hugh/clubhub/internal/api/middleware"
	"github.com/hugh/clubhub/internal/auth"
	"github.com/hugh/clubhub/internal/directory"
	"github.com/hugh/clubhub/internal/metrics"
	"github.com/hugh/clubhub/internal/testutil"
	"github.com/hugh/clubhub/internal/web"
	"github.com/hugh/clubhub/pkg/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gorm.io/gorm"
)

func newTestRouter(t *testing.T) (*api.Router, *gorm.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := util.DiscardLogger()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	templates, err := web.LoadTemplates()
	require.NoError(t, err)
	static, err := web.GetStaticFS()
	require.NoError(t, err)

	csrf := middleware.NewCSRFStore("clubhub_session")
	t.Cleanup(csrf.Close)

	authService := auth.NewService(db, auth.ServiceDeps{Metrics: m, Logger: logger})

	router := api.NewRouter(api.RouterConfig{
		DB:            db,
		Logger:        logger,
		AuthService:   authService,
		Directory:     directory.NewService(db, m),
		State:         auth.NewStateService("secret", time.Minute),
		Providers:     map[string]auth.Provider{"github": auth.NewGitHubProvider("id", "secret", "http://localhost/auth/callback/github")},
		Metrics:       m,
		Gatherer:      reg,
		Templates:     templates,
		StaticFS:      static,
		CSRFStore:     csrf,
		CookieName:    "clubhub_session",
		SessionTTL:    time.Hour,
		RateLimitReqs: 1000,
		RateLimitSecs: 60,
	})
	t.Cleanup(router.Close)
	return router, db
}

func TestRouter_PublicRoutes(t *testing.T) {
	router, db := newTestRouter(t)
	testutil.CreateTestOrganization(t, db, "Chess Club", "", "Games", time.Time{})

	for _, path := range []string{"/health", "/ready", "/", "/about", "/login", "/api/v1/organizations", "/api/v1/colleges", "/static/css/style.css"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/organizations?query=chess", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, `clubhub_http_requests_total{method="GET",route="/api/v1/organizations",status="200"} 1`)
	assert.Contains(t, body, "clubhub_directory_searches_total")
}

func TestRouter_SignInRedirectsToGitHub(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/auth/signin", nil))

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Contains(t, rr.Header().Get("Location"), "https://github.com/login/oauth/authorize")
}

func TestRouter_CookieSignOutRequiresCSRF(t *testing.T) {
	router, db := newTestRouter(t)
	user := testutil.CreateTestUser(t, db)
	token := testutil.CreateTestSession(t, db, user)

	req := httptest.NewRequest("POST", "/auth/signout", nil)
	req.AddCookie(&http.Cookie{Name: "clubhub_session", Value: token})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// a page view hands out the token
	page := httptest.NewRequest("GET", "/about", nil)
	page.AddCookie(&http.Cookie{Name: "clubhub_session", Value: token})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, page)
	require.Equal(t, http.StatusOK, rr.Code)

	var csrfToken string
	for _, c := range rr.Result().Cookies() {
		if c.Name == "csrf_token" {
			csrfToken = c.Value
		}
	}
	require.NotEmpty(t, csrfToken)

	req = httptest.NewRequest("POST", "/auth/signout", nil)
	req.AddCookie(&http.Cookie{Name: "clubhub_session", Value: token})
	req.Header.Set("X-CSRF-Token", csrfToken)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_MembershipRequiresSession(t *testing.T) {
	router, db := newTestRouter(t)
	org := testutil.CreateTestOrganization(t, db, "Chess Club", "", "", time.Time{})

	req := httptest.NewRequest("POST", "/api/v1/organizations/"+org.ID.String()+"/members", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_CloseStopsRateLimiters(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	router := api.NewRouter(api.RouterConfig{
		Logger:        slog.Default(),
		CookieName:    "clubhub_session",
		RateLimitReqs: 10,
		RateLimitSecs: 60,
	})
	router.Close()
}
