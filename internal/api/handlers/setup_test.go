package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/clubhub/internal/api/handlers"
	"github.com/hugh/clubhub/internal/api/middleware"
	"github.com/hugh/clubhub/internal/auth"
	"github.com/hugh/clubhub/internal/directory"
	"github.com/hugh/clubhub/internal/testutil"
	"github.com/hugh/clubhub/internal/web"
	"github.com/hugh/clubhub/pkg/util"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const cookieName = "clubhub_session"

type fakeProvider struct {
	identity *auth.Identity
	err      error
	codes    []string
}

func (p *fakeProvider) Name() string { return "github" }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://github.example/login/oauth/authorize?state=" + state
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (*auth.Identity, error) {
	p.codes = append(p.codes, code)
	if p.err != nil {
		return nil, p.err
	}
	id := *p.identity
	return &id, nil
}

type scheduledBackfill struct {
	email     string
	collegeID uuid.UUID
}

type recordingBackfiller struct {
	calls []scheduledBackfill
}

func (b *recordingBackfiller) Schedule(_ context.Context, email string, collegeID uuid.UUID) error {
	b.calls = append(b.calls, scheduledBackfill{email: email, collegeID: collegeID})
	return nil
}

type testEnv struct {
	db         *gorm.DB
	router     *chi.Mux
	auth       *auth.Service
	state      *auth.StateService
	provider   *fakeProvider
	backfiller *recordingBackfiller
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := util.DiscardLogger()

	env := &testEnv{
		db:         db,
		state:      auth.NewStateService("test-state-secret", 10*time.Minute),
		provider:   &fakeProvider{},
		backfiller: &recordingBackfiller{},
	}
	env.auth = auth.NewService(db, auth.ServiceDeps{
		Backfiller: env.backfiller,
		Logger:     logger,
		SessionTTL: time.Hour,
	})
	dir := directory.NewService(db, nil)

	templates, err := web.LoadTemplates()
	require.NoError(t, err)

	providers := map[string]auth.Provider{"github": env.provider}

	authHandler := handlers.NewAuthHandler(env.auth, env.state, providers, handlers.CookieSettings{
		Name: cookieName,
		TTL:  time.Hour,
	}, logger)
	orgHandler := handlers.NewOrganizationHandler(dir, logger)
	collegeHandler := handlers.NewCollegeHandler(dir, logger)
	userHandler := handlers.NewUserHandler(env.auth, logger)
	pageHandler := handlers.NewPageHandler(dir, env.auth, templates, nil, providers, logger)

	r := chi.NewRouter()
	r.Use(middleware.Session(env.auth, cookieName, logger))

	r.Get("/auth/signin", authHandler.SignIn)
	r.Get("/auth/callback/{provider}", authHandler.Callback)
	r.Post("/auth/signout", authHandler.SignOut)
	r.Get("/api/v1/auth/session", authHandler.Session)
	r.Get("/api/v1/organizations", orgHandler.List)
	r.Get("/api/v1/organizations/{id}", orgHandler.Get)
	r.Get("/api/v1/colleges", collegeHandler.List)
	r.Get("/api/v1/users/{id}", userHandler.Get)
	r.With(middleware.RequireSession).Post("/api/v1/organizations/{id}/members", orgHandler.Join)
	r.With(middleware.RequireSession).Delete("/api/v1/organizations/{id}/members/me", orgHandler.Leave)
	r.Get("/", pageHandler.Index)
	r.Get("/organizations/{id}", pageHandler.Organization)
	r.Get("/about", pageHandler.About)
	r.Get("/login", pageHandler.Login)
	r.With(middleware.RequireSession).Get("/profile", pageHandler.Profile)

	env.router = r
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

var errProviderDown = errors.New("github unavailable")
