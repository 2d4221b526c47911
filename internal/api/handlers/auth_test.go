package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/hugh/clubhub/internal/api/dto"
	"github.com/hugh/clubhub/internal/auth"
	"github.com/hugh/clubhub/internal/database/models"
	"github.com/hugh/clubhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func githubIdentity(email string) *auth.Identity {
	return &auth.Identity{
		Provider:          "github",
		ProviderAccountID: "4242",
		Email:             email,
		Name:              "Grace Hopper",
		AccessToken:       "gho_test",
		TokenType:         "bearer",
	}
}

// callback builds a callback request carrying a valid state and nonce.
func callback(t *testing.T, env *testEnv, redirect string) *http.Request {
	t.Helper()

	state, nonce, err := env.state.Issue(redirect)
	require.NoError(t, err)

	q := url.Values{"state": {state}, "code": {"the-code"}}
	req := httptest.NewRequest("GET", "/auth/callback/github?"+q.Encode(), nil)
	req.AddCookie(&http.Cookie{Name: "clubhub_oauth_nonce", Value: nonce})
	return req
}

func TestAuthHandler_SignIn(t *testing.T) {
	env := setupEnv(t)

	t.Run("redirects to provider with state", func(t *testing.T) {
		rr := env.do(httptest.NewRequest("GET", "/auth/signin?redirect=/profile", nil))

		testutil.AssertStatus(t, rr, http.StatusFound)
		loc, err := url.Parse(rr.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "github.example", loc.Host)

		nonce := findCookie(rr, "clubhub_oauth_nonce")
		require.NotNil(t, nonce)
		assert.True(t, nonce.HttpOnly)

		redirect, err := env.state.Verify(loc.Query().Get("state"), nonce.Value)
		require.NoError(t, err)
		assert.Equal(t, "/profile", redirect)
	})

	t.Run("unknown provider", func(t *testing.T) {
		rr := env.do(httptest.NewRequest("GET", "/auth/signin?provider=gitlab", nil))
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}

func TestAuthHandler_Callback(t *testing.T) {
	t.Run("new user gets session and backfill", func(t *testing.T) {
		env := setupEnv(t)
		college := testutil.CreateTestCollege(t, env.db, "Example University", "example.edu")
		env.provider.identity = githubIdentity("grace@example.edu")

		rr := env.do(callback(t, env, "/organizations"))

		testutil.AssertStatus(t, rr, http.StatusFound)
		assert.Equal(t, "/organizations", rr.Header().Get("Location"))
		assert.Equal(t, []string{"the-code"}, env.provider.codes)

		session := findCookie(rr, cookieName)
		require.NotNil(t, session)
		assert.NotEmpty(t, session.Value)
		assert.True(t, session.HttpOnly)

		var user models.User
		require.NoError(t, env.db.Where("email = ?", "grace@example.edu").First(&user).Error)
		assert.Nil(t, user.CollegeID)

		require.Len(t, env.backfiller.calls, 1)
		assert.Equal(t, "grace@example.edu", env.backfiller.calls[0].email)
		assert.Equal(t, college.ID, env.backfiller.calls[0].collegeID)

		// the cookie opens a session
		req := httptest.NewRequest("GET", "/api/v1/auth/session", nil)
		req.AddCookie(&http.Cookie{Name: cookieName, Value: session.Value})
		rr = env.do(req)
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("redirect outside the site falls back to root", func(t *testing.T) {
		env := setupEnv(t)
		env.provider.identity = githubIdentity("grace@nowhere.org")

		rr := env.do(callback(t, env, "https://evil.example"))

		testutil.AssertStatus(t, rr, http.StatusFound)
		assert.Equal(t, "/", rr.Header().Get("Location"))
	})

	t.Run("nonce mismatch", func(t *testing.T) {
		env := setupEnv(t)
		env.provider.identity = githubIdentity("grace@example.edu")

		state, _, err := env.state.Issue("/")
		require.NoError(t, err)
		req := httptest.NewRequest("GET", "/auth/callback/github?code=x&state="+url.QueryEscape(state), nil)
		req.AddCookie(&http.Cookie{Name: "clubhub_oauth_nonce", Value: "other"})

		rr := env.do(req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		assert.Empty(t, env.provider.codes)
	})

	t.Run("missing nonce cookie", func(t *testing.T) {
		env := setupEnv(t)
		state, _, err := env.state.Issue("/")
		require.NoError(t, err)

		rr := env.do(httptest.NewRequest("GET", "/auth/callback/github?code=x&state="+url.QueryEscape(state), nil))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("provider denied", func(t *testing.T) {
		env := setupEnv(t)

		rr := env.do(httptest.NewRequest("GET", "/auth/callback/github?error=access_denied", nil))
		testutil.AssertStatus(t, rr, http.StatusFound)
		assert.Equal(t, "/login?error=access_denied", rr.Header().Get("Location"))
	})

	t.Run("exchange failure", func(t *testing.T) {
		env := setupEnv(t)
		env.provider.err = errProviderDown

		rr := env.do(callback(t, env, "/"))
		testutil.AssertStatus(t, rr, http.StatusBadGateway)
		assert.Nil(t, findCookie(rr, cookieName))
	})

	t.Run("email owned by another account", func(t *testing.T) {
		env := setupEnv(t)
		testutil.CreateTestUserWithEmail(t, env.db, "grace@example.edu")
		env.provider.identity = githubIdentity("grace@example.edu")

		rr := env.do(callback(t, env, "/"))
		testutil.AssertStatus(t, rr, http.StatusFound)
		assert.Equal(t, "/login?error=account_conflict", rr.Header().Get("Location"))
		assert.Nil(t, findCookie(rr, cookieName))
	})
}

func TestAuthHandler_Session(t *testing.T) {
	env := setupEnv(t)
	college := testutil.CreateTestCollege(t, env.db, "Example University", "example.edu")
	user := testutil.CreateTestUserWithEmail(t, env.db, "ada@example.edu")
	require.NoError(t, env.db.Model(user).Update("college_id", college.ID).Error)
	token := testutil.CreateTestSession(t, env.db, user)

	t.Run("enriched session", func(t *testing.T) {
		rr := env.do(testutil.AuthenticatedRequest(t, "GET", "/api/v1/auth/session", nil, token))
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.SessionResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		require.NotNil(t, resp.User)
		assert.Equal(t, "ada@example.edu", resp.User.Email)
		assert.Equal(t, models.RoleMember, resp.User.Role)
		require.NotNil(t, resp.User.College)
		assert.Equal(t, "Example University", resp.User.College.Name)
		assert.Equal(t, []string{"example.edu"}, resp.User.College.Domains)
	})

	t.Run("no session", func(t *testing.T) {
		rr := env.do(testutil.UnauthenticatedRequest(t, "GET", "/api/v1/auth/session", nil))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("unknown token", func(t *testing.T) {
		rr := env.do(testutil.AuthenticatedRequest(t, "GET", "/api/v1/auth/session", nil, "bogus"))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}

func TestAuthHandler_SignOut(t *testing.T) {
	env := setupEnv(t)
	user := testutil.CreateTestUser(t, env.db)
	token := testutil.CreateTestSession(t, env.db, user)

	rr := env.do(testutil.AuthenticatedRequest(t, "POST", "/auth/signout", nil, token))
	testutil.AssertStatus(t, rr, http.StatusOK)

	cleared := findCookie(rr, cookieName)
	require.NotNil(t, cleared)
	assert.True(t, cleared.MaxAge < 0)

	var count int64
	env.db.Model(&models.Session{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Zero(t, count)

	rr = env.do(testutil.AuthenticatedRequest(t, "GET", "/api/v1/auth/session", nil, token))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestAuthHandler_SignOutFromBrowser(t *testing.T) {
	env := setupEnv(t)
	user := testutil.CreateTestUser(t, env.db)
	token := testutil.CreateTestSession(t, env.db, user)

	req := httptest.NewRequest("POST", "/auth/signout", nil)
	req.Header.Set("Accept", "text/html")
	req.AddCookie(&http.Cookie{Name: cookieName, Value: token})

	rr := env.do(req)
	testutil.AssertStatus(t, rr, http.StatusSeeOther)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}
