package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csrfHandler(store *CSRFStore) http.Handler {
	return CSRF(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCSRF_SafeMethodSetsCookie(t *testing.T) {
	store := NewCSRFStore(testCookie)
	t.Cleanup(store.Close)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "session-token"})
	rec := httptest.NewRecorder()
	csrfHandler(store).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var csrfCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName {
			csrfCookie = c
		}
	}
	require.NotNil(t, csrfCookie)
	assert.Equal(t, store.GetOrCreate(store.sessionID(req)), csrfCookie.Value)
}

func TestCSRF_UnsafeMethodRequiresToken(t *testing.T) {
	store := NewCSRFStore(testCookie)
	t.Cleanup(store.Close)

	req := httptest.NewRequest("POST", "/auth/signout", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "session-token"})
	rec := httptest.NewRecorder()
	csrfHandler(store).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "CSRF token missing")
}

func TestCSRF_ValidHeaderToken(t *testing.T) {
	store := NewCSRFStore(testCookie)
	t.Cleanup(store.Close)

	req := httptest.NewRequest("POST", "/auth/signout", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "session-token"})
	req.Header.Set(csrfHeaderName, GetCSRFToken(req, store))

	rec := httptest.NewRecorder()
	csrfHandler(store).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRF_ValidFormToken(t *testing.T) {
	store := NewCSRFStore(testCookie)
	t.Cleanup(store.Close)

	probe := httptest.NewRequest("GET", "/", nil)
	probe.AddCookie(&http.Cookie{Name: testCookie, Value: "session-token"})
	token := GetCSRFToken(probe, store)

	form := url.Values{csrfFormField: {token}}
	req := httptest.NewRequest("POST", "/auth/signout", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "session-token"})

	rec := httptest.NewRecorder()
	csrfHandler(store).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRF_TokenBoundToSession(t *testing.T) {
	store := NewCSRFStore(testCookie)
	t.Cleanup(store.Close)

	other := httptest.NewRequest("GET", "/", nil)
	other.AddCookie(&http.Cookie{Name: testCookie, Value: "someone-else"})
	foreign := GetCSRFToken(other, store)

	req := httptest.NewRequest("POST", "/auth/signout", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "session-token"})
	req.Header.Set(csrfHeaderName, foreign)

	rec := httptest.NewRecorder()
	csrfHandler(store).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCSRF_BearerSkipsCheck(t *testing.T) {
	store := NewCSRFStore(testCookie)
	t.Cleanup(store.Close)

	req := httptest.NewRequest("DELETE", "/api/v1/organizations/x/members/me", nil)
	req.Header.Set("Authorization", "Bearer tok")

	rec := httptest.NewRecorder()
	csrfHandler(store).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRF_NoSession(t *testing.T) {
	store := NewCSRFStore(testCookie)
	t.Cleanup(store.Close)

	req := httptest.NewRequest("POST", "/auth/signout", nil)
	rec := httptest.NewRecorder()
	csrfHandler(store).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "", GetCSRFToken(req, store))
}
