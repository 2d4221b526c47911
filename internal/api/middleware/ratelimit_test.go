package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/clubhub/internal/auth"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(3, 60)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		allowed, remaining, _ := rl.Allow("10.0.0.1")
		assert.True(t, allowed)
		assert.Equal(t, 2-i, remaining)
	}

	allowed, remaining, _ := rl.Allow("10.0.0.1")
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)

	// other clients are unaffected
	allowed, _, _ = rl.Allow("10.0.0.2")
	assert.True(t, allowed)
}

func TestRateLimit_Middleware(t *testing.T) {
	limiter := NewRateLimiter(1, 60)
	defer limiter.Stop()
	handler := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/v1/organizations", nil)
	req.RemoteAddr = "192.0.2.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimitByUser_KeysOnSession(t *testing.T) {
	limiter := NewRateLimiter(1, 60)
	defer limiter.Stop()
	handler := RateLimitByUser(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	newReq := func(userID uuid.UUID) *http.Request {
		req := httptest.NewRequest("POST", "/api/v1/organizations/x/members", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		return req.WithContext(WithSession(req.Context(), &auth.SessionView{UserID: userID}, "tok"))
	}

	alice, bob := uuid.New(), uuid.New()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newReq(alice))
	assert.Equal(t, http.StatusOK, rec.Code)

	// same IP, different user
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, newReq(bob))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, newReq(alice))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", getClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", getClientIP(req))
}

func TestRateLimiter_StopEndsCleanup(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rl := NewRateLimiter(1, 60)
	rl.Stop()
	rl.Stop()
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(5, 1)
	defer rl.Stop()

	rl.Allow("10.0.0.1")
	rl.evict(time.Now())
	assert.Len(t, rl.clients, 1)

	rl.evict(time.Now().Add(3 * time.Second))
	assert.Empty(t, rl.clients)
}
