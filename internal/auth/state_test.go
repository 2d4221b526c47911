package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateService_RoundTrip(t *testing.T) {
	svc := NewStateService("test-state-secret", 10*time.Minute)

	state, nonce, err := svc.Issue("/organizations/123")
	require.NoError(t, err)
	assert.NotEmpty(t, state)
	assert.NotEmpty(t, nonce)

	redirect, err := svc.Verify(state, nonce)
	require.NoError(t, err)
	assert.Equal(t, "/organizations/123", redirect)
}

func TestStateService_NonceMismatch(t *testing.T) {
	svc := NewStateService("test-state-secret", 10*time.Minute)

	state, _, err := svc.Issue("/")
	require.NoError(t, err)

	_, err = svc.Verify(state, "some-other-nonce")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Verify(state, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateService_Expired(t *testing.T) {
	svc := NewStateService("test-state-secret", -time.Minute)

	state, nonce, err := svc.Issue("/")
	require.NoError(t, err)

	_, err = svc.Verify(state, nonce)
	assert.ErrorIs(t, err, ErrExpiredState)
}

func TestStateService_WrongSecret(t *testing.T) {
	issuer := NewStateService("secret-one", 10*time.Minute)
	verifier := NewStateService("secret-two", 10*time.Minute)

	state, nonce, err := issuer.Issue("/")
	require.NoError(t, err)

	_, err = verifier.Verify(state, nonce)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateService_Garbage(t *testing.T) {
	svc := NewStateService("test-state-secret", 10*time.Minute)

	_, err := svc.Verify("not.a.jwt", "nonce")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateService_UnsafeRedirectIsReplaced(t *testing.T) {
	svc := NewStateService("test-state-secret", 10*time.Minute)

	state, nonce, err := svc.Issue("https://evil.example.com/")
	require.NoError(t, err)

	redirect, err := svc.Verify(state, nonce)
	require.NoError(t, err)
	assert.Equal(t, "/", redirect)
}

func TestSafeRedirect(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/profile", "/profile"},
		{"/organizations?query=robo", "/organizations?query=robo"},
		{"//evil.example.com", "/"},
		{`/\evil.example.com`, "/"},
		{"https://evil.example.com", "/"},
		{"profile", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeRedirect(tt.in))
		})
	}
}
