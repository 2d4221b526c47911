package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hugh/clubhub/pkg/crypto"
)

var (
	ErrInvalidState = errors.New("invalid oauth state")
	ErrExpiredState = errors.New("oauth state has expired")
)

// StateClaims is the payload of the OAuth state parameter. The nonce is
// also kept in a cookie on the browser that started the flow.
type StateClaims struct {
	Nonce    string `json:"nonce"`
	Redirect string `json:"redirect,omitempty"`
	jwt.RegisteredClaims
}

type StateService struct {
	secret []byte
	expiry time.Duration
}

func NewStateService(secret string, expiry time.Duration) *StateService {
	return &StateService{
		secret: []byte(secret),
		expiry: expiry,
	}
}

// Expiry is how long an issued state stays valid.
func (s *StateService) Expiry() time.Duration {
	return s.expiry
}

// Issue signs a new state carrying redirect. It returns the state and the
// nonce to store client side.
func (s *StateService) Issue(redirect string) (state, nonce string, err error) {
	nonce, err = crypto.NewToken(16)
	if err != nil {
		return "", "", err
	}

	now := time.Now()
	claims := StateClaims{
		Nonce:    nonce,
		Redirect: SafeRedirect(redirect),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "clubhub",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	state, err = token.SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	return state, nonce, nil
}

// Verify checks the signature, expiry and nonce of state and returns the
// redirect path it carries.
func (s *StateService) Verify(state, nonce string) (string, error) {
	token, err := jwt.ParseWithClaims(state, &StateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidState
		}
		return s.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredState
		}
		return "", ErrInvalidState
	}

	claims, ok := token.Claims.(*StateClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidState
	}
	if nonce == "" || subtle.ConstantTimeCompare([]byte(claims.Nonce), []byte(nonce)) != 1 {
		return "", ErrInvalidState
	}

	return SafeRedirect(claims.Redirect), nil
}

// SafeRedirect returns p if it is a local absolute path, otherwise "/".
func SafeRedirect(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") {
		return "/"
	}
	if strings.HasPrefix(p, "//") || strings.HasPrefix(p, `/\`) {
		return "/"
	}
	return p
}
