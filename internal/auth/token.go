package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"wxrelay/internal/params"
	"wxrelay/pkg/errors"
)

// ResolveToken finds the caller token: the bag's token field wins, then the
// Authorization header. A "Bearer <token>" header yields the second field;
// any other header shape is taken verbatim.
func ResolveToken(bag params.Bag, header http.Header) string {
	if token := bag.Get("token"); token != "" {
		return token
	}

	authHeader := header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}

	return authHeader
}

type Authenticator struct {
	apiToken string
}

func NewAuthenticator(apiToken string) *Authenticator {
	return &Authenticator{apiToken: apiToken}
}

// Authenticate compares the presented token against the configured secret.
// The token must match exactly; the comparison is constant-time.
func (a *Authenticator) Authenticate(token string) error {
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.apiToken)) != 1 {
		return errors.ErrForbidden.WithMessage("invalid token")
	}
	return nil
}
