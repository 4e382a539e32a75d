package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Authenticator decides whether an upgrade request may connect.
type Authenticator interface {
	Authenticate(r *http.Request) error
}

// TokenAuth accepts requests carrying Token either as the "token" query
// parameter or as a bearer Authorization header. An empty Token admits all.
type TokenAuth struct {
	Token string
}

func (a TokenAuth) Authenticate(r *http.Request) error {
	if a.Token == "" {
		return nil
	}
	got := r.URL.Query().Get("token")
	if got == "" {
		got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(a.Token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
