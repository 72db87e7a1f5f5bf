// Package policyauth guards mutating routes with a static bearer token.
package policyauth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	HeaderAuthorization = "Authorization"
	BearerPrefix        = "Bearer "
)

var ErrUnauthorized = errors.New("policy authentication failed")

type RejectFunc func(http.ResponseWriter, *http.Request, error)

// Middleware rejects requests without the expected bearer token. An empty
// token disables the check.
func Middleware(token string, reject RejectFunc) func(http.Handler) http.Handler {
	expected := strings.TrimSpace(token)
	if expected == "" {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	expectedHeader := []byte(BearerPrefix + expected)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := []byte(strings.TrimSpace(r.Header.Get(HeaderAuthorization)))
			if subtle.ConstantTimeCompare(provided, expectedHeader) != 1 {
				reject(w, r, fmt.Errorf("%w: missing or invalid bearer token", ErrUnauthorized))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
