package testutil

import (
	"context"
	"net/http"
)

// CSRFToken is the token WithCSRFToken places in request context; forms
// rendered in tests carry it in their csrf_token field.
const CSRFToken = "test-csrf-token-12345"

// gorilla/csrf looks the token up under this context key.
const csrfTokenKey = "gorilla.csrf.Token"

// WithCSRFToken stores CSRFToken where csrf.Token(r) finds it, so handlers
// can render forms without the csrf middleware in front of them.
func WithCSRFToken(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), csrfTokenKey, CSRFToken))
}

// NewAuthenticatedRequestWithCSRF is NewAuthenticatedRequest plus a CSRF
// token; use it for GETs of screens that render forms.
func NewAuthenticatedRequestWithCSRF(method, target string, user TestUser) *http.Request {
	return WithCSRFToken(NewAuthenticatedRequest(method, target, user))
}
