package testutil

import (
	"context"
	"net/http"

	"veil/internal/platform/middleware"
)

// WithSubject adds an authenticated caller subject to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithSubject(req *http.Request, subject string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeySubject, subject)
	return req.WithContext(ctx)
}

// WithPrivileged marks the request context as coming from a privileged
// caller, as the auth middleware does for tokens carrying the claim.
func WithPrivileged(req *http.Request) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyPrivileged, true)
	return req.WithContext(ctx)
}

// WithAuth adds both subject and privilege to the request context.
func WithAuth(req *http.Request, subject string, privileged bool) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeySubject, subject)
	if privileged {
		ctx = context.WithValue(ctx, middleware.ContextKeyPrivileged, true)
	}
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
