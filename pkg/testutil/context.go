package testutil

import (
	"net/http"

	"custody/pkg/requestcontext"
)

// WithAdmin marks the request as coming from an authenticated admin, as the admin
// middleware would.
func WithAdmin(req *http.Request, actor string) *http.Request {
	return req.WithContext(requestcontext.WithAdmin(req.Context(), actor))
}

// WithActor attaches a non-admin principal to the request.
func WithActor(req *http.Request, actor string) *http.Request {
	return req.WithContext(requestcontext.WithActorID(req.Context(), actor))
}
