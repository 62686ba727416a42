// Package auth provides bearer token authentication for the traversal API server.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// unauthorizedMessage is the body returned on every authentication failure,
// regardless of whether the header was missing, malformed, or wrong.
const unauthorizedMessage = "Invalid or missing bearer token"

// bearerMiddleware validates requests against a single static API key.
type bearerMiddleware struct {
	apiKey []byte
}

// NewBearerMiddleware creates an authentication middleware that accepts
// requests carrying the given API key as a bearer token.
func NewBearerMiddleware(apiKey string) func(http.Handler) http.Handler {
	m := &bearerMiddleware{apiKey: []byte(apiKey)}
	return m.Middleware
}

// Middleware returns an HTTP middleware function that performs authentication.
func (m *bearerMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractBearerToken(r)
		if !ok {
			slog.Warn("Missing or malformed authorization header",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path)
			writeUnauthorized(w)
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), m.apiKey) != 1 {
			slog.Warn("Bearer token rejected",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path)
			writeUnauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractBearerToken pulls the token out of the Authorization header.
// The "Bearer" scheme keyword is matched case-insensitively per RFC 6750.
func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// writeUnauthorized writes the standard 401 JSON error response
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="git-traverser"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	resp := struct {
		Error string `json:"error"`
	}{
		Error: unauthorizedMessage,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}

// WrapWithPublicPaths wraps an auth middleware to bypass authentication for public paths.
// Requests to public paths are passed directly to the next handler without authentication,
// while all other requests go through the provided auth middleware.
func WrapWithPublicPaths(
	authMw func(http.Handler) http.Handler,
	publicPaths []string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		// Pre-wrap the handler once during initialization, not per-request
		authWrappedNext := authMw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsPublicPath(r.URL.Path, publicPaths) {
				authWrappedNext.ServeHTTP(w, r)
			} else {
				next.ServeHTTP(w, r)
			}
		})
	}
}
