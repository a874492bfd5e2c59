package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"gastos/internal/log"
)

type contextKey struct{}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the claims set by Middleware.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(*Claims)
	return c, ok
}

// Middleware rejects requests without a valid bearer token.
func Middleware(tokens *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := ExtractBearer(r.Header.Get("Authorization"))
			if err != nil {
				reject(w, r, err)
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				reject(w, r, err)
				return
			}
			ctx := WithClaims(r.Context(), claims)
			logger := log.FromContext(ctx).With(log.FieldUserID, claims.UserID)
			ctx = log.WithLogger(ctx, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, err error) {
	code := "INVALID_TOKEN"
	if errors.Is(err, ErrMissingToken) {
		code = "MISSING_TOKEN"
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Rejected unauthenticated request",
		"path", r.URL.Path, "code", code, "error", err)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error(), "code": code})
}
