package middleware

import (
	"net/http"
	"strings"

	"labbook/internal/authz"
	apperrors "labbook/pkg/errors"
	"labbook/pkg/logger"
)

const TokenCookieName = "token"

type TokenValidator interface {
	Validate(token string) (*authz.Actor, error)
}

// Authenticate resolves the caller from a Bearer token or the token cookie.
// Requests without a token pass through anonymously and the handlers decide;
// a token that fails validation is rejected.
func Authenticate(tokens TokenValidator, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			actor, err := tokens.Validate(token)
			if err != nil {
				log.Debug("Rejected token",
					"request_id", RequestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				_ = apperrors.WriteError(w, apperrors.Unauthorized("Invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(authz.WithActor(r.Context(), actor)))
		})
	}
}

func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(TokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
