package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/saturn72/efaudit/pkg/requestcontext"
)

// Subject extracts the actor identifier from a bearer token's sub claim and
// injects it into the request context. Requests without a valid token
// proceed unauthenticated: audit records may legitimately carry no subject,
// so this middleware never rejects.
func Subject(signingKey []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || len(signingKey) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			subject, err := parseSubject(token, signingKey)
			if err != nil {
				logger.WarnContext(r.Context(), "ignoring invalid bearer token",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				next.ServeHTTP(w, r)
				return
			}

			ctx := requestcontext.WithSubjectID(r.Context(), subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseSubject(token string, signingKey []byte) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}
	return parsed.Claims.GetSubject()
}
