package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	dErrors "konto/pkg/domain-errors"
	"konto/pkg/platform/httputil"
)

type officerKey struct{}

// Officer returns the authenticated officer ID set by RequireOfficer. Handlers
// read it here and pass it explicitly into service calls; services never touch
// the context for identity.
func Officer(ctx context.Context) string {
	v, _ := ctx.Value(officerKey{}).(string)
	return v
}

// RequireOfficer validates the bearer token on review endpoints and stores
// the officer ID from the subject claim. Token issuance belongs to the
// employee identity provider; only validation happens here.
func RequireOfficer(signingKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}
			token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing method")
				}
				return []byte(signingKey), nil
			})
			if err != nil || !token.Valid {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
				return
			}
			subject, err := token.Claims.GetSubject()
			if err != nil || subject == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token has no subject"))
				return
			}
			ctx := context.WithValue(r.Context(), officerKey{}, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
