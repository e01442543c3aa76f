package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ChromeUniverse/luccachat/internal/auth"
	"github.com/pkg/errors"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// Verifier decodes a bearer credential into a user id.
type Verifier interface {
	Verify(token string) (string, error)
}

// Bearer rejects requests without a valid "Authorization: Bearer" credential
// and stores the verified user id in the request context.
func Bearer(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			userID, err := v.Verify(strings.TrimSpace(token))
			if err != nil {
				msg := "Unauthorized"
				if errors.Is(err, auth.ErrExpired) {
					msg = "Credential expired"
				}
				http.Error(w, msg, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the id stored by Bearer.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok && id != ""
}
