package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/stonixai/dashcore/session"
)

// Verifier turns a bearer assertion into the user it was issued for.
// *auth.Verifier satisfies it.
type Verifier interface {
	Verify(assertion string) (session.User, error)
}

type userContextKey struct{}

func UserFromContext(ctx context.Context) (session.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(session.User)
	return u, ok
}

// Guard rejects requests without a valid bearer assertion with 401.
func Guard(v Verifier) func(http.Handler) http.Handler {
	return require(v, nil)
}

// RequirePermission is Guard plus a 403 for users lacking perm.
func RequirePermission(v Verifier, perm string) func(http.Handler) http.Handler {
	return require(v, func(u session.User) bool { return u.HasPermission(perm) })
}

// RequireRole is Guard plus a 403 for users not in role.
func RequireRole(v Verifier, role string) func(http.Handler) http.Handler {
	return require(v, func(u session.User) bool { return u.Role == role })
}

func require(v Verifier, allow func(session.User) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := v.Verify(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if allow != nil && !allow(user) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
