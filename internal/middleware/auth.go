package middleware

import (
	"net/http"
	"strings"

	"github.com/tisu1989/auth-project/internal/auth"
	"github.com/tisu1989/auth-project/internal/ctxkeys"
)

// SessionCookie carries "Bearer <token>" for browser clients.
const SessionCookie = "Authorization"

// Authenticate reads the session token from the Authorization header or the
// session cookie and adds its claims to the context. Requests without a valid
// token continue anonymously; RequireAuth decides whether that is allowed.
func Authenticate(tokens *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Parse(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := ctxkeys.WithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that carry no valid session.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.Claims(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	}
}

func bearerToken(r *http.Request) string {
	value := r.Header.Get("Authorization")
	if value == "" {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			return ""
		}
		value = cookie.Value
	}

	value = strings.TrimSpace(value)
	if scheme, token, ok := strings.Cut(value, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return value
}
