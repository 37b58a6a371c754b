package httpapi

import (
	"net/http"

	"invenflow.org/internal/auth"
)

var publicPaths = []string{
	"/api/",
	"/api/auth/login",
	"/api/auth/register",
	"/api/auth/forgot-password",
	"/api/auth/reset-password",
	"/api/auth/otp",
	"/api/auth/unlock",
	"/metrics",
	"/healthz",
	"/readyz",
}

// withAuth gates every non-public path behind the session cookie. The
// messages mirror what clients already expect: "authorization denied" when
// the cookie is absent, "token is not valid" when it fails verification.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.sessions == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(auth.CookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, r, http.StatusUnauthorized, "authorization denied")
			return
		}
		principal, err := a.sessions.Verify(cookie.Value)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "token is not valid")
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
