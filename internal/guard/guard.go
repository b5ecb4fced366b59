// Package guard implements the coarse route guard that fronts protected
// shell pages: a cookie-presence check, nothing more. Real authorization
// happens after the session store loads the identity, so a user with the
// wrong role may briefly see a protected shell before being bounced.
package guard

import "net/http"

// Guard redirects requests without the access-token cookie to the login
// route. It never decodes or verifies the cookie's contents; session
// validity is determined server-side by the backend.
type Guard struct {
	// CookieName is the access-token cookie whose presence gates access.
	CookieName string
	// LoginPath is where unauthenticated requests are redirected.
	LoginPath string
}

// Middleware wraps next with the presence check.
func (g Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(g.CookieName); err != nil {
			http.Redirect(w, r, g.LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
