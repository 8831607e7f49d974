package handler

import (
	"crypto/subtle"
	"net/http"

	"fusiontracker/internal/logger"
	"fusiontracker/internal/middleware"
)

// LoginHandler handles POST /auth/login by validating password and issuing
// the session cookie.
func LoginHandler(password, token string, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if subtle.ConstantTimeCompare([]byte(r.FormValue("password")), []byte(password)) != 1 {
			logger.Warning("Failed login from %s", r.RemoteAddr)
			http.Error(w, "Invalid password", http.StatusUnauthorized)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.CookieName,
			Value:    token,
			Path:     "/",
			MaxAge:   2592000, // 30 days
			HttpOnly: true,
		})
		logger.Info("Login from %s", r.RemoteAddr)
		http.Redirect(w, r, "/api/status", http.StatusSeeOther)
	}
}

// LogoutHandler clears the session cookie.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   middleware.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	w.WriteHeader(http.StatusNoContent)
}
