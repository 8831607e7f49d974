package route

import (
	"net/http"

	"github.com/gorilla/mux"

	"fusiontracker/internal/handler"
	"fusiontracker/internal/logger"
	"fusiontracker/internal/middleware"
)

// SetupRoutes registers the viewer socket, command API, log endpoints and
// auth endpoints, and wraps everything but /auth/ with the session check.
func SetupRoutes(hub handler.ViewerHub, controls handler.Controls, password, token string, logger *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Viewer and command API
	r.HandleFunc("/api/view", handler.ViewWebsocketHandler(hub, controls, logger))
	r.HandleFunc("/api/status", handler.StatusHandler(controls)).Methods(http.MethodGet)
	r.HandleFunc("/api/detect", handler.CommandHandler("detect", controls, logger)).Methods(http.MethodPost)
	r.HandleFunc("/api/select", handler.CommandHandler("select", controls, logger)).Methods(http.MethodPost)
	r.HandleFunc("/api/exit", handler.CommandHandler("exit", controls, logger)).Methods(http.MethodPost)

	// Log endpoints
	r.HandleFunc("/logs/{level:info|warning|error}", handler.ShowLogsHandler(logger)).Methods(http.MethodGet)
	r.HandleFunc("/logs/{level:info|warning|error}/clear", handler.ClearLogsHandler(logger)).Methods(http.MethodPost)

	// Auth endpoints
	r.HandleFunc("/auth/login", handler.LoginHandler(password, token, logger))
	r.HandleFunc("/auth/logout", handler.LogoutHandler)

	r.Use(middleware.AuthMiddleware(token))
	return r
}
