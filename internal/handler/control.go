package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"fusiontracker/internal/dto"
	"fusiontracker/internal/logger"
	"fusiontracker/internal/service/control"
)

// StatusHandler handles GET /api/status with the latest frame report.
func StatusHandler(controls Controls) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, controls.Status())
	}
}

// CommandHandler handles POST /api/{command}. The optional JSON body may
// carry a box for "select".
func CommandHandler(command string, controls Controls, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := dto.CommandRequest{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, dto.CommandResponse{Command: command, Error: "invalid JSON body"})
			return
		}
		req.Command = command

		resp, err := submit(controls, req, "http "+r.RemoteAddr, logger)
		switch {
		case err == nil:
			writeJSON(w, http.StatusAccepted, resp)
		case errors.Is(err, control.ErrInboxFull):
			writeJSON(w, http.StatusServiceUnavailable, resp)
		default:
			writeJSON(w, http.StatusBadRequest, resp)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
