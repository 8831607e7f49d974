package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"fusiontracker/internal/dto"
	"fusiontracker/internal/logger"
	"fusiontracker/internal/service/control"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewerHub registers websocket viewers for frame broadcasts.
type ViewerHub interface {
	Register(conn *websocket.Conn)
	Unregister(conn *websocket.Conn)
}

// Controls is the operator surface of the frame loop.
type Controls interface {
	Submit(cmd control.Command) error
	Status() dto.StatusResponse
}

// ViewWebsocketHandler handles viewer connections over WebSocket and
// registers them in the hub to receive broadcast frames. Text messages from
// the viewer are parsed as commands.
func ViewWebsocketHandler(hub ViewerHub, controls Controls, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		hub.Register(connection)
		defer hub.Unregister(connection)

		logger.Info("Viewer connected from %s", r.RemoteAddr)

		for {
			_, data, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer disconnected normally")
				} else {
					logger.Error("Viewer disconnected with error: %v", err)
				}
				break
			}

			var req dto.CommandRequest
			if err := json.Unmarshal(data, &req); err != nil {
				logger.Warning("Ignoring malformed viewer message: %v", err)
				continue
			}
			if _, err := submit(controls, req, "websocket "+r.RemoteAddr, logger); err != nil {
				logger.Warning("Viewer command %q rejected: %v", req.Command, err)
			}
		}
	}
}

func submit(controls Controls, req dto.CommandRequest, source string, logger *logger.Logger) (dto.CommandResponse, error) {
	resp := dto.CommandResponse{Command: req.Command}

	cmd, err := control.ParseRequest(req, source)
	if err == nil {
		err = controls.Submit(cmd)
	}
	if err != nil {
		resp.Error = err.Error()
		return resp, err
	}

	logger.Info("Command %s queued from %s", cmd.Kind, source)
	resp.Accepted = true
	return resp, nil
}
