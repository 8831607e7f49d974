package dto

import "fusiontracker/internal/model"

// CommandRequest is an operator command received over websocket or HTTP.
// Box is only used by "select".
type CommandRequest struct {
	Command string             `json:"command"`
	Box     *model.BoundingBox `json:"box,omitempty"`
}

// CommandResponse acknowledges a queued command.
type CommandResponse struct {
	Command  string `json:"command"`
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Session  string  `json:"session"`
	Source   string  `json:"source"`
	Tracker  string  `json:"tracker"`
	Detector string  `json:"detector"`
	Viewers  int     `json:"viewers"`
	Running  bool    `json:"running"`
	Report   *Report `json:"report,omitempty"`
}
