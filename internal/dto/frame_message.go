package dto

import (
	"encoding/base64"

	"fusiontracker/internal/model"
)

// FrameMessage is broadcast to websocket viewers for every processed frame.
type FrameMessage struct {
	Session string `json:"session"`
	Tracker string `json:"tracker"`
	FPS     int    `json:"fps"`
	Report  Report `json:"report"`
	Image   string `json:"image,omitempty"` // base64 JPEG
}

// NewFrameMessage builds a viewer message; jpeg may be nil.
func NewFrameMessage(session, tracker string, fps int, report model.FrameReport, jpeg []byte) FrameMessage {
	msg := FrameMessage{
		Session: session,
		Tracker: tracker,
		FPS:     fps,
		Report:  Report(report),
	}
	if len(jpeg) > 0 {
		msg.Image = base64.StdEncoding.EncodeToString(jpeg)
	}
	return msg
}
