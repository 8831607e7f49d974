package dto

import (
	"encoding/json"

	"fusiontracker/internal/model"
)

// Report is the wire form of a model.FrameReport. Durations are sent as
// seconds.
type Report model.FrameReport

// MarshalJSON customizes JSON output for Report to express durations in seconds.
func (r Report) MarshalJSON() ([]byte, error) {
	type Alias Report
	var latency float64
	if r.Detection != nil {
		latency = r.Detection.Latency.Seconds()
	}
	return json.Marshal(&struct {
		Interval         float64 `json:"interval"`
		NextDetectionIn  float64 `json:"next_detection_in"`
		LostFor          float64 `json:"lost_for,omitempty"`
		DetectionLatency float64 `json:"detection_latency,omitempty"`
		Alias
	}{
		Interval:         r.Interval.Seconds(),
		NextDetectionIn:  r.NextDetectionIn.Seconds(),
		LostFor:          r.LostFor.Seconds(),
		DetectionLatency: latency,
		Alias:            (Alias)(r),
	})
}
