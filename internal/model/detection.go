package model

import "time"

// Detection is the top-scoring result of a single detector call.
// A nil *Detection means the detector found nothing.
type Detection struct {
	Box        BoundingBox   `json:"box"`
	Confidence float64       `json:"confidence"`
	ClassID    int           `json:"class_id"`
	ClassName  string        `json:"class_name,omitempty"`
	Latency    time.Duration `json:"-"`
}
