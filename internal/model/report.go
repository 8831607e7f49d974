package model

import "time"

// Severity classifies a status line for rendering.
type Severity int

const (
	SeverityNormal Severity = iota
	SeverityAlarm
)

func (s Severity) String() string {
	if s == SeverityAlarm {
		return "alarm"
	}
	return "normal"
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StatusLine is a short human readable status message.
type StatusLine struct {
	Text     string   `json:"text"`
	Severity Severity `json:"severity"`
}

// Normal builds a status line with normal severity.
func Normal(text string) StatusLine {
	return StatusLine{Text: text, Severity: SeverityNormal}
}

// Alarm builds a status line with alarm severity.
func Alarm(text string) StatusLine {
	return StatusLine{Text: text, Severity: SeverityAlarm}
}

// FrameReport is what the fusion controller exposes after each frame.
type FrameReport struct {
	Frame            int64         `json:"frame"`
	Timestamp        time.Time     `json:"timestamp"`
	State            FusionState   `json:"state"`
	Box              *BoundingBox  `json:"box,omitempty"`
	Detection        *Detection    `json:"detection,omitempty"`
	MissedDetections int           `json:"missed_detections"`
	Interval         time.Duration `json:"interval"`
	NextDetectionIn  time.Duration `json:"next_detection_in"`
	LostFor          time.Duration `json:"lost_for,omitempty"`
	TrackerFailed    bool          `json:"tracker_failed"`
	Lines            []StatusLine  `json:"lines"`
}
