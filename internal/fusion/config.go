package fusion

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every configuration validation error.
var ErrInvalidConfig = errors.New("invalid fusion config")

// Config holds the fusion policy parameters.
type Config struct {
	// DetectionInterval is the detector period while tracking.
	DetectionInterval time.Duration
	// RedetectionInterval is the faster detector period while lost.
	RedetectionInterval time.Duration
	// MissedDetectionsUntilLost is the number of consecutive missed
	// detections after which the object is declared lost.
	MissedDetectionsUntilLost int
	// ConfidenceThreshold is the minimum confidence of a qualifying match.
	ConfidenceThreshold float64
	// InterestClass is the class id of the object being followed.
	InterestClass int
	// ClassName resolves class ids for status lines. Optional.
	ClassName func(id int) string
}

// Validate checks the configuration for values the controller cannot run with.
func (c Config) Validate() error {
	if c.DetectionInterval <= 0 {
		return fmt.Errorf("%w: detection interval must be > 0, got %v", ErrInvalidConfig, c.DetectionInterval)
	}
	if c.RedetectionInterval <= 0 {
		return fmt.Errorf("%w: redetection interval must be > 0, got %v", ErrInvalidConfig, c.RedetectionInterval)
	}
	if c.MissedDetectionsUntilLost < 1 {
		return fmt.Errorf("%w: missed detections until lost must be >= 1, got %d", ErrInvalidConfig, c.MissedDetectionsUntilLost)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence threshold must be in [0,1], got %v", ErrInvalidConfig, c.ConfidenceThreshold)
	}
	if c.InterestClass < 0 {
		return fmt.Errorf("%w: interest class must be >= 0, got %d", ErrInvalidConfig, c.InterestClass)
	}
	return nil
}

func (c Config) className(id int) string {
	if c.ClassName != nil {
		if name := c.ClassName(id); name != "" {
			return name
		}
	}
	return fmt.Sprintf("class %d", id)
}
