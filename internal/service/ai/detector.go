// Package ai wraps object detection networks behind a single top-1 detector
// interface.
package ai

import (
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"fusiontracker/internal/config"
	"fusiontracker/internal/model"
	"fusiontracker/internal/service/ai/decode"
)

// MinScore is the lowest score a network output may have to be reported at
// all. The fusion confidence threshold is applied later.
const MinScore = 0.25

// ErrUnknownDetector is returned by New for unsupported detector kinds.
var ErrUnknownDetector = errors.New("unknown detector")

// Logger is the subset of the application logger used by detectors.
type Logger interface {
	Info(format string, v ...interface{})
	Warning(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Detector returns the top-scoring detection of a frame or nil.
type Detector interface {
	Detect(frame gocv.Mat) (*model.Detection, error)
	ClassName(id int) string
	Name() string
	Close() error
}

// New builds the detector selected by cfg.Detector and checks that the
// interest class exists in its label catalog.
func New(cfg *config.Config, logger Logger) (Detector, error) {
	var (
		d   Detector
		err error
	)
	switch cfg.Detector {
	case config.DetectorDNN:
		d, err = NewDNNDetector(cfg.ModelPath, cfg.ModelConfigPath, logger)
	case config.DetectorONNX:
		d, err = NewONNXDetector(cfg.ModelPath, cfg.ONNXLibraryPath, logger)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownDetector, cfg.Detector)
	}
	if err != nil {
		return nil, err
	}

	if d.ClassName(cfg.InterestClass) == "" {
		d.Close()
		return nil, fmt.Errorf("interest class %d is not in the %s label catalog", cfg.InterestClass, d.Name())
	}
	return d, nil
}

func toDetection(r decode.Result, latency time.Duration, catalog decode.Catalog) *model.Detection {
	return &model.Detection{
		Box:        r.Box,
		Confidence: r.Score,
		ClassID:    r.ClassID,
		ClassName:  catalog(r.ClassID),
		Latency:    latency,
	}
}
