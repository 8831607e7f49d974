package fusion

import "fusiontracker/internal/model"

// Detector runs the expensive object detector on a frame and returns its
// top-scoring detection, or nil when nothing was found.
type Detector[F any] interface {
	Detect(frame F) (*model.Detection, error)
}

// Tracker is a stateful single-object visual tracker. A handle is
// initialised exactly once; re-seeding always creates a new handle.
type Tracker[F any] interface {
	Init(frame F, box model.BoundingBox) error
	Update(frame F) (model.BoundingBox, bool)
	Close() error
}

// TrackerFactory creates a fresh, uninitialised tracker handle.
type TrackerFactory[F any] func() (Tracker[F], error)

// Selector asks an operator for a bounding box. ok is false when the
// selection was cancelled.
type Selector func() (box model.BoundingBox, ok bool)

// Logger is the subset of the application logger used by the controller.
type Logger interface {
	Info(format string, v ...interface{})
	Warning(format string, v ...interface{})
	Error(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})    {}
func (nopLogger) Warning(string, ...interface{}) {}
func (nopLogger) Error(string, ...interface{})   {}
