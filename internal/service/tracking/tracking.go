// Package tracking adapts the OpenCV single object trackers to the fusion
// controller.
package tracking

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"

	"fusiontracker/internal/fusion"
	"fusiontracker/internal/model"
)

// ErrUnknownTracker is returned for unsupported tracker kinds.
var ErrUnknownTracker = errors.New("unknown tracker")

var constructors = map[string]func() gocv.Tracker{
	"MIL":    func() gocv.Tracker { return gocv.NewTrackerMIL() },
	"GOTURN": func() gocv.Tracker { return gocv.NewTrackerGOTURN() },
	"KCF":    func() gocv.Tracker { return contrib.NewTrackerKCF() },
	"CSRT":   func() gocv.Tracker { return contrib.NewTrackerCSRT() },
}

// Kinds lists the supported tracker kinds.
func Kinds() []string {
	kinds := make([]string, 0, len(constructors))
	for k := range constructors {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// NewFactory returns a factory creating fresh trackers of the given kind.
func NewFactory(kind string) (fusion.TrackerFactory[gocv.Mat], error) {
	newTracker, ok := constructors[strings.ToUpper(kind)]
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnknownTracker, kind, strings.Join(Kinds(), ", "))
	}
	return func() (fusion.Tracker[gocv.Mat], error) {
		return &Tracker{tracker: newTracker()}, nil
	}, nil
}

// Tracker wraps a gocv.Tracker handle.
type Tracker struct {
	tracker gocv.Tracker
}

// Init seeds the handle with box on frame. The box is clipped to the frame.
func (t *Tracker) Init(frame gocv.Mat, box model.BoundingBox) error {
	roi := box.Rect().Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if roi.Empty() {
		return fmt.Errorf("box %v lies outside the %dx%d frame", box, frame.Cols(), frame.Rows())
	}
	if !t.tracker.Init(frame, roi) {
		return fmt.Errorf("tracker rejected box %v", box)
	}
	return nil
}

// Update advances the tracker by one frame.
func (t *Tracker) Update(frame gocv.Mat) (model.BoundingBox, bool) {
	rect, ok := t.tracker.Update(frame)
	if !ok || rect.Empty() {
		return model.BoundingBox{}, false
	}
	return model.FromRect(rect), true
}

// Close releases the native handle.
func (t *Tracker) Close() error {
	return t.tracker.Close()
}
