// Package display shows annotated frames in a local window and turns key
// presses into operator commands.
package display

import (
	"gocv.io/x/gocv"

	"fusiontracker/internal/model"
	"fusiontracker/internal/service/control"
)

// Window is a local OpenCV window.
type Window struct {
	window *gocv.Window
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	return &Window{window: gocv.NewWindow(title)}
}

// Show displays frame.
func (w *Window) Show(frame gocv.Mat) {
	w.window.IMShow(frame)
}

// PollKey waits up to delayMs for a key press and maps it to a command.
func (w *Window) PollKey(delayMs int) (control.Command, bool) {
	return control.FromKey(w.window.WaitKey(delayMs))
}

// Select lets the operator drag a box on frame. ok is false when the
// selection was cancelled or empty.
func (w *Window) Select(frame gocv.Mat) (model.BoundingBox, bool) {
	box := model.FromRect(w.window.SelectROI(frame))
	if box.Empty() {
		return model.BoundingBox{}, false
	}
	return box, true
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.window.Close()
}
