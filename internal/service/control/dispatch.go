package control

import (
	"errors"

	"fusiontracker/internal/fusion"
	"fusiontracker/internal/model"
)

// ErrExit is returned by Dispatch when the operator asked to stop.
var ErrExit = errors.New("exit requested")

// keyDelayMs is how long the keyboard is polled on every frame.
const keyDelayMs = 1

// Target is the fusion controller surface commands act on.
type Target[F any] interface {
	Redetect(frame F) fusion.Outcome
	Reselect(frame F, box model.BoundingBox) error
}

// Keyboard yields commands from key presses.
type Keyboard interface {
	PollKey(delayMs int) (Command, bool)
}

// Selector lets the operator draw a box on a frame.
type Selector[F any] interface {
	Select(frame F) (model.BoundingBox, bool)
}

// Logger is the subset of the application logger used by the dispatcher.
type Logger interface {
	Info(format string, v ...interface{})
	Warning(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Dispatcher applies at most one operator command per frame. Keyboard input
// is polled before the inbox; queued commands wait for a later frame.
type Dispatcher[F any] struct {
	target   Target[F]
	inbox    *Inbox
	keyboard Keyboard
	selector Selector[F]
	logger   Logger
}

// NewDispatcher creates a dispatcher. keyboard and selector are nil in
// headless runs.
func NewDispatcher[F any](target Target[F], inbox *Inbox, keyboard Keyboard, selector Selector[F], logger Logger) *Dispatcher[F] {
	return &Dispatcher[F]{
		target:   target,
		inbox:    inbox,
		keyboard: keyboard,
		selector: selector,
		logger:   logger,
	}
}

// Next returns the command to handle on this frame, if any.
func (d *Dispatcher[F]) Next() (Command, bool) {
	if d.keyboard != nil {
		if cmd, ok := d.keyboard.PollKey(keyDelayMs); ok {
			return cmd, true
		}
	}
	return d.inbox.Poll()
}

// Dispatch handles the next pending command against frame, which must be
// free of overlays. It returns ErrExit for an exit command.
func (d *Dispatcher[F]) Dispatch(frame F) error {
	cmd, ok := d.Next()
	if !ok {
		return nil
	}
	return d.Apply(cmd, frame)
}

// Apply executes cmd against frame.
func (d *Dispatcher[F]) Apply(cmd Command, frame F) error {
	d.logger.Info("Command %s from %s", cmd.Kind, cmd.Source)

	switch cmd.Kind {
	case Exit:
		return ErrExit

	case Redetect:
		outcome := d.target.Redetect(frame)
		d.logger.Info("Manual re-detection: %s", outcome)

	case Reselect:
		box, ok := d.selectBox(cmd, frame)
		if !ok {
			return nil
		}
		if err := d.target.Reselect(frame, box); err != nil {
			d.logger.Error("Manual re-selection failed: %v", err)
		}
	}
	return nil
}

func (d *Dispatcher[F]) selectBox(cmd Command, frame F) (model.BoundingBox, bool) {
	if cmd.Box != nil {
		return *cmd.Box, true
	}
	if d.selector == nil {
		d.logger.Warning("Interactive selection needs a window; send a box instead")
		return model.BoundingBox{}, false
	}
	box, ok := d.selector.Select(frame)
	if !ok {
		d.logger.Info("Selection cancelled")
	}
	return box, ok
}
