// Package control carries operator commands from input surfaces (keyboard,
// websocket viewers, HTTP) to the frame loop.
package control

import (
	"errors"
	"fmt"
	"strings"

	"fusiontracker/internal/dto"
	"fusiontracker/internal/model"
)

// Kind identifies an operator command.
type Kind int

const (
	// Exit stops the frame loop.
	Exit Kind = iota + 1
	// Redetect forces a detection on the current frame.
	Redetect
	// Reselect re-seeds the tracker with an operator box.
	Reselect
)

func (k Kind) String() string {
	switch k {
	case Exit:
		return "exit"
	case Redetect:
		return "detect"
	case Reselect:
		return "select"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrUnknownCommand is returned for command names that are not recognised.
var ErrUnknownCommand = errors.New("unknown command")

// Command is a single operator request. Box is set only for remote
// Reselect; a nil box asks for interactive selection.
type Command struct {
	Kind   Kind
	Box    *model.BoundingBox
	Source string
}

// ParseRequest validates a wire command.
func ParseRequest(req dto.CommandRequest, source string) (Command, error) {
	cmd := Command{Source: source}
	switch strings.ToLower(strings.TrimSpace(req.Command)) {
	case "exit", "quit":
		cmd.Kind = Exit
	case "detect", "redetect":
		cmd.Kind = Redetect
	case "select", "reselect":
		cmd.Kind = Reselect
		if req.Box != nil {
			if req.Box.Empty() {
				return Command{}, fmt.Errorf("select: box %v is empty", *req.Box)
			}
			b := *req.Box
			cmd.Box = &b
		}
	default:
		return Command{}, fmt.Errorf("%w %q", ErrUnknownCommand, req.Command)
	}
	return cmd, nil
}

// Keyboard codes handled by the display window.
const (
	KeySelect = 's'
	KeyDetect = 'd'
	KeyEscape = 27
)

// FromKey maps a window key code to a command. Modifier bits above the low
// byte are ignored. Unmapped keys return false.
func FromKey(key int) (Command, bool) {
	if key < 0 {
		return Command{}, false
	}
	switch key & 0xFF {
	case KeyEscape:
		return Command{Kind: Exit, Source: "keyboard"}, true
	case KeyDetect:
		return Command{Kind: Redetect, Source: "keyboard"}, true
	case KeySelect:
		return Command{Kind: Reselect, Source: "keyboard"}, true
	default:
		return Command{}, false
	}
}
