package control

import "errors"

// ErrInboxFull is returned when a command cannot be queued.
var ErrInboxFull = errors.New("command inbox is full")

// Inbox is a bounded FIFO of commands. Producers never block; the frame loop
// drains at most one command per frame.
type Inbox struct {
	commands chan Command
}

// NewInbox creates an inbox holding up to size pending commands.
func NewInbox(size int) *Inbox {
	if size < 1 {
		size = 1
	}
	return &Inbox{commands: make(chan Command, size)}
}

// Push queues cmd or returns ErrInboxFull.
func (i *Inbox) Push(cmd Command) error {
	select {
	case i.commands <- cmd:
		return nil
	default:
		return ErrInboxFull
	}
}

// Poll returns the oldest pending command, if any.
func (i *Inbox) Poll() (Command, bool) {
	select {
	case cmd := <-i.commands:
		return cmd, true
	default:
		return Command{}, false
	}
}

// Len returns the number of pending commands.
func (i *Inbox) Len() int {
	return len(i.commands)
}
