package mjpeg

import (
	"context"
	"io"
	"sync"
)

// Latest hands the most recent complete frame from a receiver to a reader.
// A frame that was not read before the next one arrives is dropped.
type Latest struct {
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

// NewLatest creates an empty Latest.
func NewLatest() *Latest {
	return &Latest{
		frames: make(chan []byte, 1),
		done:   make(chan struct{}),
	}
}

// Offer replaces any unread frame with frame. It never blocks.
func (l *Latest) Offer(frame []byte) {
	for {
		select {
		case l.frames <- frame:
			return
		default:
		}
		select {
		case <-l.frames:
		default:
		}
	}
}

// Next blocks until a frame is available. It returns io.EOF once ctx is
// cancelled or Close was called.
func (l *Latest) Next(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, io.EOF
	case <-l.done:
		return nil, io.EOF
	default:
	}

	select {
	case <-ctx.Done():
		return nil, io.EOF
	case <-l.done:
		return nil, io.EOF
	case frame := <-l.frames:
		return frame, nil
	}
}

// Close wakes pending readers. It is safe to call more than once.
func (l *Latest) Close() {
	l.once.Do(func() { close(l.done) })
}
