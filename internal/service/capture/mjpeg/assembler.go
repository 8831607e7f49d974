// Package mjpeg reassembles JPEG frames sent by cameras as a sequence of
// UDP datagrams.
package mjpeg

import "bytes"

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// DefaultMaxFrameSize bounds a frame that never sees its footer.
const DefaultMaxFrameSize = 4 << 20

// Assembler keeps one partial frame per sender. A datagram starting with the
// JPEG SOI marker starts a new frame; one ending with the EOI marker
// completes it.
type Assembler struct {
	buffers      map[string]*bytes.Buffer
	MaxFrameSize int
}

// NewAssembler creates an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{
		buffers:      make(map[string]*bytes.Buffer),
		MaxFrameSize: DefaultMaxFrameSize,
	}
}

// Push adds a datagram from sender and returns a complete frame when one is
// finished. The returned slice is owned by the caller.
func (a *Assembler) Push(sender string, data []byte) ([]byte, bool) {
	buf, ok := a.buffers[sender]
	if !ok {
		buf = new(bytes.Buffer)
		a.buffers[sender] = buf
	}

	if bytes.HasPrefix(data, jpegHeader) {
		buf.Reset()
	} else if buf.Len() == 0 {
		// Tail of a frame whose start was lost.
		return nil, false
	}
	buf.Write(data)

	if buf.Len() > a.MaxFrameSize {
		buf.Reset()
		return nil, false
	}

	if !bytes.HasSuffix(data, jpegFooter) {
		return nil, false
	}
	frame := make([]byte, buf.Len())
	copy(frame, buf.Bytes())
	buf.Reset()
	return frame, true
}

// Senders returns the number of senders with state.
func (a *Assembler) Senders() int {
	return len(a.buffers)
}
