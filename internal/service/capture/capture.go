// Package capture provides the frame sources the tracker reads from.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gocv.io/x/gocv"
)

// ErrFirstFrame is returned when a source cannot produce its first frame.
var ErrFirstFrame = errors.New("could not read first frame")

// Logger is the subset of the application logger used by sources.
type Logger interface {
	Info(format string, v ...interface{})
	Warning(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Source yields decoded BGR frames. Read returns io.EOF when the stream is
// exhausted, ctx is cancelled or the source was closed.
type Source interface {
	Read(ctx context.Context, dst *gocv.Mat) error
	Name() string
	Close() error
}

// Open selects a source from a location string: "udp://host:port" listens
// for JPEG datagrams, an integer opens a capture device, anything else (file
// path, rtsp:// or http:// url) is handed to OpenCV.
func Open(location string, logger Logger) (Source, error) {
	var (
		src Source
		err error
	)
	switch device, convErr := strconv.Atoi(location); {
	case strings.HasPrefix(location, "udp://"):
		src, err = ListenUDP(strings.TrimPrefix(location, "udp://"), logger)
	case convErr == nil:
		src, err = OpenVideo(device, location, logger)
	default:
		src, err = OpenVideo(location, location, logger)
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}

// ReadFirst reads the first frame of src, wrapping failures in ErrFirstFrame.
func ReadFirst(ctx context.Context, src Source, dst *gocv.Mat) error {
	if err := src.Read(ctx, dst); err != nil {
		return fmt.Errorf("%w from %s: %v", ErrFirstFrame, src.Name(), err)
	}
	return nil
}
