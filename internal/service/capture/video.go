package capture

import (
	"context"
	"fmt"
	"io"

	"gocv.io/x/gocv"
)

// VideoSource reads from a file, device or network stream through OpenCV.
type VideoSource struct {
	capture *gocv.VideoCapture
	name    string
	logger  Logger
}

// OpenVideo opens device (an int index or a string location).
func OpenVideo(device interface{}, name string, logger Logger) (*VideoSource, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open video source %s: %w", name, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open video source %s: not opened", name)
	}
	logger.Info("Video source %s opened (%.0fx%.0f @ %.1f fps)", name,
		vc.Get(gocv.VideoCaptureFrameWidth), vc.Get(gocv.VideoCaptureFrameHeight), vc.Get(gocv.VideoCaptureFPS))
	return &VideoSource{capture: vc, name: name, logger: logger}, nil
}

// Read decodes the next frame into dst. A cancelled ctx is reported as
// io.EOF before the capture is touched.
func (s *VideoSource) Read(ctx context.Context, dst *gocv.Mat) error {
	if ctx.Err() != nil {
		return io.EOF
	}
	if ok := s.capture.Read(dst); !ok || dst.Empty() {
		return io.EOF
	}
	return nil
}

func (s *VideoSource) Name() string { return s.name }

// Close releases the capture.
func (s *VideoSource) Close() error {
	return s.capture.Close()
}
