// Package overlay draws fusion state onto frames and encodes them for
// viewers.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"fusiontracker/internal/model"
)

var (
	normalColor = color.RGBA{R: 50, G: 170, B: 50, A: 0}
	alarmColor  = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	boxColor    = color.RGBA{R: 0, G: 0, B: 255, A: 0}
)

const (
	fontScale  = 0.75
	lineHeight = 20
	margin     = 100
)

// Renderer draws boxes, labels and status lines.
type Renderer struct {
	tracker string
	quality int
}

// NewRenderer creates a renderer labelling frames with the tracker kind.
// quality is the JPEG quality used by Encode.
func NewRenderer(tracker string, quality int) *Renderer {
	return &Renderer{tracker: tracker, quality: quality}
}

// Draw renders report onto frame.
func (r *Renderer) Draw(frame *gocv.Mat, report model.FrameReport, fps int) error {
	if report.Box != nil {
		if err := r.drawBox(frame, *report.Box, report.Detection); err != nil {
			return err
		}
	}

	lines := append([]model.StatusLine{
		model.Normal(r.tracker + " Tracker"),
		model.Normal(fmt.Sprintf("FPS : %d", fps)),
	}, report.Lines...)
	return r.drawLines(frame, lines)
}

// DrawDetection renders a single detector result, or an alarm line when
// there is none.
func (r *Renderer) DrawDetection(frame *gocv.Mat, det *model.Detection, fps int) error {
	lines := []model.StatusLine{model.Normal(fmt.Sprintf("FPS : %d", fps))}
	if det == nil {
		lines = append(lines, model.Alarm("No bounding box was detected"))
	} else {
		if err := r.drawBox(frame, det.Box, det); err != nil {
			return err
		}
		lines = append(lines, model.Normal(fmt.Sprintf("%s (%.2f): %.3fs", det.ClassName, det.Confidence, det.Latency.Seconds())))
	}
	return r.drawLines(frame, lines)
}

func (r *Renderer) drawBox(frame *gocv.Mat, box model.BoundingBox, det *model.Detection) error {
	if err := gocv.Rectangle(frame, box.Rect(), boxColor, 2); err != nil {
		return fmt.Errorf("failed to draw rectangle: %w", err)
	}
	if det == nil {
		return nil
	}
	label := fmt.Sprintf("p=%.2f, l=%d", det.Confidence, det.ClassID)
	pt := image.Pt(box.X, box.Y-5)
	if err := gocv.PutText(frame, label, pt, gocv.FontHersheySimplex, 0.5, boxColor, 1); err != nil {
		return fmt.Errorf("failed to draw text: %w", err)
	}
	return nil
}

func (r *Renderer) drawLines(frame *gocv.Mat, lines []model.StatusLine) error {
	for i, line := range lines {
		c := normalColor
		if line.Severity == model.SeverityAlarm {
			c = alarmColor
		}
		pt := image.Pt(margin, lineHeight*(i+1))
		if err := gocv.PutText(frame, line.Text, pt, gocv.FontHersheySimplex, fontScale, c, 2); err != nil {
			return fmt.Errorf("failed to draw text: %w", err)
		}
	}
	return nil
}

// Encode compresses frame to JPEG.
func (r *Renderer) Encode(frame gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{gocv.IMWriteJpegQuality, r.quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}
