package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fusiontracker/internal/model"
)

func TestSSD_PicksBestRow(t *testing.T) {
	output := []float32{
		0, 1, 0.55, 0.1, 0.1, 0.2, 0.2,
		0, 5, 0.91, 0.25, 0.5, 0.75, 1.0,
		0, 3, 0.40, 0.0, 0.0, 1.0, 1.0,
	}

	r, ok := SSD(output, 640, 480, 0.3)
	require.True(t, ok)
	assert.Equal(t, 5, r.ClassID)
	assert.InDelta(t, 0.91, r.Score, 1e-6)
	assert.Equal(t, model.BoundingBox{X: 160, Y: 240, Width: 320, Height: 240}, r.Box)
}

func TestSSD_BelowMinScore(t *testing.T) {
	output := []float32{0, 1, 0.2, 0.1, 0.1, 0.2, 0.2}
	_, ok := SSD(output, 640, 480, 0.3)
	assert.False(t, ok)

	_, ok = SSD(nil, 640, 480, 0.3)
	assert.False(t, ok)
}

func TestSSD_ClampsToFrame(t *testing.T) {
	output := []float32{0, 1, 0.9, -0.1, -0.2, 1.3, 0.5}
	r, ok := SSD(output, 100, 100, 0.1)
	require.True(t, ok)
	assert.Equal(t, model.BoundingBox{X: 0, Y: 0, Width: 100, Height: 50}, r.Box)
}

// yoloOutput builds a [1, 4+classes, anchors] buffer.
func yoloOutput(classes, anchors int) []float32 {
	return make([]float32, (4+classes)*anchors)
}

func setAnchor(out []float32, anchors, i int, cx, cy, w, h float32, class int, score float32) {
	out[i] = cx
	out[anchors+i] = cy
	out[2*anchors+i] = w
	out[3*anchors+i] = h
	out[(4+class)*anchors+i] = score
}

func TestYOLOv8_TopAcrossClassesAndAnchors(t *testing.T) {
	const classes, anchors = 3, 5
	out := yoloOutput(classes, anchors)
	setAnchor(out, anchors, 1, 100, 100, 20, 20, 0, 0.5)
	setAnchor(out, anchors, 3, 320, 320, 64, 128, 2, 0.87)
	setAnchor(out, anchors, 4, 50, 50, 10, 10, 1, 0.6)

	// 640x640 network input, 1280x720 frame.
	r, ok := YOLOv8(out, 4+classes, anchors, 2.0, 1.125, 1280, 720, 0.25)
	require.True(t, ok)
	assert.Equal(t, 2, r.ClassID)
	assert.InDelta(t, 0.87, r.Score, 1e-6)
	assert.Equal(t, model.BoundingBox{X: 576, Y: 288, Width: 128, Height: 144}, r.Box)
}

func TestYOLOv8_NothingAboveMinScore(t *testing.T) {
	const classes, anchors = 2, 4
	out := yoloOutput(classes, anchors)
	setAnchor(out, anchors, 0, 10, 10, 4, 4, 1, 0.1)

	_, ok := YOLOv8(out, 4+classes, anchors, 1, 1, 640, 640, 0.25)
	assert.False(t, ok)
}

func TestYOLOv8_BadShape(t *testing.T) {
	_, ok := YOLOv8(make([]float32, 10), 4, 8400, 1, 1, 640, 640, 0)
	assert.False(t, ok)
	_, ok = YOLOv8(make([]float32, 10), 84, 8400, 1, 1, 640, 640, 0)
	assert.False(t, ok)
}

func TestCatalogs(t *testing.T) {
	assert.Len(t, COCO, 80)
	assert.Equal(t, "airplane", YOLOCatalog(4))
	assert.Equal(t, "", YOLOCatalog(80))
	assert.Equal(t, "", YOLOCatalog(-1))
	assert.Equal(t, "airplane", SSDCatalog(5))
	assert.Equal(t, "", SSDCatalog(12))
}
