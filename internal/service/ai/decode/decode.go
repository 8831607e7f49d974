// Package decode turns raw detector network outputs into the single
// top-scoring detection the fusion controller consumes.
package decode

import (
	"math"

	"fusiontracker/internal/model"
)

// Result is a decoded detection in source frame pixels.
type Result struct {
	Box     model.BoundingBox
	Score   float64
	ClassID int
}

// SSDRowSize is the width of one OpenCV DetectionOutput row:
// [batch, class, confidence, x1, y1, x2, y2] with normalised corners.
const SSDRowSize = 7

// SSD returns the best row of an SSD DetectionOutput blob whose score is at
// least minScore.
func SSD(output []float32, frameW, frameH int, minScore float64) (Result, bool) {
	best := -1
	var bestScore float32
	for i := 0; i+SSDRowSize <= len(output); i += SSDRowSize {
		score := output[i+2]
		if float64(score) < minScore || score <= bestScore {
			continue
		}
		best, bestScore = i, score
	}
	if best < 0 {
		return Result{}, false
	}

	row := output[best : best+SSDRowSize]
	w, h := float64(frameW), float64(frameH)
	return Result{
		Box:     clampCorners(float64(row[3])*w, float64(row[4])*h, float64(row[5])*w, float64(row[6])*h, frameW, frameH),
		Score:   float64(bestScore),
		ClassID: int(row[1]),
	}, true
}

// YOLOv8 returns the best anchor of a [1, 4+classes, anchors] output. Box
// coordinates are centre form in network input pixels and are scaled to the
// frame by scaleX and scaleY.
func YOLOv8(output []float32, features, anchors int, scaleX, scaleY float64, frameW, frameH int, minScore float64) (Result, bool) {
	classes := features - 4
	if classes <= 0 || anchors <= 0 || len(output) < features*anchors {
		return Result{}, false
	}

	bestAnchor, bestClass := -1, 0
	var bestScore float32
	for i := 0; i < anchors; i++ {
		for c := 0; c < classes; c++ {
			score := output[(4+c)*anchors+i]
			if score > bestScore {
				bestAnchor, bestClass, bestScore = i, c, score
			}
		}
	}
	if bestAnchor < 0 || float64(bestScore) < minScore {
		return Result{}, false
	}

	cx := float64(output[bestAnchor])
	cy := float64(output[anchors+bestAnchor])
	w := float64(output[2*anchors+bestAnchor])
	h := float64(output[3*anchors+bestAnchor])

	return Result{
		Box: clampCorners(
			(cx-w/2)*scaleX, (cy-h/2)*scaleY,
			(cx+w/2)*scaleX, (cy+h/2)*scaleY,
			frameW, frameH),
		Score:   float64(bestScore),
		ClassID: bestClass,
	}, true
}

func clampCorners(x1, y1, x2, y2 float64, frameW, frameH int) model.BoundingBox {
	clamp := func(v float64, hi int) int {
		return int(math.Round(math.Max(0, math.Min(v, float64(hi)))))
	}
	return model.FromCorners(clamp(x1, frameW), clamp(y1, frameH), clamp(x2, frameW), clamp(y2, frameH))
}
