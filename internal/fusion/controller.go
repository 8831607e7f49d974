// Package fusion decides, frame by frame, when to trust a cheap visual
// tracker and when to fall back to an expensive object detector.
//
// A Controller owns all cross-frame state: the current box, the tracker
// handle, the missed detection counter, the detection timer and the
// Tracking/Lost state. It is driven by a single goroutine and is not safe
// for concurrent use.
package fusion

import (
	"errors"
	"fmt"
	"time"

	"fusiontracker/internal/model"
	"fusiontracker/internal/timeutil"
)

// Controller fuses detector and tracker output for a single object.
type Controller[F any] struct {
	cfg        Config
	detector   Detector[F]
	newTracker TrackerFactory[F]
	clock      timeutil.Clock
	logger     Logger

	state         model.FusionState
	missed        int
	interval      time.Duration
	lastDetection time.Time
	lostSince     time.Time

	tracker Tracker[F]
	box     *model.BoundingBox
	matched *model.Detection
	outcome model.StatusLine
	frames  int64
}

// New validates cfg and creates a controller in the Tracking state.
// A nil clock uses the wall clock, a nil logger discards messages.
func New[F any](cfg Config, detector Detector[F], newTracker TrackerFactory[F], clock timeutil.Clock, logger Logger) (*Controller[F], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if detector == nil {
		return nil, fmt.Errorf("%w: detector is required", ErrInvalidConfig)
	}
	if newTracker == nil {
		return nil, fmt.Errorf("%w: tracker factory is required", ErrInvalidConfig)
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if logger == nil {
		logger = nopLogger{}
	}

	return &Controller[F]{
		cfg:        cfg,
		detector:   detector,
		newTracker: newTracker,
		clock:      clock,
		logger:     logger,
		state:      model.StateTracking,
		interval:   cfg.DetectionInterval,
	}, nil
}

// Start bootstraps tracking on the first frame. The detector is run once;
// a qualifying match seeds the tracker. Otherwise selector, when not nil,
// is asked for a box. The bootstrap does not count as a missed detection.
// The detection timer starts when Start returns.
func (c *Controller[F]) Start(frame F, selector Selector) error {
	result, err := c.detector.Detect(frame)
	if err != nil {
		c.logger.Error("Initial detection failed: %v", err)
		result = nil
	}

	var seedErr error
	if Classify(result, c.cfg.ConfidenceThreshold, c.cfg.InterestClass) == OutcomeMatch {
		c.acceptMatch(result)
		seedErr = c.reseed(frame, result.Box)
	} else {
		c.outcome = model.Alarm("initial bbox was not found by the detector")
		c.logger.Warning("Initial bounding box was not found by the detector")
		if selector != nil {
			if box, ok := selector(); ok && !box.Empty() {
				seedErr = c.reseed(frame, box)
			}
		}
	}

	c.lastDetection = c.clock.Now()
	return seedErr
}

// Step runs the per-frame protocol: a detection when one is due, then a
// tracker update unless the object is lost, then the report.
func (c *Controller[F]) Step(frame F) model.FrameReport {
	c.frames++
	if c.Due() {
		c.detect(frame)
	}
	failed := c.advance(frame)
	return c.report(failed)
}

// Redetect forces an out-of-schedule detection. The detection timer is
// reset to the completion of this call.
func (c *Controller[F]) Redetect(frame F) Outcome {
	c.logger.Info("Manual re-detection requested")
	return c.detect(frame)
}

// Reselect re-seeds the tracker with an operator supplied box. The fusion
// state and the missed detection counter are left unchanged.
func (c *Controller[F]) Reselect(frame F, box model.BoundingBox) error {
	if !box.Valid() || box.Empty() {
		return fmt.Errorf("manual selection %v is empty", box)
	}
	c.logger.Info("Tracker re-seeded manually with %v", box)
	return c.reseed(frame, box)
}

// Due reports whether a scheduled detection should run now.
func (c *Controller[F]) Due() bool {
	return c.clock.Since(c.lastDetection) >= c.interval
}

// NextDetectionIn returns the time left until the next scheduled detection.
func (c *Controller[F]) NextDetectionIn() time.Duration {
	left := c.interval - c.clock.Since(c.lastDetection)
	if left < 0 {
		return 0
	}
	return left
}

// State returns the current fusion state.
func (c *Controller[F]) State() model.FusionState { return c.state }

// MissedDetections returns the consecutive missed detection count.
func (c *Controller[F]) MissedDetections() int { return c.missed }

// Interval returns the effective detection interval.
func (c *Controller[F]) Interval() time.Duration { return c.interval }

// LostSince returns when the object was lost; ok is false while tracking.
func (c *Controller[F]) LostSince() (since time.Time, ok bool) {
	return c.lostSince, c.state == model.StateLost
}

// Box returns the current bounding box, if any.
func (c *Controller[F]) Box() (model.BoundingBox, bool) {
	if c.box == nil {
		return model.BoundingBox{}, false
	}
	return *c.box, true
}

// Close releases the tracker handle.
func (c *Controller[F]) Close() error {
	if c.tracker == nil {
		return nil
	}
	err := c.tracker.Close()
	c.tracker = nil
	return err
}

func (c *Controller[F]) detect(frame F) Outcome {
	result, err := c.detector.Detect(frame)
	// The timer restarts at completion so detector latency is absorbed
	// into the next interval.
	c.lastDetection = c.clock.Now()
	if err != nil {
		c.logger.Error("Detection failed: %v", err)
		result = nil
	}

	outcome := Classify(result, c.cfg.ConfidenceThreshold, c.cfg.InterestClass)
	switch outcome {
	case OutcomeMatch:
		c.missed = 0
		if c.state == model.StateLost {
			c.logger.Info("Object recovered after %v", c.lastDetection.Sub(c.lostSince).Round(time.Millisecond))
			c.state = model.StateTracking
			c.lostSince = time.Time{}
		}
		c.interval = c.cfg.DetectionInterval
		c.acceptMatch(result)
		if err := c.reseed(frame, result.Box); err != nil {
			c.logger.Error("Failed to re-seed tracker: %v", err)
			c.outcome = model.Alarm("tracker re-initialisation failed")
		}

	default:
		c.missed++
		c.outcome = c.missLine(result, err)
		c.logger.Info("Missed detection %d/%d (%s)", c.missed, c.cfg.MissedDetectionsUntilLost, outcome)
		if c.state == model.StateTracking && c.missed >= c.cfg.MissedDetectionsUntilLost {
			c.state = model.StateLost
			c.lostSince = c.lastDetection
			c.interval = c.cfg.RedetectionInterval
			c.logger.Warning("Object lost after %d missed detections, probing every %v", c.missed, c.interval)
		}
	}
	return outcome
}

func (c *Controller[F]) acceptMatch(result *model.Detection) {
	match := *result
	if match.ClassName == "" {
		match.ClassName = c.cfg.className(match.ClassID)
	}
	c.matched = &match
	c.outcome = model.Normal(fmt.Sprintf("found %s (%.2f): %.3fs", match.ClassName, match.Confidence, match.Latency.Seconds()))
	c.logger.Info("Bounding box %v found: %s p=%.2f in %v", match.Box, match.ClassName, match.Confidence, match.Latency)
}

func (c *Controller[F]) missLine(result *model.Detection, err error) model.StatusLine {
	switch {
	case err != nil:
		return model.Alarm("detection failed")
	case result == nil:
		return model.Alarm("no bounding box was detected")
	default:
		name := result.ClassName
		if name == "" {
			name = c.cfg.className(result.ClassID)
		}
		return model.Alarm(fmt.Sprintf("rejected %s (%.2f)", name, result.Confidence))
	}
}

// reseed discards the current tracker handle and initialises a fresh one.
func (c *Controller[F]) reseed(frame F, box model.BoundingBox) error {
	b := box
	c.box = &b

	var closeErr error
	if c.tracker != nil {
		closeErr = c.tracker.Close()
		c.tracker = nil
	}

	tracker, err := c.newTracker()
	if err != nil {
		return errors.Join(closeErr, fmt.Errorf("create tracker: %w", err))
	}
	if err := tracker.Init(frame, box); err != nil {
		return errors.Join(closeErr, fmt.Errorf("init tracker with %v: %w", box, err), tracker.Close())
	}
	c.tracker = tracker
	if closeErr != nil {
		c.logger.Warning("Closing previous tracker: %v", closeErr)
	}
	return nil
}

// advance updates the tracker unless the object is lost. It reports
// whether the tracker signalled failure.
func (c *Controller[F]) advance(frame F) bool {
	if c.state == model.StateLost || c.tracker == nil {
		return false
	}
	box, ok := c.tracker.Update(frame)
	if !ok {
		return true
	}
	c.box = &box
	return false
}

func (c *Controller[F]) report(trackerFailed bool) model.FrameReport {
	r := model.FrameReport{
		Frame:            c.frames,
		Timestamp:        c.clock.Now(),
		State:            c.state,
		MissedDetections: c.missed,
		Interval:         c.interval,
		NextDetectionIn:  c.NextDetectionIn(),
		TrackerFailed:    trackerFailed,
	}
	if c.state == model.StateTracking && c.box != nil {
		b := *c.box
		r.Box = &b
	}
	if c.matched != nil {
		d := *c.matched
		r.Detection = &d
	}
	if c.state == model.StateLost {
		r.LostFor = r.Timestamp.Sub(c.lostSince)
	}
	r.Lines = c.lines(r)
	return r
}

func (c *Controller[F]) lines(r model.FrameReport) []model.StatusLine {
	lines := []model.StatusLine{
		model.Normal(fmt.Sprintf("next detection in %.2fs", r.NextDetectionIn.Seconds())),
	}
	if c.outcome.Text != "" {
		lines = append(lines, c.outcome)
	}
	if r.State == model.StateTracking && r.MissedDetections > 0 {
		lines = append(lines, model.Alarm(fmt.Sprintf("missed detections %d/%d", r.MissedDetections, c.cfg.MissedDetectionsUntilLost)))
	}
	if r.TrackerFailed {
		lines = append(lines, model.Alarm("tracking failure detected"))
	}
	if r.State == model.StateLost {
		lines = append(lines, model.Alarm(fmt.Sprintf("object is lost (%.1fs)", r.LostFor.Seconds())))
	}
	return lines
}
