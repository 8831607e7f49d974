package fusion

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fusiontracker/internal/model"
	"fusiontracker/internal/timeutil"
)

// ========================================
// Test doubles
// ========================================

type response struct {
	det   *model.Detection
	err   error
	delay time.Duration
}

// scriptedDetector replays queued responses; an empty queue means no detection.
type scriptedDetector struct {
	clock     *timeutil.MockClock
	responses []response
	calls     int
}

func (d *scriptedDetector) push(r response) {
	d.responses = append(d.responses, r)
}

func (d *scriptedDetector) Detect(frame int) (*model.Detection, error) {
	d.calls++
	if len(d.responses) == 0 {
		return nil, nil
	}
	r := d.responses[0]
	d.responses = d.responses[1:]
	d.clock.Advance(r.delay)
	return r.det, r.err
}

type fakeTracker struct {
	factory   *trackerFactory
	initFrame int
	initBox   model.BoundingBox
	updates   int
	closed    bool
}

func (t *fakeTracker) Init(frame int, box model.BoundingBox) error {
	if t.factory.initErr != nil {
		return t.factory.initErr
	}
	t.initFrame = frame
	t.initBox = box
	return nil
}

func (t *fakeTracker) Update(frame int) (model.BoundingBox, bool) {
	t.updates++
	if t.factory.failUpdates {
		return model.BoundingBox{}, false
	}
	b := t.initBox
	b.X += t.updates
	return b, true
}

func (t *fakeTracker) Close() error {
	t.closed = true
	return t.factory.closeErr
}

type trackerFactory struct {
	created     []*fakeTracker
	failUpdates bool
	initErr     error
	closeErr    error
}

func (f *trackerFactory) New() (Tracker[int], error) {
	t := &fakeTracker{factory: f}
	f.created = append(f.created, t)
	return t, nil
}

func (f *trackerFactory) last() *fakeTracker {
	return f.created[len(f.created)-1]
}

// ========================================
// Helpers
// ========================================

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

var (
	boxA = model.BoundingBox{X: 287, Y: 23, Width: 86, Height: 320}
	boxB = model.BoundingBox{X: 100, Y: 50, Width: 40, Height: 30}
)

func testConfig() Config {
	return Config{
		DetectionInterval:         1000 * time.Millisecond,
		RedetectionInterval:       250 * time.Millisecond,
		MissedDetectionsUntilLost: 3,
		ConfidenceThreshold:       0.6,
		InterestClass:             4,
		ClassName: func(id int) string {
			if id == 4 {
				return "airplane"
			}
			return ""
		},
	}
}

func newTestController(t *testing.T, cfg Config) (*Controller[int], *scriptedDetector, *trackerFactory, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(t0)
	det := &scriptedDetector{clock: clock}
	trk := &trackerFactory{}
	c, err := New[int](cfg, det, trk.New, clock, nil)
	require.NoError(t, err)
	return c, det, trk, clock
}

func hit(conf float64, box model.BoundingBox) response {
	return response{det: &model.Detection{Box: box, Confidence: conf, ClassID: 4, Latency: 45 * time.Millisecond}}
}

func wrongClass(conf float64) response {
	return response{det: &model.Detection{Box: boxB, Confidence: conf, ClassID: 2}}
}

func none() response { return response{} }

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

func texts(r model.FrameReport) []string {
	out := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		out = append(out, l.Text)
	}
	return out
}

func findLine(r model.FrameReport, text string) (model.StatusLine, bool) {
	for _, l := range r.Lines {
		if l.Text == text {
			return l, true
		}
	}
	return model.StatusLine{}, false
}

// ========================================
// Scenarios
// ========================================

func TestController_LostAndRecoveryScenario(t *testing.T) {
	c, det, trk, clock := newTestController(t, testConfig())

	det.push(hit(0.9, boxA))
	require.NoError(t, c.Start(0, nil))
	require.Len(t, trk.created, 1)
	assert.Equal(t, boxA, trk.created[0].initBox)

	// Frames 1-2: interval not elapsed.
	for frame := 1; frame <= 2; frame++ {
		clock.Advance(300 * time.Millisecond)
		r := c.Step(frame)
		assert.Equal(t, model.StateTracking, r.State)
		assert.Equal(t, 0, r.MissedDetections)
	}
	assert.Equal(t, 1, det.calls)

	// t=1000ms: low confidence on the interest label.
	clock.Set(at(1000))
	det.push(response{det: &model.Detection{Box: boxB, Confidence: 0.4, ClassID: 4}})
	r := c.Step(3)
	assert.Equal(t, 1, r.MissedDetections)
	assert.Equal(t, model.StateTracking, r.State)
	assert.Equal(t, 2, det.calls)

	// t=2000ms: nothing.
	clock.Set(at(2000))
	det.push(none())
	r = c.Step(4)
	assert.Equal(t, 2, r.MissedDetections)
	assert.Equal(t, model.StateTracking, r.State)

	updatesBeforeLost := trk.created[0].updates

	// t=3000ms: nothing, threshold reached.
	clock.Set(at(3000))
	det.push(none())
	r = c.Step(5)
	assert.Equal(t, 3, r.MissedDetections)
	assert.Equal(t, model.StateLost, r.State)
	assert.Equal(t, 250*time.Millisecond, r.Interval)
	assert.Nil(t, r.Box)
	since, lost := c.LostSince()
	require.True(t, lost)
	assert.Equal(t, at(3000), since)
	assert.Equal(t, updatesBeforeLost, trk.created[0].updates, "tracker must not advance while lost")

	// Qualifying detection after the fast interval.
	clock.Advance(250 * time.Millisecond)
	det.push(hit(0.8, boxB))
	r = c.Step(6)
	assert.Equal(t, model.StateTracking, r.State)
	assert.Equal(t, 0, r.MissedDetections)
	assert.Equal(t, 1000*time.Millisecond, r.Interval)
	require.Len(t, trk.created, 2)
	assert.Equal(t, boxB, trk.created[1].initBox)
	assert.Equal(t, 6, trk.created[1].initFrame)
	assert.True(t, trk.created[0].closed)
	_, lost = c.LostSince()
	assert.False(t, lost)
	require.NotNil(t, r.Box)
}

func TestController_ManualRedetectResetsSchedule(t *testing.T) {
	c, det, _, clock := newTestController(t, testConfig())
	det.push(hit(0.9, boxA))
	require.NoError(t, c.Start(0, nil))

	clock.Set(at(400))
	det.push(response{det: hit(0.9, boxA).det, delay: 100 * time.Millisecond})
	assert.Equal(t, OutcomeMatch, c.Redetect(1))
	calls := det.calls

	// The earlier schedule (t=1000) no longer applies.
	clock.Set(at(1000))
	c.Step(2)
	clock.Set(at(1499))
	c.Step(3)
	assert.Equal(t, calls, det.calls)

	clock.Set(at(1500))
	c.Step(4)
	assert.Equal(t, calls+1, det.calls)
}

func TestController_ManualRedetectWhileLostUsesFastInterval(t *testing.T) {
	c, det, _, clock := newTestController(t, testConfig())
	for i := 0; i < 3; i++ {
		c.Redetect(i)
	}
	require.Equal(t, model.StateLost, c.State())

	clock.Set(at(100))
	c.Redetect(10)
	calls := det.calls

	clock.Set(at(349))
	c.Step(11)
	assert.Equal(t, calls, det.calls)

	clock.Set(at(350))
	c.Step(12)
	assert.Equal(t, calls+1, det.calls)
}

// ========================================
// Properties
// ========================================

func TestController_MissedCounterIncrementsAndResets(t *testing.T) {
	cfg := testConfig()
	cfg.MissedDetectionsUntilLost = 100
	c, det, _, _ := newTestController(t, cfg)

	steps := []struct {
		resp     response
		expected int
	}{
		{none(), 1},
		{wrongClass(0.99), 2},
		{response{det: &model.Detection{ClassID: 4, Confidence: 0.59}}, 3},
		{hit(0.6, boxA), 0},
		{none(), 1},
		{hit(0.95, boxB), 0},
		{hit(0.95, boxB), 0},
		{wrongClass(0.2), 1},
		{response{err: errors.New("inference failed")}, 2},
	}

	for i, s := range steps {
		det.push(s.resp)
		c.Redetect(i)
		assert.Equal(t, s.expected, c.MissedDetections(), "step %d", i)
	}
}

func TestController_LostExactlyAtThreshold(t *testing.T) {
	c, det, _, clock := newTestController(t, testConfig())

	det.push(none())
	c.Redetect(1)
	det.push(none())
	c.Redetect(2)
	assert.Equal(t, model.StateTracking, c.State())
	assert.Equal(t, 1000*time.Millisecond, c.Interval())

	clock.Set(at(700))
	det.push(none())
	c.Redetect(3)
	assert.Equal(t, model.StateLost, c.State())
	assert.Equal(t, 250*time.Millisecond, c.Interval())
	since, _ := c.LostSince()
	assert.Equal(t, at(700), since)

	// Further misses keep the first lost timestamp.
	clock.Set(at(900))
	det.push(none())
	c.Redetect(4)
	assert.Equal(t, model.StateLost, c.State())
	assert.Equal(t, 4, c.MissedDetections())
	since, _ = c.LostSince()
	assert.Equal(t, at(700), since)
}

func TestController_ThresholdOfOne(t *testing.T) {
	cfg := testConfig()
	cfg.MissedDetectionsUntilLost = 1
	c, det, _, _ := newTestController(t, cfg)

	det.push(wrongClass(0.9))
	c.Redetect(1)
	assert.Equal(t, model.StateLost, c.State())
}

type snapshot struct {
	State    model.FusionState
	Missed   int
	Interval time.Duration
	Box      model.BoundingBox
	HasBox   bool
}

func snap(c *Controller[int]) snapshot {
	box, ok := c.Box()
	return snapshot{State: c.State(), Missed: c.MissedDetections(), Interval: c.Interval(), Box: box, HasBox: ok}
}

func TestController_QualifyingMatchIsIdempotent(t *testing.T) {
	c, det, trk, _ := newTestController(t, testConfig())
	for i := 0; i < 3; i++ {
		c.Redetect(i)
	}
	require.Equal(t, model.StateLost, c.State())

	det.push(hit(0.8, boxB))
	c.Redetect(5)
	first := snap(c)

	det.push(hit(0.8, boxB))
	c.Redetect(5)
	second := snap(c)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("replaying a match changed state (-first +second):\n%s", diff)
	}
	assert.Equal(t, snapshot{State: model.StateTracking, Interval: time.Second, Box: boxB, HasBox: true}, second)
	require.Len(t, trk.created, 2)
	assert.True(t, trk.created[0].closed)
	assert.False(t, trk.created[1].closed)
}

func TestController_TrackerNotUpdatedWhileLost(t *testing.T) {
	c, det, trk, clock := newTestController(t, testConfig())
	det.push(hit(0.9, boxA))
	require.NoError(t, c.Start(0, nil))

	for i := 0; i < 3; i++ {
		c.Redetect(i)
	}
	require.Equal(t, model.StateLost, c.State())
	updates := trk.last().updates

	for frame := 1; frame <= 5; frame++ {
		clock.Advance(10 * time.Millisecond)
		r := c.Step(frame)
		assert.Nil(t, r.Box)
		assert.False(t, r.TrackerFailed)
	}
	assert.Equal(t, updates, trk.last().updates)
}

func TestController_TrackerFailureDoesNotChangeState(t *testing.T) {
	c, det, trk, clock := newTestController(t, testConfig())
	det.push(hit(0.9, boxA))
	require.NoError(t, c.Start(0, nil))
	trk.failUpdates = true

	clock.Advance(100 * time.Millisecond)
	r := c.Step(1)

	assert.True(t, r.TrackerFailed)
	assert.Equal(t, model.StateTracking, r.State)
	assert.Equal(t, 0, r.MissedDetections)
	require.NotNil(t, r.Box)
	assert.Equal(t, boxA, *r.Box, "last good box is kept")
	line, ok := findLine(r, "tracking failure detected")
	require.True(t, ok)
	assert.Equal(t, model.SeverityAlarm, line.Severity)
}

func TestController_TrackerBoxAdoptedOnSuccess(t *testing.T) {
	c, det, _, clock := newTestController(t, testConfig())
	det.push(hit(0.9, boxA))
	require.NoError(t, c.Start(0, nil))

	clock.Advance(10 * time.Millisecond)
	r := c.Step(1)
	require.NotNil(t, r.Box)
	assert.Equal(t, boxA.X+1, r.Box.X)
	require.NotNil(t, r.Detection)
	assert.Equal(t, "airplane", r.Detection.ClassName)
}

func TestController_DetectorLatencyIsAbsorbed(t *testing.T) {
	c, det, _, clock := newTestController(t, testConfig())
	det.push(hit(0.9, boxA))
	require.NoError(t, c.Start(0, nil))

	clock.Set(at(1000))
	det.push(response{delay: 300 * time.Millisecond})
	c.Step(1)
	assert.Equal(t, 2, det.calls)

	clock.Set(at(2000))
	c.Step(2)
	assert.Equal(t, 2, det.calls)
	assert.Equal(t, 300*time.Millisecond, c.NextDetectionIn())

	clock.Set(at(2300))
	c.Step(3)
	assert.Equal(t, 3, det.calls)
}

func TestController_FirstStepWithoutStartDetects(t *testing.T) {
	c, det, trk, _ := newTestController(t, testConfig())
	det.push(hit(0.7, boxA))

	r := c.Step(1)
	assert.Equal(t, 1, det.calls)
	require.Len(t, trk.created, 1)
	require.NotNil(t, r.Box)
}

// ========================================
// Manual re-select
// ========================================

func TestController_ReselectKeepsStateAndCounter(t *testing.T) {
	c, det, trk, _ := newTestController(t, testConfig())
	det.push(hit(0.9, boxA))
	require.NoError(t, c.Start(0, nil))
	for i := 0; i < 3; i++ {
		c.Redetect(i)
	}
	require.Equal(t, model.StateLost, c.State())

	require.NoError(t, c.Reselect(7, boxB))
	assert.Equal(t, model.StateLost, c.State())
	assert.Equal(t, 3, c.MissedDetections())
	require.Len(t, trk.created, 2)
	assert.Equal(t, boxB, trk.last().initBox)
	assert.Equal(t, 7, trk.last().initFrame)

	c.Step(8)
	assert.Equal(t, 0, trk.last().updates)
}

func TestController_ReselectWhileTracking(t *testing.T) {
	c, det, trk, _ := newTestController(t, testConfig())
	det.push(none())
	c.Redetect(1)

	require.NoError(t, c.Reselect(2, boxB))
	assert.Equal(t, model.StateTracking, c.State())
	assert.Equal(t, 1, c.MissedDetections())

	r := c.Step(3)
	require.NotNil(t, r.Box)
	assert.Equal(t, 1, trk.last().updates)
}

func TestController_ReselectRejectsEmptyBox(t *testing.T) {
	c, _, trk, _ := newTestController(t, testConfig())
	assert.Error(t, c.Reselect(1, model.BoundingBox{X: 3, Y: 3}))
	assert.Empty(t, trk.created)
}

// ========================================
// Bootstrap
// ========================================

func TestController_StartFallsBackToSelector(t *testing.T) {
	c, det, trk, _ := newTestController(t, testConfig())
	det.push(wrongClass(0.9))

	asked := false
	err := c.Start(0, func() (model.BoundingBox, bool) {
		asked = true
		return boxB, true
	})
	require.NoError(t, err)
	assert.True(t, asked)
	assert.Equal(t, 0, c.MissedDetections())
	require.Len(t, trk.created, 1)
	assert.Equal(t, boxB, trk.created[0].initBox)
}

func TestController_StartWithCancelledSelection(t *testing.T) {
	c, _, trk, clock := newTestController(t, testConfig())

	require.NoError(t, c.Start(0, func() (model.BoundingBox, bool) { return model.BoundingBox{}, false }))
	assert.Empty(t, trk.created)

	clock.Advance(10 * time.Millisecond)
	r := c.Step(1)
	assert.Nil(t, r.Box)
	assert.Contains(t, texts(r), "initial bbox was not found by the detector")
}

func TestController_StartReportsTrackerInitFailure(t *testing.T) {
	c, det, trk, _ := newTestController(t, testConfig())
	trk.initErr = errors.New("roi outside frame")
	det.push(hit(0.9, boxA))

	err := c.Start(0, nil)
	assert.ErrorIs(t, err, trk.initErr)
}

func TestController_InitFailureReportsCloseError(t *testing.T) {
	c, det, trk, _ := newTestController(t, testConfig())
	trk.initErr = errors.New("roi outside frame")
	trk.closeErr = errors.New("release failed")
	det.push(hit(0.9, boxA))

	err := c.Start(0, nil)
	assert.ErrorIs(t, err, trk.initErr)
	assert.ErrorIs(t, err, trk.closeErr)
	require.Len(t, trk.created, 1)
	assert.True(t, trk.created[0].closed)
}

// ========================================
// Errors and status lines
// ========================================

func TestController_DetectorErrorCountsAsMiss(t *testing.T) {
	c, det, _, _ := newTestController(t, testConfig())
	det.push(response{err: errors.New("forward pass failed")})

	assert.Equal(t, OutcomeNone, c.Redetect(1))
	assert.Equal(t, 1, c.MissedDetections())

	r := c.Step(2)
	assert.Contains(t, texts(r), "detection failed")
}

func TestController_TrackerInitFailureOnMatch(t *testing.T) {
	c, det, trk, _ := newTestController(t, testConfig())
	trk.initErr = errors.New("bad roi")
	det.push(hit(0.9, boxA))

	assert.Equal(t, OutcomeMatch, c.Redetect(1))
	assert.Equal(t, 0, c.MissedDetections())

	r := c.Step(2)
	assert.Contains(t, texts(r), "tracker re-initialisation failed")
	assert.False(t, r.TrackerFailed)
}

func TestController_StatusLines(t *testing.T) {
	c, det, _, clock := newTestController(t, testConfig())
	det.push(hit(0.83, boxA))
	require.NoError(t, c.Start(0, nil))

	clock.Advance(580 * time.Millisecond)
	r := c.Step(1)
	assert.Equal(t, []string{"next detection in 0.42s", "found airplane (0.83): 0.045s"}, texts(r))
	assert.Equal(t, model.SeverityNormal, r.Lines[1].Severity)

	det.push(wrongClass(0.71))
	c.Redetect(2)
	r = c.Step(3)
	assert.Contains(t, texts(r), "rejected class 2 (0.71)")
	assert.Contains(t, texts(r), "missed detections 1/3")

	c.Redetect(4)
	c.Redetect(5)
	clock.Advance(500 * time.Millisecond)
	r = c.Step(6)
	line, ok := findLine(r, "object is lost (0.5s)")
	require.True(t, ok, "lines: %v", texts(r))
	assert.Equal(t, model.SeverityAlarm, line.Severity)
	assert.Equal(t, 500*time.Millisecond, r.LostFor)
}

func TestController_CloseReleasesTracker(t *testing.T) {
	c, det, trk, _ := newTestController(t, testConfig())
	det.push(hit(0.9, boxA))
	require.NoError(t, c.Start(0, nil))

	require.NoError(t, c.Close())
	assert.True(t, trk.created[0].closed)
	require.NoError(t, c.Close())
}

// ========================================
// Construction
// ========================================

func TestNew_RequiresCollaborators(t *testing.T) {
	trk := &trackerFactory{}
	_, err := New[int](testConfig(), nil, trk.New, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New[int](testConfig(), &scriptedDetector{}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero detection interval", func(c *Config) { c.DetectionInterval = 0 }, false},
		{"negative redetection interval", func(c *Config) { c.RedetectionInterval = -time.Second }, false},
		{"zero lost threshold", func(c *Config) { c.MissedDetectionsUntilLost = 0 }, false},
		{"threshold above one", func(c *Config) { c.ConfidenceThreshold = 1.2 }, false},
		{"threshold zero", func(c *Config) { c.ConfidenceThreshold = 0 }, true},
		{"negative class", func(c *Config) { c.InterestClass = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}
