package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"fusiontracker/internal/dto"
	"fusiontracker/internal/fusion"
	"fusiontracker/internal/logger"
	"fusiontracker/internal/model"
	"fusiontracker/internal/service/ai"
	"fusiontracker/internal/service/capture"
	"fusiontracker/internal/service/control"
	"fusiontracker/internal/service/display"
	"fusiontracker/internal/service/overlay"
	"fusiontracker/internal/service/websocket"
)

// Manager owns the per-frame pipeline: read, fuse, render, publish, then
// hand at most one operator command to the dispatcher.
type Manager struct {
	source           capture.Source
	detector         ai.Detector
	controller       *fusion.Controller[gocv.Mat]
	renderer         *overlay.Renderer
	websocketService *websocket.HubService
	window           *display.Window
	inbox            *control.Inbox
	dispatcher       *control.Dispatcher[gocv.Mat]
	logger           *logger.Logger

	session string
	tracker string

	mu      sync.RWMutex
	latest  *model.FrameReport
	running bool
}

// Options collects the collaborators of a Manager. Window may be nil for
// headless runs.
type Options struct {
	Source     capture.Source
	Detector   ai.Detector
	Controller *fusion.Controller[gocv.Mat]
	Renderer   *overlay.Renderer
	Hub        *websocket.HubService
	Window     *display.Window
	Inbox      *control.Inbox
	Logger     *logger.Logger
	Tracker    string
}

func NewManager(opts Options) *Manager {
	m := &Manager{
		source:           opts.Source,
		detector:         opts.Detector,
		controller:       opts.Controller,
		renderer:         opts.Renderer,
		websocketService: opts.Hub,
		window:           opts.Window,
		inbox:            opts.Inbox,
		logger:           opts.Logger,
		session:          uuid.NewString(),
		tracker:          opts.Tracker,
	}

	var (
		keyboard control.Keyboard
		selector control.Selector[gocv.Mat]
	)
	if opts.Window != nil {
		keyboard = opts.Window
		selector = opts.Window
	}
	m.dispatcher = control.NewDispatcher[gocv.Mat](opts.Controller, opts.Inbox, keyboard, selector, opts.Logger)

	m.logger.Info("🎬 Manager created - session %s, source %s, detector %s, tracker %s",
		m.session, m.source.Name(), m.detector.Name(), m.tracker)
	return m
}

// Run processes frames until the source is exhausted, an exit command
// arrives or ctx is cancelled. It fails only when the first frame cannot be
// read before ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	m.setRunning(true)
	defer m.setRunning(false)

	frame := gocv.NewMat()
	defer frame.Close()

	if err := capture.ReadFirst(ctx, m.source, &frame); err != nil {
		if ctx.Err() != nil {
			m.logger.Info("🛑 Stopped before the first frame: %v", ctx.Err())
			return nil
		}
		return err
	}
	if err := m.controller.Start(frame, m.selector(frame)); err != nil {
		m.logger.Error("Failed to seed tracker on the first frame: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("🛑 Frame loop stopped: %v", ctx.Err())
			return nil
		default:
		}

		if err := m.source.Read(ctx, &frame); err != nil {
			if ctx.Err() != nil {
				m.logger.Info("🛑 Frame loop stopped: %v", ctx.Err())
				return nil
			}
			if errors.Is(err, io.EOF) {
				m.logger.Info("🛑 End of stream %s", m.source.Name())
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		if err := m.processFrame(&frame); err != nil {
			if errors.Is(err, control.ErrExit) {
				m.logger.Info("🛑 Exit requested")
				return nil
			}
			return err
		}
	}
}

func (m *Manager) processFrame(frame *gocv.Mat) error {
	clean := frame.Clone()
	defer clean.Close()

	timer := gocv.GetTickCount()
	report := m.controller.Step(*frame)
	var fps int
	if elapsed := gocv.GetTickCount() - timer; elapsed > 0 {
		fps = int(gocv.GetTickFrequency() / elapsed)
	}
	m.setLatest(report)

	if err := m.renderer.Draw(frame, report, fps); err != nil {
		m.logger.Error("Failed to draw overlay: %v", err)
	}
	m.publish(*frame, report, fps)

	if m.window != nil {
		m.window.Show(*frame)
	}
	return m.dispatcher.Dispatch(clean)
}

// selector returns the interactive fallback used when the first detection
// finds nothing, or nil in headless runs.
func (m *Manager) selector(first gocv.Mat) fusion.Selector {
	if m.window == nil {
		return nil
	}
	return func() (model.BoundingBox, bool) {
		return m.window.Select(first)
	}
}

// publish sends the annotated frame to websocket viewers.
func (m *Manager) publish(frame gocv.Mat, report model.FrameReport, fps int) {
	if m.websocketService == nil || m.websocketService.GetClientCount() == 0 {
		return
	}

	jpeg, err := m.renderer.Encode(frame)
	if err != nil {
		m.logger.Error("Failed to encode frame for viewers: %v", err)
	}
	msg, err := json.Marshal(dto.NewFrameMessage(m.session, m.tracker, fps, report, jpeg))
	if err != nil {
		m.logger.Error("Failed to marshal frame message: %v", err)
		return
	}
	if !m.websocketService.Broadcast(msg) {
		m.logger.Warning("⚠️  Viewer backlog full - frame %d dropped", report.Frame)
	}
}

// Submit queues an operator command for the frame loop.
func (m *Manager) Submit(cmd control.Command) error {
	return m.inbox.Push(cmd)
}

// Latest returns the most recent frame report.
func (m *Manager) Latest() (model.FrameReport, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == nil {
		return model.FrameReport{}, false
	}
	return *m.latest, true
}

// Status summarises the session for the HTTP API.
func (m *Manager) Status() dto.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := dto.StatusResponse{
		Session:  m.session,
		Source:   m.source.Name(),
		Tracker:  m.tracker,
		Detector: m.detector.Name(),
		Running:  m.running,
	}
	if m.websocketService != nil {
		status.Viewers = m.websocketService.GetClientCount()
	}
	if m.latest != nil {
		r := dto.Report(*m.latest)
		status.Report = &r
	}
	return status
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.websocketService
}

func (m *Manager) setLatest(report model.FrameReport) {
	m.mu.Lock()
	m.latest = &report
	m.mu.Unlock()
}

func (m *Manager) setRunning(running bool) {
	m.mu.Lock()
	m.running = running
	m.mu.Unlock()
}

// Close releases the controller, detector, source and window.
func (m *Manager) Close() error {
	errs := []error{m.controller.Close(), m.detector.Close(), m.source.Close()}
	if m.window != nil {
		errs = append(errs, m.window.Close())
	}
	return errors.Join(errs...)
}
