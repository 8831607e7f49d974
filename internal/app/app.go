package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"fusiontracker/internal/config"
	"fusiontracker/internal/fusion"
	"fusiontracker/internal/logger"
	"fusiontracker/internal/route"
	"fusiontracker/internal/service"
	"fusiontracker/internal/service/ai"
	"fusiontracker/internal/service/capture"
	"fusiontracker/internal/service/control"
	"fusiontracker/internal/service/display"
	"fusiontracker/internal/service/overlay"
	"fusiontracker/internal/service/tracking"
	"fusiontracker/internal/service/websocket"
	"fusiontracker/internal/timeutil"
)

const (
	windowTitle     = "Tracking"
	viewerBacklog   = 2
	shutdownTimeout = 5 * time.Second
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	hubService *websocket.HubService
	manager    *service.Manager
}

// NewApp builds every component from cfg. Configuration problems (unknown
// tracker or detector, missing model, unusable source) are returned here.
func NewApp(cfg *config.Config) (app *App, err error) {
	l, err := logger.NewLogger(cfg.LogDirectory)
	if err != nil {
		return nil, err
	}

	var closers []func() error
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
			l.Close()
		}
	}()

	newTracker, err := tracking.NewFactory(cfg.Tracker)
	if err != nil {
		return nil, err
	}

	detector, err := ai.New(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("create detector: %w", err)
	}
	closers = append(closers, detector.Close)

	fusionCfg := cfg.Fusion()
	fusionCfg.ClassName = detector.ClassName
	controller, err := fusion.New[gocv.Mat](fusionCfg, detector, newTracker, timeutil.RealClock{}, l)
	if err != nil {
		return nil, err
	}
	closers = append(closers, controller.Close)

	source, err := capture.Open(cfg.VideoSource, l)
	if err != nil {
		return nil, err
	}
	closers = append(closers, source.Close)

	var window *display.Window
	if cfg.ShowWindow {
		window = display.NewWindow(windowTitle)
	}

	hub := websocket.NewHubService(viewerBacklog, l)
	manager := service.NewManager(service.Options{
		Source:     source,
		Detector:   detector,
		Controller: controller,
		Renderer:   overlay.NewRenderer(cfg.Tracker, cfg.JPEGQuality),
		Hub:        hub,
		Window:     window,
		Inbox:      control.NewInbox(cfg.CommandQueueSize),
		Logger:     l,
		Tracker:    cfg.Tracker,
	})

	return &App{
		config:     cfg,
		logger:     l,
		hubService: hub,
		manager:    manager,
	}, nil
}

// Run serves viewers and processes frames until the stream ends, an exit
// command arrives or ctx is cancelled. The frame loop runs on the calling
// goroutine.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.hubService.Run(ctx)

	var server *http.Server
	if a.config.HTTPEnabled {
		token := uuid.NewString()
		server = &http.Server{
			Addr:    fmt.Sprintf(":%d", a.config.Port),
			Handler: route.SetupRoutes(a.hubService, a.manager, a.config.Password, token, a.logger),
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("HTTP server failed: %v", err)
			}
		}()
	}

	fmt.Printf("🚀 Fusion Tracker\n")
	fmt.Printf("🎥 Source: %s\n", a.config.VideoSource)
	fmt.Printf("🤖 Detector: %s (%s)\n", a.config.Detector, a.config.ModelPath)
	fmt.Printf("🎯 Tracker: %s, interest class %d\n", a.config.Tracker, a.config.InterestClass)
	if server != nil {
		fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	}

	runErr := a.manager.Run(ctx)

	if server != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warning("HTTP server shutdown: %v", err)
		}
	}
	return runErr
}

// Close releases native resources and log files.
func (a *App) Close() error {
	err := a.manager.Close()
	return errors.Join(err, a.logger.Close())
}
