package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gocv.io/x/gocv"

	"fusiontracker/internal/config"
	"fusiontracker/internal/fusion"
	"fusiontracker/internal/logger"
	"fusiontracker/internal/service/ai"
	"fusiontracker/internal/service/capture"
	"fusiontracker/internal/service/control"
	"fusiontracker/internal/service/display"
	"fusiontracker/internal/service/overlay"
)

// detect runs the detector on every frame and shows its top result. It is a
// diagnostic for model, label catalog and threshold choices.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	source := flag.String("source", cfg.VideoSource, "Video file, device index, rtsp:// or udp:// source")
	detector := flag.String("detector", cfg.Detector, "Detector kind (dnn or onnx)")
	modelPath := flag.String("model", cfg.ModelPath, "Model path")
	modelConfig := flag.String("model-config", cfg.ModelConfigPath, "Model config path (dnn only)")
	show := flag.Bool("show", cfg.ShowWindow, "Show frames in a window")
	limit := flag.Int("frames", 0, "Stop after this many frames (0 = until end of stream)")
	flag.Parse()

	cfg.VideoSource = *source
	cfg.Detector = *detector
	cfg.ModelPath = *modelPath
	cfg.ModelConfigPath = *modelConfig
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	l, err := logger.NewLogger(cfg.LogDirectory)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer l.Close()

	d, err := ai.New(cfg, l)
	if err != nil {
		log.Fatalf("Failed to create detector: %v", err)
	}
	defer d.Close()

	src, err := capture.Open(cfg.VideoSource, l)
	if err != nil {
		log.Fatalf("Failed to open source: %v", err)
	}
	defer src.Close()

	var window *display.Window
	if *show {
		window = display.NewWindow("Detection")
		defer window.Close()
	}
	renderer := overlay.NewRenderer(cfg.Tracker, cfg.JPEGQuality)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	frame := gocv.NewMat()
	defer frame.Close()

	frames, hits := 0, 0
	for *limit == 0 || frames < *limit {
		if err := src.Read(ctx, &frame); err != nil {
			if !errors.Is(err, io.EOF) {
				l.Error("Failed to read frame: %v", err)
			}
			break
		}
		frames++

		timer := gocv.GetTickCount()
		det, err := d.Detect(frame)
		if err != nil {
			l.Error("Detection failed: %v", err)
		}
		var fps int
		if elapsed := gocv.GetTickCount() - timer; elapsed > 0 {
			fps = int(gocv.GetTickFrequency() / elapsed)
		}
		if fusion.Classify(det, cfg.ConfidenceThreshold, cfg.InterestClass) == fusion.OutcomeMatch {
			hits++
		}

		if window == nil {
			continue
		}
		if err := renderer.DrawDetection(&frame, det, fps); err != nil {
			l.Error("Failed to draw detection: %v", err)
		}
		window.Show(frame)
		if cmd, ok := window.PollKey(1); ok && cmd.Kind == control.Exit {
			break
		}
	}

	fmt.Printf("✅ %d frames processed, %d qualifying detections of %s\n", frames, hits, d.ClassName(cfg.InterestClass))
}
