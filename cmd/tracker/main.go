package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fusiontracker/internal/app"
	"fusiontracker/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to start tracker: %v", err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		application.Close()
		log.Fatalf("Tracker stopped: %v", err)
	}
}
