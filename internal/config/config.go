package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fusiontracker/internal/fusion"
)

// Detector kinds.
const (
	DetectorDNN  = "dnn"
	DetectorONNX = "onnx"
)

type Config struct {
	Port         int    `yaml:"port"`
	Password     string `yaml:"password"`
	LogDirectory string `yaml:"log_dir"`
	HTTPEnabled  bool   `yaml:"http_enabled"`
	ShowWindow   bool   `yaml:"show_window"`

	VideoSource     string `yaml:"video_source"`     // file path, device index, rtsp:// url or udp://:port
	Detector        string `yaml:"detector"`         // dnn | onnx
	ModelPath       string `yaml:"model_path"`
	ModelConfigPath string `yaml:"model_config_path"` // dnn only, may be empty for self-contained models
	ONNXLibraryPath string `yaml:"onnx_library_path"`
	Tracker         string `yaml:"tracker"` // MIL | GOTURN | KCF | CSRT

	DetectionIntervalMs       int     `yaml:"detection_interval_ms"`
	RedetectionIntervalMs     int     `yaml:"redetection_interval_ms"`
	MissedDetectionsUntilLost int     `yaml:"missed_detections_until_lost"`
	ConfidenceThreshold       float64 `yaml:"confidence_threshold"`
	InterestClass             int     `yaml:"interest_class"`

	CommandQueueSize int `yaml:"command_queue_size"`
	JPEGQuality      int `yaml:"jpeg_quality"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:                      8080,
		Password:                  "fusion",
		LogDirectory:              filepath.Join(".", "logs"),
		HTTPEnabled:               true,
		ShowWindow:                true,
		VideoSource:               filepath.Join(".", "videos", "input.mp4"),
		Detector:                  DetectorONNX,
		ModelPath:                 filepath.Join(".", "models", "yolov8n.onnx"),
		ONNXLibraryPath:           "onnxruntime.so",
		Tracker:                   "MIL",
		DetectionIntervalMs:       750,
		RedetectionIntervalMs:     250,
		MissedDetectionsUntilLost: 3,
		ConfidenceThreshold:       0.6,
		InterestClass:             4,
		CommandQueueSize:          16,
		JPEGQuality:               80,
	}
}

// Load reads an optional .env file, overlays CONFIG_FILE (YAML) on the
// defaults when set, applies environment variables and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path on c. Keys missing from the file
// keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnvAsInt("PORT", c.Port)
	c.Password = getEnv("PASSWORD", c.Password)
	c.LogDirectory = getEnv("LOG_DIR", c.LogDirectory)
	c.HTTPEnabled = getEnvAsBool("HTTP_ENABLED", c.HTTPEnabled)
	c.ShowWindow = getEnvAsBool("SHOW_WINDOW", c.ShowWindow)

	c.VideoSource = getEnv("VIDEO_SOURCE", c.VideoSource)
	c.Detector = getEnv("DETECTOR", c.Detector)
	c.ModelPath = getEnv("MODEL_PATH", c.ModelPath)
	c.ModelConfigPath = getEnv("MODEL_CONFIG_PATH", c.ModelConfigPath)
	c.ONNXLibraryPath = getEnv("ONNX_LIBRARY_PATH", c.ONNXLibraryPath)
	c.Tracker = getEnv("TRACKER", c.Tracker)

	c.DetectionIntervalMs = getEnvAsInt("DETECTION_INTERVAL_MS", c.DetectionIntervalMs)
	c.RedetectionIntervalMs = getEnvAsInt("REDETECTION_INTERVAL_MS", c.RedetectionIntervalMs)
	c.MissedDetectionsUntilLost = getEnvAsInt("MISSED_DETECTIONS_UNTIL_LOST", c.MissedDetectionsUntilLost)
	c.ConfidenceThreshold = getEnvAsFloat("CONFIDENCE_THRESHOLD", c.ConfidenceThreshold)
	c.InterestClass = getEnvAsInt("INTEREST_CLASS", c.InterestClass)

	c.CommandQueueSize = getEnvAsInt("COMMAND_QUEUE_SIZE", c.CommandQueueSize)
	c.JPEGQuality = getEnvAsInt("JPEG_QUALITY", c.JPEGQuality)
}

// Validate checks values that would otherwise fail deep inside the pipeline.
// Tracker and detector kinds are normalised in place.
func (c *Config) Validate() error {
	if c.HTTPEnabled && (c.Port < 1 || c.Port > 65535) {
		return fmt.Errorf("port must be in 1..65535, got %d", c.Port)
	}
	if c.VideoSource == "" {
		return errors.New("video source is required")
	}
	if c.ModelPath == "" {
		return errors.New("model path is required")
	}

	c.Detector = strings.ToLower(strings.TrimSpace(c.Detector))
	switch c.Detector {
	case DetectorDNN:
	case DetectorONNX:
		if c.ONNXLibraryPath == "" {
			return errors.New("onnx detector requires ONNX_LIBRARY_PATH")
		}
	default:
		return fmt.Errorf("unknown detector %q (want %s or %s)", c.Detector, DetectorDNN, DetectorONNX)
	}

	c.Tracker = strings.ToUpper(strings.TrimSpace(c.Tracker))
	if c.Tracker == "" {
		return errors.New("tracker is required")
	}

	if c.CommandQueueSize < 1 {
		return fmt.Errorf("command queue size must be >= 1, got %d", c.CommandQueueSize)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be in 1..100, got %d", c.JPEGQuality)
	}

	return c.Fusion().Validate()
}

// Fusion returns the controller policy parameters.
func (c *Config) Fusion() fusion.Config {
	return fusion.Config{
		DetectionInterval:         time.Duration(c.DetectionIntervalMs) * time.Millisecond,
		RedetectionInterval:       time.Duration(c.RedetectionIntervalMs) * time.Millisecond,
		MissedDetectionsUntilLost: c.MissedDetectionsUntilLost,
		ConfidenceThreshold:       c.ConfidenceThreshold,
		InterestClass:             c.InterestClass,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
