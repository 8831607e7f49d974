package ai

import (
	"fmt"
	"image"
	"os"
	"time"

	"gocv.io/x/gocv"

	"fusiontracker/internal/model"
	"fusiontracker/internal/service/ai/decode"
)

// DNNDetector runs an SSD style network through the OpenCV dnn module.
type DNNDetector struct {
	net        gocv.Net
	modelPath  string
	configPath string
	logger     Logger
}

// NewDNNDetector loads the network from modelPath and the optional configPath.
func NewDNNDetector(modelPath, configPath string, logger Logger) (*DNNDetector, error) {
	d := &DNNDetector{
		modelPath:  modelPath,
		configPath: configPath,
		logger:     logger,
	}
	if err := d.initializeNet(); err != nil {
		return nil, err
	}
	return d, nil
}

// initializeNet loads the network from the model and config files.
func (d *DNNDetector) initializeNet() error {
	if _, err := os.Stat(d.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", d.modelPath)
	}
	if d.configPath != "" {
		if _, err := os.Stat(d.configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", d.configPath)
		}
	}

	net := gocv.ReadNet(d.modelPath, d.configPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", d.modelPath)
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	d.net = net
	d.logger.Info("Detection network %s initialized", d.modelPath)
	return nil
}

// Detect runs one forward pass and returns the best detection.
func (d *DNNDetector) Detect(frame gocv.Mat) (*model.Detection, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}
	start := time.Now()

	blob := gocv.BlobFromImage(frame, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read network output: %w", err)
	}

	result, ok := decode.SSD(data, frame.Cols(), frame.Rows(), MinScore)
	latency := time.Since(start)
	d.logger.Info("Time to execute 'detection' took %v", latency)
	if !ok {
		return nil, nil
	}
	return toDetection(result, latency, decode.SSDCatalog), nil
}

// ClassName resolves SSD class ids.
func (d *DNNDetector) ClassName(id int) string {
	return decode.SSDCatalog(id)
}

func (d *DNNDetector) Name() string { return "dnn" }

// Close releases the network.
func (d *DNNDetector) Close() error {
	return d.net.Close()
}
