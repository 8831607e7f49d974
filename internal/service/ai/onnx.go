package ai

import (
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"fusiontracker/internal/model"
	"fusiontracker/internal/service/ai/decode"
)

// YOLOv8 network geometry.
const (
	InputWidth  = 640
	InputHeight = 640
	Features    = 4 + 80
	Anchors     = 8400
)

// ONNXDetector runs a YOLOv8 model exported to ONNX through onnxruntime.
type ONNXDetector struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	logger  Logger
}

// NewONNXDetector initializes the onnxruntime environment from libraryPath
// and creates a session with pre-allocated input and output tensors.
func NewONNXDetector(modelPath, libraryPath string, logger Logger) (*ONNXDetector, error) {
	ort.SetSharedLibraryPath(libraryPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}

	d, err := newONNXSession(modelPath, logger)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, err
	}
	logger.Info("ONNX model %s initialized", modelPath)
	return d, nil
}

func newONNXSession(modelPath string, logger Logger) (*ONNXDetector, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer options.Destroy()

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, InputHeight, InputWidth))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, Features, Anchors))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &ONNXDetector{session: session, input: input, output: output, logger: logger}, nil
}

// Detect resizes the frame to the network input, runs inference and returns
// the best detection scaled back to frame coordinates.
func (d *ONNXDetector) Detect(frame gocv.Mat) (*model.Detection, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}
	start := time.Now()

	img, err := frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	resized := imaging.Resize(img, InputWidth, InputHeight, imaging.Linear)

	data := d.input.GetData()
	channelSize := InputWidth * InputHeight
	for y := 0; y < InputHeight; y++ {
		offset := y * InputWidth
		for x := 0; x < InputWidth; x++ {
			i := offset + x
			px := resized.NRGBAAt(x, y)
			data[i] = float32(px.R) / 255.0
			data[channelSize+i] = float32(px.G) / 255.0
			data[channelSize*2+i] = float32(px.B) / 255.0
		}
	}

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}

	scaleX := float64(frame.Cols()) / InputWidth
	scaleY := float64(frame.Rows()) / InputHeight
	result, ok := decode.YOLOv8(d.output.GetData(), Features, Anchors, scaleX, scaleY, frame.Cols(), frame.Rows(), MinScore)
	latency := time.Since(start)
	d.logger.Info("Time to execute 'detection' took %v", latency)
	if !ok {
		return nil, nil
	}
	return toDetection(result, latency, decode.YOLOCatalog), nil
}

// ClassName resolves COCO class ids.
func (d *ONNXDetector) ClassName(id int) string {
	return decode.YOLOCatalog(id)
}

func (d *ONNXDetector) Name() string { return "onnx" }

// Close destroys the session, its tensors and the onnxruntime environment.
func (d *ONNXDetector) Close() error {
	var firstErr error
	for _, destroy := range []func() error{d.session.Destroy, d.input.Destroy, d.output.Destroy, ort.DestroyEnvironment} {
		if err := destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
