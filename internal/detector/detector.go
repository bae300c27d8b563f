// Package detector runs local food object-detection models with ONNX
// Runtime. Each Detector wraps one model session; multiple models can be
// configured and their outputs reconciled by the fusion engine.
package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"github.com/yalue/onnxruntime_go"

	"github.com/mealscan/mealscan/internal/mempool"
)

// Detector performs food object detection using ONNX Runtime.
type Detector struct {
	config     Config
	labels     []string
	session    *onnxruntime_go.DynamicAdvancedSession
	inputName  string
	outputName string

	// The session holds exclusive accelerator resources; inference is
	// serialized.
	mu sync.Mutex
}

// NewDetector creates a detector from the given configuration. The session
// is long-lived and safe to share across requests.
func NewDetector(config Config) (*Detector, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	if err := validateModelFile(config.ModelPath); err != nil {
		return nil, err
	}

	labels, err := LoadLabels(config.LabelsPath)
	if err != nil {
		return nil, err
	}

	slog.Debug("initializing detector",
		"name", config.Name,
		"model_path", config.ModelPath,
		"classes", len(labels),
		"input_size", config.InputSize)

	if err := setupRuntime(config.LibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := onnxruntime_go.GetInputOutputInfo(config.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("detector: inspect model: %w", err)
	}
	if len(inputs) != 1 || len(outputs) == 0 {
		return nil, fmt.Errorf("detector: model has %d inputs and %d outputs, want 1 and >=1",
			len(inputs), len(outputs))
	}

	session, err := createSession(config, inputs[0].Name, outputs[0].Name)
	if err != nil {
		return nil, err
	}

	return &Detector{
		config:     config,
		labels:     labels,
		session:    session,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
	}, nil
}

// Name returns the configured detector identifier.
func (d *Detector) Name() string {
	if d.config.Name != "" {
		return d.config.Name
	}
	return "detector"
}

// Classes returns the model's class names in id order.
func (d *Detector) Classes() []string {
	out := make([]string, len(d.labels))
	copy(out, d.labels)
	return out
}

// Predict runs inference on the image and returns detected objects in
// source pixel coordinates.
func (d *Detector) Predict(ctx context.Context, img image.Image) ([]Object, error) {
	if img == nil {
		return nil, errors.New("detector: nil image")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	boxed, lb := letterboxImage(img, d.config.InputSize)
	data := toNCHW(boxed)
	// Returned after the input tensor is destroyed (defers run LIFO).
	defer mempool.PutFloat32(data)

	inputTensor, err := onnxruntime_go.NewTensor(
		onnxruntime_go.NewShape(1, 3, int64(d.config.InputSize), int64(d.config.InputSize)), data)
	if err != nil {
		return nil, fmt.Errorf("detector: create input tensor: %w", err)
	}
	defer func() {
		if err := inputTensor.Destroy(); err != nil {
			fmt.Fprintf(os.Stderr, "Error destroying input tensor: %v\n", err)
		}
	}()

	d.mu.Lock()
	session := d.session
	if session == nil {
		d.mu.Unlock()
		return nil, errors.New("detector: session is closed")
	}
	outputs := []onnxruntime_go.Value{nil}
	runErr := session.Run([]onnxruntime_go.Value{inputTensor}, outputs)
	d.mu.Unlock()
	if runErr != nil {
		return nil, fmt.Errorf("detector: inference failed: %w", runErr)
	}
	defer func() {
		if err := outputs[0].Destroy(); err != nil {
			fmt.Fprintf(os.Stderr, "Error destroying output tensor: %v\n", err)
		}
	}()

	floatTensor, ok := outputs[0].(*onnxruntime_go.Tensor[float32])
	if !ok {
		return nil, errors.New("detector: output is not a float32 tensor")
	}

	objects, err := decodeOutput(floatTensor.GetData(), floatTensor.GetShape(), d.labels, lb,
		bounds.Dx(), bounds.Dy(), d.config.ConfThreshold, d.config.NMSThreshold)
	if err != nil {
		return nil, err
	}

	slog.Debug("detector inference complete", "name", d.Name(), "objects", len(objects))
	return objects, nil
}

// Close releases the ONNX session.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil
	}
	err := d.session.Destroy()
	d.session = nil
	return err
}

// setupRuntime points onnxruntime_go at the shared library and initializes
// the environment once.
func setupRuntime(libraryPath string) error {
	if onnxruntime_go.IsInitialized() {
		return nil
	}
	if libraryPath == "" {
		libraryPath = os.Getenv("MEALSCAN_ONNX_LIB")
	}
	if libraryPath != "" {
		onnxruntime_go.SetSharedLibraryPath(libraryPath)
	}
	if err := onnxruntime_go.InitializeEnvironment(); err != nil {
		return fmt.Errorf("detector: initialize ONNX Runtime: %w", err)
	}
	return nil
}

// createSession builds the ONNX session with thread options applied.
func createSession(config Config, inputName, outputName string) (*onnxruntime_go.DynamicAdvancedSession, error) {
	sessionOptions, err := onnxruntime_go.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("detector: create session options: %w", err)
	}
	defer func() {
		if err := sessionOptions.Destroy(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to destroy session options: %v\n", err)
		}
	}()

	if config.NumThreads > 0 {
		if err := sessionOptions.SetIntraOpNumThreads(config.NumThreads); err != nil {
			return nil, fmt.Errorf("detector: set thread count: %w", err)
		}
	}

	session, err := onnxruntime_go.NewDynamicAdvancedSession(config.ModelPath,
		[]string{inputName}, []string{outputName}, sessionOptions)
	if err != nil {
		return nil, fmt.Errorf("detector: create ONNX session: %w", err)
	}
	return session, nil
}
