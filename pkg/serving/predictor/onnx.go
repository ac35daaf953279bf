package predictor

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv guards the process-wide ONNX Runtime initialization.
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// ONNXClassifier runs an exported classifier with ONNX Runtime. The model
// must take one float32 input of shape [batch, width] and produce one
// output of shape [batch, 1].
type ONNXClassifier struct {
	mu         sync.Mutex
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	width      int
}

// NewONNXClassifier loads modelPath. When libPath is empty the runtime is
// expected next to the model as libonnxruntime.so.
func NewONNXClassifier(modelPath, libPath string, width int) (*ONNXClassifier, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("onnx: model path required")
	}
	if libPath == "" {
		libPath = filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
	}
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected 1 model input, got %d", len(inputs))
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}
	dims := inputs[0].Dimensions
	if len(dims) != 2 {
		return nil, fmt.Errorf("onnx: expected 2D input tensor, got %v", dims)
	}
	if dims[1] > 0 && width > 0 && int(dims[1]) != width {
		return nil, fmt.Errorf("onnx: model takes %d features, schema has %d", dims[1], width)
	}
	if width <= 0 {
		width = int(dims[1])
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &ONNXClassifier{
		session:    session,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
		width:      width,
	}, nil
}

func (c *ONNXClassifier) Predict(ctx context.Context, features []float64) (float64, error) {
	if len(features) != c.width {
		return 0, fmt.Errorf("onnx: expected %d features, got %d", c.width, len(features))
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	data := make([]float32, len(features))
	for i, f := range features {
		data[i] = float32(f)
	}

	in, err := ort.NewTensor(ort.NewShape(1, int64(c.width)), data)
	if err != nil {
		return 0, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		return 0, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer out.Destroy()

	c.mu.Lock()
	err = c.session.Run([]ort.Value{in}, []ort.Value{out})
	c.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("onnx: inference failed: %w", err)
	}

	result := out.GetData()
	if len(result) == 0 {
		return 0, fmt.Errorf("onnx: empty output")
	}
	return float64(result[0]), nil
}

// Close releases the session.
func (c *ONNXClassifier) Close() error {
	return c.session.Destroy()
}
