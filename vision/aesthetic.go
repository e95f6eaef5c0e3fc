package vision

import (
	"errors"
	"fmt"
	"image"
	"log"
	"os"

	"gocv.io/x/gocv"
)

const (
	aestheticInputSize = 224
	aestheticBuckets   = 10
)

// ErrModelDisabled is returned when scoring with a model that failed to load.
var ErrModelDisabled = errors.New("aesthetic model is not loaded")

// AestheticModel wraps a NIMA style network: ten softmax buckets for the
// ratings 1..10, reduced to their expected value.
type AestheticModel struct {
	Net       gocv.Net
	Enabled   bool
	ModelPath string
}

// NewAestheticModel loads an ONNX model, preferring CUDA when it is available.
func NewAestheticModel(modelPath string) (*AestheticModel, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("aesthetic model path is empty")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("aesthetic model file %s: %w", modelPath, err)
	}

	log.Printf("vision: Attempting to load aesthetic model: %s", modelPath)
	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("ReadNet returned an empty network for %s", modelPath)
	}

	cudaBackendErr := net.SetPreferableBackend(gocv.NetBackendCUDA)
	cudaTargetErr := net.SetPreferableTarget(gocv.NetTargetCUDA)
	if cudaBackendErr == nil && cudaTargetErr == nil {
		log.Printf("vision: Set backend/target to CUDA for aesthetic model")
	} else {
		if cudaBackendErr != nil {
			log.Printf("vision: CUDA Backend not available: %v. Using default backend.", cudaBackendErr)
		}
		if cudaTargetErr != nil {
			log.Printf("vision: CUDA Target not available: %v. Using default target.", cudaTargetErr)
		}
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
		log.Printf("vision: Set backend/target to CPU (Default) for aesthetic model")
	}

	return &AestheticModel{Net: net, Enabled: true, ModelPath: modelPath}, nil
}

func (m *AestheticModel) Close() {
	if m != nil && m.Enabled {
		m.Net.Close()
		m.Enabled = false
		log.Printf("vision: closed aesthetic network")
	}
}

// Score runs the network on a BGR image and returns a rating in [1, 10].
func (m *AestheticModel) Score(img gocv.Mat) (float64, error) {
	if m == nil || !m.Enabled {
		return 0, ErrModelDisabled
	}
	if img.Empty() {
		return 0, ErrUndecodable
	}

	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(aestheticInputSize, aestheticInputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	m.Net.SetInput(blob, "")
	output := m.Net.Forward("")
	defer output.Close()
	if output.Empty() {
		return 0, fmt.Errorf("aesthetic model produced no output")
	}

	flattened := output.Reshape(1, 1)
	defer flattened.Close()
	if flattened.Cols() < aestheticBuckets {
		return 0, fmt.Errorf("aesthetic model produced %d values, want %d", flattened.Cols(), aestheticBuckets)
	}

	probs := make([]float64, aestheticBuckets)
	for i := range probs {
		probs[i] = float64(flattened.GetFloatAt(0, i))
	}
	return expectedRating(probs), nil
}

// expectedRating is sum((i+1) * p_i), normalised in case the outputs do not
// sum to one.
func expectedRating(probs []float64) float64 {
	var total, weighted float64
	for i, p := range probs {
		if p < 0 {
			p = 0
		}
		total += p
		weighted += float64(i+1) * p
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}
