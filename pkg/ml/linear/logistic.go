package linear

import (
	"fmt"
	"math"
)

// Weights are the parameters of a trained logistic model.
type Weights struct {
	Bias         float64   `json:"bias"`
	Coefficients []float64 `json:"coefficients"`
}

// Validate checks that the weights can score samples of the given width.
func (w Weights) Validate(width int) error {
	if len(w.Coefficients) != width {
		return fmt.Errorf("expected %d coefficients, got %d", width, len(w.Coefficients))
	}
	for i, c := range w.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("coefficient %d is not finite", i)
		}
	}
	return nil
}

// Predict returns the positive-class probability for sample.
func Predict(weights Weights, sample []float64) float64 {
	return sigmoid(dot(weights.Coefficients, sample) + weights.Bias)
}

func dot(weights []float64, sample []float64) float64 {
	var sum float64
	for i := 0; i < len(weights) && i < len(sample); i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
