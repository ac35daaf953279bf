package linear

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredictAtDecisionBoundary(t *testing.T) {
	w := Weights{Bias: 0, Coefficients: []float64{1, -1}}
	assert.InDelta(t, 0.5, Predict(w, []float64{2, 2}), 1e-12)
	assert.Greater(t, Predict(w, []float64{3, 1}), 0.5)
	assert.Less(t, Predict(w, []float64{1, 3}), 0.5)
}

func TestValidateWidth(t *testing.T) {
	w := Weights{Coefficients: []float64{1, 2}}
	assert.NoError(t, w.Validate(2))
	assert.Error(t, w.Validate(3))
}
