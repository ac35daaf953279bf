// Package predictor adapts trained dementia risk models to a single
// Classifier interface. The model itself is opaque: a feature vector in, a
// probability out.
package predictor

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Classifier scores one feature vector and returns the probability of the
// positive ("at risk") class.
type Classifier interface {
	Predict(ctx context.Context, features []float64) (float64, error)
}

// Func adapts a plain function to Classifier.
type Func func(ctx context.Context, features []float64) (float64, error)

func (f Func) Predict(ctx context.Context, features []float64) (float64, error) {
	return f(ctx, features)
}

// Constant returns a classifier that always answers p. Handy as a stub.
func Constant(p float64) Classifier {
	return Func(func(context.Context, []float64) (float64, error) { return p, nil })
}

// CheckProbability rejects classifier outputs outside [0,1].
func CheckProbability(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 1 {
		return fmt.Errorf("classifier returned invalid probability %v", p)
	}
	return nil
}

// Backend names accepted by New.
const (
	BackendArtifact = "artifact"
	BackendRemote   = "remote"
	BackendONNX     = "onnx"
)

// Options selects and configures a classifier backend.
type Options struct {
	Backend string

	// artifact
	ArtifactDir string
	ModelName   string

	// remote
	RemoteURL         string
	RemoteTimeout     time.Duration
	RemoteRetries     int
	OAuthTokenURL     string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthScopes       []string

	// onnx
	ONNXModelPath   string
	ONNXLibraryPath string

	FeatureNames []string
}

// New builds the configured classifier backend.
func New(ctx context.Context, opts Options) (Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendArtifact:
		return NewArtifactClassifier(opts.ArtifactDir, opts.ModelName, opts.FeatureNames), nil
	case BackendRemote:
		return NewRemoteClassifier(ctx, RemoteOptions{
			BaseURL:      opts.RemoteURL,
			ModelName:    opts.ModelName,
			Timeout:      opts.RemoteTimeout,
			Retries:      opts.RemoteRetries,
			TokenURL:     opts.OAuthTokenURL,
			ClientID:     opts.OAuthClientID,
			ClientSecret: opts.OAuthClientSecret,
			Scopes:       opts.OAuthScopes,
		})
	case BackendONNX:
		return NewONNXClassifier(opts.ONNXModelPath, opts.ONNXLibraryPath, len(opts.FeatureNames))
	default:
		return nil, fmt.Errorf("unknown classifier backend %q", opts.Backend)
	}
}
