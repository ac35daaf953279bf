package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/synaptica-ai/dementia-risk/pkg/ml/linear"
)

// Artifact is the JSON file written when a logistic model is exported.
type Artifact struct {
	Model struct {
		Type         string         `json:"type"`
		Algorithm    string         `json:"algorithm"`
		FeatureNames []string       `json:"feature_names"`
		Weights      linear.Weights `json:"weights"`
	} `json:"model"`
}

// ArtifactClassifier scores vectors with a logistic artifact read from
// {dir}/{model}_latest.json. The file is re-read whenever its mtime changes.
type ArtifactClassifier struct {
	dir      string
	model    string
	features []string
	mu       sync.RWMutex
	cached   *cachedArtifact
}

type cachedArtifact struct {
	artifact Artifact
	modTime  int64
}

func NewArtifactClassifier(dir, model string, features []string) *ArtifactClassifier {
	return &ArtifactClassifier{
		dir:      dir,
		model:    model,
		features: append([]string(nil), features...),
	}
}

// Path is the artifact file the classifier reads.
func (p *ArtifactClassifier) Path() string {
	return filepath.Join(p.dir, fmt.Sprintf("%s_latest.json", p.model))
}

func (p *ArtifactClassifier) Predict(ctx context.Context, features []float64) (float64, error) {
	artifact, err := p.loadArtifact()
	if err != nil {
		return 0, err
	}
	if len(features) != len(artifact.Model.FeatureNames) {
		return 0, fmt.Errorf("artifact expects %d features, got %d", len(artifact.Model.FeatureNames), len(features))
	}
	return linear.Predict(artifact.Model.Weights, features), nil
}

func (p *ArtifactClassifier) loadArtifact() (Artifact, error) {
	latest := p.Path()
	info, err := os.Stat(latest)
	if err != nil {
		return Artifact{}, fmt.Errorf("model artifact: %w", err)
	}
	mod := info.ModTime().UnixNano()

	p.mu.RLock()
	cached := p.cached
	p.mu.RUnlock()
	if cached != nil && cached.modTime == mod {
		return cached.artifact, nil
	}

	content, err := os.ReadFile(latest)
	if err != nil {
		return Artifact{}, fmt.Errorf("model artifact: %w", err)
	}
	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return Artifact{}, fmt.Errorf("model artifact: %w", err)
	}
	if err := p.check(artifact); err != nil {
		return Artifact{}, err
	}
	p.mu.Lock()
	p.cached = &cachedArtifact{artifact: artifact, modTime: mod}
	p.mu.Unlock()
	return artifact, nil
}

// check makes sure the artifact was trained on the same column layout.
func (p *ArtifactClassifier) check(artifact Artifact) error {
	names := artifact.Model.FeatureNames
	if len(names) == 0 {
		return fmt.Errorf("artifact missing feature names")
	}
	if len(p.features) > 0 {
		if len(names) != len(p.features) {
			return fmt.Errorf("artifact has %d features, schema has %d", len(names), len(p.features))
		}
		for i, name := range names {
			if name != p.features[i] {
				return fmt.Errorf("artifact feature %d is %q, schema expects %q", i, name, p.features[i])
			}
		}
	}
	return artifact.Model.Weights.Validate(len(names))
}
