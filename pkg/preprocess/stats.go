package preprocess

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// StandardizationMode selects where the mean and standard deviation used to
// scale numeric fields come from.
type StandardizationMode string

const (
	// ModeRecord scales the numeric fields of a record against each other.
	// This matches how the deployed model has been served so far.
	ModeRecord StandardizationMode = "record"
	// ModeTraining scales each numeric field with fixed training-time statistics.
	ModeTraining StandardizationMode = "training"
)

func ParseMode(s string) (StandardizationMode, error) {
	switch StandardizationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeRecord:
		return ModeRecord, nil
	case ModeTraining:
		return ModeTraining, nil
	default:
		return "", fmt.Errorf("unknown standardization mode %q", s)
	}
}

// FieldStats is the training-time mean and standard deviation of a field.
type FieldStats struct {
	Mean float64 `yaml:"mean" json:"mean"`
	Std  float64 `yaml:"std" json:"std"`
}

// Statistics holds per-field scaling parameters for ModeTraining.
type Statistics struct {
	Fields map[string]FieldStats `yaml:"fields" json:"fields"`
}

// LoadStatistics reads training statistics from YAML. Every numeric field
// needs an entry with a positive std.
func LoadStatistics(path string) (*Statistics, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read statistics: %w", err)
	}
	var stats Statistics
	if err := yaml.Unmarshal(content, &stats); err != nil {
		return nil, fmt.Errorf("parse statistics: %w", err)
	}
	normalized := make(map[string]FieldStats, len(stats.Fields))
	for name, fs := range stats.Fields {
		normalized[NormalizeFieldName(name)] = fs
	}
	stats.Fields = normalized
	if err := stats.Validate(); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *Statistics) Validate() error {
	for _, field := range NumericFields() {
		fs, ok := s.Fields[field]
		if !ok {
			return fmt.Errorf("statistics missing numeric field %q", field)
		}
		if !(fs.Std > 0) || math.IsInf(fs.Std, 0) || math.IsNaN(fs.Mean) || math.IsInf(fs.Mean, 0) {
			return fmt.Errorf("statistics for %q must have a finite mean and positive std", field)
		}
	}
	return nil
}

// standardizeRecord replaces values with z-scores computed from the values
// themselves (population standard deviation).
func standardizeRecord(values []float64) (mean, std float64, err error) {
	n := float64(len(values))
	for _, v := range values {
		mean += v
	}
	mean /= n
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	std = math.Sqrt(sq / n)
	if !isFinite(mean) || !isFinite(std) {
		return mean, std, &ScalingError{Err: ErrNonFinite}
	}
	if std == 0 {
		return mean, std, &ScalingError{Err: ErrZeroVariance}
	}
	for i, v := range values {
		z := (v - mean) / std
		if !isFinite(z) {
			return mean, std, &ScalingError{Err: ErrNonFinite}
		}
		values[i] = z
	}
	return mean, std, nil
}

func (s *Statistics) standardize(field string, value float64) (float64, error) {
	fs, ok := s.Fields[field]
	if !ok {
		return 0, &ScalingError{Field: field, Err: ErrNoStatistics}
	}
	if fs.Std == 0 {
		return 0, &ScalingError{Field: field, Err: ErrZeroVariance}
	}
	z := (value - fs.Mean) / fs.Std
	if !isFinite(z) {
		return 0, &ScalingError{Field: field, Err: ErrNonFinite}
	}
	return z, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
