// Package assessment runs one dementia risk assessment end to end: it turns a
// raw form record into a feature vector, asks the classifier for a
// probability and reports a verdict or a message the user can act on.
package assessment

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/dementia-risk/pkg/common/logger"
	"github.com/synaptica-ai/dementia-risk/pkg/common/models"
	"github.com/synaptica-ai/dementia-risk/pkg/preprocess"
	"github.com/synaptica-ai/dementia-risk/pkg/serving/predictor"
)

// Verdict is the binary risk determination shown to the user.
type Verdict string

const (
	AtRisk    Verdict = "at risk"
	NotAtRisk Verdict = "not at risk"
)

// DefaultThreshold is the probability a prediction must exceed to be AtRisk.
const DefaultThreshold = 0.5

// KindClassifier tags failures of the classifier call.
const KindClassifier = "classifier"

// Message returns the text shown for a verdict.
func (v Verdict) Message() string {
	if v == AtRisk {
		return "Result: at risk of dementia"
	}
	return "Result: no risk of dementia"
}

// Decide applies the strict threshold: p equal to the threshold is NotAtRisk.
func Decide(p, threshold float64) Verdict {
	if p > threshold {
		return AtRisk
	}
	return NotAtRisk
}

// AuditLog persists finished assessments.
type AuditLog interface {
	Record(ctx context.Context, result models.AssessmentResult, record preprocess.Record, features preprocess.Vector) error
}

// Cache stores results for lookup by id.
type Cache interface {
	Put(ctx context.Context, result models.AssessmentResult) error
}

// Publisher emits completion events.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Metrics receives counters and latencies.
type Metrics interface {
	Verdict(verdict string)
	Error(kind string)
	ClassifierLatency(backend string, d time.Duration)
	SideEffectFailed(sink string)
}

// Options configures a Service. Every sink is optional.
type Options struct {
	Threshold float64
	ModelName string
	Backend   string
	Source    string

	Audit   AuditLog
	Cache   Cache
	Events  Publisher
	Metrics Metrics
}

// Request is one assessment to run. ID and PatientID are optional.
type Request struct {
	ID        string
	PatientID string
	Record    preprocess.Record
}

type Service struct {
	pre        *preprocess.Preprocessor
	classifier predictor.Classifier
	opts       Options
}

// New builds a Service. A threshold outside (0,1) falls back to
// DefaultThreshold.
func New(pre *preprocess.Preprocessor, classifier predictor.Classifier, opts Options) *Service {
	if math.IsNaN(opts.Threshold) || opts.Threshold <= 0 || opts.Threshold >= 1 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Source == "" {
		opts.Source = "assessment-service"
	}
	return &Service{pre: pre, classifier: classifier, opts: opts}
}

func (s *Service) Threshold() float64 { return s.opts.Threshold }

func (s *Service) Preprocessor() *preprocess.Preprocessor { return s.pre }

// Assess scores a single record under a fresh id.
func (s *Service) Assess(ctx context.Context, record preprocess.Record) models.AssessmentResult {
	return s.Run(ctx, Request{Record: record})
}

// Run never returns an error: failures end up in the result's Message and
// ErrorKind.
func (s *Service) Run(ctx context.Context, req Request) models.AssessmentResult {
	start := time.Now()
	result := models.AssessmentResult{
		ID:        req.ID,
		PatientID: req.PatientID,
		ModelName: s.opts.ModelName,
		CreatedAt: start.UTC(),
	}
	if result.ID == "" {
		result.ID = uuid.New().String()
	}

	features, p, err := s.score(ctx, req.Record)
	result.Latency = time.Since(start)
	if err != nil {
		kind := preprocess.ErrorKind(err)
		if kind == "" {
			kind = KindClassifier
		}
		result.ErrorKind = kind
		result.Message = "An error occurred: " + err.Error()

		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"assessment_id": result.ID,
			"kind":          kind,
		}).Warn("Assessment failed")
		if s.opts.Metrics != nil {
			s.opts.Metrics.Error(kind)
		}
	} else {
		verdict := Decide(p, s.opts.Threshold)
		result.Probability = &p
		result.Verdict = string(verdict)
		result.AtRisk = verdict == AtRisk
		result.Message = verdict.Message()

		logger.Log.WithFields(map[string]interface{}{
			"assessment_id": result.ID,
			"verdict":       result.Verdict,
			"probability":   p,
			"latency_ms":    result.Latency.Milliseconds(),
		}).Info("Assessment completed")
		if s.opts.Metrics != nil {
			s.opts.Metrics.Verdict(result.Verdict)
		}
	}

	s.afterAssessment(ctx, result, req.Record, features)
	return result
}

func (s *Service) score(ctx context.Context, record preprocess.Record) (preprocess.Vector, float64, error) {
	features, err := s.pre.Preprocess(record)
	if err != nil {
		return nil, 0, err
	}

	start := time.Now()
	p, err := s.predict(ctx, features)
	if s.opts.Metrics != nil {
		s.opts.Metrics.ClassifierLatency(s.opts.Backend, time.Since(start))
	}
	if err != nil {
		return features, 0, fmt.Errorf("classifier: %w", err)
	}
	if err := predictor.CheckProbability(p); err != nil {
		return features, 0, err
	}
	return features, p, nil
}

// predict turns a panicking classifier into an error.
func (s *Service) predict(ctx context.Context, features preprocess.Vector) (p float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = 0, fmt.Errorf("panic: %v", r)
		}
	}()
	return s.classifier.Predict(ctx, features)
}

// afterAssessment writes the result to the optional sinks. Failures are
// logged and counted only.
func (s *Service) afterAssessment(ctx context.Context, result models.AssessmentResult, record preprocess.Record, features preprocess.Vector) {
	fail := func(sink string, err error) {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"assessment_id": result.ID,
			"sink":          sink,
		}).Error("Failed to record assessment")
		if s.opts.Metrics != nil {
			s.opts.Metrics.SideEffectFailed(sink)
		}
	}

	if s.opts.Audit != nil {
		if err := s.opts.Audit.Record(ctx, result, record, features); err != nil {
			fail("audit", err)
		}
	}
	if s.opts.Cache != nil {
		if err := s.opts.Cache.Put(ctx, result); err != nil {
			fail("cache", err)
		}
	}
	if s.opts.Events != nil {
		if err := s.opts.Events.PublishEvent(ctx, models.EventAssessmentCompleted, s.opts.Source, result.ToMap()); err != nil {
			fail("events", err)
		}
	}
}
