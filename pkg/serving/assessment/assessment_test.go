package assessment

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/dementia-risk/pkg/common/models"
	"github.com/synaptica-ai/dementia-risk/pkg/preprocess"
	"github.com/synaptica-ai/dementia-risk/pkg/serving/predictor"
)

func exampleRecord() preprocess.Record {
	return preprocess.Record{
		preprocess.FieldDiabetic:                preprocess.Number(0),
		preprocess.FieldAlcoholLevel:            preprocess.Number(0.15),
		preprocess.FieldHeartRate:               preprocess.Number(67),
		preprocess.FieldBloodOxygenLevel:        preprocess.Number(97.5),
		preprocess.FieldBodyTemperature:         preprocess.Number(36.0),
		preprocess.FieldWeight:                  preprocess.Number(68.0),
		preprocess.FieldMRIDelay:                preprocess.Number(28.0),
		preprocess.FieldPrescription:            preprocess.String("None"),
		preprocess.FieldDosage:                  preprocess.Number(20.0),
		preprocess.FieldAge:                     preprocess.Number(77),
		preprocess.FieldEducationLevel:          preprocess.String("Primary School"),
		preprocess.FieldDominantHand:            preprocess.String("Right"),
		preprocess.FieldGender:                  preprocess.String("Male"),
		preprocess.FieldFamilyHistory:           preprocess.String("No"),
		preprocess.FieldSmokingStatus:           preprocess.String("Never Smoked"),
		preprocess.FieldAPOE4:                   preprocess.String("Negative"),
		preprocess.FieldPhysicalActivity:        preprocess.String("Sedentary"),
		preprocess.FieldDepressionStatus:        preprocess.String("No"),
		preprocess.FieldCognitiveTestScores:     preprocess.Number(0),
		preprocess.FieldMedicationHistory:       preprocess.String("No"),
		preprocess.FieldNutritionDiet:           preprocess.String("Balanced Diet"),
		preprocess.FieldSleepQuality:            preprocess.String("Good"),
		preprocess.FieldChronicHealthConditions: preprocess.String("None"),
	}
}

func newService(t *testing.T, clf predictor.Classifier, opts Options) *Service {
	t.Helper()
	pre, err := preprocess.New(preprocess.DefaultVocabularies(), preprocess.Options{})
	require.NoError(t, err)
	return New(pre, clf, opts)
}

type fakeSinks struct {
	audited   []models.AssessmentResult
	cached    []models.AssessmentResult
	published []string
	verdicts  []string
	errors    []string
	failed    []string
	err       error
}

func (f *fakeSinks) Record(_ context.Context, r models.AssessmentResult, _ preprocess.Record, _ preprocess.Vector) error {
	f.audited = append(f.audited, r)
	return f.err
}

func (f *fakeSinks) Put(_ context.Context, r models.AssessmentResult) error {
	f.cached = append(f.cached, r)
	return f.err
}

func (f *fakeSinks) PublishEvent(_ context.Context, eventType, _ string, _ map[string]interface{}) error {
	f.published = append(f.published, eventType)
	return f.err
}

func (f *fakeSinks) Verdict(v string)                        { f.verdicts = append(f.verdicts, v) }
func (f *fakeSinks) Error(kind string)                       { f.errors = append(f.errors, kind) }
func (f *fakeSinks) ClassifierLatency(string, time.Duration) {}
func (f *fakeSinks) SideEffectFailed(sink string)            { f.failed = append(f.failed, sink) }

func TestAssessVerdicts(t *testing.T) {
	tests := []struct {
		name    string
		p       float64
		verdict Verdict
	}{
		{"low", 0.3, NotAtRisk},
		{"high", 0.7, AtRisk},
		{"boundary", 0.5, NotAtRisk},
		{"just above boundary", 0.5000001, AtRisk},
		{"zero", 0, NotAtRisk},
		{"one", 1, AtRisk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(t, predictor.Constant(tt.p), Options{})
			res := svc.Assess(context.Background(), exampleRecord())

			require.True(t, res.Succeeded(), res.Message)
			assert.Equal(t, string(tt.verdict), res.Verdict)
			assert.Equal(t, tt.verdict == AtRisk, res.AtRisk)
			assert.Equal(t, tt.verdict.Message(), res.Message)
			assert.InDelta(t, tt.p, *res.Probability, 1e-12)
			assert.NotEmpty(t, res.ID)
		})
	}
}

func TestAssessPassesFullVectorToClassifier(t *testing.T) {
	var got []float64
	clf := predictor.Func(func(_ context.Context, features []float64) (float64, error) {
		got = features
		return 0.1, nil
	})
	svc := newService(t, clf, Options{})
	svc.Assess(context.Background(), exampleRecord())

	require.Len(t, got, preprocess.FeatureCount)
	for _, v := range got {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestAssessInvalidProbabilityIsAnError(t *testing.T) {
	for _, p := range []float64{1.2, -0.1, math.NaN(), math.Inf(1)} {
		svc := newService(t, predictor.Constant(p), Options{})
		res := svc.Assess(context.Background(), exampleRecord())

		assert.False(t, res.Succeeded())
		assert.Equal(t, KindClassifier, res.ErrorKind)
		assert.Nil(t, res.Probability)
		assert.Empty(t, res.Verdict)
		assert.Contains(t, res.Message, "An error occurred")
	}
}

func TestAssessClassifierFailureBecomesMessage(t *testing.T) {
	clf := predictor.Func(func(context.Context, []float64) (float64, error) {
		return 0, errors.New("model unavailable")
	})
	svc := newService(t, clf, Options{})
	res := svc.Assess(context.Background(), exampleRecord())

	assert.Equal(t, KindClassifier, res.ErrorKind)
	assert.Contains(t, res.Message, "model unavailable")
}

func TestAssessClassifierPanicBecomesMessage(t *testing.T) {
	clf := predictor.Func(func(_ context.Context, features []float64) (float64, error) {
		var empty []float64
		return empty[len(features)-20], nil
	})
	sinks := &fakeSinks{}
	svc := newService(t, clf, Options{Metrics: sinks})

	var res models.AssessmentResult
	require.NotPanics(t, func() { res = svc.Assess(context.Background(), exampleRecord()) })
	assert.Equal(t, KindClassifier, res.ErrorKind)
	assert.Contains(t, res.Message, "panic")
	assert.Nil(t, res.Probability)
	assert.Equal(t, []string{KindClassifier}, sinks.errors)
}

func TestAssessPreprocessingFailureBecomesMessage(t *testing.T) {
	called := false
	clf := predictor.Func(func(context.Context, []float64) (float64, error) {
		called = true
		return 0.9, nil
	})
	svc := newService(t, clf, Options{})

	rec := exampleRecord()
	rec[preprocess.FieldGender] = preprocess.String("Other")
	res := svc.Assess(context.Background(), rec)

	assert.False(t, called)
	assert.Equal(t, preprocess.KindEncoding, res.ErrorKind)
	assert.Contains(t, res.Message, "Gender")
}

func TestAssessWritesSinks(t *testing.T) {
	sinks := &fakeSinks{}
	svc := newService(t, predictor.Constant(0.8), Options{
		Audit: sinks, Cache: sinks, Events: sinks, Metrics: sinks,
	})
	res := svc.Run(context.Background(), Request{ID: "a-1", PatientID: "p-1", Record: exampleRecord()})

	assert.Equal(t, "a-1", res.ID)
	assert.Equal(t, "p-1", res.PatientID)
	require.Len(t, sinks.audited, 1)
	require.Len(t, sinks.cached, 1)
	assert.Equal(t, []string{models.EventAssessmentCompleted}, sinks.published)
	assert.Equal(t, []string{string(AtRisk)}, sinks.verdicts)
	assert.Empty(t, sinks.failed)
}

func TestAssessSinkFailuresAreNotSurfaced(t *testing.T) {
	sinks := &fakeSinks{err: errors.New("down")}
	svc := newService(t, predictor.Constant(0.2), Options{
		Audit: sinks, Cache: sinks, Events: sinks, Metrics: sinks,
	})
	res := svc.Assess(context.Background(), exampleRecord())

	assert.True(t, res.Succeeded())
	assert.Equal(t, []string{"audit", "cache", "events"}, sinks.failed)
}

func TestThresholdFallsBackToDefault(t *testing.T) {
	assert.Equal(t, DefaultThreshold, newService(t, predictor.Constant(0), Options{}).Threshold())
	assert.Equal(t, DefaultThreshold, newService(t, predictor.Constant(0), Options{Threshold: 1.5}).Threshold())
	assert.Equal(t, 0.7, newService(t, predictor.Constant(0), Options{Threshold: 0.7}).Threshold())
}
