package serving

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/dementia-risk/pkg/common/models"
	"github.com/synaptica-ai/dementia-risk/pkg/preprocess"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no audit row matches.
var ErrNotFound = errors.New("assessment not found")

// AssessmentLog is the persistence model for the assessment audit trail.
type AssessmentLog struct {
	ID           uuid.UUID         `gorm:"primaryKey;column:id"`
	AssessmentID string            `gorm:"column:assessment_id;index"`
	PatientID    string            `gorm:"column:patient_id"`
	ModelName    string            `gorm:"column:model_name"`
	Request      datatypes.JSONMap `gorm:"column:request"`
	Features     datatypes.JSONMap `gorm:"column:features"`
	Response     datatypes.JSONMap `gorm:"column:response"`
	Verdict      string            `gorm:"column:verdict"`
	Probability  *float64          `gorm:"column:probability"`
	ErrorKind    string            `gorm:"column:error_kind"`
	Message      string            `gorm:"column:message"`
	LatencyMs    float64           `gorm:"column:latency_ms"`
	CreatedAt    time.Time         `gorm:"column:created_at"`
}

// TableName overrides gorm naming.
func (AssessmentLog) TableName() string {
	return "assessment_logs"
}

// Result rebuilds the user-facing result from a stored row.
func (l AssessmentLog) Result() models.AssessmentResult {
	return models.AssessmentResult{
		ID:          l.AssessmentID,
		PatientID:   l.PatientID,
		Verdict:     l.Verdict,
		AtRisk:      l.Verdict == "at risk",
		Probability: l.Probability,
		Message:     l.Message,
		ErrorKind:   l.ErrorKind,
		ModelName:   l.ModelName,
		Latency:     time.Duration(l.LatencyMs * float64(time.Millisecond)),
		CreatedAt:   l.CreatedAt,
	}
}

// Repository handles assessment log queries.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&AssessmentLog{})
}

// Record stores one assessment. features is nil when preprocessing failed.
func (r *Repository) Record(ctx context.Context, result models.AssessmentResult, record preprocess.Record, features preprocess.Vector) error {
	log := AssessmentLog{
		ID:           uuid.New(),
		AssessmentID: result.ID,
		PatientID:    result.PatientID,
		ModelName:    result.ModelName,
		Request:      datatypes.JSONMap(record.Raw()),
		Response:     datatypes.JSONMap(result.ToMap()),
		Verdict:      result.Verdict,
		Probability:  result.Probability,
		ErrorKind:    result.ErrorKind,
		Message:      result.Message,
		LatencyMs:    float64(result.Latency.Microseconds()) / 1000.0,
		CreatedAt:    result.CreatedAt,
	}
	if features != nil {
		log.Features = datatypes.JSONMap(features.Map())
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(&log).Error
}

// Get returns the log row of one assessment.
func (r *Repository) Get(ctx context.Context, assessmentID string) (*AssessmentLog, error) {
	var log AssessmentLog
	err := r.db.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		First(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// Recent returns the most recent assessment logs up to limit.
func (r *Repository) Recent(ctx context.Context, limit int) ([]AssessmentLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []AssessmentLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
