package models

import (
	"time"
)

// Event types carried on the assessment topics.
const (
	EventAssessmentRequested = "assessment.requested"
	EventAssessmentCompleted = "assessment.completed"
)

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// AssessmentResult is what the user, the cache, the audit log and the event
// stream see of one assessment. Probability and Verdict are empty when the
// assessment failed; Message is always set.
type AssessmentResult struct {
	ID          string        `json:"id"`
	PatientID   string        `json:"patient_id,omitempty"`
	Verdict     string        `json:"verdict,omitempty"`
	AtRisk      bool          `json:"at_risk"`
	Probability *float64      `json:"probability,omitempty"`
	Message     string        `json:"message"`
	ErrorKind   string        `json:"error_kind,omitempty"`
	ModelName   string        `json:"model_name,omitempty"`
	Latency     time.Duration `json:"latency"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Succeeded reports whether the assessment produced a verdict.
func (r AssessmentResult) Succeeded() bool {
	return r.ErrorKind == "" && r.Probability != nil
}

// ToMap flattens the result for JSON columns and event payloads.
func (r AssessmentResult) ToMap() map[string]interface{} {
	out := map[string]interface{}{
		"id":         r.ID,
		"verdict":    r.Verdict,
		"at_risk":    r.AtRisk,
		"message":    r.Message,
		"latency_ms": float64(r.Latency.Microseconds()) / 1000.0,
		"created_at": r.CreatedAt,
	}
	if r.PatientID != "" {
		out["patient_id"] = r.PatientID
	}
	if r.Probability != nil {
		out["probability"] = *r.Probability
	}
	if r.ErrorKind != "" {
		out["error_kind"] = r.ErrorKind
	}
	if r.ModelName != "" {
		out["model_name"] = r.ModelName
	}
	return out
}
