package serving

import (
	"context"
	"errors"
	"fmt"

	"github.com/synaptica-ai/dementia-risk/pkg/common/logger"
	"github.com/synaptica-ai/dementia-risk/pkg/common/models"
	"github.com/synaptica-ai/dementia-risk/pkg/preprocess"
	"github.com/synaptica-ai/dementia-risk/pkg/serving/assessment"
)

var errMalformedEvent = errors.New("malformed assessment request")

// RequestFromEvent reads an assessment.requested event. data.record holds the
// raw record; data.id and data.patient_id are optional.
func RequestFromEvent(event models.Event) (assessment.Request, error) {
	var req assessment.Request
	if event.Type != models.EventAssessmentRequested {
		return req, fmt.Errorf("%w: unexpected event type %q", errMalformedEvent, event.Type)
	}
	raw, ok := event.Data["record"].(map[string]interface{})
	if !ok {
		return req, fmt.Errorf("%w: data.record is not an object", errMalformedEvent)
	}
	record, err := preprocess.NewRecord(raw)
	if err != nil {
		return req, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}

	req.Record = record
	req.ID, _ = event.Data["id"].(string)
	req.PatientID, _ = event.Data["patient_id"].(string)
	if req.ID == "" {
		req.ID = event.ID
	}
	return req, nil
}

// EventHandler scores queued assessment requests. Malformed events are logged
// and acknowledged so they are not redelivered.
func EventHandler(service *assessment.Service) func(ctx context.Context, event models.Event) error {
	return func(ctx context.Context, event models.Event) error {
		req, err := RequestFromEvent(event)
		if err != nil {
			logger.Log.WithError(err).WithField("event_id", event.ID).Warn("Skipping assessment request")
			return nil
		}
		result := service.Run(ctx, req)
		logger.Log.WithFields(map[string]interface{}{
			"event_id":      event.ID,
			"assessment_id": result.ID,
			"verdict":       result.Verdict,
			"error_kind":    result.ErrorKind,
		}).Info("Processed assessment request")
		return nil
	}
}
