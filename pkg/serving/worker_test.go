package serving

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/dementia-risk/pkg/common/models"
	"github.com/synaptica-ai/dementia-risk/pkg/preprocess"
	"github.com/synaptica-ai/dementia-risk/pkg/serving/assessment"
	"github.com/synaptica-ai/dementia-risk/pkg/serving/predictor"
)

func requestEvent(t *testing.T, data string) models.Event {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(data), &payload))
	return models.Event{ID: "evt-1", Type: models.EventAssessmentRequested, Data: payload}
}

func TestRequestFromEvent(t *testing.T) {
	req, err := RequestFromEvent(requestEvent(t, `{"patient_id": "p-9", "record": `+exampleBody+`}`))
	require.NoError(t, err)
	assert.Equal(t, "evt-1", req.ID)
	assert.Equal(t, "p-9", req.PatientID)
	assert.Equal(t, preprocess.String("Male"), req.Record[preprocess.FieldGender])

	req, err = RequestFromEvent(requestEvent(t, `{"id": "a-5", "record": {"Age": 70}}`))
	require.NoError(t, err)
	assert.Equal(t, "a-5", req.ID)
}

func TestRequestFromEventRejectsMalformed(t *testing.T) {
	_, err := RequestFromEvent(requestEvent(t, `{"record": "nope"}`))
	assert.ErrorIs(t, err, errMalformedEvent)

	_, err = RequestFromEvent(requestEvent(t, `{"record": {"Age": [1]}}`))
	assert.ErrorIs(t, err, errMalformedEvent)

	_, err = RequestFromEvent(models.Event{Type: models.EventAssessmentCompleted})
	assert.ErrorIs(t, err, errMalformedEvent)
}

func TestEventHandlerRunsAssessment(t *testing.T) {
	pre, err := preprocess.New(preprocess.DefaultVocabularies(), preprocess.Options{})
	require.NoError(t, err)
	cache := memoryCache{}
	svc := assessment.New(pre, predictor.Constant(0.9), assessment.Options{Cache: cache})

	handle := EventHandler(svc)
	require.NoError(t, handle(context.Background(), requestEvent(t, `{"record": `+exampleBody+`}`)))
	require.NoError(t, handle(context.Background(), requestEvent(t, `{"record": 1}`)))

	result, ok := cache["evt-1"]
	require.True(t, ok)
	assert.True(t, result.AtRisk)
	assert.Len(t, cache, 1)
}
