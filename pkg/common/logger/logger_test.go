package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTagsEntriesWithService(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	Init("assessment-service")

	var buf bytes.Buffer
	Log.SetOutput(&buf)
	WithField("assessment_id", "abc").Debug("scored")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "assessment-service", entry["service"])
	assert.Equal(t, "abc", entry["assessment_id"])
	assert.Equal(t, "debug", entry["level"])
}
