package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestRecordSchema(t *testing.T) {
	v, err := New(RecordSchema([]string{"Age"}, []string{"Gender"}))
	require.NoError(t, err)

	assert.NoError(t, v.Validate(decode(t, `{"Age": 77, "Gender": "Male", "Extra": null}`)))
	assert.NoError(t, v.Validate(decode(t, `{"Age": "abc"}`)))

	err = v.Validate(decode(t, `{"Age": [1,2]}`))
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Age", verr.Fields[0].Field)

	err = v.Validate(decode(t, `{"Gender": {"value": "Male"}}`))
	require.ErrorAs(t, err, &verr)

	assert.Error(t, v.Validate(decode(t, `[]`)))
	assert.NoError(t, v.Validate(decode(t, `{}`)))
}
