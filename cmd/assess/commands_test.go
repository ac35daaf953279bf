package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/dementia-risk/pkg/preprocess"
)

const yamlRecord = `
Diabetic: 0
AlcoholLevel: 0.15
HeartRate: 67
BloodOxygenLevel: 97.5
BodyTemperature: 36.0
Weight: 68.0
MRI_Delay: 28.0
Prescription: "None"
Dosage in mg: 20.0
Age: 77
Education_Level: Primary School
Dominant_Hand: Right
Gender: Male
Family_History: "No"
Smoking_Status: Never Smoked
APOE_ε4: Negative
Physical_Activity: Sedentary
Depression_Status: "No"
Cognitive_Test_Scores: 0
Medication_History: "No"
Nutrition_Diet: Balanced Diet
Sleep_Quality: Good
Chronic_Health_Conditions: "None"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRecordYAML(t *testing.T) {
	rec, err := loadRecord(writeFile(t, "record.yaml", yamlRecord), nil)
	require.NoError(t, err)
	assert.Len(t, rec, preprocess.FeatureCount)
	assert.Equal(t, preprocess.Number(77), rec[preprocess.FieldAge])
	assert.Equal(t, preprocess.String("No"), rec[preprocess.FieldFamilyHistory])
}

func TestLoadRecordJSONFromStdin(t *testing.T) {
	rec, err := loadRecord("-", strings.NewReader(`{"Age": 77, "Gender": "Male"}`))
	require.NoError(t, err)
	assert.Equal(t, preprocess.String("Male"), rec[preprocess.FieldGender])
}

func TestLoadRecordRejectsNestedYAML(t *testing.T) {
	_, err := loadRecord(writeFile(t, "bad.yml", "Age:\n  years: 77\n"), nil)
	assert.Error(t, err)
}

func TestSchemaCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"schema"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "3=None")
	assert.Contains(t, out.String(), "Dosage in mg")
}

func TestExplainCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"explain", "--file", writeFile(t, "record.yaml", yamlRecord)})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), `"vector"`)
}

func TestScoreCommandWithArtifact(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"score", "--file", writeFile(t, "record.yaml", yamlRecord), "--artifact", "../../models", "--backend", "artifact"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Result:")
	assert.Contains(t, out.String(), "probability:")
}
