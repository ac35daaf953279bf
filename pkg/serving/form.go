package serving

import (
	"embed"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/synaptica-ai/dementia-risk/pkg/common/models"
	"github.com/synaptica-ai/dementia-risk/pkg/preprocess"
)

//go:embed templates/form.html
var templateFS embed.FS

var formTemplate = template.Must(template.ParseFS(templateFS, "templates/form.html"))

// Values the form starts with.
var formDefaults = map[string]string{
	preprocess.FieldDiabetic:                "0",
	preprocess.FieldAlcoholLevel:            "0.15",
	preprocess.FieldHeartRate:               "67",
	preprocess.FieldBloodOxygenLevel:        "97.5",
	preprocess.FieldBodyTemperature:         "36",
	preprocess.FieldWeight:                  "68",
	preprocess.FieldMRIDelay:                "28",
	preprocess.FieldPrescription:            "None",
	preprocess.FieldDosage:                  "20",
	preprocess.FieldAge:                     "77",
	preprocess.FieldEducationLevel:          "Primary School",
	preprocess.FieldDominantHand:            "Left",
	preprocess.FieldGender:                  "Female",
	preprocess.FieldFamilyHistory:           "No",
	preprocess.FieldSmokingStatus:           "Never Smoked",
	preprocess.FieldAPOE4:                   "Negative",
	preprocess.FieldPhysicalActivity:        "Sedentary",
	preprocess.FieldDepressionStatus:        "No",
	preprocess.FieldCognitiveTestScores:     "0",
	preprocess.FieldMedicationHistory:       "No",
	preprocess.FieldNutritionDiet:           "Balanced Diet",
	preprocess.FieldSleepQuality:            "Poor",
	preprocess.FieldChronicHealthConditions: "None",
}

type formField struct {
	ID      string
	Name    string
	Label   string
	Value   string
	Options []string
	// Range, when set, renders a bounded number input.
	Range *inputRange
}

type inputRange struct {
	Min, Max, Step string
}

// Numeric fields that are not free-form on the form.
var (
	formChoices = map[string][]string{
		preprocess.FieldDiabetic: {"0", "1"},
	}
	formRanges = map[string]*inputRange{
		preprocess.FieldAlcoholLevel: {Min: "0", Max: "1", Step: "0.01"},
	}
)

type formPage struct {
	Fields []formField
	Result *models.AssessmentResult
}

func newFormPage(vocab *preprocess.Vocabularies, values url.Values, result *models.AssessmentResult) formPage {
	columns := preprocess.Columns()
	page := formPage{Fields: make([]formField, 0, len(columns)), Result: result}
	for i, col := range columns {
		field := formField{
			ID:    "f" + strconv.Itoa(i),
			Name:  col.Name,
			Label: strings.ReplaceAll(col.Name, "_", " "),
			Value: formDefaults[col.Name],
		}
		if values != nil {
			if _, ok := values[col.Name]; ok {
				field.Value = values.Get(col.Name)
			}
		}
		field.Options = formChoices[col.Name]
		field.Range = formRanges[col.Name]
		if col.Kind == preprocess.KindCategorical {
			if v, ok := vocab.Lookup(col.Name); ok {
				field.Options = v.Values()
			}
		}
		page.Fields = append(page.Fields, field)
	}
	return page
}

func renderForm(w io.Writer, page formPage) error {
	return formTemplate.Execute(w, page)
}

// recordFromForm keeps every submitted schema field as text; numeric fields
// are parsed by the preprocessor and blank inputs count as missing.
func recordFromForm(values url.Values) preprocess.Record {
	rec := make(preprocess.Record)
	for _, col := range preprocess.Columns() {
		raw, ok := values[col.Name]
		if !ok || len(raw) == 0 {
			continue
		}
		v := raw[0]
		if strings.TrimSpace(v) == "" {
			rec[col.Name] = preprocess.Missing()
			continue
		}
		rec[col.Name] = preprocess.String(v)
	}
	return rec
}
