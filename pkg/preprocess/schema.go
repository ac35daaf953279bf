package preprocess

// Kind tells the preprocessor how a field's raw value is turned into a feature.
type Kind uint8

const (
	KindNumeric Kind = iota
	KindCategorical
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Field names as they appear on the assessment form.
const (
	FieldDiabetic                = "Diabetic"
	FieldAlcoholLevel            = "AlcoholLevel"
	FieldHeartRate               = "HeartRate"
	FieldBloodOxygenLevel        = "BloodOxygenLevel"
	FieldBodyTemperature         = "BodyTemperature"
	FieldWeight                  = "Weight"
	FieldMRIDelay                = "MRI_Delay"
	FieldPrescription            = "Prescription"
	FieldDosage                  = "Dosage in mg"
	FieldAge                     = "Age"
	FieldEducationLevel          = "Education_Level"
	FieldDominantHand            = "Dominant_Hand"
	FieldGender                  = "Gender"
	FieldFamilyHistory           = "Family_History"
	FieldSmokingStatus           = "Smoking_Status"
	FieldAPOE4                   = "APOE_ε4"
	FieldPhysicalActivity        = "Physical_Activity"
	FieldDepressionStatus        = "Depression_Status"
	FieldCognitiveTestScores     = "Cognitive_Test_Scores"
	FieldMedicationHistory       = "Medication_History"
	FieldNutritionDiet           = "Nutrition_Diet"
	FieldSleepQuality            = "Sleep_Quality"
	FieldChronicHealthConditions = "Chronic_Health_Conditions"
)

// Field is one column of the feature vector.
type Field struct {
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

// FeatureCount is the length of every feature vector handed to the classifier.
const FeatureCount = 23

// columns is the classifier's input layout. Reordering it silently breaks
// every prediction.
var columns = [FeatureCount]Field{
	{FieldDiabetic, KindNumeric},
	{FieldAlcoholLevel, KindNumeric},
	{FieldHeartRate, KindNumeric},
	{FieldBloodOxygenLevel, KindNumeric},
	{FieldBodyTemperature, KindNumeric},
	{FieldWeight, KindNumeric},
	{FieldMRIDelay, KindNumeric},
	{FieldPrescription, KindCategorical},
	{FieldDosage, KindNumeric},
	{FieldAge, KindNumeric},
	{FieldEducationLevel, KindCategorical},
	{FieldDominantHand, KindCategorical},
	{FieldGender, KindCategorical},
	{FieldFamilyHistory, KindCategorical},
	{FieldSmokingStatus, KindCategorical},
	{FieldAPOE4, KindCategorical},
	{FieldPhysicalActivity, KindCategorical},
	{FieldDepressionStatus, KindCategorical},
	{FieldCognitiveTestScores, KindNumeric},
	{FieldMedicationHistory, KindCategorical},
	{FieldNutritionDiet, KindCategorical},
	{FieldSleepQuality, KindCategorical},
	{FieldChronicHealthConditions, KindCategorical},
}

var columnIndex = func() map[string]int {
	idx := make(map[string]int, len(columns))
	for i, f := range columns {
		idx[f.Name] = i
	}
	return idx
}()

// Columns returns the schema in feature vector order.
func Columns() []Field {
	out := make([]Field, len(columns))
	copy(out, columns[:])
	return out
}

// ColumnNames returns the field names in feature vector order.
func ColumnNames() []string {
	return namesOf(func(Field) bool { return true })
}

// NumericFields returns the numeric field names in feature vector order.
func NumericFields() []string {
	return namesOf(func(f Field) bool { return f.Kind == KindNumeric })
}

// CategoricalFields returns the categorical field names in feature vector order.
func CategoricalFields() []string {
	return namesOf(func(f Field) bool { return f.Kind == KindCategorical })
}

// Lookup reports the schema entry for name.
func Lookup(name string) (Field, bool) {
	i, ok := columnIndex[name]
	if !ok {
		return Field{}, false
	}
	return columns[i], true
}

func namesOf(keep func(Field) bool) []string {
	var names []string
	for _, f := range columns {
		if keep(f) {
			names = append(names, f.Name)
		}
	}
	return names
}

// Vector is a feature vector laid out in Columns order.
type Vector []float64

// Map keys the vector by column name. Used for audit logging.
func (v Vector) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(v))
	for i, value := range v {
		if i < len(columns) {
			out[columns[i].Name] = value
		}
	}
	return out
}
