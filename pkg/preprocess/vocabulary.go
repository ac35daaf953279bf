package preprocess

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Vocabulary is the ordered set of legal values for one categorical field.
// A value's code is its position in the list.
type Vocabulary struct {
	field  string
	values []string
	index  map[string]int
}

func NewVocabulary(field string, values []string) (*Vocabulary, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("vocabulary %q is empty", field)
	}
	v := &Vocabulary{
		field:  field,
		values: append([]string(nil), values...),
		index:  make(map[string]int, len(values)),
	}
	for i, value := range values {
		if _, dup := v.index[value]; dup {
			return nil, fmt.Errorf("vocabulary %q lists %q twice", field, value)
		}
		v.index[value] = i
	}
	return v, nil
}

func (v *Vocabulary) Field() string { return v.field }
func (v *Vocabulary) Len() int      { return len(v.values) }

// Values returns the vocabulary in code order.
func (v *Vocabulary) Values() []string {
	return append([]string(nil), v.values...)
}

// Encode returns the code of value. Matching is exact and case-sensitive.
func (v *Vocabulary) Encode(value string) (int, bool) {
	code, ok := v.index[value]
	return code, ok
}

// Decode returns the value with the given code.
func (v *Vocabulary) Decode(code int) (string, bool) {
	if code < 0 || code >= len(v.values) {
		return "", false
	}
	return v.values[code], true
}

// Vocabularies is the immutable table of every categorical field's vocabulary.
type Vocabularies struct {
	byField map[string]*Vocabulary
}

// VocabularyFile is the YAML layout accepted by LoadVocabularies.
type VocabularyFile struct {
	Vocabularies map[string][]string `yaml:"vocabularies" json:"vocabularies"`
}

// NewVocabularies builds the table and checks that it covers exactly the
// categorical fields of the schema.
func NewVocabularies(table map[string][]string) (*Vocabularies, error) {
	out := &Vocabularies{byField: make(map[string]*Vocabulary, len(table))}
	for name, values := range table {
		field := NormalizeFieldName(name)
		schemaField, ok := Lookup(field)
		if !ok || schemaField.Kind != KindCategorical {
			return nil, fmt.Errorf("vocabulary for unknown categorical field %q", name)
		}
		vocab, err := NewVocabulary(field, values)
		if err != nil {
			return nil, err
		}
		out.byField[field] = vocab
	}
	for _, field := range CategoricalFields() {
		if _, ok := out.byField[field]; !ok {
			return nil, fmt.Errorf("no vocabulary for categorical field %q", field)
		}
	}
	return out, nil
}

// LoadVocabularies reads the table from a YAML file. An empty path yields the
// built-in table.
func LoadVocabularies(path string) (*Vocabularies, error) {
	if path == "" {
		return DefaultVocabularies(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read vocabularies: %w", err)
	}
	var file VocabularyFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parse vocabularies: %w", err)
	}
	return NewVocabularies(file.Vocabularies)
}

// Lookup returns the vocabulary for a categorical field.
func (v *Vocabularies) Lookup(field string) (*Vocabulary, bool) {
	vocab, ok := v.byField[field]
	return vocab, ok
}

// Table returns a copy of the table, keyed by field, values in code order.
func (v *Vocabularies) Table() map[string][]string {
	out := make(map[string][]string, len(v.byField))
	for field, vocab := range v.byField {
		out[field] = vocab.Values()
	}
	return out
}

// DefaultVocabularies is the table the bundled model was trained with. Each
// list is in sorted order because that is how the training encoder assigned
// codes.
func DefaultVocabularies() *Vocabularies {
	vocab, err := NewVocabularies(defaultTable)
	if err != nil {
		panic(err)
	}
	return vocab
}

var defaultTable = map[string][]string{
	FieldPrescription:            {"Donepezil", "Galantamine", "Memantine", "None", "Rivastigmine"},
	FieldEducationLevel:          {"Diploma/Degree", "No School", "Primary School", "Secondary School"},
	FieldDominantHand:            {"Left", "Right"},
	FieldGender:                  {"Female", "Male"},
	FieldFamilyHistory:           {"No", "Yes"},
	FieldSmokingStatus:           {"Current Smoker", "Former Smoker", "Never Smoked"},
	FieldAPOE4:                   {"Negative", "Positive"},
	FieldPhysicalActivity:        {"Mild Activity", "Moderate Activity", "Sedentary"},
	FieldDepressionStatus:        {"No", "Yes"},
	FieldNutritionDiet:           {"Balanced Diet", "Low-Carb Diet", "Mediterranean Diet"},
	FieldSleepQuality:            {"Good", "Poor"},
	FieldChronicHealthConditions: {"Diabetes", "Heart Disease", "Hypertension", "None"},
	FieldMedicationHistory:       {"No", "Yes"},
}
