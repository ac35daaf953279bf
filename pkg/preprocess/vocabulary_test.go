package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaShape(t *testing.T) {
	assert.Len(t, Columns(), FeatureCount)
	assert.Len(t, NumericFields(), 10)
	assert.Len(t, CategoricalFields(), 13)
	assert.Equal(t, FieldDiabetic, ColumnNames()[0])
	assert.Equal(t, FieldChronicHealthConditions, ColumnNames()[FeatureCount-1])
}

func TestVocabularyRoundTrip(t *testing.T) {
	vocab := DefaultVocabularies()
	for _, field := range CategoricalFields() {
		v, ok := vocab.Lookup(field)
		require.True(t, ok, field)
		for _, value := range v.Values() {
			code, ok := v.Encode(value)
			require.True(t, ok)
			back, ok := v.Decode(code)
			require.True(t, ok)
			assert.Equal(t, value, back)
		}
		_, ok = v.Decode(v.Len())
		assert.False(t, ok)
		_, ok = v.Decode(-1)
		assert.False(t, ok)
	}
}

func TestDefaultVocabulariesAreSorted(t *testing.T) {
	for field, values := range DefaultVocabularies().Table() {
		for i := 1; i < len(values); i++ {
			assert.Less(t, values[i-1], values[i], field)
		}
	}
}

func TestNewVocabularyRejectsDuplicates(t *testing.T) {
	_, err := NewVocabulary(FieldGender, []string{"Male", "Male"})
	require.Error(t, err)
	_, err = NewVocabulary(FieldGender, nil)
	require.Error(t, err)
}

func TestNewVocabulariesRequiresEveryCategoricalField(t *testing.T) {
	table := DefaultVocabularies().Table()
	delete(table, FieldGender)
	_, err := NewVocabularies(table)
	require.Error(t, err)

	table = DefaultVocabularies().Table()
	table[FieldAge] = []string{"old"}
	_, err = NewVocabularies(table)
	require.Error(t, err)
}

func TestLoadVocabulariesMatchesBundledFile(t *testing.T) {
	loaded, err := LoadVocabularies("../../configs/vocabularies.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultVocabularies().Table(), loaded.Table())

	def, err := LoadVocabularies("")
	require.NoError(t, err)
	assert.Equal(t, DefaultVocabularies().Table(), def.Table())
}
