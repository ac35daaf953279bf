// Package preprocess turns a raw assessment form record into the feature
// vector the dementia risk classifier was trained on.
//
// The pipeline runs in a fixed order: categorical encoding, numeric
// coercion, imputation of missing numbers, standardization, a final
// validation pass, and layout in column order.
package preprocess

import (
	"errors"
)

// Options configures a Preprocessor.
type Options struct {
	Mode       StandardizationMode
	Statistics *Statistics
}

// Preprocessor is safe for concurrent use; it holds only immutable tables.
type Preprocessor struct {
	vocab *Vocabularies
	mode  StandardizationMode
	stats *Statistics
}

func New(vocab *Vocabularies, opts Options) (*Preprocessor, error) {
	if vocab == nil {
		return nil, errors.New("preprocess: vocabularies required")
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeRecord
	}
	switch mode {
	case ModeRecord:
	case ModeTraining:
		if opts.Statistics == nil {
			return nil, errors.New("preprocess: training mode requires statistics")
		}
		if err := opts.Statistics.Validate(); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("preprocess: unknown standardization mode " + string(mode))
	}
	return &Preprocessor{vocab: vocab, mode: mode, stats: opts.Statistics}, nil
}

func (p *Preprocessor) Mode() StandardizationMode { return p.mode }

func (p *Preprocessor) Vocabularies() *Vocabularies { return p.vocab }

// Preprocess converts record into a feature vector of length FeatureCount.
// Unknown fields in record are ignored.
func (p *Preprocessor) Preprocess(record Record) (Vector, error) {
	trace, err := p.Explain(record)
	if err != nil {
		return nil, err
	}
	return trace.Vector, nil
}

// FieldTrace records what happened to one field on its way into the vector.
type FieldTrace struct {
	Field   string  `json:"field"`
	Kind    string  `json:"kind"`
	Raw     Value   `json:"raw"`
	Present bool    `json:"present"`
	Code    *int    `json:"code,omitempty"`
	Parsed  bool    `json:"parsed"`
	Imputed bool    `json:"imputed"`
	Value   float64 `json:"value"`
	Valid   bool    `json:"valid"`
}

// Trace is the full account of one preprocessing run.
type Trace struct {
	Fields []FieldTrace        `json:"fields"`
	Mode   StandardizationMode `json:"mode"`
	// ImputedWith is the record mean used for missing numeric fields in ModeRecord.
	ImputedWith float64 `json:"imputed_with"`
	// Mean and Std are the record-level scaling parameters in ModeRecord.
	Mean   float64 `json:"mean,omitempty"`
	Std    float64 `json:"std,omitempty"`
	Vector Vector  `json:"vector"`
}

// Explain runs the pipeline and returns the per-field trace along with the vector.
func (p *Preprocessor) Explain(record Record) (*Trace, error) {
	trace := &Trace{Mode: p.mode, Fields: make([]FieldTrace, FeatureCount)}
	for i, col := range columns {
		raw, present := record[col.Name]
		if present && raw.IsMissing() {
			present = false
		}
		trace.Fields[i] = FieldTrace{Field: col.Name, Kind: col.Kind.String(), Raw: raw, Present: present}
	}

	if err := p.encode(trace); err != nil {
		return nil, err
	}
	coerce(trace)
	if err := p.impute(trace); err != nil {
		return nil, err
	}
	if err := p.standardize(trace); err != nil {
		return nil, err
	}
	if err := validate(trace); err != nil {
		return nil, err
	}

	trace.Vector = make(Vector, FeatureCount)
	for i := range trace.Fields {
		trace.Vector[i] = trace.Fields[i].Value
	}
	return trace, nil
}

func (p *Preprocessor) encode(trace *Trace) error {
	for i := range trace.Fields {
		ft := &trace.Fields[i]
		if columns[i].Kind != KindCategorical || !ft.Present {
			continue
		}
		vocab, ok := p.vocab.Lookup(ft.Field)
		if !ok {
			return &ValidationError{Fields: []string{ft.Field}}
		}
		text := ft.Raw.Text()
		code, ok := vocab.Encode(text)
		if !ok {
			return &EncodingError{Field: ft.Field, Value: text}
		}
		ft.Code = &code
		ft.Value = float64(code)
		ft.Valid = true
	}
	return nil
}

// coerce parses numeric fields. Unparseable values stay invalid and are
// imputed in the next step.
func coerce(trace *Trace) {
	for i := range trace.Fields {
		ft := &trace.Fields[i]
		if columns[i].Kind != KindNumeric || !ft.Present {
			continue
		}
		if f, ok := ft.Raw.Float(); ok {
			ft.Value = f
			ft.Parsed = true
			ft.Valid = true
		}
	}
}

// impute fills every missing numeric field. In ModeRecord the fill value is
// the mean of the numeric fields of the same record that did parse; in
// ModeTraining it is the field's training mean.
func (p *Preprocessor) impute(trace *Trace) error {
	var sum float64
	var n int
	for i := range trace.Fields {
		if columns[i].Kind == KindNumeric && trace.Fields[i].Parsed {
			sum += trace.Fields[i].Value
			n++
		}
	}
	if n == 0 {
		return &InsufficientDataError{Fields: NumericFields()}
	}
	mean := sum / float64(n)
	if p.mode != ModeTraining {
		trace.ImputedWith = mean
	}
	for i := range trace.Fields {
		ft := &trace.Fields[i]
		if columns[i].Kind != KindNumeric || ft.Parsed {
			continue
		}
		ft.Value = mean
		if p.mode == ModeTraining {
			fs, ok := p.stats.Fields[ft.Field]
			if !ok {
				return &ScalingError{Field: ft.Field, Err: ErrNoStatistics}
			}
			ft.Value = fs.Mean
		}
		ft.Imputed = true
		ft.Valid = true
	}
	return nil
}

func (p *Preprocessor) standardize(trace *Trace) error {
	if p.mode == ModeTraining {
		for i := range trace.Fields {
			ft := &trace.Fields[i]
			if columns[i].Kind != KindNumeric {
				continue
			}
			z, err := p.stats.standardize(ft.Field, ft.Value)
			if err != nil {
				return err
			}
			ft.Value = z
		}
		return nil
	}

	idx := make([]int, 0, FeatureCount)
	values := make([]float64, 0, FeatureCount)
	for i := range trace.Fields {
		if columns[i].Kind == KindNumeric {
			idx = append(idx, i)
			values = append(values, trace.Fields[i].Value)
		}
	}
	mean, std, err := standardizeRecord(values)
	if err != nil {
		return err
	}
	trace.Mean, trace.Std = mean, std
	for j, i := range idx {
		trace.Fields[i].Value = values[j]
	}
	return nil
}

func validate(trace *Trace) error {
	var invalid []string
	for i := range trace.Fields {
		ft := &trace.Fields[i]
		if !ft.Valid || !isFinite(ft.Value) {
			ft.Valid = false
			invalid = append(invalid, ft.Field)
		}
	}
	if len(invalid) > 0 {
		return &ValidationError{Fields: invalid}
	}
	return nil
}
