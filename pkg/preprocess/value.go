package preprocess

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ValueKind discriminates the Value variant.
type ValueKind uint8

const (
	ValueMissing ValueKind = iota
	ValueString
	ValueNumber
)

// Value is a raw form value: a string, a number, or nothing at all.
type Value struct {
	kind ValueKind
	str  string
	num  float64
}

// String wraps text as typed on the form.
func String(s string) Value { return Value{kind: ValueString, str: s} }

// Number wraps a numeric input.
func Number(f float64) Value { return Value{kind: ValueNumber, num: f} }

// Missing is an empty or null input.
func Missing() Value { return Value{} }

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsMissing reports whether v holds no input.
func (v Value) IsMissing() bool { return v.kind == ValueMissing }

// Text is the value's string form, used for categorical lookup. Numbers use
// the shortest decimal representation, so 0 becomes "0" and 0.5 becomes "0.5".
func (v Value) Text() string {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return ""
	}
}

// Float parses the value as a finite float64. ok is false when the value is
// missing, unparseable or not finite.
func (v Value) Float() (f float64, ok bool) {
	switch v.kind {
	case ValueNumber:
		f = v.num
	case ValueString:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (v Value) String() string {
	switch v.kind {
	case ValueString:
		return strconv.Quote(v.str)
	case ValueNumber:
		return v.Text()
	default:
		return "<missing>"
	}
}

// MarshalJSON writes strings and numbers as JSON scalars and everything else,
// including non-finite numbers, as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.str)
	case ValueNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON string, number or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ValueOf converts a decoded JSON/YAML/form scalar into a Value.
func ValueOf(raw interface{}) (Value, error) {
	switch val := raw.(type) {
	case nil:
		return Missing(), nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return String(val.String()), nil
		}
		return Number(f), nil
	case float64:
		return Number(val), nil
	case float32:
		return Number(float64(val)), nil
	case int:
		return Number(float64(val)), nil
	case int32:
		return Number(float64(val)), nil
	case int64:
		return Number(float64(val)), nil
	case uint64:
		return Number(float64(val)), nil
	default:
		return Missing(), fmt.Errorf("unsupported value type %T", raw)
	}
}

// Record maps form field names to raw values.
type Record map[string]Value

// NewRecord builds a Record from loosely typed input such as a decoded JSON
// object. Field names are trimmed and NFC-normalized so that decomposed
// spellings of "APOE_ε4" still match the schema.
func NewRecord(raw map[string]interface{}) (Record, error) {
	rec := make(Record, len(raw))
	for key, value := range raw {
		v, err := ValueOf(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		rec[NormalizeFieldName(key)] = v
	}
	return rec, nil
}

// NormalizeFieldName canonicalizes a field name for schema lookup.
func NormalizeFieldName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// Raw returns the record as plain interface values, for JSON columns and events.
func (r Record) Raw() map[string]interface{} {
	out := make(map[string]interface{}, len(r))
	for k, v := range r {
		switch v.kind {
		case ValueString:
			out[k] = v.str
		case ValueNumber:
			if v2, ok := v.Float(); ok {
				out[k] = v2
			} else {
				out[k] = nil
			}
		default:
			out[k] = nil
		}
	}
	return out
}

// UnmarshalJSON decodes a JSON object and normalizes its field names.
func (r *Record) UnmarshalJSON(data []byte) error {
	var values map[string]Value
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	rec := make(Record, len(values))
	for k, v := range values {
		rec[NormalizeFieldName(k)] = v
	}
	*r = rec
	return nil
}
