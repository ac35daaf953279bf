package preprocess

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds reported to logs and metrics.
const (
	KindEncoding         = "encoding"
	KindInsufficientData = "insufficient_data"
	KindScaling          = "scaling"
	KindValidation       = "validation"
)

var (
	ErrZeroVariance = errors.New("zero variance across numeric fields")
	ErrNonFinite    = errors.New("non-finite value")
	ErrNoStatistics = errors.New("no training statistics for field")
)

// EncodingError reports a categorical value outside its field's vocabulary.
type EncodingError struct {
	Field string
	Value string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("error encoding column '%s': value '%s' is not a known category", e.Field, e.Value)
}

func (e *EncodingError) Kind() string { return KindEncoding }

// InsufficientDataError is returned when no numeric field could be parsed,
// leaving nothing to impute from.
type InsufficientDataError struct {
	Fields []string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("cannot impute missing values: none of the numeric fields (%s) holds a number", strings.Join(e.Fields, ", "))
}

func (e *InsufficientDataError) Kind() string { return KindInsufficientData }

// ScalingError wraps an arithmetic failure during standardization.
type ScalingError struct {
	Field string
	Err   error
}

func (e *ScalingError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("error during scaling of '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("error during scaling: %v", e.Err)
}

func (e *ScalingError) Unwrap() error { return e.Err }
func (e *ScalingError) Kind() string  { return KindScaling }

// ValidationError lists the fields that did not end up numeric.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid columns remaining: %s", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Kind() string { return KindValidation }

type kinded interface {
	error
	Kind() string
}

// IsPreprocessingError reports whether err came from the preprocessor, i.e.
// it is something the user can fix by correcting the input.
func IsPreprocessingError(err error) bool {
	var k kinded
	return errors.As(err, &k)
}

// ErrorKind returns the kind of a preprocessing error, or "" for anything else.
func ErrorKind(err error) string {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}
