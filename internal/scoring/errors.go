package scoring

import (
	"errors"
	"fmt"
)

// ErrorKind classifies caller-facing scoring failures.
type ErrorKind string

const (
	KindNoFactorsSelected   ErrorKind = "no_factors_selected"
	KindZeroWeight          ErrorKind = "zero_weight"
	KindInvalidWeightConfig ErrorKind = "invalid_weight_config"
	KindUnknownFactor       ErrorKind = "unknown_factor"
	KindInvalidWeight       ErrorKind = "invalid_weight"
	KindFactorNotApplicable ErrorKind = "factor_not_applicable"
	KindInvalidLocation     ErrorKind = "invalid_location"
	KindGeocodingFailed     ErrorKind = "geocoding_failed"
)

// Error is a configuration or location error with a specific kind. These are
// caller-input problems and are never retried.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrZeroWeight) works
// regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is comparisons.
var (
	ErrNoFactorsSelected   = &Error{Kind: KindNoFactorsSelected}
	ErrZeroWeight          = &Error{Kind: KindZeroWeight}
	ErrInvalidWeightConfig = &Error{Kind: KindInvalidWeightConfig}
	ErrUnknownFactor       = &Error{Kind: KindUnknownFactor}
	ErrInvalidWeight       = &Error{Kind: KindInvalidWeight}
	ErrFactorNotApplicable = &Error{Kind: KindFactorNotApplicable}
	ErrInvalidLocation     = &Error{Kind: KindInvalidLocation}
	ErrGeocodingFailed     = &Error{Kind: KindGeocodingFailed}

	// ErrProviderMissing is fatal: a catalog factor has no provider wired.
	ErrProviderMissing = errors.New("no provider registered for factor")
)

// KindOf extracts the ErrorKind from err, or "" if err is not a scoring error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsConfigError reports whether err is a caller configuration problem.
func IsConfigError(err error) bool {
	switch KindOf(err) {
	case KindNoFactorsSelected, KindZeroWeight, KindInvalidWeightConfig,
		KindUnknownFactor, KindInvalidWeight, KindFactorNotApplicable:
		return true
	}
	return false
}

// IsLocationError reports whether err concerns the requested location.
func IsLocationError(err error) bool {
	switch KindOf(err) {
	case KindInvalidLocation, KindGeocodingFailed:
		return true
	}
	return false
}
