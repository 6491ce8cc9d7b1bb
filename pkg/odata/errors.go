package odata

import (
	"errors"
	"fmt"
)

// EnrichError wraps err with a formatted message, keeping err matchable with errors.Is.
func EnrichError(err error, msg string, args ...any) error {
	s := msg
	if len(args) > 0 {
		s = fmt.Sprintf(msg, args...)
	}
	return fmt.Errorf("%w: %s", err, s)
}

var ErrAlreadyExistsError = errors.New("already exists")

func ErrAlreadyExists(msg string, args ...any) error {
	return EnrichError(ErrAlreadyExistsError, msg, args...)
}

var ErrNotFoundError = errors.New("not found")

func ErrNotFound(msg string, args ...any) error {
	return EnrichError(ErrNotFoundError, msg, args...)
}

var ErrInvalidError = errors.New("not valid")

func ErrInvalid(msg string, args ...any) error {
	return EnrichError(ErrInvalidError, msg, args...)
}

var ErrMissedError = errors.New("missed")

func ErrMissed(msg string, args ...any) error {
	return EnrichError(ErrMissedError, msg, args...)
}

var ErrIncompatibleError = errors.New("incompatible")

func ErrIncompatible(msg string, args ...any) error {
	return EnrichError(ErrIncompatibleError, msg, args...)
}

var ErrAmbiguousOverloadError = errors.New("ambiguous overload")

func ErrAmbiguousOverload(msg string, args ...any) error {
	return EnrichError(ErrAmbiguousOverloadError, msg, args...)
}

var ErrUnsupportedError = errors.ErrUnsupported

func ErrUnsupported(msg string, args ...any) error {
	return EnrichError(ErrUnsupportedError, msg, args...)
}

// ErrBuilderSealed is returned by every builder call made after Build.
var ErrBuilderSealed = errors.New("model builder is sealed")
