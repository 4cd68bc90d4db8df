package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy for the ERG backend
var (
	// A required environment value is absent
	ErrConfigurationMissing = errors.New("configuration missing")

	// Missing or invalid session token
	ErrUnauthenticated = errors.New("unauthenticated")

	// The identity provider or webhook sink answered with a non-success status
	ErrUpstreamRejected = errors.New("upstream rejected")

	// Request input could not be used as sent
	ErrMalformedInput    = errors.New("malformed input")
	ErrPayloadTooLarge   = errors.New("payload too large")
	ErrUnknownSubmission = errors.New("unknown submission type")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
