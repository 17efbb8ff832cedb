package tensile

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks a threshold set the stress function cannot use.
	// It is fatal at startup.
	ErrConfiguration = errors.New("tensile: invalid configuration")

	// ErrInvalidArgument is returned for caller errors such as a
	// non-positive curve resolution.
	ErrInvalidArgument = errors.New("tensile: invalid argument")
)

// ConfigurationError describes which threshold broke the ordering invariant.
type ConfigurationError struct {
	Field  string  // threshold that failed the check
	Value  float64 // its value
	Bound  float64 // the preceding threshold it must exceed
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", ErrConfiguration, e.Reason)
	}
	return fmt.Sprintf("%v: %s=%g %s (bound %g)", ErrConfiguration, e.Field, e.Value, e.Reason, e.Bound)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}
