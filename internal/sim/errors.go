package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrNoField indicates a step was requested before any field was set.
	ErrNoField = errors.New("sim: no charge field set")

	// ErrInvalidTimestep indicates a non-positive or non-finite dt.
	ErrInvalidTimestep = errors.New("sim: timestep must be positive and finite")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("sim: parameter out of valid bounds")

	// ErrCodecMismatch indicates the store encodes with limits other than
	// the ones the parameters derive.
	ErrCodecMismatch = errors.New("sim: store codecs do not match parameters")
)

// StepError wraps a pass failure with the timestep it happened in.
type StepError struct {
	Step    int
	Pass    string
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("sim: step %d %s pass: %v", e.Step, e.Pass, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
