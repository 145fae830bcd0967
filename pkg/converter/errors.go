package converter

import (
	"errors"
	"fmt"
)

// ErrNoEvents is returned when a part has nothing to resample
var ErrNoEvents = errors.New("part has no events")

// ConfigError reports an invalid configuration
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ExhaustedPartError reports a part whose events ran out before the grid
// ended
type ExhaustedPartError struct {
	Part int
	Beat float64
}

func (e *ExhaustedPartError) Error() string {
	return fmt.Sprintf("part %d ran out of events at beat %.3f", e.Part, e.Beat)
}

// PartMismatchError reports parts whose total lengths disagree
type PartMismatchError struct {
	Part      int
	Length    float64
	Reference float64
	Tolerance float64
}

func (e *PartMismatchError) Error() string {
	return fmt.Sprintf("part %d ends at beat %.6f but part 0 ends at beat %.6f (tolerance %g)",
		e.Part, e.Length, e.Reference, e.Tolerance)
}

// OutputError reports a failure creating or writing the output file
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("failed to write output file %s: %v", e.Path, e.Err)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}
