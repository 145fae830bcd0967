package score

import "fmt"

// ParseError reports a score that is missing, malformed or has an
// unexpected shape
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse score: %v", e.Err)
	}
	return fmt.Sprintf("parse score %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
