package pipeline

import (
	"errors"
	"fmt"
)

// OutputExistsError signals that a stage's target output file already
// exists. It marks a completed prior run, not a failure: callers log a
// warning and exit successfully without recomputation.
type OutputExistsError struct {
	Path string
}

func (e *OutputExistsError) Error() string {
	return fmt.Sprintf("filter output already exists: %s", e.Path)
}

// IsOutputExists reports whether err is an idempotent-refusal signal.
func IsOutputExists(err error) bool {
	var oe *OutputExistsError
	return errors.As(err, &oe)
}
