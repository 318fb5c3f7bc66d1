package progress

import "fmt"

// ShapeError reports calculator input that cannot describe real learner
// state, such as negative counts.
type ShapeError struct {
	Field  string
	Value  int
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("progress: invalid %s %d: %s", e.Field, e.Value, e.Reason)
}
