package conversation

import (
	"errors"
	"fmt"
)

// ErrEmptyQuestion is returned when the question is blank after trimming.
// No session state is touched.
var ErrEmptyQuestion = errors.New("empty question")

// ErrInference matches any *InferenceError via errors.Is.
var ErrInference = errors.New("inference failed")

// InferenceError reports a failed completion. The evidence and user turns
// for the exchange remain appended to the session.
type InferenceError struct {
	SessionID string
	Err       error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference for session %s: %v", e.SessionID, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

func (e *InferenceError) Is(target error) bool {
	return target == ErrInference
}
