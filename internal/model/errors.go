package model

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingGroup reports a structurally incomplete submission.
	ErrMissingGroup = errors.New("missing group")
	// ErrInvalidSettings reports an out-of-range tuning parameter.
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrInvalidGroupList reports a malformed group selection such as "3-".
	ErrInvalidGroupList = errors.New("invalid group list")
)

// ParticipantVisibleError is a validation failure meant to be shown to
// whoever produced the submission. Group is 0 when no single group is at fault.
type ParticipantVisibleError struct {
	Group   int
	Message string
}

func (e *ParticipantVisibleError) Error() string {
	if e.Group > 0 {
		return fmt.Sprintf("group %03d: %s", e.Group, e.Message)
	}
	return e.Message
}

// NewParticipantVisibleError builds a ParticipantVisibleError for group n.
func NewParticipantVisibleError(n int, format string, args ...interface{}) *ParticipantVisibleError {
	return &ParticipantVisibleError{Group: n, Message: fmt.Sprintf(format, args...)}
}

// IsParticipantVisible reports whether err wraps a ParticipantVisibleError.
func IsParticipantVisible(err error) bool {
	var pv *ParticipantVisibleError
	return errors.As(err, &pv)
}
