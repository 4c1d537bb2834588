package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMeetingNotFound is reported when a looked-up meeting is gone.
	// The control plane answers such lookups with an empty success body.
	ErrMeetingNotFound  = errors.New("meeting not found")
	ErrNetwork          = errors.New("network error")
	ErrNoDevice         = errors.New("no input device available")
	ErrAlreadyInMeeting = errors.New("already in a meeting")
	ErrNotInMeeting     = errors.New("not in a meeting")
)

// ControlPlaneError is a non-2xx or malformed reply of the control plane.
type ControlPlaneError struct {
	Status  int
	Message string
}

func (e *ControlPlaneError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("control plane: status %d", e.Status)
	}
	return fmt.Sprintf("control plane: status %d: %s", e.Status, e.Message)
}

// IsValidation reports whether err comes from display-name validation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrUsernameEmpty) ||
		errors.Is(err, ErrUsernameInvalid) ||
		errors.Is(err, ErrUsernameTooLong)
}
