package reconcile

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("data tidak ditemukan")
	// ErrTransition rejects a moderation change away from a settled status
	// unless it is forced.
	ErrTransition = errors.New("status sudah ditetapkan; gunakan force untuk mengubah")
	ErrNoRemote   = errors.New("record store tidak dikonfigurasi")
)

// ValidationError is bad input. Nothing was written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// RemoteError is a failed record store call.
type RemoteError struct {
	Op  string
	ID  string
	Err error
}

func (e *RemoteError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("record store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("record store %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsRemote reports whether err is a RemoteError.
func IsRemote(err error) bool {
	var r *RemoteError
	return errors.As(err, &r)
}
