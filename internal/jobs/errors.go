package jobs

import "errors"

var (
	ErrInvalidJobType      = errors.New("invalid job type")
	ErrInvalidJobPayload   = errors.New("invalid job payload")
	ErrPayloadTypeMismatch = errors.New("payload type mismatch for job type")
)

// permanentError marks a failure that no retry can fix.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the worker dead-letters the job instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p permanentError
	if errors.As(err, &p) {
		return true
	}
	return errors.Is(err, ErrInvalidJobType) || errors.Is(err, ErrInvalidJobPayload) || errors.Is(err, ErrPayloadTypeMismatch)
}
