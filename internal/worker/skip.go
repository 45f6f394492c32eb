package worker

import "errors"

type skipError struct {
	err error
}

func (e *skipError) Error() string { return e.err.Error() }
func (e *skipError) Unwrap() error { return e.err }

// Skip marks err as recoverable for the current message only.
func Skip(err error) error {
	if err == nil {
		return nil
	}
	return &skipError{err: err}
}

func IsSkip(err error) bool {
	var s *skipError
	return errors.As(err, &s)
}
