package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected means the collaborator refused the write, e.g. the row
	// belongs to another user.
	ErrRejected = errors.New("rejected by policy")

	// ErrNotFound means the addressed row does not exist.
	ErrNotFound = errors.New("row not found")

	// ErrUnavailable means the collaborator could not be reached or failed
	// for reasons unrelated to the request itself.
	ErrUnavailable = errors.New("collaborator unavailable")
)

// Unavailable wraps a transport or database failure as ErrUnavailable.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRejected) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// IsRejected reports whether err is a policy rejection.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}
