package oerror

import "fmt"

// RelayError is an internal failure of the relay itself, as opposed to an error coming from the network.
type RelayError struct {
	Err string
}

// New formats a RelayError.
func New(format string, args ...any) *RelayError {
	return &RelayError{Err: fmt.Sprintf(format, args...)}
}

func (e *RelayError) Error() string {
	return e.Err
}
