package repositories

import (
	"errors"
	"fmt"
)

// CounterErrorCode enumerates failure reasons for counter operations.
type CounterErrorCode string

const (
	// CounterErrorInvalidInput indicates the caller supplied an empty key.
	CounterErrorInvalidInput CounterErrorCode = "counter_invalid_input"
	// CounterErrorCorrupt indicates the stored value could not be parsed as an integer.
	CounterErrorCorrupt CounterErrorCode = "counter_corrupt"
)

// CounterError reports a counter that could not be advanced. Corrupt counters need
// an operator to repair the stored value; retrying does not help.
type CounterError struct {
	Code CounterErrorCode
	Key  string
	Err  error
}

func (e *CounterError) Error() string {
	if e == nil {
		return ""
	}
	var reason string
	switch e.Code {
	case CounterErrorInvalidInput:
		reason = "key is required"
	case CounterErrorCorrupt:
		reason = "stored value is not an integer"
	default:
		reason = string(e.Code)
	}
	msg := fmt.Sprintf("counter %q: %s", e.Key, reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CounterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewCounterError constructs a typed counter error for key.
func NewCounterError(code CounterErrorCode, key string, err error) *CounterError {
	return &CounterError{Code: code, Key: key, Err: err}
}

// IsCounterCorrupt reports whether err comes from a counter holding an unreadable value.
func IsCounterCorrupt(err error) bool {
	var counterErr *CounterError
	return errors.As(err, &counterErr) && counterErr.Code == CounterErrorCorrupt
}
