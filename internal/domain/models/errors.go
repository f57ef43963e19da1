package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrInvalidRange        = errors.New("invalid date range")
	ErrRangeTooLarge       = errors.New("date range too large")
	ErrUnknownBody         = errors.New("unknown body")
	ErrInvalidChart        = errors.New("invalid natal chart")
)

// PositionUnavailableError is a recoverable per-(time, body) failure.
type PositionUnavailableError struct {
	Body string
	At   time.Time
	Err  error
}

func (e *PositionUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("position unavailable: %s at %s: %v", e.Body, e.At.UTC().Format(time.RFC3339), e.Err)
	}
	return fmt.Sprintf("position unavailable: %s at %s", e.Body, e.At.UTC().Format(time.RFC3339))
}

func (e *PositionUnavailableError) Unwrap() error { return e.Err }

func (e *PositionUnavailableError) Is(target error) bool { return target == ErrPositionUnavailable }

// Unavailable builds a PositionUnavailableError.
func Unavailable(body string, at time.Time, cause error) error {
	return &PositionUnavailableError{Body: body, At: at, Err: cause}
}
