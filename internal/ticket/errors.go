package ticket

import (
	"errors"
	"fmt"
)

// Page-local failure kinds. None of them is retried: the heuristics are
// deterministic, so the only recovery is reporting the reason to the user.
var (
	ErrLabelNotFound   = errors.New("label not found")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNoTimeFound     = errors.New("no time has been found")
	ErrTimestampFormat = errors.New("invalid timestamp format")
	ErrEmptyField      = errors.New("empty field")
)

// LabelError reports a label missing from a labeled-mode token stream.
type LabelError struct {
	Label string
}

func (e *LabelError) Error() string {
	return fmt.Sprintf("%q not found", e.Label)
}

func (e *LabelError) Unwrap() error { return ErrLabelNotFound }

// IndexError reports a positional lookup outside the token stream.
// Index is -1 when the heuristic locating the field found nothing.
type IndexError struct {
	Field string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: row not found in %d tokens", e.Field, e.Len)
	}
	return fmt.Sprintf("%s: index %d out of range [0:%d]", e.Field, e.Index, e.Len)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }

// TimestampError reports a value that does not match the ticket date-time format.
type TimestampError struct {
	Input string
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("time data %q does not match format dd.mm.yyyy HH:MM", e.Input)
}

func (e *TimestampError) Unwrap() error { return ErrTimestampFormat }

// FieldError reports a ticket field that ended up empty after extraction.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s is empty", e.Field)
}

func (e *FieldError) Unwrap() error { return ErrEmptyField }

// ErrorKind maps an extraction error to a stable identifier used in logs,
// metrics and stored outcomes.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLabelNotFound):
		return "label_not_found"
	case errors.Is(err, ErrIndexOutOfRange):
		return "index_out_of_range"
	case errors.Is(err, ErrNoTimeFound):
		return "no_time_found"
	case errors.Is(err, ErrTimestampFormat):
		return "timestamp_format"
	case errors.Is(err, ErrEmptyField):
		return "empty_field"
	default:
		return "other"
	}
}
