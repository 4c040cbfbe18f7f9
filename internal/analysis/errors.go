package analysis

import (
	"errors"
	"fmt"
)

// ErrorKind tags the stage at which a report cycle failed.
type ErrorKind string

const (
	KindParse         ErrorKind = "parse"
	KindValidation    ErrorKind = "validation"
	KindModel         ErrorKind = "model"
	KindSerialization ErrorKind = "serialization"
)

// Error is returned by Pipeline.Run for every failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// MissingColumnError indicates that a required column is absent from the upload.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("Column '%s' not found in uploaded CSV.", e.Column)
}

// KindOf returns the kind of a pipeline error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage renders err as the short line shown to users: the missing
// column message verbatim, everything else as "Error: <message>".
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var mc *MissingColumnError
	if errors.As(err, &mc) {
		return "❌ " + mc.Error()
	}
	var e *Error
	if errors.As(err, &e) {
		return "❌ Error: " + e.Err.Error()
	}
	return "❌ Error: " + err.Error()
}

func wrap(kind ErrorKind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}
