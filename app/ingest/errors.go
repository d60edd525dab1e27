package ingest

import (
	"errors"
	"fmt"
)

// Failures during an ingestion run are tagged, not acted on in place: a
// FatalError aborts the whole run, a SkipError drops one title, anything
// else is transient. No component terminates the process; the top-level run
// loop decides exit codes.

type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func Fatalf(format string, args ...any) error {
	return &FatalError{Err: fmt.Errorf(format, args...)}
}

func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

func Skipf(format string, args ...any) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

func IsSkip(err error) bool {
	var skip *SkipError
	return errors.As(err, &skip)
}
