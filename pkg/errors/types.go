package errors

import (
	"fmt"
)

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// InvalidFieldError represents a field whose value isn't allowed.
type InvalidFieldError struct {
	Field  string
	Value  string
	Reason string
}

func (err InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %s", err.Value, err.Field, err.Reason)
}

// PathNotFound represents a required folder or archive that doesn't exist.
// It's fatal for the run, and is returned before anything is modified.
type PathNotFound struct {
	Path string

	// What describes the role of the path, e.g. "setups root".
	What string
}

func (err PathNotFound) Error() string {
	if err.What == "" {
		return fmt.Sprintf("%q does not exist", err.Path)
	}
	return fmt.Sprintf("%s %q does not exist", err.What, err.Path)
}

// ReadFailure represents a single file that couldn't be read. It's never
// fatal: the file is skipped and counted.
type ReadFailure struct {
	Path string
	Err  error
}

func (err ReadFailure) Error() string {
	return fmt.Sprintf("read %q: %s", err.Path, err.Err)
}

func (err ReadFailure) Unwrap() error {
	return err.Err
}

// WriteFailure represents a destination that couldn't be written. It aborts
// the merge of the affected car, but not its siblings.
type WriteFailure struct {
	Path string
	Err  error
}

func (err WriteFailure) Error() string {
	return fmt.Sprintf("write %q: %s", err.Path, err.Err)
}

func (err WriteFailure) Unwrap() error {
	return err.Err
}

// UnknownCarDirectory represents a car folder that isn't in the car table and
// hasn't been resolved yet.
type UnknownCarDirectory struct {
	Name string
}

func (err UnknownCarDirectory) Error() string {
	return fmt.Sprintf("unknown car folder %q", err.Name)
}

// RosterFetchFailure represents a failure to fetch the remote driver roster.
// The driver folders are left unchanged for the run.
type RosterFetchFailure struct {
	Err error
}

func (err RosterFetchFailure) Error() string {
	return fmt.Sprintf("fetch driver roster: %s", err.Err)
}

func (err RosterFetchFailure) Unwrap() error {
	return err.Err
}
