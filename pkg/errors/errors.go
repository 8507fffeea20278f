package errors

import (
	goerrors "errors"
	"fmt"
)

// New returns an error with the given message.
func New(msg string) error {
	return goerrors.New(msg)
}

// contextError annotates an error with a short description of what was being
// done when it occurred.
type contextError struct {
	err     error
	context string
}

// WithContext wraps `err` so that its message is prefixed with `context`.
// It returns nil if `err` is nil.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return contextError{err: err, context: context}
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err contextError) Unwrap() error {
	return err.err
}

// RootCause returns the innermost error wrapped by WithContext.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(contextError)
		if !ok {
			return err
		}
		err = ctxErr.err
	}
}

// FriendlyError is an error whose message is meant to be shown to the user
// as is, without any of the context that was added while it propagated.
type FriendlyError interface {
	error
	FriendlyMessage() string
}

type friendlyError struct {
	template string
	args     []interface{}
}

// NewFriendlyError creates an error whose message is formatted from
// `template` and `args`.
func NewFriendlyError(template string, args ...interface{}) error {
	return friendlyError{template, args}
}

func (err friendlyError) Error() string {
	return err.FriendlyMessage()
}

func (err friendlyError) FriendlyMessage() string {
	return fmt.Sprintf(err.template, err.args...)
}

// GetFriendlyError returns the first FriendlyError in the chain of `err`.
func GetFriendlyError(err error) (FriendlyError, bool) {
	for err != nil {
		if friendly, ok := err.(FriendlyError); ok {
			return friendly, true
		}

		ctxErr, ok := err.(contextError)
		if !ok {
			return nil, false
		}
		err = ctxErr.err
	}
	return nil, false
}
