package errors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfig     Kind = "config"
	KindTransport  Kind = "transport"
	KindAPI        Kind = "api"
	KindSchema     Kind = "schema"
	KindValidation Kind = "validation"
	KindStorage    Kind = "storage"
	KindBootstrap  Kind = "bootstrap"
	KindUnknown    Kind = "unknown"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	// Status is the HTTP status code for KindAPI errors, zero otherwise.
	Status int
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind Kind, op, message string, err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// API builds a KindAPI error for a non-2xx response.
func API(op string, status int, message string) *Error {
	return &Error{
		Kind:    KindAPI,
		Op:      op,
		Message: message,
		Status:  status,
	}
}

// IsKind checks whether any error in the chain matches the provided kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	for err != nil {
		if errors.As(err, &target) {
			return target.Kind == kind
		}
		err = errors.Unwrap(err)
	}
	return false
}

// StatusOf returns the HTTP status carried by an API error, or 0.
func StatusOf(err error) int {
	var target *Error
	if errors.As(err, &target) {
		return target.Status
	}
	return 0
}

// MessageOf returns the human readable message of err without the kind/op prefix.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var target *Error
	if errors.As(err, &target) {
		if target.Message != "" {
			return target.Message
		}
		if target.Cause != nil {
			return target.Cause.Error()
		}
	}
	return err.Error()
}
