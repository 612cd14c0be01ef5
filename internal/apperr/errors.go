package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the ingestion contract. Handlers map
// kinds to HTTP statuses; trackers use them to decide whether a
// report is retryable.
type Kind string

const (
	KindMissingIdentifier  Kind = "missing_identifier"
	KindMissingCoordinates Kind = "missing_coordinates"
	KindValidation         Kind = "validation_error"
	KindNotFound           Kind = "device_not_found"
	KindStorage            Kind = "storage_error"
	KindDelivery           Kind = "delivery_error"
)

// Error is a classified error with an optional offending field.
type Error struct {
	Kind  Kind
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %q)", e.Kind, e.Msg, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation builds a validation_error for a specific field.
func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Msg: msg}
}

// MissingIdentifier rejects a report that carries no usable device
// identifier under any accepted alias.
func MissingIdentifier() *Error {
	return &Error{Kind: KindMissingIdentifier, Msg: "missing device identifier"}
}

// MissingCoordinates rejects a report without a parseable
// latitude/longitude pair.
func MissingCoordinates() *Error {
	return &Error{Kind: KindMissingCoordinates, Msg: "missing coordinates"}
}

// NotFound marks an unresolvable device with nothing to auto-provision from.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// Storage wraps a durability-layer failure. Retryable by the caller.
func Storage(err error) *Error {
	return &Error{Kind: KindStorage, Msg: "storage failure", Err: err}
}

// KindOf extracts the Kind from err, or KindStorage if err carries no
// classification (unclassified failures are treated as transient).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
