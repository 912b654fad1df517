// Package apperr defines the error taxonomy shared by the warehouse services.
//
// Every typed error matches a sentinel through errors.Is, so callers can branch
// on the kind without caring about the concrete fields, and use errors.As when
// they do.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotFound          = errors.New("not found")
	ErrTransport         = errors.New("transport failure")
	ErrUnauthenticated   = errors.New("not authenticated")
	ErrPartialFailure    = errors.New("partial failure")
)

// ValidationError is raised before any network call when a local precondition fails.
// Index is the offending position in a list payload, or -1 when the field is top-level.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("validation: items[%d].%s: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a top-level ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Index: -1, Field: field, Reason: reason}
}

// InvalidItem builds a ValidationError pointing at items[index].
func InvalidItem(index int, field, reason string) error {
	return &ValidationError{Index: index, Field: field, Reason: reason}
}

// InvalidTransitionError reports a workflow action invoked from a state that does not permit it.
type InvalidTransitionError struct {
	Entity string
	ID     string
	Action string
	From   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s %s cannot %s from %s", e.Entity, e.ID, e.Action, e.From)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// TransportError is a network or HTTP failure talking to the CRM.
// StatusCode is 0 when no response was received.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Method, e.Path)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Unauthenticated is true for 401/403 answers and for calls that never left
// because no credentials were available.
func (e *TransportError) Unauthenticated() bool {
	return e.StatusCode == http.StatusUnauthorized ||
		e.StatusCode == http.StatusForbidden ||
		errors.Is(e.Err, ErrUnauthenticated)
}

func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return true
	case ErrUnauthenticated:
		return e.Unauthenticated()
	}
	return false
}

// PartialFailure records the branches of a fan-out that failed while the others succeeded.
type PartialFailure struct {
	Total    int
	Failures map[string]error
}

func (e *PartialFailure) Error() string {
	keys := make([]string, 0, len(e.Failures))
	for k := range e.Failures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, e.Failures[k]))
	}
	return fmt.Sprintf("partial failure: %d of %d branches failed: %s", len(keys), e.Total, strings.Join(parts, "; "))
}

func (e *PartialFailure) Is(target error) bool { return target == ErrPartialFailure }

func IsValidation(err error) bool        { return errors.Is(err, ErrValidation) }
func IsInvalidTransition(err error) bool { return errors.Is(err, ErrInvalidTransition) }
func IsNotFound(err error) bool          { return errors.Is(err, ErrNotFound) }
func IsUnauthenticated(err error) bool   { return errors.Is(err, ErrUnauthenticated) }

// IsTransport reports whether err came from the CRM transport.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
