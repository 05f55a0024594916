// Package errors holds the failure taxonomy shared by every stage of a consent sync
// together with the helper used to attach a classification to a concrete cause.
package errors

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrRegistryUnavailable means the consent registry answered with a non-success status.
	// No record can be produced, so the whole run is aborted.
	ErrRegistryUnavailable = errors.New("consent registry unavailable")

	// ErrNotReleased means the study exists in the registry but its registration status is
	// not a released one.
	ErrNotReleased = errors.New("study not released")

	// ErrNotFound means a lookup in the record store matched no record.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguousMatch means a lookup in the record store matched more than one record.
	ErrAmbiguousMatch = errors.New("ambiguous match")

	// ErrUpstreamTimeout means a record store call kept failing with a retryable
	// error until the retry policy gave up.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrUnexpectedStatus means the record store answered with a non-retryable, non-success status.
	ErrUnexpectedStatus = errors.New("unexpected upstream status")
)

// Class groups errors by the way the pipeline reacts to them.
type Class int

const (
	// ClassUnknown errors are re-queued, bounded by the per item attempt cap.
	ClassUnknown Class = iota
	// ClassSkip errors are data integrity problems. The item is dropped and counted.
	ClassSkip
	// ClassTransient errors are re-queued at the same stage.
	ClassTransient
	// ClassFatal errors abort the whole run.
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassSkip:
		return "skip"
	case ClassTransient:
		return "transient"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Classify maps err onto the reaction the pipeline should apply.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassUnknown
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAmbiguousMatch):
		return ClassSkip
	case errors.Is(err, ErrUpstreamTimeout):
		return ClassTransient
	case errors.Is(err, ErrRegistryUnavailable), errors.Is(err, ErrNotReleased):
		return ClassFatal
	default:
		return ClassUnknown
	}
}

// NotFound reports that no record of the given kind matched the query.
func NotFound(kind, query string) error {
	return fmt.Errorf("no %s found for %s: %w", kind, query, ErrNotFound)
}

// Ambiguous reports that count records of the given kind matched the query.
func Ambiguous(kind, query string, count int) error {
	return fmt.Errorf("more than one %s found for %s (%d matches): %w", kind, query, count, ErrAmbiguousMatch)
}

// NotReleased reports the registration status observed for an unreleased study.
func NotReleased(accession, status string) error {
	return fmt.Errorf("study %s not released, registration_status: %s: %w", accession, status, ErrNotReleased)
}

// With returns an error that represents top wrapped on top of the base error.
func With(base, top error) error {
	if base == nil && top == nil {
		return nil
	}
	if top == nil {
		return base
	}
	if base == nil {
		return top
	}
	return union{error: base, top: top}
}

type union struct {
	error
	top error
}

func (u union) Is(target error) bool {
	// Only the top is compared here. errors.Is unwraps into the base afterwards.
	if target == nil {
		return false
	}

	isComparable := reflect.TypeOf(target).Comparable()
	if isComparable && u.top == target {
		return true
	}
	if x, ok := u.top.(interface{ Is(error) bool }); ok && x.Is(target) {
		return true
	}
	return false
}

func (u union) As(target any) bool {
	if target == nil {
		panic("errors: target cannot be nil")
	}
	val := reflect.ValueOf(target)
	typ := val.Type()
	if typ.Kind() != reflect.Pointer || val.IsNil() {
		panic("errors: target must be a non-nil pointer")
	}
	targetType := typ.Elem()
	if targetType.Kind() != reflect.Interface && !targetType.Implements(errorType) {
		panic("errors: *target must be interface or implement error")
	}
	if reflect.TypeOf(u.top).AssignableTo(targetType) {
		val.Elem().Set(reflect.ValueOf(u.top))
		return true
	}
	if x, ok := u.top.(interface{ As(any) bool }); ok && x.As(target) {
		return true
	}
	return false
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func (u union) Unwrap() error {
	if err := errors.Unwrap(u.top); err != nil {
		return union{error: u.error, top: err}
	}
	return u.error
}
