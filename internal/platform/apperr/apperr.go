// Package apperr defines the caller-facing error kinds shared by the
// scheduling core and its HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a recoverable failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindParse
	KindValidation
	KindPastDate
	KindNoServiceThatDay
	KindNoServiceThatHour
	KindGranularity
	KindHorizon
	KindSlotTaken
	KindDuplicatePending
	KindDuplicatePair
	KindNotFound
	KindConflict
)

var kindNames = map[Kind]string{
	KindUnknown:           "unknown",
	KindParse:             "parse",
	KindValidation:        "validation",
	KindPastDate:          "past_date",
	KindNoServiceThatDay:  "no_service_that_day",
	KindNoServiceThatHour: "no_service_that_hour",
	KindGranularity:       "granularity",
	KindHorizon:           "horizon",
	KindSlotTaken:         "slot_taken",
	KindDuplicatePending:  "duplicate_pending",
	KindDuplicatePair:     "duplicate_pair",
	KindNotFound:          "not_found",
	KindConflict:          "conflict",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified, user-presentable error.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// New builds an *Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Parse(format string, args ...interface{}) *Error {
	return New(KindParse, format, args...)
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return New(KindConflict, format, args...)
}

// KindOf returns the kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to the status code returned at the boundary.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindParse, KindValidation, KindPastDate, KindNoServiceThatDay,
		KindNoServiceThatHour, KindGranularity, KindHorizon:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindSlotTaken, KindDuplicatePending, KindDuplicatePair, KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
