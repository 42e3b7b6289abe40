// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package trackerdata

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// ErrorStatus describes errors that correspond to specific HTTP status
// codes.
type ErrorStatus interface {
	// HTTPStatus returns the HTTP status code for this error.
	HTTPStatus() int
}

// ErrUnsupportedMediaType is returned from Decode() if the provided
// Content-Type: is unrecognized.  This translates directly into the
// equivalent HTTP 415 error.
type ErrUnsupportedMediaType struct {
	Type string
}

func (e ErrUnsupportedMediaType) Error() string {
	return fmt.Sprintf("Unsupported media type %q", e.Type)
}

// HTTPStatus returns a fixed 415 Unsupported Media Type error code.
func (e ErrUnsupportedMediaType) HTTPStatus() int {
	return http.StatusUnsupportedMediaType
}

// ErrNotFound is a wrapper error that indicates that, due to the
// embedded error, a REST service should return a 404 Not Found error.
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return e.Err.Error()
}

// HTTPStatus returns a fixed 404 Not Found error code.
func (e ErrNotFound) HTTPStatus() int {
	return http.StatusNotFound
}

// ErrBadRequest is returned as an error when there is an error decoding
// HTTP headers or the request body.
type ErrBadRequest struct {
	Err error
}

func (e ErrBadRequest) Error() string {
	return e.Err.Error()
}

// HTTPStatus returns a fixed 400 Bad Request HTTP status code.
func (e ErrBadRequest) HTTPStatus() int {
	return http.StatusBadRequest
}

// ErrUnknownEntityType is returned when a request names an entity
// type the server does not store.
type ErrUnknownEntityType struct {
	Type string
}

func (e ErrUnknownEntityType) Error() string {
	return fmt.Sprintf("no such entity type %q", e.Type)
}

// ErrBadFilter is returned for a filter with an unknown operator or
// a value of the wrong shape for its operator.
type ErrBadFilter struct {
	Op string
}

func (e ErrBadFilter) Error() string {
	return fmt.Sprintf("bad filter operator or value for %q", e.Op)
}

// ErrNoProject is returned when creating a record whose project_id
// does not name a project.
var ErrNoProject = errors.New("record has no valid project_id")

// FromError populates an ErrorResponse to fill in its fields based
// on an error value.  This remaps the well-known tracker errors to
// specific e.Error codes.
func (e *ErrorResponse) FromError(err error) {
	e.Error = "error"
	e.Message = err.Error()
	if err == ErrNoProject {
		e.Error = "ErrNoProject"
	}
	switch et := err.(type) {
	case ErrUnknownEntityType:
		e.Error = "ErrUnknownEntityType"
		e.Value = et.Type
	case ErrBadFilter:
		e.Error = "ErrBadFilter"
		e.Value = et.Op
	case ErrUnsupportedMediaType:
		e.Error = "ErrUnsupportedMediaType"
		e.Value = et.Type
	case ErrNotFound:
		// Discard this wrapper and return the embedded error
		e.FromError(et.Err)
	case ErrBadRequest:
		e.FromError(et.Err)
	}
}

// ToError converts e back to a tracker error, if that is possible.
// If not, returns a plain error with e.Message text.
func (e *ErrorResponse) ToError() error {
	switch e.Error {
	case "ErrNoProject":
		return ErrNoProject
	case "ErrUnknownEntityType":
		return ErrUnknownEntityType{Type: e.Value}
	case "ErrBadFilter":
		return ErrBadFilter{Op: e.Value}
	case "ErrUnsupportedMediaType":
		return ErrUnsupportedMediaType{Type: e.Value}
	default:
		return errors.New(e.Message)
	}
}

// FromPanic populates an error response based on a panic.  Typical use
// is:
//
//	defer func() {
//		if obj := recover(); obj != nil {
//			resp := trackerdata.ErrorResponse{}
//			resp.FromPanic(obj)
//			// write resp out as makes sense
//		}
//	}()
func (e *ErrorResponse) FromPanic(obj interface{}) {
	e.Error = "panic"
	if recoveredError, isError := obj.(error); isError {
		e.Message = recoveredError.Error()
	} else {
		e.Message = fmt.Sprintf("%+v", obj)
	}
	var stack [4096]byte
	n := runtime.Stack(stack[:], false)
	e.Stack = string(stack[:n])
}
