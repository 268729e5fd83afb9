// Package errcode provides hierarchical error codes shared by every tickerdesk package
// Error code format: MMBBBB (MM = module code 2 digits, BBBB = business code 4 digits)
package errcode

import (
	"errors"
	"fmt"
	"net/http"
)

// Class groups error codes by how callers are expected to react to them
type Class string

const (
	// ClassInternal unexpected failure inside tickerdesk
	ClassInternal Class = "internal"
	// ClassProvider upstream data source failed, timed out or returned unusable data
	ClassProvider Class = "provider"
	// ClassValidation caller supplied malformed parameters
	ClassValidation Class = "validation"
	// ClassStore artifact read was corrupt or a write failed
	ClassStore Class = "store"
	// ClassContract caller violated an API contract (programming fault)
	ClassContract Class = "contract"
)

// LayeredError hierarchical error code
// Supports: error chaining, dynamic messages, context data, HTTP status mapping, error classes
type LayeredError struct {
	module     string         // Module name (artifact, cache, provider)
	code       int            // Complete error code (MMBBBB, e.g., 710001)
	msgKey     string         // Message key (e.g., "error.artifact.write")
	msg        string         // Default message
	httpStatus int            // HTTP status code
	class      Class          // Error class
	data       map[string]any // context data
	cause      error          // Original error (error chain)
}

// New Create hierarchical error codes
// moduleCode: Module code (10-99)
// businessCode: Business Code (0001-9999)
// httpStatus: HTTP status code (optional, default is 500)
func New(moduleCode, businessCode int, module, msgKey, msg string, httpStatus ...int) *LayeredError {
	status := http.StatusInternalServerError
	if len(httpStatus) > 0 {
		status = httpStatus[0]
	}
	return &LayeredError{
		module:     module,
		code:       moduleCode*10000 + businessCode,
		msgKey:     msgKey,
		msg:        msg,
		httpStatus: status,
		class:      ClassInternal,
		data:       make(map[string]any),
	}
}

// Implement error interface
func (e *LayeredError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

// Code gets error code
func (e *LayeredError) Code() int {
	return e.code
}

// Module Get module name
func (e *LayeredError) Module() string {
	return e.module
}

// MsgKey retrieves the message key
func (e *LayeredError) MsgKey() string {
	return e.msgKey
}

// Message returns the message without the cause
func (e *LayeredError) Message() string {
	return e.msg
}

// HTTPStatus Get HTTP status code
func (e *LayeredError) HTTPStatus() int {
	return e.httpStatus
}

// Class returns the error class
func (e *LayeredError) Class() Class {
	return e.class
}

// Data retrieves context data
func (e *LayeredError) Data() map[string]any {
	return e.data
}

// Cause get original error
func (e *LayeredError) Cause() error {
	return e.cause
}

// Unwrap supports Go 1.13+ error chains
func (e *LayeredError) Unwrap() error {
	return e.cause
}

// WithClass sets the error class (return new instance)
func (e *LayeredError) WithClass(class Class) *LayeredError {
	clone := *e
	clone.class = class
	return &clone
}

// WithMsg replace error message (return new instance, do not modify original instance)
func (e *LayeredError) WithMsg(msg string) *LayeredError {
	clone := *e
	clone.msg = msg
	return &clone
}

// WithMsgf format replacement error message (return new instance)
func (e *LayeredError) WithMsgf(format string, args ...any) *LayeredError {
	clone := *e
	clone.msg = fmt.Sprintf(format, args...)
	return &clone
}

// WithData add single context data (return new instance)
func (e *LayeredError) WithData(key string, value any) *LayeredError {
	clone := *e
	clone.data = e.cloneData()
	clone.data[key] = value
	return &clone
}

// WithHTTPStatus Set HTTP status code (return new instance)
func (e *LayeredError) WithHTTPStatus(status int) *LayeredError {
	clone := *e
	clone.httpStatus = status
	return &clone
}

// Wrap Wraps the original error (returns a new instance)
func (e *LayeredError) Wrap(cause error) *LayeredError {
	if cause == nil {
		return e
	}
	clone := *e
	clone.cause = cause
	return &clone
}

// Wrapf wraps the original error and formats the message (return a new instance)
func (e *LayeredError) Wrapf(cause error, format string, args ...any) *LayeredError {
	if cause == nil {
		return e.WithMsgf(format, args...)
	}
	clone := *e
	clone.cause = cause
	clone.msg = fmt.Sprintf(format, args...)
	return &clone
}

// Is supports errors.Is() by comparing codes
func (e *LayeredError) Is(target error) bool {
	t, ok := target.(*LayeredError)
	if !ok {
		return false
	}
	return e.code == t.code
}

// String returns a debugging representation
func (e *LayeredError) String() string {
	if e.cause != nil {
		return fmt.Sprintf("LayeredError{code:%d, module:%s, class:%s, msg:%s, cause:%v}",
			e.code, e.module, e.class, e.msg, e.cause)
	}
	return fmt.Sprintf("LayeredError{code:%d, module:%s, class:%s, msg:%s}",
		e.code, e.module, e.class, e.msg)
}

func (e *LayeredError) cloneData() map[string]any {
	data := make(map[string]any, len(e.data))
	for k, v := range e.data {
		data[k] = v
	}
	return data
}

// ClassOf returns the class of the first LayeredError in the chain,
// ClassInternal for any other non-nil error and "" for nil
func ClassOf(err error) Class {
	if err == nil {
		return ""
	}
	var le *LayeredError
	if errors.As(err, &le) {
		return le.class
	}
	return ClassInternal
}

// As extracts the first LayeredError in the chain
func As(err error) (*LayeredError, bool) {
	var le *LayeredError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}
