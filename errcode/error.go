// Package errcode provides layered error codes for the cache subsystem.
// Code format: MMBBBB (MM = module code, BBBB = business code).
package errcode

import (
	"fmt"
)

// Kind classifies an error by how callers are expected to react to it.
type Kind int

const (
	// KindProgrammer is a misuse of the API (empty key, nil callback, bad config).
	KindProgrammer Kind = iota
	// KindTransient is a remote failure that degrades to a miss or memory-only mode.
	KindTransient
	// KindCallback is a failure raised by a caller supplied loader, writer or deleter.
	KindCallback
	// KindExhausted means a retry budget was consumed.
	KindExhausted
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindProgrammer:
		return "programmer"
	case KindTransient:
		return "transient"
	case KindCallback:
		return "callback"
	case KindExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// LayeredError is a coded error with an optional cause and context data.
// Instances are immutable; every With* method returns a copy.
type LayeredError struct {
	module string                 // cache, redis, pattern, monitor, config, telemetry
	code   int                    // MMBBBB
	msgKey string                 // stable message key, e.g. "cache.invalid_key"
	msg    string                 // default message
	kind   Kind                   // reaction class
	data   map[string]interface{} // context data
	cause  error
}

// New creates a layered error.
// moduleCode: 10-99, businessCode: 0001-9999.
func New(moduleCode, businessCode int, module, msgKey, msg string, kind ...Kind) *LayeredError {
	k := KindProgrammer
	if len(kind) > 0 {
		k = kind[0]
	}
	return &LayeredError{
		module: module,
		code:   moduleCode*10000 + businessCode,
		msgKey: msgKey,
		msg:    msg,
		kind:   k,
		data:   make(map[string]interface{}),
	}
}

func (e *LayeredError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

// Code returns the full MMBBBB code.
func (e *LayeredError) Code() int {
	return e.code
}

// Module returns the owning module name.
func (e *LayeredError) Module() string {
	return e.module
}

// MsgKey returns the stable message key.
func (e *LayeredError) MsgKey() string {
	return e.msgKey
}

// Message returns the message without the cause.
func (e *LayeredError) Message() string {
	return e.msg
}

// Kind returns the reaction class.
func (e *LayeredError) Kind() Kind {
	return e.kind
}

// Data returns the context data.
func (e *LayeredError) Data() map[string]interface{} {
	return e.data
}

// Cause returns the wrapped error.
func (e *LayeredError) Cause() error {
	return e.cause
}

// Unwrap supports errors.Is / errors.As chains.
func (e *LayeredError) Unwrap() error {
	return e.cause
}

// WithMsg replaces the message.
func (e *LayeredError) WithMsg(msg string) *LayeredError {
	clone := *e
	clone.msg = msg
	return &clone
}

// WithMsgf replaces the message with a formatted one.
func (e *LayeredError) WithMsgf(format string, args ...interface{}) *LayeredError {
	clone := *e
	clone.msg = fmt.Sprintf(format, args...)
	return &clone
}

// WithData attaches one context value.
func (e *LayeredError) WithData(key string, value interface{}) *LayeredError {
	clone := *e
	clone.data = e.cloneData()
	clone.data[key] = value
	return &clone
}

// WithFields attaches several context values.
func (e *LayeredError) WithFields(fields map[string]interface{}) *LayeredError {
	clone := *e
	clone.data = e.cloneData()
	for k, v := range fields {
		clone.data[k] = v
	}
	return &clone
}

// Wrap attaches a cause. Wrapping nil returns the receiver.
func (e *LayeredError) Wrap(cause error) *LayeredError {
	if cause == nil {
		return e
	}
	clone := *e
	clone.cause = cause
	return &clone
}

// Wrapf attaches a cause and replaces the message.
func (e *LayeredError) Wrapf(cause error, format string, args ...interface{}) *LayeredError {
	if cause == nil {
		return e.WithMsgf(format, args...)
	}
	clone := *e
	clone.cause = cause
	clone.msg = fmt.Sprintf(format, args...)
	return &clone
}

// Is compares by code so that sentinels match their wrapped copies.
func (e *LayeredError) Is(target error) bool {
	t, ok := target.(*LayeredError)
	if !ok {
		return false
	}
	return e.code == t.code
}

func (e *LayeredError) cloneData() map[string]interface{} {
	data := make(map[string]interface{}, len(e.data))
	for k, v := range e.data {
		data[k] = v
	}
	return data
}

// String is the debug representation.
func (e *LayeredError) String() string {
	if e.cause != nil {
		return fmt.Sprintf("LayeredError{code:%d, module:%s, kind:%s, msg:%s, cause:%v}",
			e.code, e.module, e.kind, e.msg, e.cause)
	}
	return fmt.Sprintf("LayeredError{code:%d, module:%s, kind:%s, msg:%s}",
		e.code, e.module, e.kind, e.msg)
}
