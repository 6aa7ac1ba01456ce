// Package errcode is the status-value type returned by every kernel and
// CAN-stack API instead of a panic or a bare bool. The closed set below is
// the error-kind taxonomy every layer (scheduler, counter/alarm/schedtbl,
// event/resource/ioc, canif/pdur/com) maps its failures onto; no layer
// invents its own ad-hoc error kind.
package errcode

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// InvalidID: a task, alarm, counter, PDU, or signal identifier out of range.
	InvalidID Code = "invalid_id"
	// InvalidState: operation not permitted in the current state.
	InvalidState Code = "invalid_state"
	// Limit: a configured resource bound was exceeded (activation count,
	// IOC receiver count, ...).
	Limit Code = "limit"
	// Value: a numeric argument is outside its allowed range.
	Value Code = "value"
	// NotOK: generic failure surfaced from a lower layer (driver busy,
	// buffer empty, routing miss on a transmit path).
	NotOK Code = "not_ok"
	// NoData: a read was requested on a buffer whose has-data flag is clear.
	NoData Code = "no_data"

	Busy        Code = "busy"
	Unsupported Code = "unsupported"
	Timeout     Code = "timeout"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// MapDriverErr maps low-level driver errors to a Code.
// Extend the heuristics per platform/driver.
func MapDriverErr(err error) Code {
	if err == nil {
		return OK
	}
	return Error
}
