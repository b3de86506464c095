package fswitch

import "fmt"

// NotPrimaryError is returned by Write when the session's role is not
// PRIMARY; the caller may resubmit after observing channel_up as
// PRIMARY (spec §7).
type NotPrimaryError struct {
	Role Role
}

func (e *NotPrimaryError) Error() string {
	return fmt.Sprintf("not primary: current role is %s", e.Role)
}

// FatalError drives the session straight to CLOSED: the target does
// not recognize this device id, or another unrecoverable arbitration
// outcome (spec §4.4(a), §7).
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string { return "fatal: " + e.Reason }

// transportBrokenError is internal: a stream break or connect failure
// that should trigger reconnect rather than propagate to the caller
// (spec §7).
type transportBrokenError struct {
	cause error
}

func (e *transportBrokenError) Error() string { return "transport broken: " + e.cause.Error() }
func (e *transportBrokenError) Unwrap() error { return e.cause }
