// Package entity implements the typed P4Runtime entity model: the
// to_wire/from_wire conversions between user-facing Go structs and the
// generated p4.v1 protobuf messages, driven by a p4info.Schema (spec
// §4.3).
package entity

import "fmt"

// ConversionError is raised by ToWire/FromWire when an entity cannot be
// converted: a missing action parameter, a malformed oneof, or an
// invalid combination of fields. Unknown names are reported as
// p4info.UnknownError and codec failures as the codec's own error types.
type ConversionError struct {
	Entity string
	Reason string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("entity %s: %s", e.Entity, e.Reason)
}
