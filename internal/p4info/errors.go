package p4info

import "fmt"

// UnknownError is returned by a lookup for a name or id that does not
// resolve to exactly one object (spec §4.2).
type UnknownError struct {
	Kind string // "table", "action", ...
	Key  string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("p4info: unknown %s %q", e.Kind, e.Key)
}

// InvalidError is returned when the P4Info schema itself is malformed:
// duplicate ids within a kind, or a cross-reference that does not
// resolve (spec §3 invariants i-ii).
type InvalidError struct {
	Reason string
}

func (e *InvalidError) Error() string { return "p4info: invalid schema: " + e.Reason }
