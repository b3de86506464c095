package entity

import (
	"github.com/finsy-project/finsy-go/internal/p4info"
	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
)

// IdleTimeoutNotification reports table entries the target aged out
// because their idle_timeout_ns elapsed with no matching traffic (spec
// §4.3).
type IdleTimeoutNotification struct {
	TableEntries []TableEntry
}

func IdleTimeoutNotificationFromWire(schema *p4info.Schema, wire *p4v1.IdleTimeoutNotification) (IdleTimeoutNotification, error) {
	var entries []TableEntry
	for _, te := range wire.GetTableEntry() {
		e, err := TableEntryFromWire(schema, te)
		if err != nil {
			return IdleTimeoutNotification{}, err
		}
		entries = append(entries, e)
	}
	return IdleTimeoutNotification{TableEntries: entries}, nil
}
