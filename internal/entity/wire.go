package entity

import (
	"github.com/finsy-project/finsy-go/internal/p4info"
	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
)

// The Wrap* functions lift a single entity kind's wire message into the
// p4.v1.Entity oneof Write/Read operate on.

func WrapTableEntry(e *p4v1.TableEntry) *p4v1.Entity {
	return &p4v1.Entity{Entity: &p4v1.Entity_TableEntry{TableEntry: e}}
}

func WrapActionProfileMember(e *p4v1.ActionProfileMember) *p4v1.Entity {
	return &p4v1.Entity{Entity: &p4v1.Entity_ActionProfileMember{ActionProfileMember: e}}
}

func WrapActionProfileGroup(e *p4v1.ActionProfileGroup) *p4v1.Entity {
	return &p4v1.Entity{Entity: &p4v1.Entity_ActionProfileGroup{ActionProfileGroup: e}}
}

func WrapCounterEntry(e *p4v1.CounterEntry) *p4v1.Entity {
	return &p4v1.Entity{Entity: &p4v1.Entity_CounterEntry{CounterEntry: e}}
}

func WrapDirectCounterEntry(e *p4v1.DirectCounterEntry) *p4v1.Entity {
	return &p4v1.Entity{Entity: &p4v1.Entity_DirectCounterEntry{DirectCounterEntry: e}}
}

func WrapMeterEntry(e *p4v1.MeterEntry) *p4v1.Entity {
	return &p4v1.Entity{Entity: &p4v1.Entity_MeterEntry{MeterEntry: e}}
}

func WrapDirectMeterEntry(e *p4v1.DirectMeterEntry) *p4v1.Entity {
	return &p4v1.Entity{Entity: &p4v1.Entity_DirectMeterEntry{DirectMeterEntry: e}}
}

func WrapRegisterEntry(e *p4v1.RegisterEntry) *p4v1.Entity {
	return &p4v1.Entity{Entity: &p4v1.Entity_RegisterEntry{RegisterEntry: e}}
}

func WrapDigestEntry(e *p4v1.DigestEntry) *p4v1.Entity {
	return &p4v1.Entity{Entity: &p4v1.Entity_DigestEntry{DigestEntry: e}}
}

func WrapPacketReplicationEntry(e *p4v1.PacketReplicationEngineEntry) *p4v1.Entity {
	return &p4v1.Entity{Entity: &p4v1.Entity_PacketReplicationEngineEntry{PacketReplicationEngineEntry: e}}
}

// FromWire demultiplexes a wire Entity into one of the typed structs in
// this package, keyed by its oneof tag.
func FromWire(schema *p4info.Schema, e *p4v1.Entity) (any, error) {
	switch arm := e.GetEntity().(type) {
	case *p4v1.Entity_TableEntry:
		return TableEntryFromWire(schema, arm.TableEntry)
	case *p4v1.Entity_ActionProfileMember:
		return ActionProfileMemberFromWire(schema, arm.ActionProfileMember)
	case *p4v1.Entity_ActionProfileGroup:
		return ActionProfileGroupFromWire(schema, arm.ActionProfileGroup)
	case *p4v1.Entity_CounterEntry:
		return CounterEntryFromWire(schema, arm.CounterEntry)
	case *p4v1.Entity_DirectCounterEntry:
		return DirectCounterEntryFromWire(schema, arm.DirectCounterEntry)
	case *p4v1.Entity_MeterEntry:
		return MeterEntryFromWire(schema, arm.MeterEntry)
	case *p4v1.Entity_DirectMeterEntry:
		return DirectMeterEntryFromWire(schema, arm.DirectMeterEntry)
	case *p4v1.Entity_RegisterEntry:
		return RegisterEntryFromWire(schema, arm.RegisterEntry)
	case *p4v1.Entity_DigestEntry:
		return DigestEntryFromWire(schema, arm.DigestEntry)
	case *p4v1.Entity_PacketReplicationEngineEntry:
		return PacketReplicationEntryFromWire(arm.PacketReplicationEngineEntry)
	default:
		return nil, &ConversionError{Entity: "entity", Reason: "unknown wire oneof arm"}
	}
}
