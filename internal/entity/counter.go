package entity

import (
	"github.com/finsy-project/finsy-go/internal/p4info"
	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
)

// CounterData is the packet/byte pair every counter kind shares.
type CounterData struct {
	ByteCount   int64
	PacketCount int64
}

func counterDataToWire(d *CounterData) *p4v1.CounterData {
	if d == nil {
		return nil
	}
	return &p4v1.CounterData{ByteCount: d.ByteCount, PacketCount: d.PacketCount}
}

func counterDataFromWire(wire *p4v1.CounterData) *CounterData {
	if wire == nil {
		return nil
	}
	return &CounterData{ByteCount: wire.GetByteCount(), PacketCount: wire.GetPacketCount()}
}

// CounterEntry addresses one index of a standalone (indirect) counter,
// or all indices when Index is nil (a read wildcard).
type CounterEntry struct {
	CounterName string
	Index       *int64
	Data        *CounterData
}

func (e CounterEntry) ToWire(schema *p4info.Schema) (*p4v1.CounterEntry, error) {
	c, err := schema.LookupCounter(e.CounterName)
	if err != nil {
		return nil, err
	}
	var idx *p4v1.Index
	if e.Index != nil {
		idx = &p4v1.Index{Index: *e.Index}
	}
	return &p4v1.CounterEntry{
		CounterId: c.GetPreamble().GetId(),
		Index:     idx,
		Data:      counterDataToWire(e.Data),
	}, nil
}

func CounterEntryFromWire(schema *p4info.Schema, wire *p4v1.CounterEntry) (CounterEntry, error) {
	c, err := schema.Counter(wire.GetCounterId())
	if err != nil {
		return CounterEntry{}, err
	}
	var idx *int64
	if wire.GetIndex() != nil {
		v := wire.GetIndex().GetIndex()
		idx = &v
	}
	return CounterEntry{
		CounterName: c.GetPreamble().GetName(),
		Index:       idx,
		Data:        counterDataFromWire(wire.GetData()),
	}, nil
}

// DirectCounterEntry addresses the counter attached to a table entry.
type DirectCounterEntry struct {
	TableEntry TableEntry
	Data       *CounterData
}

func (e DirectCounterEntry) ToWire(schema *p4info.Schema) (*p4v1.DirectCounterEntry, error) {
	te, err := e.TableEntry.ToWire(schema)
	if err != nil {
		return nil, err
	}
	return &p4v1.DirectCounterEntry{TableEntry: te, Data: counterDataToWire(e.Data)}, nil
}

func DirectCounterEntryFromWire(schema *p4info.Schema, wire *p4v1.DirectCounterEntry) (DirectCounterEntry, error) {
	te, err := TableEntryFromWire(schema, wire.GetTableEntry())
	if err != nil {
		return DirectCounterEntry{}, err
	}
	return DirectCounterEntry{TableEntry: te, Data: counterDataFromWire(wire.GetData())}, nil
}
