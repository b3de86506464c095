package entity

import (
	"github.com/finsy-project/finsy-go/internal/p4info"
	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
)

// MeterConfig is the two-rate-three-color configuration shared by
// standalone and direct meters.
type MeterConfig struct {
	CIR, CBurst int64
	PIR, PBurst int64
}

func meterConfigToWire(c *MeterConfig) *p4v1.MeterConfig {
	if c == nil {
		return nil
	}
	return &p4v1.MeterConfig{Cir: c.CIR, Cburst: c.CBurst, Pir: c.PIR, Pburst: c.PBurst}
}

func meterConfigFromWire(wire *p4v1.MeterConfig) *MeterConfig {
	if wire == nil {
		return nil
	}
	return &MeterConfig{CIR: wire.GetCir(), CBurst: wire.GetCburst(), PIR: wire.GetPir(), PBurst: wire.GetPburst()}
}

// MeterEntry addresses one index of a standalone meter, or all indices
// when Index is nil.
type MeterEntry struct {
	MeterName string
	Index     *int64
	Config    *MeterConfig
}

func (e MeterEntry) ToWire(schema *p4info.Schema) (*p4v1.MeterEntry, error) {
	m, err := schema.LookupMeter(e.MeterName)
	if err != nil {
		return nil, err
	}
	var idx *p4v1.Index
	if e.Index != nil {
		idx = &p4v1.Index{Index: *e.Index}
	}
	return &p4v1.MeterEntry{
		MeterId: m.GetPreamble().GetId(),
		Index:   idx,
		Config:  meterConfigToWire(e.Config),
	}, nil
}

func MeterEntryFromWire(schema *p4info.Schema, wire *p4v1.MeterEntry) (MeterEntry, error) {
	m, err := schema.Meter(wire.GetMeterId())
	if err != nil {
		return MeterEntry{}, err
	}
	var idx *int64
	if wire.GetIndex() != nil {
		v := wire.GetIndex().GetIndex()
		idx = &v
	}
	return MeterEntry{
		MeterName: m.GetPreamble().GetName(),
		Index:     idx,
		Config:    meterConfigFromWire(wire.GetConfig()),
	}, nil
}

// DirectMeterEntry addresses the meter attached to a table entry.
type DirectMeterEntry struct {
	TableEntry TableEntry
	Config     *MeterConfig
}

func (e DirectMeterEntry) ToWire(schema *p4info.Schema) (*p4v1.DirectMeterEntry, error) {
	te, err := e.TableEntry.ToWire(schema)
	if err != nil {
		return nil, err
	}
	return &p4v1.DirectMeterEntry{TableEntry: te, Config: meterConfigToWire(e.Config)}, nil
}

func DirectMeterEntryFromWire(schema *p4info.Schema, wire *p4v1.DirectMeterEntry) (DirectMeterEntry, error) {
	te, err := TableEntryFromWire(schema, wire.GetTableEntry())
	if err != nil {
		return DirectMeterEntry{}, err
	}
	return DirectMeterEntry{TableEntry: te, Config: meterConfigFromWire(wire.GetConfig())}, nil
}
