package entity

import (
	"github.com/finsy-project/finsy-go/internal/p4info"
	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
)

// RegisterEntry addresses one index of a register array, or all indices
// when Index is nil. Values are carried as canonical big-endian bytes;
// the register's declared bitwidth is the schema's concern, not this
// entry's.
type RegisterEntry struct {
	RegisterName string
	Index        *int64
	Value        []byte
}

func (e RegisterEntry) ToWire(schema *p4info.Schema) (*p4v1.RegisterEntry, error) {
	r, err := schema.LookupRegister(e.RegisterName)
	if err != nil {
		return nil, err
	}
	var idx *p4v1.Index
	if e.Index != nil {
		idx = &p4v1.Index{Index: *e.Index}
	}
	var data *p4v1.P4Data
	if e.Value != nil {
		data = &p4v1.P4Data{Data: &p4v1.P4Data_Bitstring{Bitstring: e.Value}}
	}
	return &p4v1.RegisterEntry{RegisterId: r.GetPreamble().GetId(), Index: idx, Data: data}, nil
}

func RegisterEntryFromWire(schema *p4info.Schema, wire *p4v1.RegisterEntry) (RegisterEntry, error) {
	r, err := schema.Register(wire.GetRegisterId())
	if err != nil {
		return RegisterEntry{}, err
	}
	var idx *int64
	if wire.GetIndex() != nil {
		v := wire.GetIndex().GetIndex()
		idx = &v
	}
	var value []byte
	if bs, ok := wire.GetData().GetData().(*p4v1.P4Data_Bitstring); ok {
		value = bs.Bitstring
	}
	return RegisterEntry{
		RegisterName: r.GetPreamble().GetName(),
		Index:        idx,
		Value:        value,
	}, nil
}
