package entity

import (
	"github.com/finsy-project/finsy-go/internal/codec"
	"github.com/finsy-project/finsy-go/internal/p4info"
	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
)

// PacketOut is a controller-originated packet, carrying its payload
// plus a named mapping of controller metadata fields (e.g. egress
// port) encoded per the "packet_out" controller header (spec §4.3).
type PacketOut struct {
	Payload  []byte
	Metadata map[string][]byte
}

func (p PacketOut) ToWire(schema *p4info.Schema) (*p4v1.PacketOut, error) {
	meta, err := packetMetadataToWire(schema, "packet_out", p.Metadata)
	if err != nil {
		return nil, err
	}
	return &p4v1.PacketOut{Payload: p.Payload, Metadata: meta}, nil
}

// PacketIn is a target-originated packet delivered on the stream.
type PacketIn struct {
	Payload  []byte
	Metadata map[string][]byte
}

func PacketInFromWire(schema *p4info.Schema, wire *p4v1.PacketIn) (PacketIn, error) {
	meta, err := packetMetadataFromWire(schema, "packet_in", wire.GetMetadata())
	if err != nil {
		return PacketIn{}, err
	}
	return PacketIn{Payload: wire.GetPayload(), Metadata: meta}, nil
}

func packetMetadataToWire(schema *p4info.Schema, headerName string, named map[string][]byte) ([]*p4v1.PacketMetadata, error) {
	header, err := schema.ControllerPacketMetadata(headerName)
	if err != nil {
		return nil, err
	}
	var out []*p4v1.PacketMetadata
	for _, f := range header.GetMetadata() {
		v, ok := named[f.GetName()]
		if !ok {
			continue
		}
		out = append(out, &p4v1.PacketMetadata{MetadataId: f.GetId(), Value: codec.StripLeadingZeros(v)})
	}
	return out, nil
}

func packetMetadataFromWire(schema *p4info.Schema, headerName string, wire []*p4v1.PacketMetadata) (map[string][]byte, error) {
	header, err := schema.ControllerPacketMetadata(headerName)
	if err != nil {
		return nil, err
	}
	byID := map[uint32]string{}
	for _, f := range header.GetMetadata() {
		byID[f.GetId()] = f.GetName()
	}
	out := map[string][]byte{}
	for _, m := range wire {
		name, ok := byID[m.GetMetadataId()]
		if !ok {
			return nil, &p4info.UnknownError{Kind: "packet_metadata", Key: uintKey(m.GetMetadataId())}
		}
		out[name] = m.GetValue()
	}
	return out, nil
}
