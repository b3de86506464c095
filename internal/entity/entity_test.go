package entity

import (
	"testing"
	"time"

	"github.com/finsy-project/finsy-go/internal/p4info"
	configv1 "github.com/p4lang/p4runtime/go/p4/config/v1"
	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
)

func schemaWithResources(t *testing.T) *p4info.Schema {
	t.Helper()
	raw := &configv1.P4Info{
		Counters: []*configv1.Counter{
			{Preamble: &configv1.Preamble{Id: 302000001, Name: "ingress.byte_counter"}},
		},
		Meters: []*configv1.Meter{
			{Preamble: &configv1.Preamble{Id: 335000001, Name: "ingress.rate_meter"}},
		},
		Registers: []*configv1.Register{
			{Preamble: &configv1.Preamble{Id: 369000001, Name: "ingress.seen"}},
		},
		Digests: []*configv1.Digest{
			{Preamble: &configv1.Preamble{Id: 400000001, Name: "learn_digest"}},
		},
		ControllerPacketMetadata: []*configv1.ControllerPacketMetadata{
			{
				Preamble: &configv1.Preamble{Id: 67108864, Name: "packet_in"},
				Metadata: []*configv1.ControllerPacketMetadata_Metadata{{Id: 1, Name: "ingress_port", Bitwidth: 9}},
			},
			{
				Preamble: &configv1.Preamble{Id: 67108865, Name: "packet_out"},
				Metadata: []*configv1.ControllerPacketMetadata_Metadata{{Id: 1, Name: "egress_port", Bitwidth: 9}},
			},
		},
	}
	s, err := p4info.Build(raw)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestCounterEntryRoundTrip(t *testing.T) {
	s := schemaWithResources(t)
	idx := int64(5)
	e := CounterEntry{CounterName: "ingress.byte_counter", Index: &idx, Data: &CounterData{ByteCount: 100, PacketCount: 1}}
	wire, err := e.ToWire(s)
	if err != nil {
		t.Fatal(err)
	}
	back, err := CounterEntryFromWire(s, wire)
	if err != nil {
		t.Fatal(err)
	}
	if back.CounterName != "ingress.byte_counter" || *back.Index != 5 || back.Data.ByteCount != 100 {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestMeterEntryRoundTrip(t *testing.T) {
	s := schemaWithResources(t)
	e := MeterEntry{MeterName: "ingress.rate_meter", Config: &MeterConfig{CIR: 1000, CBurst: 10, PIR: 2000, PBurst: 20}}
	wire, err := e.ToWire(s)
	if err != nil {
		t.Fatal(err)
	}
	back, err := MeterEntryFromWire(s, wire)
	if err != nil {
		t.Fatal(err)
	}
	if back.Config.CIR != 1000 || back.Config.PIR != 2000 {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestRegisterEntryRoundTrip(t *testing.T) {
	s := schemaWithResources(t)
	idx := int64(1)
	e := RegisterEntry{RegisterName: "ingress.seen", Index: &idx, Value: []byte{0x01}}
	wire, err := e.ToWire(s)
	if err != nil {
		t.Fatal(err)
	}
	back, err := RegisterEntryFromWire(s, wire)
	if err != nil {
		t.Fatal(err)
	}
	if back.RegisterName != "ingress.seen" || back.Value[0] != 0x01 {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestDigestEntryRoundTrip(t *testing.T) {
	s := schemaWithResources(t)
	e := DigestEntry{DigestName: "learn_digest", MaxTimeout: 100 * time.Millisecond, MaxListSize: 32, AckTimeout: time.Second}
	wire, err := e.ToWire(s)
	if err != nil {
		t.Fatal(err)
	}
	back, err := DigestEntryFromWire(s, wire)
	if err != nil {
		t.Fatal(err)
	}
	if back.MaxListSize != 32 || back.AckTimeout != time.Second {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestDigestListAckToWire(t *testing.T) {
	s := schemaWithResources(t)
	ack := DigestListAck{DigestName: "learn_digest", ListID: 7}
	wire, err := ack.ToWire(s)
	if err != nil {
		t.Fatal(err)
	}
	if wire.GetListId() != 7 {
		t.Fatalf("list id = %d", wire.GetListId())
	}
}

func TestPacketInOutMetadataRoundTrip(t *testing.T) {
	s := schemaWithResources(t)
	out := PacketOut{Payload: []byte{1, 2, 3}, Metadata: map[string][]byte{"egress_port": {0x04}}}
	wireOut, err := out.ToWire(s)
	if err != nil {
		t.Fatal(err)
	}
	if len(wireOut.GetMetadata()) != 1 {
		t.Fatalf("expected 1 metadata field, got %d", len(wireOut.GetMetadata()))
	}

	wireIn := &p4v1.PacketIn{
		Payload: []byte{4, 5, 6},
		Metadata: []*p4v1.PacketMetadata{
			{MetadataId: 1, Value: []byte{0x09}},
		},
	}
	in, err := PacketInFromWire(s, wireIn)
	if err != nil {
		t.Fatal(err)
	}
	if in.Metadata["ingress_port"][0] != 0x09 {
		t.Fatalf("round trip mismatch: %+v", in)
	}
}

func TestMulticastGroupEntryRoundTrip(t *testing.T) {
	e := MulticastGroupEntry{GroupID: 1, Replicas: []Replica{{EgressPort: 1, Instance: 0}, {EgressPort: 2, Instance: 0}}}
	wire := e.ToWire()
	back, err := PacketReplicationEntryFromWire(wire)
	if err != nil {
		t.Fatal(err)
	}
	mg, ok := back.(MulticastGroupEntry)
	if !ok || mg.GroupID != 1 || len(mg.Replicas) != 2 {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestCloneSessionEntryRoundTrip(t *testing.T) {
	e := CloneSessionEntry{SessionID: 9, Replicas: []Replica{{EgressPort: 3}}, PacketLengthBytes: 128}
	wire := e.ToWire()
	back, err := PacketReplicationEntryFromWire(wire)
	if err != nil {
		t.Fatal(err)
	}
	cs, ok := back.(CloneSessionEntry)
	if !ok || cs.SessionID != 9 || cs.PacketLengthBytes != 128 {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}
