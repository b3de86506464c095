package entity

import p4v1 "github.com/p4lang/p4runtime/go/p4/v1"

// Replica is one egress port (plus instance, for multiple copies to the
// same port) a packet-replication entry fans out to.
type Replica struct {
	EgressPort uint32
	Instance   int32
}

func replicasToWire(rs []Replica) []*p4v1.Replica {
	var out []*p4v1.Replica
	for _, r := range rs {
		out = append(out, &p4v1.Replica{EgressPort: r.EgressPort, Instance: r.Instance})
	}
	return out
}

func replicasFromWire(wire []*p4v1.Replica) []Replica {
	var out []Replica
	for _, r := range wire {
		out = append(out, Replica{EgressPort: r.GetEgressPort(), Instance: r.GetInstance()})
	}
	return out
}

// MulticastGroupEntry fans a packet out to a set of replicas, keyed by
// a controller-assigned group id (not schema-bound; packet replication
// engine entries have no P4Info counterpart).
type MulticastGroupEntry struct {
	GroupID  uint32
	Replicas []Replica
}

func (e MulticastGroupEntry) ToWire() *p4v1.PacketReplicationEngineEntry {
	return &p4v1.PacketReplicationEngineEntry{
		Type: &p4v1.PacketReplicationEngineEntry_MulticastGroupEntry{
			MulticastGroupEntry: &p4v1.MulticastGroupEntry{
				MulticastGroupId: e.GroupID,
				Replicas:         replicasToWire(e.Replicas),
			},
		},
	}
}

func MulticastGroupEntryFromWire(wire *p4v1.MulticastGroupEntry) MulticastGroupEntry {
	return MulticastGroupEntry{GroupID: wire.GetMulticastGroupId(), Replicas: replicasFromWire(wire.GetReplicas())}
}

// CloneSessionEntry is a packet-replication clone target: a set of
// replicas plus an optional truncation length.
type CloneSessionEntry struct {
	SessionID         uint32
	Replicas          []Replica
	PacketLengthBytes int32
}

func (e CloneSessionEntry) ToWire() *p4v1.PacketReplicationEngineEntry {
	return &p4v1.PacketReplicationEngineEntry{
		Type: &p4v1.PacketReplicationEngineEntry_CloneSessionEntry{
			CloneSessionEntry: &p4v1.CloneSessionEntry{
				CloneSessionId:    e.SessionID,
				Replicas:          replicasToWire(e.Replicas),
				PacketLengthBytes: e.PacketLengthBytes,
			},
		},
	}
}

func CloneSessionEntryFromWire(wire *p4v1.CloneSessionEntry) CloneSessionEntry {
	return CloneSessionEntry{
		SessionID:         wire.GetCloneSessionId(),
		Replicas:          replicasFromWire(wire.GetReplicas()),
		PacketLengthBytes: wire.GetPacketLengthBytes(),
	}
}

// PacketReplicationEntryFromWire demultiplexes the oneof into whichever
// concrete kind the target reported.
func PacketReplicationEntryFromWire(wire *p4v1.PacketReplicationEngineEntry) (any, error) {
	switch arm := wire.GetType().(type) {
	case *p4v1.PacketReplicationEngineEntry_MulticastGroupEntry:
		return MulticastGroupEntryFromWire(arm.MulticastGroupEntry), nil
	case *p4v1.PacketReplicationEngineEntry_CloneSessionEntry:
		return CloneSessionEntryFromWire(arm.CloneSessionEntry), nil
	default:
		return nil, &ConversionError{Entity: "packet_replication_engine_entry", Reason: "unknown wire oneof arm"}
	}
}
