package entity

import (
	"time"

	"github.com/finsy-project/finsy-go/internal/p4info"
	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
)

// DigestEntry configures one digest extern's batching behavior: how
// long (and how large) a pending list may grow before the target must
// flush it, and the ack timeout before redelivery (spec §4.3).
type DigestEntry struct {
	DigestName  string
	MaxTimeout  time.Duration
	MaxListSize int32
	AckTimeout  time.Duration
}

func (e DigestEntry) ToWire(schema *p4info.Schema) (*p4v1.DigestEntry, error) {
	d, err := schema.LookupDigest(e.DigestName)
	if err != nil {
		return nil, err
	}
	return &p4v1.DigestEntry{
		DigestId: d.GetPreamble().GetId(),
		Config: &p4v1.DigestEntryConfig{
			MaxTimeoutNs: e.MaxTimeout.Nanoseconds(),
			MaxListSize:  e.MaxListSize,
			AckTimeoutNs: e.AckTimeout.Nanoseconds(),
		},
	}, nil
}

func DigestEntryFromWire(schema *p4info.Schema, wire *p4v1.DigestEntry) (DigestEntry, error) {
	d, err := schema.Digest(wire.GetDigestId())
	if err != nil {
		return DigestEntry{}, err
	}
	cfg := wire.GetConfig()
	return DigestEntry{
		DigestName:  d.GetPreamble().GetName(),
		MaxTimeout:  time.Duration(cfg.GetMaxTimeoutNs()),
		MaxListSize: cfg.GetMaxListSize(),
		AckTimeout:  time.Duration(cfg.GetAckTimeoutNs()),
	}, nil
}

// DigestList is one batch of digest data values delivered on the
// stream, tagged with the list id the session must later acknowledge
// (spec §4.4(c), Open Question iii: default ack cadence is per-list).
type DigestList struct {
	DigestName string
	ListID     int64
	Data       [][]byte
	Timestamp  int64
}

func DigestListFromWire(schema *p4info.Schema, wire *p4v1.DigestList) (DigestList, error) {
	d, err := schema.Digest(wire.GetDigestId())
	if err != nil {
		return DigestList{}, err
	}
	var data [][]byte
	for _, v := range wire.GetData() {
		if bs, ok := v.GetData().(*p4v1.P4Data_Bitstring); ok {
			data = append(data, bs.Bitstring)
		}
	}
	return DigestList{
		DigestName: d.GetPreamble().GetName(),
		ListID:     wire.GetListId(),
		Data:       data,
		Timestamp:  wire.GetTimestamp(),
	}, nil
}

// DigestListAck is the per-list acknowledgement the session writes
// back onto the stream once a list has been consumed.
type DigestListAck struct {
	DigestName string
	ListID     int64
}

func (a DigestListAck) ToWire(schema *p4info.Schema) (*p4v1.DigestListAck, error) {
	d, err := schema.LookupDigest(a.DigestName)
	if err != nil {
		return nil, err
	}
	return &p4v1.DigestListAck{DigestId: d.GetPreamble().GetId(), ListId: a.ListID}, nil
}
