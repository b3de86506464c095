package fswitch

import "github.com/finsy-project/finsy-go/internal/entity"

// EventKind tags which field of Event is populated.
type EventKind int

const (
	EventChannelUp EventKind = iota
	EventChannelDown
	EventPacketIn
	EventDigest
	EventIdleTimeout
)

func (k EventKind) String() string {
	switch k {
	case EventChannelUp:
		return "channel_up"
	case EventChannelDown:
		return "channel_down"
	case EventPacketIn:
		return "packet_in"
	case EventDigest:
		return "digest"
	case EventIdleTimeout:
		return "idle_timeout"
	default:
		return "unknown"
	}
}

// Event is a single item from a session's event stream (spec §9,
// "Event emitter").
type Event struct {
	Kind EventKind

	// Err is set on EventChannelDown: the cause of the break. A
	// user-requested close publishes no EventChannelDown.
	Err error

	PacketIn    *entity.PacketIn
	Digest      *entity.DigestList
	IdleTimeout *entity.IdleTimeoutNotification
}
