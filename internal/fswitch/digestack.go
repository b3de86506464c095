package fswitch

import (
	"context"
	"fmt"
	"time"

	"github.com/finsy-project/finsy-go/internal/entity"
	"github.com/finsy-project/finsy-go/internal/flog"

	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
)

// defaultDigestAckWindow is the flush interval used by DigestAckBatched
// when the caller supplies a non-positive window.
const defaultDigestAckWindow = 100 * time.Millisecond

// DigestAckMode selects how a session acknowledges consumed digest
// lists (spec §9, Open Question iii). The zero value is
// DigestAckPerList: every AckDigestList call writes immediately.
type DigestAckMode struct {
	batched bool
	window  time.Duration
}

// DigestAckPerList acknowledges every digest list as soon as the caller
// consumes it. This is the default cadence.
func DigestAckPerList() DigestAckMode {
	return DigestAckMode{}
}

// DigestAckBatched coalesces acks accumulated within window into
// periodic flushes instead of one stream write per list, trading ack
// latency for fewer writes under high digest volume. A non-positive
// window falls back to defaultDigestAckWindow.
func DigestAckBatched(window time.Duration) DigestAckMode {
	return DigestAckMode{batched: true, window: window}
}

// AckDigestList acknowledges one digest list so the target may reuse
// its list id. Under DigestAckPerList (the default) this writes to the
// stream immediately; under DigestAckBatched it is buffered until the
// next flush tick.
func (s *Session) AckDigestList(ack entity.DigestListAck) error {
	if s.cfg.DigestAck.batched {
		s.ackMu.Lock()
		s.pendingAcks = append(s.pendingAcks, ack)
		s.ackMu.Unlock()
		return nil
	}
	return s.sendAck(ack)
}

func (s *Session) sendAck(ack entity.DigestListAck) error {
	schema := s.Schema()
	if schema == nil {
		return fmt.Errorf("fswitch: no pipeline installed")
	}
	wire, err := ack.ToWire(schema)
	if err != nil {
		return err
	}
	return s.sendStream(&p4v1.StreamMessageRequest{Update: &p4v1.StreamMessageRequest_DigestAck{DigestAck: wire}})
}

// ackFlushLoop periodically flushes pendingAcks until ctx is done. It
// only runs when the session was configured with DigestAckBatched.
func (s *Session) ackFlushLoop(ctx context.Context) {
	window := s.cfg.DigestAck.window
	if window <= 0 {
		window = defaultDigestAckWindow
	}
	ticker := time.NewTicker(window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.flushPendingAcks()
			return
		case <-ticker.C:
			s.flushPendingAcks()
		}
	}
}

func (s *Session) flushPendingAcks() {
	s.ackMu.Lock()
	pending := s.pendingAcks
	s.pendingAcks = nil
	s.ackMu.Unlock()
	for _, ack := range pending {
		if err := s.sendAck(ack); err != nil {
			flog.Warn("failed to flush batched digest ack", "device_id", s.cfg.DeviceID,
				"digest", ack.DigestName, "list_id", ack.ListID, "err", err)
		}
	}
}
