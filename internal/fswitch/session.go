package fswitch

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/finsy-project/finsy-go/internal/backoff"
	"github.com/finsy-project/finsy-go/internal/election"
	"github.com/finsy-project/finsy-go/internal/entity"
	"github.com/finsy-project/finsy-go/internal/evqueue"
	"github.com/finsy-project/finsy-go/internal/flog"
	"github.com/finsy-project/finsy-go/internal/p4info"
	"github.com/finsy-project/finsy-go/internal/p4rt"

	configv1 "github.com/p4lang/p4runtime/go/p4/config/v1"
	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
	"google.golang.org/grpc/codes"
)

// Config describes one switch's session parameters (spec §6,
// "Configuration").
type Config struct {
	DeviceID                uint64
	RoleName                string
	InitialElectionID       election.ID
	AutoIncrementElectionID bool
	Backoff                 backoff.Policy
	UnaryTimeout            time.Duration
	DigestAck               DigestAckMode
}

func (c Config) withDefaults() Config {
	if c.Backoff == (backoff.Policy{}) {
		c.Backoff = backoff.Default()
	}
	if c.UnaryTimeout == 0 {
		c.UnaryTimeout = p4rt.DefaultUnaryTimeout
	}
	return c
}

// Update is one entity mutation within a Write batch.
type Update struct {
	Type   p4v1.Update_Type
	Entity *p4v1.Entity
}

// ReadResult is one item of a Read stream: either an entity or a
// terminal error.
type ReadResult struct {
	Entity *p4v1.Entity
	Err    error
}

// Session is the state machine for a single switch's P4Runtime
// connection: arbitration, stream demux, and reconnect (spec §4.4).
type Session struct {
	client p4v1.P4RuntimeClient
	cfg    Config

	mu          sync.Mutex
	state       State
	role        Role
	electionID  election.ID
	stream      p4v1.P4Runtime_StreamChannelClient
	cancelFunc  context.CancelFunc
	streamMu    sync.Mutex

	schema atomic.Pointer[p4info.Schema]
	events *evqueue.Queue[Event]

	ackMu       sync.Mutex
	pendingAcks []entity.DigestListAck
}

// NewSession constructs a session bound to client, which may be the
// real p4rt client's Raw() stub or, in tests, a fake.
func NewSession(client p4v1.P4RuntimeClient, cfg Config) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		client:     client,
		cfg:        cfg,
		state:      StateInit,
		electionID: cfg.InitialElectionID,
		events:     evqueue.New[Event](),
	}
}

// State returns the session's current state machine node.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Role returns the session's current arbitration role.
func (s *Session) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// ElectionID returns the election id the session will use (or used) on
// its next (or current) arbitration update.
func (s *Session) ElectionID() election.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.electionID
}

// Schema returns the P4Info schema currently bound from a successful
// SetForwardingPipelineConfig or GetForwardingPipelineConfig/SetSchema
// call, or nil if no pipeline is known yet.
func (s *Session) Schema() *p4info.Schema { return s.schema.Load() }

// SetSchema binds a schema obtained out of band (e.g. from a prior
// GetForwardingPipelineConfig), enabling stream demux of packet-in,
// digest, and idle-timeout messages before any SetForwardingPipelineConfig
// call on this session.
func (s *Session) SetSchema(schema *p4info.Schema) { s.schema.Store(schema) }

// NextEvent blocks for the next channel_up/channel_down/packet_in/
// digest/idle_timeout event.
func (s *Session) NextEvent(ctx context.Context) (Event, error) {
	return s.events.Pop(ctx)
}

// Close requests the session close: it drives to CLOSING and
// eventually CLOSED, cancelling Run's stream. Write, Read and the
// pipeline and capabilities RPCs run under the caller's context and
// are not cancelled by Close.
func (s *Session) Close() {
	s.mu.Lock()
	cancel := s.cancelFunc
	s.mu.Unlock()
	s.setState(StateClosing)
	if cancel != nil {
		cancel()
	}
}

// Run drives the session's state machine until ctx is cancelled or a
// Fatal arbitration outcome is reached. It reconnects on every stream
// break with exponential backoff (spec §4.4(f)).
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelFunc = cancel
	s.mu.Unlock()
	defer cancel()

	if s.cfg.DigestAck.batched {
		go s.ackFlushLoop(ctx)
	}

	sched := backoff.New(s.cfg.Backoff)
	for {
		if ctx.Err() != nil {
			s.setState(StateClosed)
			return nil
		}
		s.setState(StateConnecting)
		err := s.connectAndArbitrate(ctx, sched)
		if err == nil {
			// ctx was cancelled cleanly mid-stream.
			s.setState(StateClosed)
			return nil
		}
		var fatal *FatalError
		if asFatal(err, &fatal) {
			flog.Error("session reached fatal arbitration outcome", "device_id", s.cfg.DeviceID, "reason", fatal.Reason)
			s.setState(StateClosed)
			return fatal
		}
		if ctx.Err() != nil {
			s.setState(StateClosed)
			return nil
		}
		s.publishChannelDown(err)
		s.setState(StateBackoff)
		delay := sched.Next()
		flog.Info("reconnecting", "device_id", s.cfg.DeviceID, "delay", delay, "cause", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			s.setState(StateClosed)
			return nil
		}
	}
}

func asFatal(err error, target **FatalError) bool {
	if f, ok := err.(*FatalError); ok {
		*target = f
		return true
	}
	return false
}

// connectAndArbitrate opens one stream, performs arbitration, and pumps
// stream messages until the stream breaks or ctx is cancelled. A nil
// return means ctx was cancelled; a *FatalError means the session must
// not reconnect; any other error means "reconnect."
func (s *Session) connectAndArbitrate(ctx context.Context, sched *backoff.Schedule) error {
	stream, err := s.client.StreamChannel(ctx)
	if err != nil {
		return &transportBrokenError{cause: err}
	}
	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.stream = nil
		s.mu.Unlock()
	}()

	s.setState(StateArbitrating)
	if err := s.sendArbitration(); err != nil {
		return &transportBrokenError{cause: err}
	}

	resp, err := stream.Recv()
	if err != nil {
		return &transportBrokenError{cause: err}
	}
	arb := resp.GetArbitration()
	if arb == nil {
		return &transportBrokenError{cause: fmt.Errorf("expected initial arbitration response, got %T", resp.GetUpdate())}
	}
	role, err := s.handleArbitrationResponse(arb)
	if err != nil {
		return err
	}
	s.setRole(role)
	s.setState(StateUp)
	sched.Reset()
	s.publishChannelUp()

	for {
		resp, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &transportBrokenError{cause: err}
		}
		if err := s.dispatch(resp); err != nil {
			return err
		}
	}
}

// sendArbitration serializes the initial (or re-)arbitration update
// onto the stream (spec §4.4(b): at most one in-flight arbitration
// update; the session never sends a second until the first is acked,
// which connectAndArbitrate enforces by blocking on stream.Recv() before
// going on).
func (s *Session) sendArbitration() error {
	id := s.ElectionID()
	var role *p4v1.Role
	if s.cfg.RoleName != "" {
		role = &p4v1.Role{Id: s.cfg.RoleName}
	}
	req := &p4v1.StreamMessageRequest{
		Update: &p4v1.StreamMessageRequest_Arbitration{
			Arbitration: &p4v1.MasterArbitrationUpdate{
				DeviceId:   s.cfg.DeviceID,
				ElectionId: &p4v1.Uint128{High: id.High, Low: id.Low},
				Role:       role,
			},
		},
	}
	return s.sendStream(req)
}

// handleArbitrationResponse classifies one arbitration response into a
// role outcome, per the transitions in spec §4.4(a).
func (s *Session) handleArbitrationResponse(arb *p4v1.MasterArbitrationUpdate) (Role, error) {
	st := arb.GetStatus()
	switch codes.Code(st.GetCode()) {
	case codes.OK:
		observed := election.ID{High: arb.GetElectionId().GetHigh(), Low: arb.GetElectionId().GetLow()}
		s.setElectionID(observed)
		return RolePrimary, nil
	case codes.AlreadyExists:
		observed := election.ID{High: arb.GetElectionId().GetHigh(), Low: arb.GetElectionId().GetLow()}
		if s.cfg.AutoIncrementElectionID {
			s.setElectionID(observed.Next())
		}
		return RoleBackup, nil
	case codes.NotFound:
		return RoleUnknown, &FatalError{Reason: "device id unknown to target"}
	default:
		return RoleUnknown, &transportBrokenError{cause: fmt.Errorf("unexpected arbitration status: %s: %s", codes.Code(st.GetCode()), st.GetMessage())}
	}
}

// dispatch demultiplexes one stream message by oneof tag (spec §4.4(c)).
func (s *Session) dispatch(resp *p4v1.StreamMessageResponse) error {
	switch u := resp.GetUpdate().(type) {
	case *p4v1.StreamMessageResponse_Arbitration:
		role, err := s.handleArbitrationResponse(u.Arbitration)
		if err != nil {
			return err
		}
		prev := s.Role()
		s.setRole(role)
		if prev != role {
			flog.Info("role changed", "device_id", s.cfg.DeviceID, "from", prev, "to", role)
		}
		return nil
	case *p4v1.StreamMessageResponse_Packet:
		s.dispatchPacketIn(u.Packet)
		return nil
	case *p4v1.StreamMessageResponse_Digest:
		s.dispatchDigest(u.Digest)
		return nil
	case *p4v1.StreamMessageResponse_IdleTimeoutNotification:
		s.dispatchIdleTimeout(u.IdleTimeoutNotification)
		return nil
	case *p4v1.StreamMessageResponse_Error:
		flog.Error("stream error report", "device_id", s.cfg.DeviceID, "canonical_code", u.Error.GetCanonicalCode(), "message", u.Error.GetMessage())
		return nil
	default:
		flog.Warn("unknown stream message type", "device_id", s.cfg.DeviceID, "type", fmt.Sprintf("%T", u))
		return nil
	}
}

func (s *Session) dispatchPacketIn(wire *p4v1.PacketIn) {
	schema := s.Schema()
	if schema == nil {
		flog.Warn("packet_in received before pipeline install, dropping", "device_id", s.cfg.DeviceID)
		return
	}
	pkt, err := entity.PacketInFromWire(schema, wire)
	if err != nil {
		flog.Warn("malformed packet_in", "device_id", s.cfg.DeviceID, "err", err)
		return
	}
	s.events.Push(Event{Kind: EventPacketIn, PacketIn: &pkt})
}

func (s *Session) dispatchDigest(wire *p4v1.DigestList) {
	schema := s.Schema()
	if schema == nil {
		flog.Warn("digest received before pipeline install, dropping", "device_id", s.cfg.DeviceID)
		return
	}
	list, err := entity.DigestListFromWire(schema, wire)
	if err != nil {
		flog.Warn("malformed digest list", "device_id", s.cfg.DeviceID, "err", err)
		return
	}
	s.events.Push(Event{Kind: EventDigest, Digest: &list})
}

func (s *Session) dispatchIdleTimeout(wire *p4v1.IdleTimeoutNotification) {
	schema := s.Schema()
	if schema == nil {
		flog.Warn("idle timeout notification received before pipeline install, dropping", "device_id", s.cfg.DeviceID)
		return
	}
	notif, err := entity.IdleTimeoutNotificationFromWire(schema, wire)
	if err != nil {
		flog.Warn("malformed idle timeout notification", "device_id", s.cfg.DeviceID, "err", err)
		return
	}
	s.events.Push(Event{Kind: EventIdleTimeout, IdleTimeout: &notif})
}

func (s *Session) publishChannelUp() {
	s.events.Push(Event{Kind: EventChannelUp})
}

func (s *Session) publishChannelDown(err error) {
	s.events.Push(Event{Kind: EventChannelDown, Err: err})
}

func (s *Session) sendStream(req *p4v1.StreamMessageRequest) error {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream == nil {
		return fmt.Errorf("fswitch: session has no active stream")
	}
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	return stream.Send(req)
}

// SendPacketOut writes a controller-originated packet onto the stream.
func (s *Session) SendPacketOut(out entity.PacketOut) error {
	schema := s.Schema()
	if schema == nil {
		return fmt.Errorf("fswitch: no pipeline installed")
	}
	wire, err := out.ToWire(schema)
	if err != nil {
		return err
	}
	return s.sendStream(&p4v1.StreamMessageRequest{Update: &p4v1.StreamMessageRequest_Packet{Packet: wire}})
}

// Write submits a batch of updates. It fails fast with NotPrimaryError
// without issuing any RPC if the session's role is not PRIMARY (spec
// §4.4(d), §7).
func (s *Session) Write(ctx context.Context, updates []Update, atomicity p4v1.WriteRequest_Atomicity) error {
	if role := s.Role(); role != RolePrimary {
		return &NotPrimaryError{Role: role}
	}
	wireUpdates := make([]*p4v1.Update, len(updates))
	for i, u := range updates {
		wireUpdates[i] = &p4v1.Update{Type: u.Type, Entity: u.Entity}
	}
	id := s.ElectionID()
	req := &p4v1.WriteRequest{
		DeviceId:   s.cfg.DeviceID,
		ElectionId: &p4v1.Uint128{High: id.High, Low: id.Low},
		Updates:    wireUpdates,
		Atomicity:  atomicity,
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.UnaryTimeout)
	defer cancel()
	if _, err := s.client.Write(ctx, req); err != nil {
		return p4rt.ParseWriteError(err)
	}
	return nil
}

// Read issues a server-streaming Read and returns a channel of
// entities as fragments arrive, concatenated into one lazy sequence
// (spec §4.4(e)). Cancelling ctx cancels the underlying RPC.
func (s *Session) Read(ctx context.Context, entities []*p4v1.Entity) (<-chan ReadResult, error) {
	req := &p4v1.ReadRequest{DeviceId: s.cfg.DeviceID, Entities: entities}
	stream, err := s.client.Read(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make(chan ReadResult)
	go func() {
		defer close(out)
		for {
			resp, err := stream.Recv()
			if err == io.EOF {
				return
			}
			if err != nil {
				select {
				case out <- ReadResult{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			for _, e := range resp.GetEntities() {
				select {
				case out <- ReadResult{Entity: e}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// SetForwardingPipelineConfig installs a new pipeline and binds the
// session's schema on success.
func (s *Session) SetForwardingPipelineConfig(ctx context.Context, p4i *configv1.P4Info, deviceConfig []byte, cookie uint64, action p4v1.SetForwardingPipelineConfigRequest_Action) (*p4info.Schema, error) {
	schema, err := p4info.Build(p4i)
	if err != nil {
		return nil, err
	}
	id := s.ElectionID()
	req := &p4v1.SetForwardingPipelineConfigRequest{
		DeviceId:   s.cfg.DeviceID,
		ElectionId: &p4v1.Uint128{High: id.High, Low: id.Low},
		Action:     action,
		Config: &p4v1.ForwardingPipelineConfig{
			P4Info:         p4i,
			P4DeviceConfig: deviceConfig,
			Cookie:         &p4v1.ForwardingPipelineConfig_Cookie{Cookie: cookie},
		},
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.UnaryTimeout)
	defer cancel()
	if _, err := s.client.SetForwardingPipelineConfig(ctx, req); err != nil {
		return nil, err
	}
	s.schema.Store(schema)
	return schema, nil
}

// GetForwardingPipelineConfig fetches the target's currently installed
// P4Info without changing the session's bound schema.
func (s *Session) GetForwardingPipelineConfig(ctx context.Context) (*configv1.P4Info, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.UnaryTimeout)
	defer cancel()
	resp, err := s.client.GetForwardingPipelineConfig(ctx, &p4v1.GetForwardingPipelineConfigRequest{
		DeviceId:     s.cfg.DeviceID,
		ResponseType: p4v1.GetForwardingPipelineConfigRequest_ALL,
	})
	if err != nil {
		return nil, err
	}
	return resp.GetConfig().GetP4Info(), nil
}

// Capabilities reports the target's supported P4Runtime API version.
func (s *Session) Capabilities(ctx context.Context) (*p4v1.CapabilitiesResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.UnaryTimeout)
	defer cancel()
	return s.client.Capabilities(ctx, &p4v1.CapabilitiesRequest{})
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) setRole(r Role) {
	s.mu.Lock()
	s.role = r
	s.mu.Unlock()
}

func (s *Session) setElectionID(id election.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if election.Less(id, s.electionID) {
		flog.Warn("ignoring non-monotonic election id", "device_id", s.cfg.DeviceID, "current", s.electionID, "observed", id)
		return
	}
	s.electionID = id
}
