package fswitch

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/finsy-project/finsy-go/internal/backoff"
	"github.com/finsy-project/finsy-go/internal/election"
	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
	"google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
)

type fakeStream struct {
	grpc.ClientStream
	ctx    context.Context
	recv   chan *p4v1.StreamMessageResponse
	sent   chan *p4v1.StreamMessageRequest
	closed chan struct{}
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		recv:   make(chan *p4v1.StreamMessageResponse, 8),
		sent:   make(chan *p4v1.StreamMessageRequest, 8),
		closed: make(chan struct{}),
	}
}

func (f *fakeStream) Send(req *p4v1.StreamMessageRequest) error {
	select {
	case f.sent <- req:
		return nil
	case <-f.closed:
		return io.EOF
	case <-f.ctx.Done():
		return f.ctx.Err()
	}
}

func (f *fakeStream) Recv() (*p4v1.StreamMessageResponse, error) {
	select {
	case resp, ok := <-f.recv:
		if !ok {
			return nil, io.EOF
		}
		return resp, nil
	case <-f.closed:
		return nil, io.EOF
	case <-f.ctx.Done():
		return nil, f.ctx.Err()
	}
}

func (f *fakeStream) breakStream() { close(f.closed) }

type fakeClient struct {
	p4v1.P4RuntimeClient
	streamFn  func(ctx context.Context) (p4v1.P4Runtime_StreamChannelClient, error)
	writeFn   func(ctx context.Context, req *p4v1.WriteRequest) (*p4v1.WriteResponse, error)
	writeCalls int32
}

func (f *fakeClient) StreamChannel(ctx context.Context, opts ...grpc.CallOption) (p4v1.P4Runtime_StreamChannelClient, error) {
	return f.streamFn(ctx)
}

func (f *fakeClient) Write(ctx context.Context, req *p4v1.WriteRequest, opts ...grpc.CallOption) (*p4v1.WriteResponse, error) {
	atomic.AddInt32(&f.writeCalls, 1)
	return f.writeFn(ctx, req)
}

func arbitrationOK(electionID election.ID) *p4v1.StreamMessageResponse {
	return &p4v1.StreamMessageResponse{
		Update: &p4v1.StreamMessageResponse_Arbitration{
			Arbitration: &p4v1.MasterArbitrationUpdate{
				ElectionId: &p4v1.Uint128{High: electionID.High, Low: electionID.Low},
				Status:     &status.Status{Code: int32(codes.OK)},
			},
		},
	}
}

func arbitrationAlreadyExists(observed election.ID) *p4v1.StreamMessageResponse {
	return &p4v1.StreamMessageResponse{
		Update: &p4v1.StreamMessageResponse_Arbitration{
			Arbitration: &p4v1.MasterArbitrationUpdate{
				ElectionId: &p4v1.Uint128{High: observed.High, Low: observed.Low},
				Status:     &status.Status{Code: int32(codes.AlreadyExists)},
			},
		},
	}
}

func arbitrationNotFound() *p4v1.StreamMessageResponse {
	return &p4v1.StreamMessageResponse{
		Update: &p4v1.StreamMessageResponse_Arbitration{
			Arbitration: &p4v1.MasterArbitrationUpdate{
				Status: &status.Status{Code: int32(codes.NotFound)},
			},
		},
	}
}

func testConfig() Config {
	return Config{
		DeviceID:          1,
		InitialElectionID: election.New(5),
		Backoff:           backoff.Policy{Base: time.Millisecond, Factor: 2, Cap: 10 * time.Millisecond, Rand: rand.New(rand.NewSource(1))},
	}
}

func waitEvent(t *testing.T, s *Session, kind EventKind) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		ev, err := s.NextEvent(ctx)
		if err != nil {
			t.Fatalf("waiting for event %s: %v", kind, err)
		}
		if ev.Kind == kind {
			return ev
		}
	}
}

func TestArbitrationWinBecomesPrimary(t *testing.T) {
	stream := newFakeStream()
	stream.recv <- arbitrationOK(election.New(5))
	client := &fakeClient{streamFn: func(ctx context.Context) (p4v1.P4Runtime_StreamChannelClient, error) {
		stream.ctx = ctx
		return stream, nil
	}}
	s := NewSession(client, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	waitEvent(t, s, EventChannelUp)
	if s.Role() != RolePrimary {
		t.Fatalf("role = %s, want PRIMARY", s.Role())
	}
	if s.State() != StateUp {
		t.Fatalf("state = %s, want UP", s.State())
	}

	s.Close()
	select {
	case <-runErr:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	if s.State() != StateClosed {
		t.Fatalf("state = %s, want CLOSED", s.State())
	}
}

func TestArbitrationLossBackupFailsWriteFast(t *testing.T) {
	stream := newFakeStream()
	stream.recv <- arbitrationAlreadyExists(election.New(7))
	client := &fakeClient{
		streamFn: func(ctx context.Context) (p4v1.P4Runtime_StreamChannelClient, error) { stream.ctx = ctx; return stream, nil },
		writeFn: func(ctx context.Context, req *p4v1.WriteRequest) (*p4v1.WriteResponse, error) {
			return &p4v1.WriteResponse{}, nil
		},
	}
	s := NewSession(client, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	waitEvent(t, s, EventChannelUp)
	if s.Role() != RoleBackup {
		t.Fatalf("role = %s, want BACKUP", s.Role())
	}

	err := s.Write(context.Background(), nil, p4v1.WriteRequest_CONTINUE_ON_ERROR)
	if err == nil {
		t.Fatal("expected NotPrimaryError")
	}
	if _, ok := err.(*NotPrimaryError); !ok {
		t.Fatalf("wrong error type: %T", err)
	}
	if atomic.LoadInt32(&client.writeCalls) != 0 {
		t.Fatal("Write RPC should never be issued when not primary")
	}
	s.Close()
}

func TestMastershipLossFlipsRoleOnUnsolicitedUpdate(t *testing.T) {
	stream := newFakeStream()
	stream.recv <- arbitrationOK(election.New(10))
	client := &fakeClient{streamFn: func(ctx context.Context) (p4v1.P4Runtime_StreamChannelClient, error) { stream.ctx = ctx; return stream, nil }}
	s := NewSession(client, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	waitEvent(t, s, EventChannelUp)
	if s.Role() != RolePrimary {
		t.Fatal("expected PRIMARY after initial arbitration")
	}

	stream.recv <- arbitrationAlreadyExists(election.New(12))
	deadline := time.After(2 * time.Second)
	for s.Role() != RoleBackup {
		select {
		case <-deadline:
			t.Fatal("role never flipped to BACKUP after unsolicited arbitration update")
		case <-time.After(time.Millisecond):
		}
	}
	s.Close()
}

func TestReconnectOnStreamBreak(t *testing.T) {
	first := newFakeStream()
	first.recv <- arbitrationOK(election.New(5))

	second := newFakeStream()
	second.recv <- arbitrationOK(election.New(5))

	var attempt int32
	client := &fakeClient{streamFn: func(ctx context.Context) (p4v1.P4Runtime_StreamChannelClient, error) {
		if atomic.AddInt32(&attempt, 1) == 1 {
			first.ctx = ctx
			return first, nil
		}
		second.ctx = ctx
		return second, nil
	}}
	s := NewSession(client, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	waitEvent(t, s, EventChannelUp)
	first.breakStream()

	ev := waitEvent(t, s, EventChannelDown)
	if ev.Err == nil {
		t.Fatal("expected channel_down event to carry the break cause")
	}

	waitEvent(t, s, EventChannelUp)
	if atomic.LoadInt32(&attempt) < 2 {
		t.Fatal("expected a second StreamChannel dial after the break")
	}
	s.Close()
}

func TestFatalArbitrationClosesSession(t *testing.T) {
	stream := newFakeStream()
	stream.recv <- arbitrationNotFound()
	client := &fakeClient{streamFn: func(ctx context.Context) (p4v1.P4Runtime_StreamChannelClient, error) { stream.ctx = ctx; return stream, nil }}
	s := NewSession(client, testConfig())

	err := s.Run(context.Background())
	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected *FatalError, got %T: %v", err, err)
	}
	if s.State() != StateClosed {
		t.Fatalf("state = %s, want CLOSED", s.State())
	}
}
