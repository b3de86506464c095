package controller

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/finsy-project/finsy-go/internal/backoff"
	"github.com/finsy-project/finsy-go/internal/fswitch"
	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
	"google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
)

type fakeStream struct {
	grpc.ClientStream
	ctx  context.Context
	recv chan *p4v1.StreamMessageResponse
}

func (f *fakeStream) Send(*p4v1.StreamMessageRequest) error { return nil }

func (f *fakeStream) Recv() (*p4v1.StreamMessageResponse, error) {
	select {
	case resp, ok := <-f.recv:
		if !ok {
			return nil, io.EOF
		}
		return resp, nil
	case <-f.ctx.Done():
		return nil, f.ctx.Err()
	}
}

type fakeClient struct {
	p4v1.P4RuntimeClient
	stream *fakeStream
}

func (f *fakeClient) StreamChannel(ctx context.Context, opts ...grpc.CallOption) (p4v1.P4Runtime_StreamChannelClient, error) {
	f.stream.ctx = ctx
	return f.stream, nil
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

func arbitrationOK() *p4v1.StreamMessageResponse {
	return &p4v1.StreamMessageResponse{
		Update: &p4v1.StreamMessageResponse_Arbitration{
			Arbitration: &p4v1.MasterArbitrationUpdate{
				ElectionId: &p4v1.Uint128{Low: 1},
				Status:     &status.Status{Code: int32(codes.OK)},
			},
		},
	}
}

func fastBackoff() backoff.Policy {
	return backoff.Policy{Base: time.Millisecond, Factor: 2, Cap: 5 * time.Millisecond}
}

func TestRunStartsProgramOnChannelUp(t *testing.T) {
	stream := &fakeStream{recv: make(chan *p4v1.StreamMessageResponse, 4)}
	stream.recv <- arbitrationOK()
	client := &fakeClient{stream: stream}

	started := make(chan struct{})
	program := func(ctx context.Context, sw *Switch) error {
		close(started)
		<-ctx.Done()
		return nil
	}

	c := NewWithDialer(func(ctx context.Context, spec SwitchSpec) (p4v1.P4RuntimeClient, io.Closer, error) {
		return client, noopCloser{}, nil
	})

	specs := []SwitchSpec{{
		Name:    "leaf1",
		Session: fswitch.Config{DeviceID: 1, Backoff: fastBackoff()},
		Program: program,
	}}

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- c.Run(ctx, specs) }()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("switch program never started")
	}

	sw, ok := c.Switch("leaf1")
	if !ok || sw.Session == nil {
		t.Fatal("expected switch to be registered with a bound session")
	}

	cancel()
	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestShutdownWaitsForAllSwitchesWithinDeadline(t *testing.T) {
	const n = 3
	var started int32
	c := NewWithDialer(func(ctx context.Context, spec SwitchSpec) (p4v1.P4RuntimeClient, io.Closer, error) {
		stream := &fakeStream{recv: make(chan *p4v1.StreamMessageResponse, 1)}
		stream.recv <- arbitrationOK()
		return &fakeClient{stream: stream}, noopCloser{}, nil
	})

	var specs []SwitchSpec
	for i := 0; i < n; i++ {
		specs = append(specs, SwitchSpec{
			Name:    "sw" + string(rune('0'+i)),
			Session: fswitch.Config{DeviceID: uint64(i + 1), Backoff: fastBackoff()},
			Program: func(ctx context.Context, sw *Switch) error {
				atomic.AddInt32(&started, 1)
				<-ctx.Done()
				return nil
			},
		})
	}

	ctx := context.Background()
	runDone := make(chan error, 1)
	go func() { runDone <- c.Run(ctx, specs) }()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&started) < n {
		select {
		case <-deadline:
			t.Fatal("not all switch programs started")
		case <-time.After(time.Millisecond):
		}
	}

	if err := c.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}

func TestRunSwallowsPerSwitchFatalError(t *testing.T) {
	fatalStream := &fakeStream{recv: make(chan *p4v1.StreamMessageResponse, 1)}
	fatalStream.recv <- &p4v1.StreamMessageResponse{
		Update: &p4v1.StreamMessageResponse_Arbitration{
			Arbitration: &p4v1.MasterArbitrationUpdate{
				Status: &status.Status{Code: int32(codes.NotFound)},
			},
		},
	}
	okStream := &fakeStream{recv: make(chan *p4v1.StreamMessageResponse, 1)}
	okStream.recv <- arbitrationOK()

	c := NewWithDialer(func(ctx context.Context, spec SwitchSpec) (p4v1.P4RuntimeClient, io.Closer, error) {
		if spec.Name == "bad" {
			return &fakeClient{stream: fatalStream}, noopCloser{}, nil
		}
		return &fakeClient{stream: okStream}, noopCloser{}, nil
	})

	goodUp := make(chan struct{})
	specs := []SwitchSpec{
		{Name: "bad", Session: fswitch.Config{DeviceID: 1, Backoff: fastBackoff()}},
		{Name: "good", Session: fswitch.Config{DeviceID: 2, Backoff: fastBackoff()}, Program: func(ctx context.Context, sw *Switch) error {
			close(goodUp)
			<-ctx.Done()
			return nil
		}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- c.Run(ctx, specs) }()

	select {
	case <-goodUp:
	case <-time.After(2 * time.Second):
		t.Fatal("the surviving switch's program never started despite the other's fatal error")
	}

	cancel()
	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("Run should swallow a single switch's fatal error, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
