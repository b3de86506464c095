// Package controller supervises a fleet of switch sessions: concurrent
// lifecycle of N switches, fan-out of channel_up/channel_down events to
// a user-supplied per-switch program, and orderly shutdown with
// partial-failure semantics (spec §4.5).
package controller

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/finsy-project/finsy-go/internal/flog"
	"github.com/finsy-project/finsy-go/internal/fswitch"
	"github.com/finsy-project/finsy-go/internal/p4rt"

	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
	"golang.org/x/sync/errgroup"
)

// Dialer opens the gRPC client for one switch. A Controller built by New
// uses a default dialer backed by p4rt.Dial; tests inject a fake through
// NewWithDialer.
type Dialer func(ctx context.Context, spec SwitchSpec) (p4v1.P4RuntimeClient, io.Closer, error)

func defaultDialer(ctx context.Context, spec SwitchSpec) (p4v1.P4RuntimeClient, io.Closer, error) {
	client, err := p4rt.Dial(ctx, spec.Target, spec.Credentials)
	if err != nil {
		return nil, nil, err
	}
	return client.Raw(), client, nil
}

// SwitchProgram is invoked once per channel_up event with a handle on
// the switch. Its lifetime is bounded by the channel: the controller
// cancels ctx on channel_down and does not restart the program until
// the next channel_up (spec §7, "User-program exceptions").
type SwitchProgram func(ctx context.Context, sw *Switch) error

// SwitchSpec describes one switch to supervise: how to dial it and
// which program to run against it.
type SwitchSpec struct {
	Name        string
	Target      string
	Credentials p4rt.Credentials
	Session     fswitch.Config
	Program     SwitchProgram
}

// Switch is a named handle on a supervised session, exposing the full
// session API to a switch program via embedding.
type Switch struct {
	Name string
	*fswitch.Session
}

// Controller holds a set of switches keyed by name (spec §4.5).
type Controller struct {
	mu       sync.Mutex
	switches map[string]*Switch
	cancel   context.CancelFunc
	done     chan struct{}
	dial     Dialer
}

// New constructs an empty controller using the default gRPC dialer.
func New() *Controller {
	return &Controller{switches: make(map[string]*Switch), dial: defaultDialer}
}

// NewWithDialer constructs a controller using a caller-supplied dialer,
// letting tests substitute a fake P4Runtime client for the gRPC stub.
func NewWithDialer(dial Dialer) *Controller {
	return &Controller{switches: make(map[string]*Switch), dial: dial}
}

// Switch returns the named switch's handle, if Run has started it.
func (c *Controller) Switch(name string) (*Switch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sw, ok := c.switches[name]
	return sw, ok
}

// Run spawns one independent task per switch and blocks until every
// task terminates (ctx cancellation, or Shutdown). A single switch
// reaching a fatal state reports the error via flog and the remaining
// switches continue unaffected (spec §4.5, §7).
func (c *Controller) Run(ctx context.Context, specs []SwitchSpec) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()
	defer close(done)
	defer cancel()

	g, _ := errgroup.WithContext(ctx)
	for _, spec := range specs {
		spec := spec
		sw := &Switch{Name: spec.Name}
		c.mu.Lock()
		c.switches[spec.Name] = sw
		c.mu.Unlock()
		g.Go(func() error {
			c.runSwitch(ctx, spec, sw)
			return nil
		})
	}
	return g.Wait()
}

// Shutdown cancels every supervised session and waits up to deadline
// for Run to return (spec §8, end-to-end scenario 6: graceful
// shutdown). It is a no-op if Run has not been called.
func (c *Controller) Shutdown(deadline time.Duration) error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-time.After(deadline):
		return fmt.Errorf("controller: shutdown deadline exceeded")
	}
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func (c *Controller) runSwitch(ctx context.Context, spec SwitchSpec, sw *Switch) {
	client, closer, err := c.dial(ctx, spec)
	if err != nil {
		flog.Error("switch dial failed", "switch", spec.Name, "target", spec.Target, "err", err)
		return
	}
	defer closer.Close()

	sess := fswitch.NewSession(client, spec.Session)
	sw.Session = sess

	evCtx, evCancel := context.WithCancel(ctx)
	defer evCancel()

	var progMu sync.Mutex
	progCancel := context.CancelFunc(func() {})
	progDone := closedChan

	stopProgram := func() {
		progMu.Lock()
		cancel, done := progCancel, progDone
		progMu.Unlock()
		cancel()
		<-done
	}
	startProgram := func() {
		if spec.Program == nil {
			return
		}
		pctx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		progMu.Lock()
		progCancel, progDone = cancel, done
		progMu.Unlock()
		go func() {
			defer close(done)
			runProgramSafely(pctx, spec, sw)
		}()
	}

	eventsDone := make(chan struct{})
	go func() {
		defer close(eventsDone)
		for {
			ev, err := sess.NextEvent(evCtx)
			if err != nil {
				return
			}
			switch ev.Kind {
			case fswitch.EventChannelUp:
				stopProgram()
				startProgram()
			case fswitch.EventChannelDown:
				stopProgram()
			}
		}
	}()

	runErr := sess.Run(ctx)
	evCancel()
	<-eventsDone
	stopProgram()

	if runErr != nil {
		flog.Error("switch session ended", "switch", spec.Name, "err", runErr)
	}
}

func runProgramSafely(ctx context.Context, spec SwitchSpec, sw *Switch) {
	defer func() {
		if r := recover(); r != nil {
			flog.Error("switch program panicked", "switch", spec.Name, "panic", r)
		}
	}()
	if err := spec.Program(ctx, sw); err != nil && ctx.Err() == nil {
		flog.Error("switch program returned error", "switch", spec.Name, "err", err)
	}
}
