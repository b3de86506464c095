package main

import (
	"context"
	"fmt"
	"time"

	"github.com/finsy-project/finsy-go/internal/config"
	"github.com/finsy-project/finsy-go/internal/flog"
	"github.com/finsy-project/finsy-go/internal/fswitch"
	"github.com/finsy-project/finsy-go/internal/p4rt"
)

// connectWaitTimeout bounds how long a CLI invocation waits for the
// initial arbitration to complete before giving up.
const connectWaitTimeout = 15 * time.Second

// loadSwitch resolves --switch against --config.
func loadSwitch() (config.SwitchConfig, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return config.SwitchConfig{}, err
	}
	if switchFlag == "" {
		if len(cfg.Switches) == 1 {
			return cfg.Switches[0], nil
		}
		return config.SwitchConfig{}, fmt.Errorf("multiple switches in %s: pass --switch", configFlag)
	}
	sw, ok := cfg.SwitchByName(switchFlag)
	if !ok {
		return config.SwitchConfig{}, fmt.Errorf("switch %q not found in %s", switchFlag, configFlag)
	}
	return sw, nil
}

// withSession dials sw, runs the session state machine in the
// background, waits for the first channel_up, invokes fn, then closes
// the session. It is the CLI's stand-in for a switch program, bounded
// to a single command instead of the long lifetime a real controller
// program has (spec §4.5).
func withSession(ctx context.Context, sw config.SwitchConfig, fn func(ctx context.Context, sess *fswitch.Session) error) error {
	client, err := p4rt.Dial(ctx, sw.Target, sw.TLS.ToP4RT())
	if err != nil {
		return fmt.Errorf("dial %s: %w", sw.Target, err)
	}
	defer client.Close()

	sess := fswitch.NewSession(client.Raw(), sw.ToSessionConfig())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- sess.Run(runCtx) }()

	waitCtx, waitCancel := context.WithTimeout(ctx, connectWaitTimeout)
	defer waitCancel()
	for {
		ev, err := sess.NextEvent(waitCtx)
		if err != nil {
			return fmt.Errorf("waiting for channel_up: %w", err)
		}
		if ev.Kind == fswitch.EventChannelUp {
			break
		}
		if ev.Kind == fswitch.EventChannelDown {
			flog.Warn("channel down while waiting to connect", "switch", sw.Name, "err", ev.Err)
		}
	}

	fnErr := fn(ctx, sess)

	cancel()
	<-runDone
	if fnErr != nil {
		return fnErr
	}
	return nil
}
