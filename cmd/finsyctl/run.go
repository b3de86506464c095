package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/finsy-project/finsy-go/internal/config"
	"github.com/finsy-project/finsy-go/internal/controller"
	"github.com/finsy-project/finsy-go/internal/flog"
	"github.com/finsy-project/finsy-go/internal/fswitch"
)

func runCmd() *cobra.Command {
	var shutdownTimeout time.Duration
	var watch bool
	c := &cobra.Command{
		Use:   "run",
		Short: "Run the controller supervisor over every switch in --config until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFlag)
			if err != nil {
				return err
			}
			ctl := controller.New()

			runCtx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if watch {
				updates, err := config.Watch(runCtx, configFlag)
				if err != nil {
					return err
				}
				go func() {
					for range updates {
						flog.Info("config changed on disk; restart finsyctl run to pick it up",
							"config", configFlag)
					}
				}()
			}

			runDone := make(chan error, 1)
			go func() { runDone <- ctl.Run(runCtx, buildSpecs(cfg)) }()

			<-cmd.Context().Done()
			fmt.Println("shutting down...")
			if err := ctl.Shutdown(shutdownTimeout); err != nil {
				return err
			}
			cancel()
			return <-runDone
		},
	}
	c.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "Deadline for graceful shutdown (spec §8, scenario 6)")
	c.Flags().BoolVar(&watch, "watch", false, "Watch --config's directory and log when it changes (hot-reload is opt-in per embedder)")
	return c
}

func buildSpecs(cfg *config.Config) []controller.SwitchSpec {
	specs := make([]controller.SwitchSpec, 0, len(cfg.Switches))
	for _, sw := range cfg.Switches {
		sw := sw
		specs = append(specs, controller.SwitchSpec{
			Name:        sw.Name,
			Target:      sw.Target,
			Credentials: sw.TLS.ToP4RT(),
			Session:     sw.ToSessionConfig(),
			Program:     demoProgram(sw),
		})
	}
	return specs
}

// demoProgram is a minimal switch program: it logs every event until
// the channel goes down, exercising the controller's channel_up/
// channel_down-bounded program lifetime (spec §4.5).
func demoProgram(sw config.SwitchConfig) controller.SwitchProgram {
	return func(ctx context.Context, handle *controller.Switch) error {
		flog.Info("switch program started", "switch", sw.Name)
		for {
			ev, err := handle.NextEvent(ctx)
			if err != nil {
				return nil
			}
			switch ev.Kind {
			case fswitch.EventChannelDown:
				return nil
			default:
				flog.Info("event", "switch", sw.Name, "kind", ev.Kind)
			}
		}
	}
}
