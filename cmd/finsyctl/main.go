// Command finsyctl is a small demonstration CLI for the finsy-go
// library: connect to a switch, install a pipeline, read/write table
// entries, and issue gNMI Get/Subscribe calls. It is explicitly out of
// core scope (spec §1); it exists to exercise the library end to end
// the way the teacher's cmd/wt wraps its internal packages for the
// wingthing daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/finsy-project/finsy-go/internal/flog"
)

var (
	configFlag string
	switchFlag string
	logLevel   string
)

func main() {
	root := &cobra.Command{
		Use:   "finsyctl",
		Short: "finsyctl — demonstration CLI for the finsy-go P4Runtime/gNMI control-plane library",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return flog.Init(logLevel, "")
		},
	}
	root.PersistentFlags().StringVar(&configFlag, "config", "finsy.yaml", "Controller config file (switch fleet)")
	root.PersistentFlags().StringVar(&switchFlag, "switch", "", "Switch name within --config to target")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	root.AddCommand(
		connectCmd(),
		pipelineCmd(),
		readCmd(),
		writeCmd(),
		gnmiCmd(),
		runCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "finsyctl:", err)
		os.Exit(1)
	}
}
