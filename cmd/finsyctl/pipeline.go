package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/prototext"

	configv1 "github.com/p4lang/p4runtime/go/p4/config/v1"
	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"

	"github.com/finsy-project/finsy-go/internal/config"
	"github.com/finsy-project/finsy-go/internal/fswitch"
)

func pipelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Inspect or install a switch's forwarding-pipeline config",
	}
	cmd.AddCommand(pipelineInstallCmd())
	cmd.AddCommand(pipelineGetCmd())
	return cmd
}

func pipelineInstallCmd() *cobra.Command {
	var p4infoFile, deviceConfigFile, mode string
	var cookie uint64
	c := &cobra.Command{
		Use:   "install",
		Short: "Install a pipeline (VERIFY, VERIFY_AND_SAVE, or VERIFY_AND_COMMIT; spec §3)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := loadSwitch()
			if err != nil {
				return err
			}
			p4i, deviceConfig, err := readPipelineFiles(p4infoFile, deviceConfigFile, sw)
			if err != nil {
				return err
			}
			action, err := parsePipelineAction(mode)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), sw, func(ctx context.Context, sess *fswitch.Session) error {
				schema, err := sess.SetForwardingPipelineConfig(ctx, p4i, deviceConfig, cookie, action)
				if err != nil {
					return fmt.Errorf("install pipeline: %w", err)
				}
				fmt.Printf("pipeline installed: %d table(s), %d action(s)\n",
					len(schema.P4Info().GetTables()), len(schema.P4Info().GetActions()))
				return nil
			})
		},
	}
	c.Flags().StringVar(&p4infoFile, "p4info", "", "P4Info text-proto file (defaults to the config's pipeline.p4info_file)")
	c.Flags().StringVar(&deviceConfigFile, "device-config", "", "Binary device config file (defaults to the config's pipeline.device_config_file)")
	c.Flags().Uint64Var(&cookie, "cookie", 0, "Pipeline cookie")
	c.Flags().StringVar(&mode, "mode", "commit", "verify | save | commit")
	return c
}

func pipelineGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Fetch the target's currently installed P4Info",
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := loadSwitch()
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), sw, func(ctx context.Context, sess *fswitch.Session) error {
				p4i, err := sess.GetForwardingPipelineConfig(ctx)
				if err != nil {
					return err
				}
				if p4i == nil {
					fmt.Println("no pipeline installed")
					return nil
				}
				fmt.Printf("%d table(s), %d action(s), pkg_info=%s\n",
					len(p4i.GetTables()), len(p4i.GetActions()), p4i.GetPkgInfo().GetName())
				return nil
			})
		},
	}
}

func readPipelineFiles(p4infoFile, deviceConfigFile string, sw config.SwitchConfig) (*configv1.P4Info, []byte, error) {
	if sw.Pipeline != nil {
		if p4infoFile == "" {
			p4infoFile = sw.Pipeline.P4InfoFile
		}
		if deviceConfigFile == "" {
			deviceConfigFile = sw.Pipeline.DeviceConfig
		}
	}
	if p4infoFile == "" {
		return nil, nil, fmt.Errorf("no p4info file given (use --p4info or configure pipeline.p4info_file)")
	}
	text, err := os.ReadFile(p4infoFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read p4info: %w", err)
	}
	p4i := &configv1.P4Info{}
	if err := prototext.Unmarshal(text, p4i); err != nil {
		return nil, nil, fmt.Errorf("parse p4info: %w", err)
	}
	var deviceConfig []byte
	if deviceConfigFile != "" {
		deviceConfig, err = os.ReadFile(deviceConfigFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read device config: %w", err)
		}
	}
	return p4i, deviceConfig, nil
}

func parsePipelineAction(mode string) (p4v1.SetForwardingPipelineConfigRequest_Action, error) {
	switch mode {
	case "verify":
		return p4v1.SetForwardingPipelineConfigRequest_VERIFY, nil
	case "save":
		return p4v1.SetForwardingPipelineConfigRequest_VERIFY_AND_SAVE, nil
	case "commit":
		return p4v1.SetForwardingPipelineConfigRequest_VERIFY_AND_COMMIT, nil
	default:
		return 0, fmt.Errorf("unknown pipeline mode %q: want verify, save, or commit", mode)
	}
}
