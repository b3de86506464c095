package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"

	"github.com/finsy-project/finsy-go/internal/gnmi"
)

func gnmiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gnmi",
		Short: "gNMI Get/Subscribe against a switch's management interface (spec §4.6)",
	}
	cmd.AddCommand(gnmiGetCmd())
	cmd.AddCommand(gnmiSubscribeCmd())
	return cmd
}

func gnmiTarget(cmd *cobra.Command) (string, gnmi.Credentials, error) {
	sw, err := loadSwitch()
	if err != nil {
		return "", gnmi.Credentials{}, err
	}
	target, _ := cmd.Flags().GetString("target")
	if target == "" {
		target = sw.Target
	}
	return target, sw.TLS.ToGNMI(), nil
}

func gnmiGetCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "get [path]",
		Short: "One-shot Get of a gNMI path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, creds, err := gnmiTarget(cmd)
			if err != nil {
				return err
			}
			path, err := gnmi.ParsePath(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			client, err := gnmi.Dial(ctx, target, creds)
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.Get(ctx, nil, []*gnmipb.Path{path})
			if err != nil {
				return err
			}
			var totalBytes int
			for _, notif := range resp.GetNotification() {
				for _, upd := range notif.GetUpdate() {
					val := upd.GetVal()
					b := typedValueBytes(val)
					totalBytes += len(b)
					fmt.Printf("%s = %s\n", gnmi.PathToString(upd.GetPath()), formatTypedValue(val))
				}
			}
			fmt.Printf("(%s received)\n", humanize.Bytes(uint64(totalBytes)))
			return nil
		},
	}
	c.Flags().String("target", "", "Override the switch's configured target for this call")
	return c
}

func gnmiSubscribeCmd() *cobra.Command {
	var sampleInterval time.Duration
	var mode string
	c := &cobra.Command{
		Use:   "subscribe [path]",
		Short: "Subscribe (ONCE/POLL/STREAM) to a gNMI path until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, creds, err := gnmiTarget(cmd)
			if err != nil {
				return err
			}
			path, err := gnmi.ParsePath(args[0])
			if err != nil {
				return err
			}
			subMode, err := parseSubscribeMode(mode)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			client, err := gnmi.Dial(ctx, target, creds)
			if err != nil {
				return err
			}
			defer client.Close()

			sub, err := client.Subscribe(ctx, subMode, nil, []gnmi.SubscriptionSpec{
				{Path: path, Mode: gnmipb.SubscriptionMode_SAMPLE, SampleInterval: sampleInterval},
			})
			if err != nil {
				return err
			}
			fmt.Printf("subscribed (id=%s)\n", sub.ID())
			for result := range sub.Updates() {
				if result.Err != nil {
					return result.Err
				}
				notif := result.Response.GetUpdate()
				for _, upd := range notif.GetUpdate() {
					fmt.Printf("%s = %s\n", gnmi.PathToString(upd.GetPath()), formatTypedValue(upd.GetVal()))
				}
			}
			return nil
		},
	}
	c.Flags().String("target", "", "Override the switch's configured target for this call")
	c.Flags().DurationVar(&sampleInterval, "interval", time.Second, "Sample interval for SAMPLE-mode subscriptions")
	c.Flags().StringVar(&mode, "mode", "stream", "once | poll | stream")
	return c
}

func parseSubscribeMode(s string) (gnmi.SubscribeMode, error) {
	switch s {
	case "once":
		return gnmipb.SubscriptionList_ONCE, nil
	case "poll":
		return gnmipb.SubscriptionList_POLL, nil
	case "stream":
		return gnmipb.SubscriptionList_STREAM, nil
	default:
		return 0, fmt.Errorf("unknown subscribe mode %q: want once, poll, or stream", s)
	}
}

func formatTypedValue(v *gnmipb.TypedValue) string {
	switch val := v.GetValue().(type) {
	case *gnmipb.TypedValue_StringVal:
		return val.StringVal
	case *gnmipb.TypedValue_IntVal:
		return fmt.Sprintf("%d", val.IntVal)
	case *gnmipb.TypedValue_UintVal:
		return fmt.Sprintf("%d", val.UintVal)
	case *gnmipb.TypedValue_BoolVal:
		return fmt.Sprintf("%t", val.BoolVal)
	case *gnmipb.TypedValue_JsonIetfVal:
		return string(val.JsonIetfVal)
	case *gnmipb.TypedValue_JsonVal:
		return string(val.JsonVal)
	case *gnmipb.TypedValue_AsciiVal:
		return val.AsciiVal
	default:
		return fmt.Sprintf("%v", v)
	}
}

func typedValueBytes(v *gnmipb.TypedValue) []byte {
	switch val := v.GetValue().(type) {
	case *gnmipb.TypedValue_JsonIetfVal:
		return val.JsonIetfVal
	case *gnmipb.TypedValue_JsonVal:
		return val.JsonVal
	case *gnmipb.TypedValue_BytesVal:
		return val.BytesVal
	case *gnmipb.TypedValue_StringVal:
		return []byte(val.StringVal)
	default:
		return nil
	}
}
