package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finsy-project/finsy-go/internal/fswitch"
)

func connectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Connect to a switch, perform arbitration, and report its role",
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := loadSwitch()
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), sw, func(ctx context.Context, sess *fswitch.Session) error {
				caps, err := sess.Capabilities(ctx)
				version := "unknown"
				if err == nil {
					version = caps.GetP4RuntimeApiVersion()
				}
				fmt.Printf("switch %s: state=%s role=%s election_id=%s api_version=%s\n",
					sw.Name, sess.State(), sess.Role(), sess.ElectionID(), version)
				return nil
			})
		},
	}
}
