package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"

	"github.com/finsy-project/finsy-go/internal/entity"
	"github.com/finsy-project/finsy-go/internal/fswitch"
	"github.com/finsy-project/finsy-go/internal/p4info"
)

func readCmd() *cobra.Command {
	var table string
	c := &cobra.Command{
		Use:   "read",
		Short: "Read table entries (all tables, or one named table with --table)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := loadSwitch()
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), sw, func(ctx context.Context, sess *fswitch.Session) error {
				if err := bindSchema(ctx, sess); err != nil {
					return err
				}
				schema := sess.Schema()

				wireEntry := &p4v1.TableEntry{}
				if table != "" {
					t, err := schema.LookupTable(table)
					if err != nil {
						return err
					}
					wireEntry.TableId = t.GetPreamble().GetId()
				}
				req := []*p4v1.Entity{entity.WrapTableEntry(wireEntry)}

				results, err := sess.Read(ctx, req)
				if err != nil {
					return err
				}
				count := 0
				for r := range results {
					if r.Err != nil {
						return r.Err
					}
					e, err := entity.FromWire(schema, r.Entity)
					if err != nil {
						return err
					}
					if te, ok := e.(entity.TableEntry); ok {
						fmt.Println(entity.FormatEntry(te))
						count++
					}
				}
				fmt.Printf("%d entr(y/ies)\n", count)
				return nil
			})
		},
	}
	c.Flags().StringVar(&table, "table", "", "Table name to filter on (default: all tables)")
	return c
}

// bindSchema ensures sess has a bound schema, fetching it from the
// target via GetForwardingPipelineConfig if none was installed by this
// process (e.g. a previous finsyctl pipeline install run).
func bindSchema(ctx context.Context, sess *fswitch.Session) error {
	if sess.Schema() != nil {
		return nil
	}
	p4i, err := sess.GetForwardingPipelineConfig(ctx)
	if err != nil {
		return fmt.Errorf("fetch schema: %w", err)
	}
	if p4i == nil {
		return fmt.Errorf("no pipeline installed on target; run 'finsyctl pipeline install' first")
	}
	schema, err := p4info.Build(p4i)
	if err != nil {
		return err
	}
	sess.SetSchema(schema)
	return nil
}
