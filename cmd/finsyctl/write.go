package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"

	"github.com/finsy-project/finsy-go/internal/entity"
	"github.com/finsy-project/finsy-go/internal/fswitch"
)

func writeCmd() *cobra.Command {
	var file, opName string
	c := &cobra.Command{
		Use:   "write",
		Short: "Write table entries from a seed file (one FormatEntry line per entry)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := loadSwitch()
			if err != nil {
				return err
			}
			if file == "" && len(sw.Seeds) > 0 {
				file = sw.Seeds[0].File
			}
			if file == "" {
				return fmt.Errorf("no seed file given (use --file or configure seeds)")
			}
			updateType, err := parseUpdateType(opName)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), sw, func(ctx context.Context, sess *fswitch.Session) error {
				if err := bindSchema(ctx, sess); err != nil {
					return err
				}
				schema := sess.Schema()

				lines, err := readSeedLines(file)
				if err != nil {
					return err
				}
				updates := make([]fswitch.Update, 0, len(lines))
				for _, line := range lines {
					te, err := entity.ParseEntry(schema, line)
					if err != nil {
						return fmt.Errorf("parse %q: %w", line, err)
					}
					wire, err := te.ToWire(schema)
					if err != nil {
						return fmt.Errorf("encode %q: %w", line, err)
					}
					updates = append(updates, fswitch.Update{Type: updateType, Entity: entity.WrapTableEntry(wire)})
				}
				if err := sess.Write(ctx, updates, p4v1.WriteRequest_CONTINUE_ON_ERROR); err != nil {
					return err
				}
				fmt.Printf("wrote %d entr(y/ies)\n", len(updates))
				return nil
			})
		},
	}
	c.Flags().StringVar(&file, "file", "", "Seed file of FormatEntry lines (default: config's first seeds entry)")
	c.Flags().StringVar(&opName, "op", "insert", "insert | modify | delete")
	return c
}

func parseUpdateType(s string) (p4v1.Update_Type, error) {
	switch strings.ToLower(s) {
	case "insert":
		return p4v1.Update_INSERT, nil
	case "modify":
		return p4v1.Update_MODIFY, nil
	case "delete":
		return p4v1.Update_DELETE, nil
	default:
		return 0, fmt.Errorf("unknown op %q: want insert, modify, or delete", s)
	}
}

func readSeedLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
