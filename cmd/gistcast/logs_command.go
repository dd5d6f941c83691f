package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"gistcast/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, "gistcast.log")
			out := cmd.OutOrStdout()

			var entries []string
			var offset int64
			if lines <= 0 {
				// Zero means the whole file.
				entries, offset, err = logs.After(cmd.Context(), path, 0, 0)
			} else {
				entries, offset, err = logs.Last(path, lines)
			}
			if err != nil {
				return fmt.Errorf("read logs: %w", err)
			}
			for _, line := range entries {
				fmt.Fprintln(out, line)
			}
			if !follow {
				if len(entries) == 0 {
					fmt.Fprintln(out, "No log entries available")
				}
				return nil
			}

			for {
				entries, offset, err = logs.After(cmd.Context(), path, offset, time.Second)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				if err != nil {
					return fmt.Errorf("follow logs: %w", err)
				}
				for _, line := range entries {
					fmt.Fprintln(out, line)
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	return cmd
}
