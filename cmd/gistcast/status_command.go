package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gistcast/internal/daemonctl"
	"gistcast/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, queue, and provider health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			printer := newStatusPrinter(cmd.OutOrStdout())

			printer.section("Daemon")
			client := daemonctl.Probe(cfg)
			if client == nil {
				printer.line("Daemon", stateWarn, "not running")
			} else if status, err := client.Status(cmd.Context()); err != nil {
				printer.line("Daemon", stateFail, err.Error())
			} else {
				printer.line("Daemon", stateOK, fmt.Sprintf("running (%d workers)", status.Workers))
				printer.line("Queue database", stateInfo, status.QueueDBPath)
				printer.line("Jobs", stateInfo, fmt.Sprintf(
					"%d queued, %d processing, %d ready, %d failed",
					status.Queue.Queued, status.Queue.Processing,
					status.Queue.Ready, status.Queue.Failed))
			}

			printer.blank()
			printer.section("Providers")
			printer.check(preflight.CheckTextGen(cmd.Context(), cfg.TextGen))
			printer.check(preflight.CheckSpeech(cmd.Context(), cfg.Speech))
			printer.check(preflight.CheckArtifacts(cfg.Artifacts))

			printer.blank()
			printer.section("System")
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				printer.check(result)
			}
			return nil
		},
	}
}
