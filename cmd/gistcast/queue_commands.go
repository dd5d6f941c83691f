package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gistcast/internal/queue"
	"gistcast/internal/queueaccess"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the job queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []queue.Status
			if raw := strings.TrimSpace(statusFilter); raw != "" {
				for _, part := range strings.Split(raw, ",") {
					status, ok := queue.ParseStatus(part)
					if !ok {
						return fmt.Errorf("unknown status %q", part)
					}
					statuses = append(statuses, status)
				}
			}

			return ctx.withQueue(func(access *queueaccess.Access) error {
				jobs, err := access.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						strconv.FormatInt(job.ID, 10),
						job.SubjectID,
						displayStatus(string(job.Status)),
						job.ProgressStage,
						job.ClaimedBy,
						job.CreatedAt.Local().Format("2006-01-02 15:04"),
						truncate(job.ErrorMessage, 48),
					})
				}
				headers := []string{"ID", "Subject", "Status", "Stage", "Worker", "Created", "Error"}
				aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Comma-separated status filter (queued, processing, ready, failed)")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Requeue failed jobs (all failed jobs when no IDs are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseJobIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(access *queueaccess.Access) error {
				updated, err := access.Retry(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				switch {
				case updated == 0 && len(ids) == 0:
					fmt.Fprintln(cmd.OutOrStdout(), "No failed jobs to retry")
				case updated == 0:
					fmt.Fprintln(cmd.OutOrStdout(), "No matching failed jobs")
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d job(s)\n", updated)
				}
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a job from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			return ctx.withQueue(func(access *queueaccess.Access) error {
				removed, err := access.Remove(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("job #%d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed job #%d\n", id)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearFailed bool
	var clearReady bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearFailed && clearReady {
				return errors.New("use at most one of --failed and --ready")
			}
			return ctx.withQueue(func(access *queueaccess.Access) error {
				var (
					cleared int64
					err     error
					what    string
				)
				switch {
				case clearFailed:
					cleared, err = access.ClearFailed(cmd.Context())
					what = "failed job(s)"
				case clearReady:
					cleared, err = access.ClearReady(cmd.Context())
					what = "finished job(s)"
				default:
					cleared, err = access.Clear(cmd.Context())
					what = "job(s)"
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s\n", cleared, what)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Only clear failed jobs")
	cmd.Flags().BoolVar(&clearReady, "ready", false, "Only clear finished jobs")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access *queueaccess.Access) error {
				health, err := access.Health(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Queued", strconv.Itoa(health.Queued)},
					{"Processing", strconv.Itoa(health.Processing)},
					{"Ready", strconv.Itoa(health.Ready)},
					{"Failed", strconv.Itoa(health.Failed)},
					{"Total", strconv.Itoa(health.Total)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Status", "Count"}, rows,
					[]columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func parseJobIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid job id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func truncate(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func formatTimestamp(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.Local().Format("2006-01-02 15:04:05")
}
