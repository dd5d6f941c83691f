package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"gistcast/internal/queueaccess"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var withTranscript bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Display one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid job id %q", args[0])
			}

			return ctx.withQueue(func(access *queueaccess.Access) error {
				job, err := access.Describe(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job #%d not found", id)
				}

				out := cmd.OutOrStdout()
				rows := [][]string{
					{"ID", strconv.FormatInt(job.ID, 10)},
					{"Subject", job.SubjectID},
					{"Status", displayStatus(string(job.Status))},
					{"Stage", job.ProgressStage},
					{"Worker", job.ClaimedBy},
					{"Claimed at", formatTimestamp(job.ClaimedAt)},
					{"Target minutes", strconv.Itoa(job.TargetMinutes)},
					{"Sources", formatSources(job.SourcesJSON)},
					{"Artifact", job.ArtifactURL},
					{"Artifact bytes", strconv.FormatInt(job.ArtifactBytes, 10)},
					{"Error", job.ErrorMessage},
					{"Created", job.CreatedAt.Local().Format("2006-01-02 15:04:05")},
					{"Updated", job.UpdatedAt.Local().Format("2006-01-02 15:04:05")},
				}
				fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows,
					[]columnAlignment{alignLeft, alignLeft}))

				if withTranscript {
					if strings.TrimSpace(job.Transcript) == "" {
						fmt.Fprintln(out, "No transcript recorded")
					} else {
						fmt.Fprintln(out)
						fmt.Fprintln(out, job.Transcript)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&withTranscript, "transcript", "t", false, "Print the stored transcript")
	return cmd
}

func formatSources(sourcesJSON string) string {
	if strings.TrimSpace(sourcesJSON) == "" {
		return ""
	}
	var sources []string
	if err := json.Unmarshal([]byte(sourcesJSON), &sources); err != nil {
		return sourcesJSON
	}
	return strings.Join(sources, ", ")
}
