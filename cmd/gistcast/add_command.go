package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"gistcast/internal/queue"
	"gistcast/internal/queueaccess"
)

const maxDocumentBytes = 4 << 20

func newAddCommand(ctx *commandContext) *cobra.Command {
	var subjectID string
	var minutes int

	cmd := &cobra.Command{
		Use:   "add [file]",
		Short: "Queue a document for episode generation",
		Long: "Queue a newsletter digest document for podcast generation.\n" +
			"Reads from the given file, or from stdin when the argument is omitted or \"-\".",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			document, label, err := readDocument(cmd, args)
			if err != nil {
				return err
			}
			if strings.TrimSpace(document) == "" {
				return errors.New("document is empty")
			}

			subject := strings.TrimSpace(subjectID)
			if subject == "" {
				subject = uuid.NewString()
			}

			return ctx.withQueue(func(access *queueaccess.Access) error {
				id, err := access.Enqueue(cmd.Context(), subject, document, queue.Params{
					TargetLengthMinutes: minutes,
				})
				if err != nil {
					return err
				}
				via := "queued directly; daemon not running"
				if access.DaemonRunning() {
					via = "daemon notified"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as job #%d (%s)\n", label, id, via)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&subjectID, "subject", "s", "", "Subject identifier for the job (random UUID when omitted)")
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 0, "Target episode length in minutes (config default when 0)")
	return cmd
}

func readDocument(cmd *cobra.Command, args []string) (string, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxDocumentBytes))
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "stdin", nil
	}

	absPath, err := filepath.Abs(args[0])
	if err != nil {
		return "", "", fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", "", fmt.Errorf("file does not exist: %s", absPath)
		}
		return "", "", fmt.Errorf("inspect file: %w", err)
	}
	if info.IsDir() {
		return "", "", fmt.Errorf("%s is a directory", absPath)
	}
	if info.Size() > maxDocumentBytes {
		return "", "", fmt.Errorf("document exceeds %d byte limit", maxDocumentBytes)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", "", fmt.Errorf("read file: %w", err)
	}
	return string(data), filepath.Base(absPath), nil
}
