package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/services"
)

func exportCmd() *cobra.Command {
	var (
		assignedTo string
		out        string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all live tasks as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			if assignedTo != "" {
				if _, err := uuid.Parse(assignedTo); err != nil {
					return fmt.Errorf("--assigned-to must be a user id: %w", err)
				}
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			return runExport(cmd.Context(), assignedTo, w)
		},
	}

	cmd.Flags().StringVar(&assignedTo, "assigned-to", "", "Only export tasks assigned to this user id")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func runExport(ctx context.Context, assignedTo string, w io.Writer) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}

	db, closeDB, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	taskRepo := repository.NewTaskRepository(db)
	analytics := services.NewAnalyticsService(repository.NewAnalyticsRepository(db, taskRepo), repository.NewUserRepository(db))
	return analytics.ExportCSV(ctx, assignedTo, w)
}
