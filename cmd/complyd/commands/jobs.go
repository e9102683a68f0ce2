package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/complyforge/complyforge/generation"
)

// JobsCmd lists generation jobs from the engine database.
var JobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List generation jobs",
	Long: `List generation jobs with status, progress and document counts.

Examples:
  complyd jobs                    # Most recent jobs
  complyd jobs --status running   # Only running jobs
  complyd jobs --limit 5          # Five most recent jobs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		statusFilter, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		var status *generation.JobStatus
		if statusFilter != "" {
			if !generation.IsValidStatus(statusFilter) {
				return fmt.Errorf("invalid status %q (expected queued, running, completed or failed)", statusFilter)
			}
			st := generation.JobStatus(statusFilter)
			status = &st
		}

		store := generation.NewStore(database)
		jobs, err := store.ListJobs(status, limit)
		if err != nil {
			return fmt.Errorf("failed to list jobs: %w", err)
		}

		if len(jobs) == 0 {
			fmt.Println("No jobs found")
			return nil
		}

		data := pterm.TableData{
			{"ID", "STATUS", "PROGRESS", "DOCS", "FRAMEWORKS", "CREATED", "ERROR"},
		}
		for _, job := range jobs {
			data = append(data, []string{
				shortID(job.ID),
				string(job.Status),
				fmt.Sprintf("%d%%", job.Progress),
				fmt.Sprintf("%d/%d", job.DocumentsGenerated, job.TotalDocuments),
				strings.Join(job.Frameworks, ","),
				job.CreatedAt.Local().Format(time.DateTime),
				truncate(job.Error, 40),
			})
		}

		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	JobsCmd.Flags().String("config", "", "Path to config file")
	JobsCmd.Flags().String("status", "", "Filter by status (queued, running, completed, failed)")
	JobsCmd.Flags().Int("limit", 20, "Maximum number of jobs to list")
}
