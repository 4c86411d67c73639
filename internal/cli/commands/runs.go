package commands

import (
	"strconv"
	"time"

	"github.com/leapstack-labs/leapstar/internal/cli/output"
	"github.com/leapstack-labs/leapstar/pkg/core"
	"github.com/spf13/cobra"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent load runs",
		Long: `List recent load invocations recorded in the state database, newest first.

Failed runs show the error that rolled them back.`,
		Example: `  # Show the last 20 runs
  leapstar runs

  # Show the last 5 runs as JSON
  leapstar runs --limit 5 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			runs, err := cmdCtx.Engine.Runs(limit)
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if jsonOutput || r.EffectiveMode() == output.ModeJSON {
				return r.JSON(newRunsJSON(runs))
			}
			renderRuns(r, runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

type runJSON struct {
	ID                  string         `json:"id"`
	Environment         string         `json:"environment"`
	Window              string         `json:"window"`
	Status              string         `json:"status"`
	StartedAt           time.Time      `json:"started_at"`
	CompletedAt         *time.Time     `json:"completed_at,omitempty"`
	StagingRows         int            `json:"staging_rows"`
	WindowRows          int            `json:"window_rows"`
	DimensionsCreated   map[string]int `json:"dimensions_created,omitempty"`
	FactsAppended       int            `json:"facts_appended"`
	FactsSkipped        int            `json:"facts_skipped"`
	DuplicatesCollapsed int            `json:"duplicates_collapsed"`
	UndatedRows         int            `json:"undated_rows"`
	Error               string         `json:"error,omitempty"`
}

func newRunsJSON(runs []*core.LoadRun) []runJSON {
	out := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, runJSON{
			ID:                  run.ID,
			Environment:         run.Environment,
			Window:              run.Window().String(),
			Status:              string(run.Status),
			StartedAt:           run.StartedAt,
			CompletedAt:         run.CompletedAt,
			StagingRows:         run.StagingRows,
			WindowRows:          run.WindowRows,
			DimensionsCreated:   run.DimensionsCreated,
			FactsAppended:       run.FactsAppended,
			FactsSkipped:        run.FactsSkipped,
			DuplicatesCollapsed: run.DuplicatesCollapsed,
			UndatedRows:         run.UndatedRows,
			Error:               run.Error,
		})
	}
	return out
}

func renderRuns(r *output.Renderer, runs []*core.LoadRun) {
	if len(runs) == 0 {
		r.Muted("No load runs recorded yet.")
		return
	}

	styles := r.Styles()
	rows := make([][]any, 0, len(runs))
	for _, run := range runs {
		created := 0
		for _, n := range run.DimensionsCreated {
			created += n
		}
		duration := ""
		if d := run.Duration(); d > 0 {
			duration = d.Round(time.Millisecond).String()
		}
		rows = append(rows, []any{
			shortID(run.ID),
			run.Window().String(),
			styles.StatusStyle(string(run.Status)).Render(string(run.Status)),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			duration,
			strconv.Itoa(created),
			strconv.Itoa(run.FactsAppended),
			run.Error,
		})
	}
	r.Table([]string{"Run", "Window", "Status", "Started", "Duration", "Dimensions", "Facts", "Error"}, rows)
}

// shortID trims a run ID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
