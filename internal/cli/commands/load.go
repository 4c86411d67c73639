package commands

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapstar/internal/cli/output"
	"github.com/leapstack-labs/leapstar/pkg/core"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LoadOptions holds options for the load command.
type LoadOptions struct {
	Year       int
	Window     string
	JSONOutput bool
}

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	opts := &LoadOptions{}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load a window of staging rows into the star schema",
		Long: `Load staging rows whose order date falls inside a window.

Customer and product dimension rows are created for natural keys seen for
the first time, then fact rows are appended. The whole load runs in one
transaction: if any row fails validation, nothing is written.`,
		Example: `  # Load every order placed in 2021
  leapstar load --year 2021

  # Load one month, failing on business keys that were already loaded
  leapstar load --window 2021-05 --fact-policy error

  # Load an explicit date range with a shorter timeout
  leapstar load --window 2021-01-01..2021-03-31 --timeout 2m

  # Machine-readable result for schedulers
  leapstar load --year 2021 --json`,
		Aliases: []string{"run"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoad(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Year, "year", 0, "Load orders placed in this calendar year")
	cmd.Flags().StringVarP(&opts.Window, "window", "w", "", "Window to load: YYYY, YYYY-MM, YYYY-MM-DD or FROM..TO")
	cmd.Flags().Duration("timeout", 0, "Abort and roll back the load after this long (default 10m)")
	cmd.Flags().String("fact-policy", "", "What to do with already loaded order lines (skip|append|error)")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Output the load result as JSON")
	cmd.MarkFlagsMutuallyExclusive("year", "window")
	cmd.MarkFlagsOneRequired("year", "window")

	_ = cmd.RegisterFlagCompletionFunc("fact-policy", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"skip", "append", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// windowFromOptions turns --year or --window into a window.
func windowFromOptions(opts *LoadOptions) (core.Window, error) {
	if opts.Window != "" {
		return core.ParseWindow(opts.Window)
	}
	if opts.Year < 1 {
		return core.Window{}, fmt.Errorf("invalid --year %d", opts.Year)
	}
	return core.YearWindow(opts.Year), nil
}

func runLoad(cmd *cobra.Command, opts *LoadOptions) error {
	window, err := windowFromOptions(opts)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cmdCtx.Renderer
	jsonOut := opts.JSONOutput || r.EffectiveMode() == output.ModeJSON

	result, err := cmdCtx.Engine.LoadFromStaging(cmd.Context(), window)
	if err != nil {
		if jsonOut {
			_ = r.JSON(newLoadFailureJSON(window, err))
		} else {
			renderLoadFailure(r, window, err)
		}
		return err
	}

	if jsonOut {
		return r.JSON(newLoadResultJSON(result))
	}
	renderLoadResult(r, result)
	return nil
}

// loadResultJSON is the JSON shape of a committed load.
type loadResultJSON struct {
	Status              string         `json:"status"`
	RunID               string         `json:"run_id"`
	Window              string         `json:"window"`
	DimensionsCreated   map[string]int `json:"dimensions_created"`
	StagingRows         int            `json:"staging_rows"`
	WindowRows          int            `json:"window_rows"`
	FactsAppended       int            `json:"facts_appended"`
	FactsSkipped        int            `json:"facts_skipped"`
	DuplicatesCollapsed int            `json:"duplicates_collapsed"`
	UndatedRows         []int          `json:"undated_rows,omitempty"`
	DurationMS          int64          `json:"duration_ms"`
}

func newLoadResultJSON(res *core.LoadResult) loadResultJSON {
	return loadResultJSON{
		Status:              string(core.RunStatusCompleted),
		RunID:               res.RunID,
		Window:              res.Window.String(),
		DimensionsCreated:   res.DimensionsCreated,
		StagingRows:         res.StagingRows,
		WindowRows:          res.WindowRows,
		FactsAppended:       res.FactsAppended,
		FactsSkipped:        res.FactsSkipped,
		DuplicatesCollapsed: res.DuplicatesCollapsed,
		UndatedRows:         res.UndatedRows,
		DurationMS:          res.Duration.Milliseconds(),
	}
}

// loadFailureJSON is the JSON shape of an aborted load.
type loadFailureJSON struct {
	Status   string        `json:"status"`
	RunID    string        `json:"run_id,omitempty"`
	Window   string        `json:"window"`
	Phase    string        `json:"phase,omitempty"`
	Error    string        `json:"error"`
	Failures []failureJSON `json:"failures,omitempty"`
}

type failureJSON struct {
	Phase  string `json:"phase"`
	Row    int    `json:"row,omitempty"`
	Field  string `json:"field,omitempty"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

func newLoadFailureJSON(window core.Window, err error) loadFailureJSON {
	out := loadFailureJSON{
		Status: string(core.RunStatusFailed),
		Window: window.String(),
		Error:  err.Error(),
	}
	var abort *core.TransactionAbortError
	if errors.As(err, &abort) {
		out.RunID = abort.RunID
		out.Phase = abort.Phase
	}
	for _, v := range validationFailures(err) {
		out.Failures = append(out.Failures, failureJSON{
			Phase:  v.Phase,
			Row:    v.Row,
			Field:  v.Field,
			Value:  v.Value,
			Reason: v.Reason,
		})
	}
	return out
}

// validationFailures returns every validation error carried by err.
func validationFailures(err error) []*core.ValidationError {
	var many core.ValidationErrors
	if errors.As(err, &many) {
		return many
	}
	var one *core.ValidationError
	if errors.As(err, &one) {
		return []*core.ValidationError{one}
	}
	return nil
}

// dimensionLabel renders a dimension name for display.
var dimensionLabel = cases.Title(language.English)

func renderLoadResult(r *output.Renderer, res *core.LoadResult) {
	styles := r.Styles()

	r.Header(1, "Load "+res.Window.String())
	r.Println("")

	names := make([]string, 0, len(res.DimensionsCreated))
	for name := range res.DimensionsCreated {
		names = append(names, name)
	}
	slices.Sort(names)

	rows := make([][]any, 0, len(names)+1)
	for _, name := range names {
		rows = append(rows, []any{dimensionLabel.String(name), res.DimensionsCreated[name]})
	}
	rows = append(rows, []any{"Facts", res.FactsAppended})
	r.Table([]string{"Table", "Rows created"}, rows)
	r.Println("")

	r.Println(output.FormatKeyValue(styles, "Run", res.RunID))
	r.Println(output.FormatKeyValue(styles, "Staging rows", strconv.Itoa(res.StagingRows)))
	r.Println(output.FormatKeyValue(styles, "In window", strconv.Itoa(res.WindowRows)))
	if res.DuplicatesCollapsed > 0 {
		r.Println(output.FormatKeyValue(styles, "Duplicates collapsed", strconv.Itoa(res.DuplicatesCollapsed)))
	}
	if res.FactsSkipped > 0 {
		r.Println(output.FormatKeyValue(styles, "Already loaded", strconv.Itoa(res.FactsSkipped)))
	}
	r.Println("")
	if len(res.UndatedRows) > 0 {
		r.Warning(fmt.Sprintf("%d staging row(s) without a readable order date were left out: %s",
			len(res.UndatedRows), rowList(res.UndatedRows)))
	}
	r.Success(fmt.Sprintf("Load completed in %s", res.Duration.Round(time.Millisecond)))
}

// rowList renders staging row ordinals, eliding the tail of long lists.
func rowList(rows []int) string {
	const maxListed = 10
	parts := make([]string, 0, min(len(rows), maxListed)+1)
	for i, n := range rows {
		if i == maxListed {
			parts = append(parts, fmt.Sprintf("and %d more", len(rows)-maxListed))
			break
		}
		parts = append(parts, strconv.Itoa(n))
	}
	return "rows " + strings.Join(parts, ", ")
}

func renderLoadFailure(r *output.Renderer, window core.Window, err error) {
	var abort *core.TransactionAbortError
	if errors.As(err, &abort) {
		r.Error(fmt.Sprintf("Load %s of %s rolled back during %s phase", abort.RunID, window, abort.Phase))
	}

	failures := validationFailures(err)
	if len(failures) == 0 {
		return
	}
	rows := make([][]any, 0, len(failures))
	for _, v := range failures {
		row := ""
		if v.Row > 0 {
			row = strconv.Itoa(v.Row)
		}
		rows = append(rows, []any{v.Phase, row, v.Field, v.Value, v.Reason})
	}
	r.Table([]string{"Phase", "Row", "Field", "Value", "Reason"}, rows)
}
