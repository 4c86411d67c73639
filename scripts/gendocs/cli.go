package main

import (
	"cmp"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapstar/internal/cli"
	"github.com/leapstack-labs/leapstar/pkg/core"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Annotations cobra sets on flags grouped with MarkFlagsMutuallyExclusive
// and MarkFlagsOneRequired.
const (
	annotationExclusive   = "cobra_annotation_mutually_exclusive"
	annotationOneRequired = "cobra_annotation_one_required"
)

// loadPhases lists the phases a load passes through, in order, with what a
// failure in each one means for the warehouse.
var loadPhases = []struct {
	name  string
	about string
}{
	{core.PhaseConnect, "Opening the warehouse connection. Nothing was written."},
	{core.PhaseSchema, "Creating the star schema tables. Nothing was loaded."},
	{core.PhaseLock, "Another load holds the warehouse lock. Retry once it finishes."},
	{core.PhaseStaging, "Reading or casting staged rows inside the window."},
	{core.PhaseDimension, "Creating customer or product rows. New dimension rows were rolled back."},
	{core.PhaseFact, "Appending sales rows, including a load that ran past its timeout."},
	{core.PhaseCommit, "Committing the transaction."},
}

// factPolicies documents the accepted --fact-policy values.
var factPolicies = []struct {
	policy core.FactPolicy
	about  string
}{
	{core.FactPolicySkip, "Order lines already in the fact table are counted as skipped. Reloading a window is a no-op."},
	{core.FactPolicyAppend, "Every row in the window is appended, so reloading a window duplicates its sales."},
	{core.FactPolicyError, "The load rolls back with a fact phase error when any order line was already loaded."},
}

// commandExtras adds command specific sections after the examples.
var commandExtras = map[string]func(w *MarkdownWriter){
	"load": writeLoadOutcomes,
}

// generateCLIDocs writes an index page plus one page per visible command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	commands := visibleCommands(root)

	pages := map[string][]byte{"index.md": renderCLIIndex(root, commands)}
	for _, cmd := range commands {
		pages[cmd.Name()+".md"] = renderCommandPage(cmd)
	}

	for name, page := range pages {
		if err := os.WriteFile(filepath.Join(outDir, name), page, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		log.Printf("  Generated %s", name)
	}
	return nil
}

// visibleCommands returns the documented subcommands of root.
func visibleCommands(root *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, cmd := range root.Commands() {
		if !cmd.IsAvailableCommand() {
			continue
		}
		out = append(out, cmd)
	}
	return out
}

func renderCLIIndex(root *cobra.Command, commands []*cobra.Command) []byte {
	w := NewMarkdownWriter()

	w.Frontmatter("CLI Reference", "Command-line interface reference for leapstar")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(root.Long)
	w.CodeBlock("bash", "go install github.com/leapstack-labs/leapstar/cmd/leapstar@latest")

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range commands {
		link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name())
		rows = append(rows, []string{link, cleanDescription(cmd.Short)})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	writeFlagsTable(w, root.PersistentFlags())

	w.Header(2, "Environment Variables")
	w.Paragraph("Each `leapstar.yaml` key can be set from the environment. Flags win over variables, and variables win over the file.")
	w.Table([]string{"Variable", "Key", "Description"}, envRows(getConfigSchema()))

	w.Header(2, "Exit Codes")
	w.Table([]string{"Code", "Meaning"}, [][]string{
		{InlineCode("0"), "The command succeeded. A load committed every row of its window."},
		{InlineCode("1"), "The command failed. A failed load was rolled back and recorded in `leapstar runs`."},
	})

	return w.Bytes()
}

// envRows derives the environment variable for each config field. Map
// fields other than staging columns cannot be set from the environment.
func envRows(fields []ConfigField) [][]string {
	var rows [][]string
	for _, f := range fields {
		key := f.Name
		if f.Category != "general" {
			key = f.Category + "." + f.Name
		}
		if strings.HasPrefix(f.Type, "map[") {
			if key != "staging.columns" {
				continue
			}
			key += ".<field>"
		}
		variable := "LEAPSTAR_" + strings.ToUpper(strings.NewReplacer(".", "_", "<field>", "<FIELD>").Replace(key))
		rows = append(rows, []string{InlineCode(variable), InlineCode(key), f.Description})
	}
	return rows
}

func renderCommandPage(cmd *cobra.Command) []byte {
	w := NewMarkdownWriter()

	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	w.Paragraph(cmp.Or(cmd.Long, cmd.Short))

	w.Header(2, "Usage")
	w.CodeBlock("bash", cmd.UseLine())
	if len(cmd.Aliases) > 0 {
		aliases := make([]string, len(cmd.Aliases))
		for i, a := range cmd.Aliases {
			aliases[i] = InlineCode(a)
		}
		w.Paragraph("Also available as " + strings.Join(aliases, ", ") + ".")
	}

	if cmd.HasAvailableLocalFlags() {
		w.Header(2, "Options")
		writeFlagsTable(w, cmd.LocalFlags())
		if notes := flagGroupNotes(cmd.LocalFlags()); len(notes) > 0 {
			w.BulletList(notes)
		}
	}

	if cmd.HasAvailableInheritedFlags() {
		w.Header(2, "Global Options")
		writeFlagsTable(w, cmd.InheritedFlags())
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", cleanExample(cmd.Example))
	}

	if extra, ok := commandExtras[cmd.Name()]; ok {
		extra(w)
	}

	return w.Bytes()
}

// writeLoadOutcomes documents fact policies and how a rolled back load is
// reported.
func writeLoadOutcomes(w *MarkdownWriter) {
	w.Header(2, "Fact Policies")
	rows := make([][]string, len(factPolicies))
	for i, p := range factPolicies {
		rows[i] = []string{InlineCode(string(p.policy)), p.about}
	}
	w.Table([]string{"Policy", "Behaviour"}, rows)

	w.Header(2, "Failed Loads")
	w.Paragraph("A load runs in one transaction. On any error it rolls back, records the run as failed, prints the phase it stopped in and exits with code 1.")
	rows = make([][]string, len(loadPhases))
	for i, p := range loadPhases {
		rows[i] = []string{InlineCode(p.name), p.about}
	}
	w.Table([]string{"Phase", "Meaning"}, rows)
	w.Paragraph("With `--json` the failure is written to stdout:")
	w.CodeBlock("json", `{
  "status": "failed",
  "run_id": "...",
  "window": "2021",
  "phase": "dimension",
  "error": "...",
  "failures": [
    {"phase": "dimension", "row": 7, "field": "CustomerName", "reason": "is required"}
  ]
}`)
	w.Paragraph("Staged rows without a readable order date belong to no window. They are reported as a warning and never fail a load.")
}

// writeFlagsTable writes one row per visible flag.
func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := InlineCode("--" + f.Name)
		if f.Shorthand != "" {
			name += ", " + InlineCode("-"+f.Shorthand)
		}
		rows = append(rows, []string{name, flagDefault(f), cleanDescription(f.Usage)})
	})
	w.Table([]string{"Option", "Default", "Description"}, rows)
}

// flagDefault renders a flag default, leaving zero values blank.
func flagDefault(f *pflag.Flag) string {
	switch f.DefValue {
	case "", "0", "0s", "false", "[]":
		return ""
	}
	return InlineCode(f.DefValue)
}

// flagGroupNotes describes the flag groups declared on a command.
func flagGroupNotes(flags *pflag.FlagSet) []string {
	seen := map[string]bool{}
	var notes []string
	flags.VisitAll(func(f *pflag.Flag) {
		for annotation, format := range map[string]string{
			annotationExclusive:   "Only one of %s may be given.",
			annotationOneRequired: "One of %s is required.",
		} {
			for _, group := range f.Annotations[annotation] {
				note := fmt.Sprintf(format, groupList(group))
				if !seen[note] {
					seen[note] = true
					notes = append(notes, note)
				}
			}
		}
	})
	slices.Sort(notes)
	return notes
}

// groupList renders a space separated flag group as "`--a` or `--b`".
func groupList(group string) string {
	names := strings.Fields(group)
	for i, n := range names {
		names[i] = InlineCode("--" + n)
	}
	return strings.Join(names, " or ")
}

// cleanExample strips the indentation shared by every non-blank line.
func cleanExample(example string) string {
	lines := strings.Split(strings.Trim(example, "\n"), "\n")
	indent, found := "", false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lead := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !found || len(lead) < len(indent) {
			indent, found = lead, true
		}
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, indent)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
