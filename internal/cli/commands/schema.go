package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the star schema tables",
		Long: `Create the customer and product dimension tables and the sales fact
table in the target warehouse if they do not exist yet.

Loads create missing tables on their own; this command lets you provision
them ahead of the first load.`,
		Example: `  leapstar schema
  leapstar schema --target prod`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cmdCtx.Engine.EnsureSchema(cmd.Context()); err != nil {
				return fmt.Errorf("failed to create star schema: %w", err)
			}

			r := cmdCtx.Renderer
			s := cmdCtx.Engine.Schema()
			for _, name := range s.TableNames() {
				r.StatusLine(name, "success", "")
			}
			r.Success("Star schema ready")
			return nil
		},
	}
}
