package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/importer"
)

func newImportCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>...",
		Short: "Ingest story files from directories",
		Long: `Ingest every .md, .markdown and .txt file under the given directories.

Files may start with YAML frontmatter:

  ---
  summary: The siege of the harbour
  importance: 0.9
  ---

Re-importing unchanged files is a no-op.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := importer.New(app.Service, e.logger).Import(cmd.Context(), args)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			e.persistIndex(cmd, app)

			fmt.Fprintf(cmd.OutOrStdout(), "found %d, stored %d, already stored %d, errors %d\n",
				result.Found, result.Stored, result.Deduplicated, result.Errors)
			return nil
		},
	}
}
