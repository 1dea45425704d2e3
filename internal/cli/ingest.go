package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
)

func newIngestCmd(e *env) *cobra.Command {
	var (
		summary    string
		importance float64
	)

	cmd := &cobra.Command{
		Use:   "ingest [text]",
		Short: "Store a memory",
		Long: `Store a memory. The text is taken from the arguments, or from stdin
when no argument is given.

Examples:
  memctl ingest "The dragon fought the knight at dawn."
  memctl ingest --importance 0.9 < chapter1.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}

			req := &models.IngestRequest{Text: text, Summary: summary}
			if cmd.Flags().Changed("importance") {
				req.ImportanceScore = &importance
			}

			app, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			resp, err := app.Service.Ingest(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			e.persistIndex(cmd, app)

			out := cmd.OutOrStdout()
			if resp.Deduplicated {
				fmt.Fprintf(out, "%s (already stored)\n", resp.ID)
				return nil
			}
			fmt.Fprintln(out, resp.ID)
			if resp.NearDuplicateID != "" {
				fmt.Fprintf(out, "note: similar to %s (%.2f)\n", resp.NearDuplicateID, resp.NearDupSimilarity)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&summary, "summary", "s", "", "summary to store instead of the generated one")
	cmd.Flags().Float64VarP(&importance, "importance", "i", models.DefaultImportance, "initial importance score in [0,1]")
	return cmd
}
