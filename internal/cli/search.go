package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
)

func newSearchCmd(e *env) *cobra.Command {
	var (
		topK    int
		asJSON  bool
		showCtx bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank memories against a query",
		Long: `Rank memories by hybrid semantic and lexical score.

Examples:
  memctl search "who fought the dragon"
  memctl search "harbour" --top-k 10 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			resp, err := app.Service.Retrieve(cmd.Context(), &models.RetrieveRequest{
				Query: strings.Join(args, " "),
				TopK:  topK,
			})
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			if resp.Insufficient {
				fmt.Fprintln(out, resp.Message)
				return nil
			}
			for i, r := range resp.Results {
				fmt.Fprintf(out, "%d. [%.3f] %s\n", i+1, r.Score, r.Record.Text())
				fmt.Fprintf(out, "   id=%s semantic=%.3f lexical=%.3f importance=%.2f\n",
					r.Record.ID, r.DebugSemantic, r.DebugLexical, r.Record.Metadata.ImportanceScore)
			}
			fmt.Fprintf(out, "\nconfidence %.2f via %s in %dms\n", resp.Confidence, resp.Method, resp.SearchTimeMs)
			if showCtx {
				fmt.Fprintf(out, "\n%s\n", resp.Context)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "max results (default from TOP_K)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full response as JSON")
	cmd.Flags().BoolVar(&showCtx, "context", false, "print the assembled answer context")
	return cmd
}
