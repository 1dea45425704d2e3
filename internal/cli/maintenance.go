package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/server"
)

func newDecayCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "decay",
		Short: "Run one decay cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Service.RunDecayCycle(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if report.NoOp {
				fmt.Fprintln(out, "store is empty, nothing to decay")
				return nil
			}
			s := report.Stats
			fmt.Fprintf(out, "total %d, updated %d, consolidated %d, forgotten %d, errors %d\n",
				s.Total, s.Updated, s.Consolidated, s.Forgotten, s.Errors)

			// Forgotten records leave dangling index entries until the next rebuild.
			if s.Forgotten > 0 || s.Consolidated > 0 {
				if _, err := app.Service.Rebuild(cmd.Context()); err != nil {
					return err
				}
				e.persistIndex(cmd, app)
			}
			return nil
		},
	}
}

func newReindexCmd(e *env) *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the vector index from the store",
		Long: `Rebuild the vector index from the store and save the snapshot.

With --repair, records without an embedding are embedded first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			if repair {
				report, err := app.Service.Repair(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "scanned %d, embedded %d, failed %d\n", report.Scanned, report.Embedded, report.Failed)
				fmt.Fprintf(out, "index: %d vectors, dimension %d\n", report.Index.Size, report.Index.Dimension)
				return nil
			}

			st, err := app.Service.Rebuild(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "index: %d vectors, dimension %d, skipped %d\n", st.Size, st.Dimension, st.Skipped)
			e.persistIndex(cmd, app)
			return nil
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "embed records that are missing an embedding")
	return cmd
}

func newStatsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store and index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			st, err := app.Service.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "backend:         %s\n", app.Service.BackendName())
			fmt.Fprintf(out, "records:         %d\n", st.Records)
			fmt.Fprintf(out, "with embeddings: %d\n", st.WithEmbeddings)
			fmt.Fprintf(out, "consolidated:    %d\n", st.Consolidated)
			fmt.Fprintf(out, "index engine:    %s\n", st.Index.Engine)
			fmt.Fprintf(out, "index size:      %d (dimension %d, built %t)\n", st.Index.Size, st.Index.Dimension, st.Index.Built)
			return nil
		},
	}
}

func newServeCmd(e *env) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				e.cfg.Port = port
			}
			return server.Run(cmd.Context(), e.cfg, e.logger)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from PORT)")
	return cmd
}
