package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"clusterlabel/internal/batch"
	"clusterlabel/internal/labeling"
	"clusterlabel/internal/models"
	"clusterlabel/internal/providers"
	"clusterlabel/internal/report"
	"clusterlabel/internal/storage"
	"clusterlabel/internal/util"

	"github.com/spf13/cobra"
)

func newLabelCmd(g *globals) *cobra.Command {
	var (
		cluster int64
		limit   int
		all     bool
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "label",
		Short: "Label one cluster, the first N unlabeled clusters, or all of them",
		Example: `  labelctl label --cluster 42
  labelctl label --limit 10
  labelctl label --all --source db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Cluster ids start at 0, so the flag itself marks a single-cluster run.
			single := cmd.Flags().Changed("cluster")
			if !single && limit <= 0 && !all {
				return fmt.Errorf("pass --cluster, --limit or --all")
			}
			ctx := cmd.Context()
			store, err := storage.Open(ctx, g.cfg, g.source, g.logger)
			if err != nil {
				return err
			}
			defer store.Close()
			pm, err := providers.NewManager(g.cfg, g.logger)
			if err != nil {
				return err
			}
			orch := batch.NewOrchestrator(labeling.NewEngineFromConfig(g.cfg, pm, g.logger), labeling.Options{}, g.logger)

			var outcomes []models.Outcome
			if single {
				rows, err := store.ClusterRows(ctx, cluster)
				if err != nil {
					return err
				}
				outcomes = []models.Outcome{orch.Label(ctx, batch.NewSnapshot(rows), cluster, store)}
			} else {
				if all {
					limit = 0
				}
				rows, err := store.UnlabeledRows(ctx, limit)
				if err != nil {
					return err
				}
				snap := batch.NewSnapshot(rows)
				outcomes = orch.Run(ctx, snap, batch.Targets(snap, limit), store)
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), outcomes)
			}
			return printOutcomes(cmd.OutOrStdout(), outcomes)
		},
	}
	cmd.Flags().Int64Var(&cluster, "cluster", 0, "label this cluster id only")
	cmd.Flags().IntVar(&limit, "limit", 0, "label at most N unlabeled clusters")
	cmd.Flags().BoolVar(&all, "all", false, "label every unlabeled cluster")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print outcomes as JSON")
	cmd.MarkFlagsMutuallyExclusive("cluster", "limit", "all")
	return cmd
}

func newSummaryCmd(g *globals) *cobra.Command {
	var sortBy, filter string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print labeling coverage and clusters grouped by label as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.Open(cmd.Context(), g.cfg, g.source, g.logger)
			if err != nil {
				return err
			}
			defer store.Close()
			rows, err := store.Rows(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report.Summary(rows, sortBy, filter))
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", "", "label_count orders label groups by size")
	cmd.Flags().StringVar(&filter, "filter", "", "manual keeps only manual-review clusters")
	return cmd
}

func newResetCmd(g *globals) *cobra.Command {
	var (
		confirm bool
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear cluster labels so they can be labeled again",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return util.ErrResetNotConfirmed
			}
			store, err := storage.Open(cmd.Context(), g.cfg, g.source, g.logger)
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.ResetLabels(cmd.Context(), limit)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "reset %d clusters\n", n)
			return err
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "required; resetting discards labels")
	cmd.Flags().IntVar(&limit, "limit", 0, "reset at most N labeled clusters (0 = all)")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printOutcomes(w io.Writer, outcomes []models.Outcome) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLUSTER\tLABEL\tSTATUS\tSCORE\tNOTE")
	for _, o := range outcomes {
		status := string(o.Status)
		switch {
		case o.Error:
			status = "error"
		case o.Skip:
			status = "skipped"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.3f\t%s\n", o.ClusterID, o.ClusterLabel, status, o.SimilarityScore, util.DisplaySnippet(o.Message, 60))
	}
	return tw.Flush()
}
