package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/habiliai/agentmemory"
	"github.com/habiliai/agentmemory/memory"
	"github.com/spf13/cobra"
)

func newListCmd(flags *rootFlags) *cobra.Command {
	var (
		category string
		limit    int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list <user-id>",
		Short: "List the memories stored about a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := openEngine(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer closeEngine(engine)

			opts := []agentmemory.ListOption{agentmemory.WithLimit(limit)}
			if category != "" {
				opts = append(opts, agentmemory.WithCategory(memory.Category(category)))
			}
			records, err := engine.ListMemories(cmd.Context(), args[0], opts...)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), records)
			}
			return printRecords(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only list this category")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of memories (0 lists all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}

func newSearchCmd(flags *rootFlags) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search <user-id> <query>",
		Short: "Search the memories stored about a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := openEngine(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer closeEngine(engine)

			results, err := engine.SearchMemories(cmd.Context(), args[0], args[1], limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), results)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STAGE\tSCORE\tCATEGORY\tKEY\tVALUE")
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\t%s\n", r.Stage, r.Score, r.Record.Category, r.Record.Key, r.Record.Value)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (at most 20)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}

func newForgetCmd(flags *rootFlags) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "forget <user-id> <content>",
		Short: "Delete every memory of a user that contains content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := openEngine(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer closeEngine(engine)

			deleted, err := engine.ForgetMemories(cmd.Context(), args[0], args[1], reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d memories\n", len(deleted))
			return printRecords(cmd.OutOrStdout(), deleted)
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Why the memories are deleted")

	return cmd
}

func newHealthCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the store, the index and the oracle",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := openEngine(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer closeEngine(engine)

			h := engine.Health(cmd.Context())
			if err := printJSON(cmd.OutOrStdout(), h); err != nil {
				return err
			}
			if h.Status == agentmemory.HealthFailed {
				return fmt.Errorf("memory engine is %s", h.Status)
			}
			return nil
		},
	}
}

func printRecords(w io.Writer, records []*memory.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tKEY\tVALUE\tCONFIDENCE\tUPDATED")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\n", r.Category, r.Key, r.Value, r.Confidence, r.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
