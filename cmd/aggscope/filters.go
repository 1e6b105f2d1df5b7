package main

import (
	"fmt"

	"github.com/janekbaraniewski/aggscope/internal/config"
	"github.com/janekbaraniewski/aggscope/internal/datasource"
	"github.com/janekbaraniewski/aggscope/internal/filters"
	"github.com/spf13/cobra"
)

func newFiltersCommand(cfg config.Config) *cobra.Command {
	var db string
	cmd := &cobra.Command{
		Use:   "filters",
		Short: "List pinned and saved filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			pinned, err := filters.LoadPinned(config.PinnedFiltersPath())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Pinned:")
			if len(pinned) == 0 {
				fmt.Fprintln(out, "  (none)")
			}
			for _, f := range pinned {
				fmt.Fprintf(out, "  %s\n", f.Label())
			}

			store, err := datasource.OpenStore(resolveDB(cfg, db))
			if err != nil {
				return err
			}
			defer store.Close()

			names, err := store.SavedFilterNames(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Saved:")
			if len(names) == 0 {
				fmt.Fprintln(out, "  (none)")
			}
			for _, name := range names {
				saved, err := store.LoadFilters(cmd.Context(), name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  %s (%d)\n", name, len(saved))
				for _, f := range saved {
					fmt.Fprintf(out, "    %s\n", f.Label())
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "SQLite database (defaults to the configured database)")
	return cmd
}
