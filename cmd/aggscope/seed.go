package main

import (
	"fmt"
	"time"

	"github.com/janekbaraniewski/aggscope/internal/config"
	"github.com/janekbaraniewski/aggscope/internal/datasource"
	"github.com/spf13/cobra"
)

func newSeedCommand(cfg config.Config) *cobra.Command {
	var (
		db    string
		table string
		rows  int
		seed  int64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill a table with demo request logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rows <= 0 {
				return fmt.Errorf("--rows must be positive")
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			path := resolveDB(cfg, db)
			store, err := datasource.OpenStore(path)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SeedDemo(cmd.Context(), table, rows, seed); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d rows into %s in %s\n", rows, table, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "SQLite database (defaults to the configured database)")
	cmd.Flags().StringVar(&table, "table", datasource.DemoTable, "table to (re)create")
	cmd.Flags().IntVar(&rows, "rows", 2000, "number of rows")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 picks one)")
	return cmd
}
