package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/janekbaraniewski/aggscope/internal/config"
	"github.com/janekbaraniewski/aggscope/internal/core"
	"github.com/janekbaraniewski/aggscope/internal/datasource"
	"github.com/janekbaraniewski/aggscope/internal/fieldformats"
	"github.com/janekbaraniewski/aggscope/internal/inspector"
	"github.com/janekbaraniewski/aggscope/internal/search"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newTableCommand(cfg config.Config) *cobra.Command {
	var (
		db          string
		raw         bool
		loadFilters string
	)
	cmd := &cobra.Command{
		Use:   "table <request.yaml>",
		Short: "Run a request once and print the projected table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := search.Load(args[0])
			if err != nil {
				return err
			}
			store, err := datasource.OpenStore(resolveDB(cfg, db))
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			var extra []core.Filter
			if loadFilters != "" {
				if extra, err = store.LoadFilters(ctx, loadFilters); err != nil {
					return err
				}
			}
			return printTable(ctx, cmd.OutOrStdout(), cfg, store, req, extra, raw)
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "SQLite database (defaults to the configured database)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print raw values instead of formatted text")
	cmd.Flags().StringVar(&loadFilters, "load-filters", "", "apply a saved filter set")
	return cmd
}

func printTable(ctx context.Context, w io.Writer, cfg config.Config, store *datasource.Store, req *search.Request, extra []core.Filter, raw bool) error {
	res, err := search.NewRunner(store, cfg.Overrides()).Run(ctx, req, extra)
	if err != nil {
		return err
	}
	registry := fieldformats.NewRegistry(fieldformats.ParseLocale(cfg.Locale))
	data, err := inspector.BuildTabularData(ctx, res.Table, inspector.Options{
		DeserializeFieldFormat: registry.Factory(),
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(w, renderTable(data, raw))
	fmt.Fprintf(w, "%d rows · %s\n", len(data.Rows), res.Took.Round(time.Millisecond))
	return nil
}

func renderTable(data core.TabularData, raw bool) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(lo.Map(data.Columns, func(col core.TabularColumn, _ int) string { return col.Name })...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, row := range data.Rows {
		t.Row(lo.Map(data.Columns, func(col core.TabularColumn, _ int) string {
			cell := row[col.Field]
			if raw {
				return rawText(cell.Raw)
			}
			return cell.Formatted
		})...)
	}
	return t.String()
}

func rawText(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprint(v)
	}
}
