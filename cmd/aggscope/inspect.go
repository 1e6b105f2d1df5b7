package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/janekbaraniewski/aggscope/internal/config"
	"github.com/janekbaraniewski/aggscope/internal/core"
	"github.com/janekbaraniewski/aggscope/internal/datasource"
	"github.com/janekbaraniewski/aggscope/internal/fieldformats"
	"github.com/janekbaraniewski/aggscope/internal/filters"
	"github.com/janekbaraniewski/aggscope/internal/search"
	"github.com/janekbaraniewski/aggscope/internal/tui"
	"github.com/spf13/cobra"
)

type inspectOptions struct {
	db          string
	watch       bool
	loadFilters string
	saveFilters string
}

func newInspectCommand(cfg config.Config) *cobra.Command {
	opts := inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect <request.yaml>",
		Short: "Open the interactive data inspector for a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("watch") {
				cfg.Inspector.LiveReload = opts.watch
			}
			return runInspect(cfg, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.db, "db", "", "SQLite database (defaults to the configured database)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "re-run when the database or request file changes")
	cmd.Flags().StringVar(&opts.loadFilters, "load-filters", "", "start with a saved filter set")
	cmd.Flags().StringVar(&opts.saveFilters, "save-filters", "", "save the unpinned filters under this name on exit")
	return cmd
}

func runInspect(cfg config.Config, requestPath string, opts inspectOptions) error {
	req, err := search.Load(requestPath)
	if err != nil {
		return err
	}
	dbPath := resolveDB(cfg, opts.db)
	store, err := datasource.OpenStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tui.SetThemeByName(cfg.Theme)
	registry := fieldformats.NewRegistry(fieldformats.ParseLocale(cfg.Locale))
	runner := search.NewRunner(store, cfg.Overrides())

	manager, err := newFilterManager(ctx, cfg, store, opts.loadFilters)
	if err != nil {
		return err
	}
	manager.OnChange(func(all []core.Filter) {
		if err := filters.SavePinned(config.PinnedFiltersPath(), all); err != nil {
			log.Printf("pinned filters persist: %v", err)
		}
	})

	model := tui.NewModel(req.Title, manager, registry.Factory(), cfg.Inspector)

	var (
		program *tea.Program
		seq     atomic.Uint64
		window  atomic.Value
	)
	if req.TimeField != "" {
		window.Store(req.Window())
		model.SetTimeWindow(req.Window(), func(tw core.TimeWindow) {
			window.Store(tw)
		})
	}
	refresh := func() {
		n := seq.Add(1)
		go func() {
			// The request file is re-read so edits show up on the next run.
			current, err := search.Load(requestPath)
			if err != nil {
				program.Send(tui.ErrorMsg{Seq: n, Err: err})
				return
			}
			if tw, ok := window.Load().(core.TimeWindow); ok && current.TimeField != "" {
				current.TimeRange = string(tw)
			}
			res, err := runner.Run(ctx, current, manager.Filters())
			if err != nil {
				program.Send(tui.ErrorMsg{Seq: n, Err: err})
				return
			}
			program.Send(tui.TableMsg{Seq: n, Table: res.Table, Took: res.Took})
		}()
	}
	model.SetOnRefresh(refresh)

	program = tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		err := search.Watch(ctx, []string{dbPath, requestPath}, search.DefaultDebounce, func() {
			program.Send(tui.RefreshMsg{})
		})
		if err != nil {
			log.Printf("watch: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		program.Quit()
	}()

	refresh()
	if _, err := program.Run(); err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("TUI error: %v", err)
	}

	if opts.saveFilters != "" {
		if err := store.SaveFilters(context.Background(), opts.saveFilters, manager.AppFilters()); err != nil {
			return err
		}
		fmt.Printf("Saved %d filters as %q\n", len(manager.AppFilters()), opts.saveFilters)
	}
	return nil
}

// newFilterManager restores pinned filters and, when named, a saved set.
func newFilterManager(ctx context.Context, cfg config.Config, store *datasource.Store, savedName string) (*filters.Manager, error) {
	manager := filters.NewManager(cfg.Inspector.PinFilters)

	pinned, err := filters.LoadPinned(config.PinnedFiltersPath())
	if err != nil {
		log.Printf("pinned filters: %v", err)
	}
	initial := pinned
	if savedName != "" {
		saved, err := store.LoadFilters(ctx, savedName)
		if err != nil {
			return nil, err
		}
		initial = append(initial, saved...)
	}
	manager.SetFilters(initial)
	return manager, nil
}

func resolveDB(cfg config.Config, flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Database
}
