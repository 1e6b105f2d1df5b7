package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/janekbaraniewski/aggscope/internal/config"
	"github.com/janekbaraniewski/aggscope/internal/tui"
	"github.com/spf13/cobra"
)

func main() {
	if os.Getenv("AGGSCOPE_DEBUG") != "" {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Config path: %s\n", config.ConfigPath())
		os.Exit(1)
	}
	if err := tui.LoadThemes(config.ConfigDir()); err != nil {
		log.Printf("themes: %v", err)
	}

	root := cobra.Command{
		Use:           "aggscope",
		Short:         "aggscope runs aggregation requests over SQLite tables and inspects the results as a filterable grid.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newInspectCommand(cfg),
		newTableCommand(cfg),
		newSeedCommand(cfg),
		newFiltersCommand(cfg),
		newVersionCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
