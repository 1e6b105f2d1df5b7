package main

import (
	"fmt"

	"github.com/janekbaraniewski/aggscope/internal/appupdate"
	"github.com/janekbaraniewski/aggscope/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "aggscope "+version.String())
			if !check {
				return nil
			}

			result, err := appupdate.Check(cmd.Context(), appupdate.CheckOptions{CurrentVersion: version.Version})
			if err != nil {
				return err
			}
			switch {
			case result.CurrentVersion == "":
				fmt.Fprintln(out, "Development build, update check skipped.")
			case result.UpdateAvailable:
				fmt.Fprintf(out, "Update available: %s -> %s\n  %s\n", result.CurrentVersion, result.LatestVersion, result.UpgradeHint)
			default:
				fmt.Fprintln(out, "Up to date.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "check for a newer release")
	return cmd
}
