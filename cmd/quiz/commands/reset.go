package commands

import (
	"context"
	"fmt"

	"judgequiz/internal/version"

	"github.com/spf13/cobra"
)

// ResetCommand returns the full-wipe command. The --yes flag is required so
// the wipe can never happen by accident.
func ResetCommand(app *App) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all progress, history, and bookmarks",
		RunE: func(_ *cobra.Command, _ []string) error {
			if !confirmed {
				fmt.Println("This deletes all progress permanently. Re-run with --yes to confirm.")
				return nil
			}
			if err := app.Progress.Reset(context.Background()); err != nil {
				return err
			}
			fmt.Println("All progress reset.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the wipe")
	return cmd
}

// VersionCommand returns the build version command.
func VersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("quiz %s (commit %s, built %s)\n", version.Version, version.Commit, version.BuildTime)
		},
	}
}
