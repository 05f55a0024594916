package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/openfga/consentsync/cmd"
	"github.com/openfga/consentsync/cmd/run"
)

func main() {
	rootCmd := newConsentSyncCommand()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newConsentSyncCommand() *cobra.Command {
	rootCmd := cmd.NewRootCommand()

	syncCmd := run.NewSyncCommand()
	rootCmd.AddCommand(syncCmd)

	resumeCmd := run.NewResumeCommand()
	rootCmd.AddCommand(resumeCmd)

	versionCmd := cmd.NewVersionCommand()
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}
