// Package cmd contains all the commands included in the binary file.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand enables all children commands to read flags from CLI flags, environment variables prefixed with CONSENTSYNC, or config.yaml (in that order).
func NewRootCommand() *cobra.Command {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("CONSENTSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	configPaths := []string{"/etc/consentsync", "$HOME/.consentsync", "."}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	return &cobra.Command{
		Use:   "consentsync",
		Short: "Reconcile registry consent codes into biospecimens and genomic file ACLs",
		Long: `Reconcile registry consent codes into biospecimens and genomic file ACLs.

consentsync reads the consent code the registry publishes for every sample of a study,
writes it to the matching biospecimen of the dataservice and recomputes the access
control list of every genomic file derived from those biospecimens.`,
		SilenceUsage: true,
	}
}
