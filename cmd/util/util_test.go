package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestMustBindPFlag(t *testing.T) {
	t.Cleanup(viper.Reset)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("max-item-attempts", 3, "")
	MustBindPFlag("pipeline.maxItemAttempts", flags.Lookup("max-item-attempts"))

	require.Equal(t, 3, viper.GetInt("pipeline.maxItemAttempts"))

	require.NoError(t, flags.Set("max-item-attempts", "5"))
	require.Equal(t, 5, viper.GetInt("pipeline.maxItemAttempts"))

	require.Panics(t, func() {
		MustBindPFlag("pipeline.maxItemAttempts", nil)
	})
}

func TestMustBindEnv(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("CONSENTSYNC_LOG_LEVEL", "debug")

	MustBindEnv("log.level", "CONSENTSYNC_LOG_LEVEL")
	require.Equal(t, "debug", viper.GetString("log.level"))

	require.Panics(t, func() {
		MustBindEnv()
	})
}

func TestPrepareTempConfigFile(t *testing.T) {
	PrepareTempConfigFile(t, "log:\n  level: warn\n")

	data, err := os.ReadFile(filepath.Join(os.Getenv("HOME"), ".consentsync", "config.yaml"))
	require.NoError(t, err)
	require.Contains(t, string(data), "level: warn")
}
