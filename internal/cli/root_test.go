package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/nodebeat/internal/config"
)

func TestBashCompletion(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, rootCmd.GenBashCompletion(&out))
	assert.Contains(t, out.String(), "__start_nodebeat")
}

func TestSubcommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"init", "targets", "version"})
}

func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.PersistentFlags().StringP("ssh-config", "s", "", "")
	cmd.Flags().IntP("interval", "i", config.DefaultIntervalSeconds, "")
	cmd.Flags().Bool("utc", false, "")
	return cmd
}

func TestBindFlags_UnsetFlagDoesNotOverride(t *testing.T) {
	t.Setenv("NODEBEAT_INTERVAL", "7")
	v := config.NewViper()
	cmd := newFlagCommand()
	bindFlags(v, cmd)

	assert.Equal(t, 7, v.GetInt(config.KeyInterval), "env wins over an unset flag")
	assert.False(t, v.GetBool(config.KeyUTC))
}

func TestBindFlags_SetFlagWins(t *testing.T) {
	t.Setenv("NODEBEAT_INTERVAL", "7")
	v := config.NewViper()
	cmd := newFlagCommand()
	bindFlags(v, cmd)

	require.NoError(t, cmd.ParseFlags([]string{"-i", "3", "--utc", "-s", "/etc/ssh/cfg"}))
	assert.Equal(t, 3, v.GetInt(config.KeyInterval))
	assert.True(t, v.GetBool(config.KeyUTC))
	assert.Equal(t, "/etc/ssh/cfg", v.GetString(config.KeySSHConfig))
}
