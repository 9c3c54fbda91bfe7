package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rileyhilliard/nodebeat/internal/config"
	"github.com/rileyhilliard/nodebeat/internal/ui"
)

// Global flags
var (
	cfgFile   string
	nodesFlag string
	noColor   bool
)

// settings merges flags, NODEBEAT_* env, the config file and defaults.
var settings = config.NewViper()

var rootCmd = &cobra.Command{
	Use:   "nodebeat [flags] <command>",
	Short: "Run a command on every node over SSH and watch the latest output",
	Long: `nodebeat runs one shell command on a fixed set of hosts on a fixed interval
and shows the latest timestamped output from each host.

Targets are Host aliases from your ssh config. Each target is polled on its
own, so a host that is down never holds up the others.

Examples:
  nodebeat uptime
  nodebeat -i 5 -n 1,3 'nvidia-smi --query-gpu=utilization.gpu --format=csv,noheader'
  nodebeat --plain 'df -h /' | tee disk.log`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || os.Getenv("NO_COLOR") != "" {
			ui.DisableColors()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchCommand(cmd.Context(), args)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./.nodebeat.yaml, then ~/.config/nodebeat/config.yaml)")
	flags.StringP("ssh-config", "s", "", "ssh config file targets resolve against (default ~/.ssh/config)")
	flags.String("host-key-policy", "", "host key verification: accept-new, strict or off (default accept-new)")
	flags.String("known-hosts", "", "known_hosts file (default ~/.ssh/known_hosts)")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.Flags().IntP("interval", "i", config.DefaultIntervalSeconds, "seconds between polls")
	rootCmd.Flags().IntP("timeout", "t", config.DefaultTimeoutSeconds, "seconds allowed for each network stage of an attempt")
	rootCmd.Flags().StringVarP(&nodesFlag, "nodes", "n", "", "comma-separated targets by name or 1-based index (default: all)")
	rootCmd.Flags().Bool("utc", false, "print timestamps in UTC")
	rootCmd.Flags().Bool("plain", false, "print plain lines instead of the live dashboard")

	bindFlags(settings, rootCmd)
}

// bindFlags ties flags to their config keys so a flag only wins when set.
func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	bindings := map[string]string{
		config.KeySSHConfig:     "ssh-config",
		config.KeyHostKeyPolicy: "host-key-policy",
		config.KeyKnownHosts:    "known-hosts",
		config.KeyInterval:      "interval",
		config.KeyTimeout:       "timeout",
		config.KeyUTC:           "utc",
		config.KeyPlain:         "plain",
	}
	for key, name := range bindings {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			flag = cmd.PersistentFlags().Lookup(name)
		}
		if flag == nil {
			continue
		}
		_ = v.BindPFlag(key, flag)
	}
}

// loadConfig finds, merges and validates the configuration.
func loadConfig() (*config.Config, error) {
	loc, err := config.DefaultLocator()
	if err != nil {
		return nil, err
	}
	cfg, _, err := loc.Load(settings, cfgFile)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
