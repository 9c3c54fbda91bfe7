package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/nodebeat/internal/config"
	"github.com/rileyhilliard/nodebeat/internal/errors"
	"github.com/rileyhilliard/nodebeat/internal/target"
	"github.com/rileyhilliard/nodebeat/internal/ui"
	"github.com/rileyhilliard/nodebeat/pkg/sshutil"
)

// Init-specific flags
var (
	initForce bool
	initYes   bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .nodebeat.yaml in the current directory",
	Long: `Create a .nodebeat.yaml config in the current directory.

Interactively, you pick targets from the Host aliases in your ssh config and
set the command and interval. With --yes the defaults are written as-is.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot determine current directory",
				"Check directory permissions")
		}
		sshConfig, _ := cmd.Flags().GetString("ssh-config")
		return Init(InitOptions{
			Fs:             afero.NewOsFs(),
			Dir:            cwd,
			SSHConfig:      sshConfig,
			Overwrite:      initForce,
			NonInteractive: initYes,
			Out:            cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config")
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "write defaults without prompting")
}

// InitOptions holds options for the init command.
type InitOptions struct {
	Fs             afero.Fs
	Dir            string // Directory the config is written to
	SSHConfig      string // ssh config to offer aliases from; default ~/.ssh/config
	Overwrite      bool   // Overwrite existing config without asking
	NonInteractive bool   // Skip prompts, use defaults
	Out            io.Writer
}

// initAnswers are the values collected by the init form.
type initAnswers struct {
	Targets  []string
	Command  string
	Interval string
	Policy   string
}

// apply validates the answers and copies them onto cfg.
func (a initAnswers) apply(cfg *config.Config) error {
	if len(a.Targets) > 0 {
		cfg.Targets = a.Targets
	}
	cfg.Command = strings.TrimSpace(a.Command)

	if s := strings.TrimSpace(a.Interval); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("'%s' isn't a valid interval", a.Interval),
				"Use a whole number of seconds, like 10")
		}
		cfg.Interval = n
	}

	if a.Policy != "" {
		cfg.HostKeyPolicy = a.Policy
	}
	return config.Validate(cfg)
}

// Init creates a new .nodebeat.yaml configuration file.
func Init(opts InitOptions) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	configPath := filepath.Join(opts.Dir, config.ConfigFileName)

	if exists, _ := afero.Exists(opts.Fs, configPath); exists && !opts.Overwrite {
		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", configPath),
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", config.ConfigFileName)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Fprintln(opts.Out, "Cancelled.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if opts.SSHConfig != "" {
		cfg.SSHConfig = opts.SSHConfig
	}

	if !opts.NonInteractive {
		answers, err := promptInit(opts.Fs, cfg)
		if err != nil {
			return err
		}
		if err := answers.apply(cfg); err != nil {
			return err
		}
	}

	if err := config.Write(opts.Fs, configPath, cfg); err != nil {
		return err
	}

	fmt.Fprintf(opts.Out, "%s Created %s\n\n", ui.SymbolSuccess, configPath)
	fmt.Fprintln(opts.Out, "Next steps:")
	fmt.Fprintln(opts.Out, "  nodebeat targets   - Check every target resolves")
	fmt.Fprintln(opts.Out, "  nodebeat uptime    - Start polling")
	return nil
}

// promptInit runs the interactive form. Targets are picked from the ssh
// config's Host aliases when it can be read, or typed in otherwise.
func promptInit(fs afero.Fs, cfg *config.Config) (initAnswers, error) {
	answers := initAnswers{
		Interval: strconv.Itoa(cfg.Interval),
		Policy:   cfg.HostKeyPolicy,
	}

	var targetField huh.Field
	var typedTargets string
	aliases := sshAliases(fs, cfg.SSHConfig)
	if len(aliases) > 0 {
		targetField = huh.NewMultiSelect[string]().
			Title("Targets").
			Description("Host aliases from " + cfg.SSHConfig).
			Options(huh.NewOptions(aliases...)...).
			Value(&answers.Targets).
			Validate(func(s []string) error {
				if len(s) == 0 {
					return fmt.Errorf("pick at least one target")
				}
				return nil
			})
	} else {
		typedTargets = strings.Join(cfg.Targets, ",")
		targetField = huh.NewInput().
			Title("Targets").
			Description("Comma-separated Host aliases from your ssh config").
			Value(&typedTargets).
			Validate(func(s string) error {
				_, err := target.NewSet(splitCSV(s))
				if err != nil {
					return fmt.Errorf("%s", errors.SummaryOf(err))
				}
				return nil
			})
	}

	policies := make([]huh.Option[string], len(sshutil.HostKeyPolicies))
	for i, p := range sshutil.HostKeyPolicies {
		policies[i] = huh.NewOption(string(p), string(p))
	}

	form := huh.NewForm(
		huh.NewGroup(targetField),
		huh.NewGroup(
			huh.NewInput().
				Title("Command").
				Description("Run on every target each interval (optional, can be passed on the command line)").
				Placeholder("uptime").
				Value(&answers.Command),
			huh.NewInput().
				Title("Interval (seconds)").
				Value(&answers.Interval).
				Validate(func(s string) error {
					if n, err := strconv.Atoi(strings.TrimSpace(s)); err != nil || n < 1 {
						return fmt.Errorf("enter a whole number of seconds")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Host key policy").
				Options(policies...).
				Value(&answers.Policy),
		),
	)

	if err := form.Run(); err != nil {
		return initAnswers{}, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --yes")
	}

	if typedTargets != "" {
		answers.Targets = splitCSV(typedTargets)
	}
	return answers, nil
}

// sshAliases lists Host aliases from the ssh config, or nil if it can't be read.
func sshAliases(fs afero.Fs, path string) []string {
	resolver, err := sshutil.LoadConfig(fs, config.ExpandTilde(path, homeDir()))
	if err != nil {
		return nil
	}
	return resolver.Aliases()
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func homeDir() string {
	home, _ := os.UserHomeDir()
	return home
}
