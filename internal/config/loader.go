package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/rileyhilliard/nodebeat/internal/errors"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".nodebeat.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/nodebeat"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix namespaces environment overrides (NODEBEAT_INTERVAL, ...).
	EnvPrefix = "NODEBEAT"
)

// Keys are the viper keys shared by the config file, env and flags.
const (
	KeyCommand       = "command"
	KeySSHConfig     = "ssh_config"
	KeyTargets       = "targets"
	KeyInterval      = "interval"
	KeyTimeout       = "timeout"
	KeyHostKeyPolicy = "host_key_policy"
	KeyKnownHosts    = "known_hosts"
	KeyUTC           = "utc"
	KeyPlain         = "plain"
)

// Locator finds and reads config files. Fs, Cwd and Home are injectable so
// the search order can be tested without touching the real filesystem.
type Locator struct {
	Fs   afero.Fs
	Cwd  string
	Home string
}

// userHomeDir is swapped in tests.
var userHomeDir = os.UserHomeDir

// DefaultLocator uses the OS filesystem, working directory and home.
// Paths like ~/.ssh/config can't be expanded without a home directory,
// so failing to find one is a configuration error.
func DefaultLocator() (Locator, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Locator{}, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}
	home, err := userHomeDir()
	if err != nil || home == "" {
		if err == nil {
			err = stderrors.New("empty home directory")
		}
		return Locator{}, errors.WrapWithCode(err, errors.ErrConfig,
			"Can't determine your home directory",
			"Set $HOME, or pass --config and --ssh-config with absolute paths")
	}
	return Locator{Fs: afero.NewOsFs(), Cwd: cwd, Home: home}, nil
}

// NewViper returns a viper instance with defaults and NODEBEAT_* env overrides.
// Callers bind flags onto it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault(KeyCommand, d.Command)
	v.SetDefault(KeySSHConfig, d.SSHConfig)
	v.SetDefault(KeyTargets, d.Targets)
	v.SetDefault(KeyInterval, d.Interval)
	v.SetDefault(KeyTimeout, d.Timeout)
	v.SetDefault(KeyHostKeyPolicy, d.HostKeyPolicy)
	v.SetDefault(KeyKnownHosts, d.KnownHosts)
	v.SetDefault(KeyUTC, d.UTC)
	v.SetDefault(KeyPlain, d.Plain)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .nodebeat.yaml in current directory
// 3. ~/.config/nodebeat/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func (l Locator) Find(explicit string) (string, error) {
	if explicit != "" {
		path := l.expand(explicit)
		if _, err := l.Fs.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return path, nil
	}

	if l.Cwd != "" {
		local := filepath.Join(l.Cwd, ConfigFileName)
		if _, err := l.Fs.Stat(local); err == nil {
			return local, nil
		}
	}

	if l.Home != "" {
		global := filepath.Join(l.Home, GlobalConfigDir, GlobalConfigFile)
		if _, err := l.Fs.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// Load finds the config file, merges it into v and returns the result with
// ~ expanded in local paths. Precedence is flags, env, file, then defaults.
// The returned path is empty when no file was found.
func (l Locator) Load(v *viper.Viper, explicit string) (*Config, string, error) {
	path, err := l.Find(explicit)
	if err != nil {
		return nil, "", err
	}

	if path != "" {
		v.SetFs(l.Fs)
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, path, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file is valid YAML: "+path)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, path, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+path)
	}

	cfg.SSHConfig = l.expand(cfg.SSHConfig)
	cfg.KnownHosts = l.expand(cfg.KnownHosts)
	cfg.Targets = splitTargets(cfg.Targets)

	return cfg, path, nil
}

// ExpandTilde replaces ~ or ~/path with home.
// Does not support ~username syntax - just ~ for the current user.
func ExpandTilde(path, home string) string {
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func (l Locator) expand(path string) string {
	return ExpandTilde(path, l.Home)
}

// splitTargets flattens comma-separated entries, which is how a target
// list arrives from NODEBEAT_TARGETS or a single YAML string.
func splitTargets(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, name := range strings.Split(entry, ",") {
			out = append(out, strings.TrimSpace(name))
		}
	}
	return out
}
