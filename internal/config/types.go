package config

import (
	"time"

	"github.com/rileyhilliard/nodebeat/internal/target"
	"github.com/rileyhilliard/nodebeat/pkg/sshutil"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Defaults for a fresh config.
const (
	DefaultIntervalSeconds = 10
	DefaultTimeoutSeconds  = 10
)

// Config represents the complete .nodebeat.yaml configuration file.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// Command is run when none is given on the command line.
	Command string `yaml:"command,omitempty" mapstructure:"command"`

	// SSHConfig is the OpenSSH client config that targets resolve against.
	SSHConfig string `yaml:"ssh_config" mapstructure:"ssh_config"`

	// Targets are Host aliases from SSHConfig, in display order.
	Targets []string `yaml:"targets" mapstructure:"targets"`

	// Interval is the time between ticks, in seconds.
	Interval int `yaml:"interval" mapstructure:"interval"`

	// Timeout bounds each network stage of an attempt, in seconds.
	Timeout int `yaml:"timeout" mapstructure:"timeout"`

	HostKeyPolicy string `yaml:"host_key_policy" mapstructure:"host_key_policy"`
	KnownHosts    string `yaml:"known_hosts" mapstructure:"known_hosts"`

	// UTC formats timestamps in UTC instead of local time.
	UTC bool `yaml:"utc" mapstructure:"utc"`

	// Plain forces the line-oriented renderer even on a terminal.
	Plain bool `yaml:"plain" mapstructure:"plain"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:       CurrentConfigVersion,
		SSHConfig:     "~/.ssh/config",
		Targets:       append([]string(nil), target.DefaultNames...),
		Interval:      DefaultIntervalSeconds,
		Timeout:       DefaultTimeoutSeconds,
		HostKeyPolicy: string(sshutil.HostKeyPolicies[0]),
		KnownHosts:    "~/.ssh/known_hosts",
	}
}

// IntervalDuration returns Interval as a time.Duration.
func (c *Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}
