package config

import (
	"fmt"

	"github.com/rileyhilliard/nodebeat/internal/errors"
	"github.com/rileyhilliard/nodebeat/internal/target"
	"github.com/rileyhilliard/nodebeat/pkg/sshutil"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig, "No configuration loaded", "Run 'nodebeat init' to create one")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but nodebeat only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade nodebeat")
	}

	if cfg.Interval < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Interval must be at least 1 second, got %d", cfg.Interval),
			"Set interval to a positive number of seconds")
	}

	if cfg.Timeout < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Timeout must be at least 1 second, got %d", cfg.Timeout),
			"Set timeout to a positive number of seconds")
	}

	if cfg.SSHConfig == "" {
		return errors.New(errors.ErrConfig,
			"No ssh config path set",
			"Set ssh_config or pass --ssh-config")
	}

	if _, err := sshutil.ParseHostKeyPolicy(cfg.HostKeyPolicy); err != nil {
		return err
	}

	if _, err := target.NewSet(cfg.Targets); err != nil {
		return err
	}

	return nil
}
