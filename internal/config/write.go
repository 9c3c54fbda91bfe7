package config

import (
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/rileyhilliard/nodebeat/internal/errors"
)

const fileHeader = `# nodebeat configuration
# Targets are Host aliases from ssh_config. Run 'nodebeat targets' to check them.

`

// Marshal renders cfg as YAML with a short header comment.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to generate config",
			"This shouldn't happen - please report this bug")
	}
	return append([]byte(fileHeader), data...), nil
}

// Write saves cfg to path on fs.
func Write(fs afero.Fs, path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write config file: "+path,
			"Check directory permissions")
	}
	return nil
}
