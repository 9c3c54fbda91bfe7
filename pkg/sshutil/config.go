package sshutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"
	"github.com/rileyhilliard/nodebeat/internal/errors"
	"github.com/samber/lo"
	"github.com/spf13/afero"
)

// ConfigResolver resolves target aliases to connection Params using an
// OpenSSH client config file.
type ConfigResolver struct {
	path string
	fs   afero.Fs
	cfg  *ssh_config.Config

	// matchLine is the 1-based line of the first Match directive, or 0.
	matchLine int
}

// LoadConfig reads and parses the ssh config at path.
// A missing or unparsable file is a configuration error.
func LoadConfig(fs afero.Fs, path string) (*ConfigResolver, error) {
	content, matchLine, err := preprocessSSHConfig(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("SSH config not found at %s", path),
				"Create it, or point at another file with --ssh-config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't read SSH config at %s", path),
			"Check the file permissions")
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to parse SSH config at %s", path),
			"Check the syntax with: ssh -G <host>")
	}

	return &ConfigResolver{
		path:      path,
		fs:        fs,
		cfg:       cfg,
		matchLine: matchLine,
	}, nil
}

// Aliases returns the concrete Host aliases in file order. Wildcards can't
// name a single target and are skipped. ssh_config strips the "!" from
// negated patterns, so a name only counts when its own block matches it.
func (r *ConfigResolver) Aliases() []string {
	var aliases []string
	for _, host := range r.cfg.Hosts {
		for _, pattern := range host.Patterns {
			name := pattern.String()
			if name == "" || strings.ContainsAny(name, "*?") || !host.Matches(name) {
				continue
			}
			aliases = append(aliases, name)
		}
	}
	return lo.Uniq(aliases)
}

// Resolve looks up the alias and returns its connection Params.
// HostName and IdentityFile are required and the identity file must exist;
// Port defaults to 22 and User to "root".
func (r *ConfigResolver) Resolve(alias string) (Params, error) {
	params := Params{
		Port: DefaultPort,
		User: DefaultUser,
	}

	hostname, _ := r.cfg.Get(alias, "HostName")
	if hostname == "" {
		suggestion := fmt.Sprintf("Add a 'Host %s' block with a HostName to %s", alias, r.path)
		if r.matchLine > 0 {
			suggestion += fmt.Sprintf(
				" (entries after the Match block at line %d are ignored; move it earlier)", r.matchLine)
		}
		return Params{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("No HostName configured for '%s'", alias),
			suggestion)
	}
	params.Host = hostname

	if port, _ := r.cfg.Get(alias, "Port"); port != "" {
		n, err := strconv.ParseUint(port, 10, 16)
		if err != nil || n == 0 {
			return Params{}, errors.New(errors.ErrConfig,
				fmt.Sprintf("Invalid Port '%s' for '%s'", port, alias),
				"Use a port number between 1 and 65535")
		}
		params.Port = uint16(n)
	}

	if user, _ := r.cfg.Get(alias, "User"); user != "" {
		params.User = user
	}

	identity, _ := r.cfg.Get(alias, "IdentityFile")
	if identity == "" {
		return Params{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("No IdentityFile configured for '%s'", alias),
			fmt.Sprintf("Add an IdentityFile line to the 'Host %s' block in %s", alias, r.path))
	}
	params.IdentityFile = expandPath(identity)

	if _, err := r.fs.Stat(params.IdentityFile); err != nil {
		return Params{}, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Identity file for '%s' is not readable", alias),
			"Point IdentityFile at an existing private key")
	}

	return params, nil
}

// preprocessSSHConfig reads the SSH config and returns content up to the first Match directive.
// kevinburke/ssh_config doesn't support Match, so everything from there on is dropped.
// Also returns the line number where Match was found (0 if not found).
func preprocessSSHConfig(fs afero.Fs, configPath string) ([]byte, int, error) {
	content, err := afero.ReadFile(fs, configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	var result []string
	matchLine := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), "match ") {
			matchLine = i + 1
			break
		}
		result = append(result, line)
	}

	return []byte(strings.Join(result, "\n")), matchLine, nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func expandPath(path string) string {
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
