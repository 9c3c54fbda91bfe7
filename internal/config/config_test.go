package config

import (
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/nodebeat/internal/errors"
)

func testLocator(t *testing.T) Locator {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/work", 0o755))
	require.NoError(t, fs.MkdirAll("/home/op", 0o755))
	return Locator{Fs: fs, Cwd: "/work", Home: "/home/op"}
}

func TestFind_SearchOrder(t *testing.T) {
	l := testLocator(t)

	path, err := l.Find("")
	require.NoError(t, err)
	assert.Empty(t, path, "no config anywhere")

	global := filepath.Join("/home/op", GlobalConfigDir, GlobalConfigFile)
	require.NoError(t, afero.WriteFile(l.Fs, global, []byte("interval: 5\n"), 0o644))
	path, err = l.Find("")
	require.NoError(t, err)
	assert.Equal(t, global, path)

	local := filepath.Join("/work", ConfigFileName)
	require.NoError(t, afero.WriteFile(l.Fs, local, []byte("interval: 7\n"), 0o644))
	path, err = l.Find("")
	require.NoError(t, err)
	assert.Equal(t, local, path, "cwd config wins over global")

	require.NoError(t, afero.WriteFile(l.Fs, "/etc/nb.yaml", []byte("interval: 9\n"), 0o644))
	path, err = l.Find("/etc/nb.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/nb.yaml", path, "explicit path wins")
}

func TestFind_ExplicitMissing(t *testing.T) {
	l := testLocator(t)
	_, err := l.Find("/nope.yaml")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestLoad_Defaults(t *testing.T) {
	l := testLocator(t)

	cfg, path, err := l.Load(NewViper(), "")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, []string{"node1", "node2", "node3", "node4"}, cfg.Targets)
	assert.Equal(t, 10, cfg.Interval)
	assert.Equal(t, 10, cfg.Timeout)
	assert.Equal(t, "accept-new", cfg.HostKeyPolicy)
	assert.Equal(t, "/home/op/.ssh/config", cfg.SSHConfig)
	assert.Equal(t, "/home/op/.ssh/known_hosts", cfg.KnownHosts)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_File(t *testing.T) {
	l := testLocator(t)
	yaml := `
command: uptime
ssh_config: ~/cluster/ssh_config
targets: [gpu1, gpu2]
interval: 30
timeout: 5
host_key_policy: strict
utc: true
`
	require.NoError(t, afero.WriteFile(l.Fs, "/work/"+ConfigFileName, []byte(yaml), 0o644))

	cfg, path, err := l.Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, "/work/"+ConfigFileName, path)
	assert.Equal(t, "uptime", cfg.Command)
	assert.Equal(t, "/home/op/cluster/ssh_config", cfg.SSHConfig)
	assert.Equal(t, []string{"gpu1", "gpu2"}, cfg.Targets)
	assert.Equal(t, 30, cfg.Interval)
	assert.Equal(t, 5, cfg.Timeout)
	assert.Equal(t, "strict", cfg.HostKeyPolicy)
	assert.True(t, cfg.UTC)
	assert.False(t, cfg.Plain)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	l := testLocator(t)
	require.NoError(t, afero.WriteFile(l.Fs, "/work/"+ConfigFileName, []byte("interval: 30\n"), 0o644))
	t.Setenv("NODEBEAT_INTERVAL", "3")
	t.Setenv("NODEBEAT_TARGETS", "a,b")

	cfg, _, err := l.Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Interval)
	assert.Equal(t, []string{"a", "b"}, cfg.Targets)
}

func TestLoad_SetOverridesEverything(t *testing.T) {
	l := testLocator(t)
	require.NoError(t, afero.WriteFile(l.Fs, "/work/"+ConfigFileName, []byte("timeout: 30\n"), 0o644))

	v := NewViper()
	v.Set(KeyTimeout, 2)

	cfg, _, err := l.Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Timeout)
}

func TestLoad_InvalidYAML(t *testing.T) {
	l := testLocator(t)
	require.NoError(t, afero.WriteFile(l.Fs, "/work/"+ConfigFileName, []byte("targets: [unclosed\n"), 0o644))

	_, _, err := l.Load(NewViper(), "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"zero interval", func(c *Config) { c.Interval = 0 }, "Interval must be at least 1 second"},
		{"negative timeout", func(c *Config) { c.Timeout = -1 }, "Timeout must be at least 1 second"},
		{"no targets", func(c *Config) { c.Targets = nil }, "No targets configured"},
		{"duplicate target", func(c *Config) { c.Targets = []string{"a", "a"} }, "listed twice"},
		{"blank target", func(c *Config) { c.Targets = []string{"a", " "} }, "Empty target name"},
		{"unknown policy", func(c *Config) { c.HostKeyPolicy = "trust-me" }, "Unknown host key policy"},
		{"future version", func(c *Config) { c.Version = CurrentConfigVersion + 1 }, "from the future"},
		{"no ssh config", func(c *Config) { c.SSHConfig = "" }, "No ssh config path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
		})
	}
}

func TestExpandTilde(t *testing.T) {
	assert.Equal(t, "/home/op", ExpandTilde("~", "/home/op"))
	assert.Equal(t, "/home/op/.ssh/config", ExpandTilde("~/.ssh/config", "/home/op"))
	assert.Equal(t, "/etc/ssh/config", ExpandTilde("/etc/ssh/config", "/home/op"))
	assert.Equal(t, "~other/x", ExpandTilde("~other/x", "/home/op"))
	assert.Equal(t, "~/x", ExpandTilde("~/x", ""))
}

func TestWrite_RoundTrip(t *testing.T) {
	l := testLocator(t)
	cfg := DefaultConfig()
	cfg.Targets = []string{"gpu1", "gpu2"}
	cfg.Command = "nvidia-smi --query-gpu=utilization.gpu --format=csv,noheader"
	cfg.Interval = 15

	require.NoError(t, Write(l.Fs, "/work/"+ConfigFileName, cfg))

	data, err := afero.ReadFile(l.Fs, "/work/"+ConfigFileName)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# nodebeat configuration")

	loaded, _, err := l.Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, cfg.Targets, loaded.Targets)
	assert.Equal(t, cfg.Command, loaded.Command)
	assert.Equal(t, 15, loaded.Interval)
}

func TestDefaultLocator_NoHomeDirectory(t *testing.T) {
	orig := userHomeDir
	t.Cleanup(func() { userHomeDir = orig })

	userHomeDir = func() (string, error) { return "", stderrors.New("$HOME is not defined") }
	_, err := DefaultLocator()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "Can't determine your home directory")
	assert.Contains(t, err.Error(), "$HOME is not defined")

	userHomeDir = func() (string, error) { return "", nil }
	_, err = DefaultLocator()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestDefaultLocator_UsesHome(t *testing.T) {
	orig := userHomeDir
	t.Cleanup(func() { userHomeDir = orig })

	userHomeDir = func() (string, error) { return "/home/op", nil }
	loc, err := DefaultLocator()
	require.NoError(t, err)
	assert.Equal(t, "/home/op", loc.Home)
	assert.NotEmpty(t, loc.Cwd)
}
