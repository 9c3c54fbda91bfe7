package sshutil

import (
	"path/filepath"
	"testing"

	"github.com/rileyhilliard/nodebeat/internal/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
Host node1
    HostName 10.0.0.1
    IdentityFile /keys/id

Host node2
    HostName 10.0.0.2
    Port 2222
    User ops
    IdentityFile /keys/id

Host node3
    IdentityFile /keys/id

Host node4
    HostName 10.0.0.4

Host node5
    HostName 10.0.0.5
    IdentityFile /keys/missing

Host node6
    HostName 10.0.0.6
    Port seventy
    IdentityFile /keys/id

Host home
    HostName home.example.com
    IdentityFile ~/.ssh/id_ed25519

Match host late
    User nobody

Host late
    HostName 10.0.0.9
    IdentityFile /keys/id
`

func newResolver(t *testing.T) *ConfigResolver {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/home/op/.ssh/config", []byte(sampleConfig), 0o600))
	require.NoError(t, afero.WriteFile(fs, "/keys/id", []byte("key"), 0o600))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(homeDir(), ".ssh", "id_ed25519"), []byte("key"), 0o600))

	r, err := LoadConfig(fs, "/home/op/.ssh/config")
	require.NoError(t, err)
	return r
}

func TestResolve_Defaults(t *testing.T) {
	r := newResolver(t)

	p, err := r.Resolve("node1")
	require.NoError(t, err)
	assert.Equal(t, Params{Host: "10.0.0.1", Port: 22, User: "root", IdentityFile: "/keys/id"}, p)
	assert.Equal(t, "10.0.0.1:22", p.Address())
	assert.Equal(t, "root@10.0.0.1:22", p.String())
}

func TestResolve_ExplicitValues(t *testing.T) {
	r := newResolver(t)

	p, err := r.Resolve("node2")
	require.NoError(t, err)
	assert.Equal(t, uint16(2222), p.Port)
	assert.Equal(t, "ops", p.User)
}

func TestResolve_ExpandsHome(t *testing.T) {
	r := newResolver(t)

	p, err := r.Resolve("home")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir(), ".ssh", "id_ed25519"), p.IdentityFile)
}

func TestResolve_ConfigErrors(t *testing.T) {
	r := newResolver(t)

	tests := []struct {
		alias   string
		message string
	}{
		{"node3", "No HostName"},
		{"node4", "No IdentityFile"},
		{"node5", "not readable"},
		{"node6", "Invalid Port"},
		{"unknown", "No HostName"},
	}

	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			_, err := r.Resolve(tt.alias)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestResolve_HostAfterMatchIsIgnored(t *testing.T) {
	r := newResolver(t)

	_, err := r.Resolve("late")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Match block at line")
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(afero.NewMemMapFs(), "/nope/config")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "SSH config not found")
}

func TestPreprocessSSHConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := "Host a\n  HostName a\nMatch all\nHost b\n"
	require.NoError(t, afero.WriteFile(fs, "/c", []byte(content), 0o600))

	out, line, err := preprocessSSHConfig(fs, "/c")
	require.NoError(t, err)
	assert.Equal(t, 3, line)
	assert.Equal(t, "Host a\n  HostName a", string(out))
}

func TestExpandPath(t *testing.T) {
	assert.Equal(t, homeDir(), expandPath("~"))
	assert.Equal(t, filepath.Join(homeDir(), "k"), expandPath("~/k"))
	assert.Equal(t, "/abs/k", expandPath("/abs/k"))
	assert.Equal(t, "~user/k", expandPath("~user/k"))
}

func TestAliases(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := `
Host *
    ServerAliveInterval 30

Host gpu1 gpu2
    IdentityFile /keys/id

Host bastion-?
    User jump

Host gpu1
    Port 2200

Host db !db-old
    HostName 10.0.0.3
`
	require.NoError(t, afero.WriteFile(fs, "/cfg", []byte(cfg), 0o600))
	r, err := LoadConfig(fs, "/cfg")
	require.NoError(t, err)

	assert.Equal(t, []string{"gpu1", "gpu2", "db"}, r.Aliases())
}

func TestAliases_SkipsNegatedPatterns(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := `
Host web !web-legacy
    HostName 10.0.0.5

Host !retired
    User nobody
`
	require.NoError(t, afero.WriteFile(fs, "/cfg", []byte(cfg), 0o600))
	r, err := LoadConfig(fs, "/cfg")
	require.NoError(t, err)

	aliases := r.Aliases()
	assert.Equal(t, []string{"web"}, aliases)
	assert.NotContains(t, aliases, "web-legacy")
	assert.NotContains(t, aliases, "retired")
}
