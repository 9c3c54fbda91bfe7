package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/nodebeat/internal/config"
	"github.com/rileyhilliard/nodebeat/internal/errors"
	"github.com/rileyhilliard/nodebeat/pkg/sshutil"
)

const testSSHConfig = `
Host node1
    HostName 10.0.0.1
    IdentityFile /keys/id

Host node2
    HostName 10.0.0.2
    IdentityFile /keys/id

Host node3
    HostName 10.0.0.3
    IdentityFile /keys/id

Host node4
    HostName 10.0.0.4
`

// scriptedRunner answers by host; hosts without an entry are unreachable.
type scriptedRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	hosts   []string
}

func (r *scriptedRunner) Attempt(_ context.Context, _ string, params sshutil.Params, _ time.Duration) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hosts = append(r.hosts, params.Host)
	if out, ok := r.outputs[params.Host]; ok {
		return out, nil
	}
	return "", &sshutil.AttemptError{Stage: sshutil.StageConnect, Cause: stderrors.New("connection refused")}
}

func (r *scriptedRunner) Hosts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.hosts...)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/ssh/config", []byte(testSSHConfig), 0o600))
	require.NoError(t, afero.WriteFile(fs, "/keys/id", []byte("key"), 0o600))
	return fs
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.SSHConfig = "/ssh/config"
	cfg.Interval = 1
	cfg.UTC = true
	return cfg
}

// runWatch runs Watch in plain mode until cond holds on the output.
func runWatch(t *testing.T, opts WatchOptions, cond func(string) bool) string {
	t.Helper()
	out := &lockedBuffer{}
	opts.Out = out

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- Watch(ctx, opts) }()

	require.Eventually(t, func() bool { return cond(out.String()) }, 3*time.Second, 10*time.Millisecond,
		"output so far:\n%s", out.String())
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
	return out.String()
}

func TestWatch_PlainOutput(t *testing.T) {
	runner := &scriptedRunner{outputs: map[string]string{
		"10.0.0.1": " 10:00:01 up 3 days\n",
	}}

	out := runWatch(t, WatchOptions{
		Command:   "uptime",
		Selection: "1,node2",
		Config:    testConfig(),
		Fs:        testFs(t),
		Runner:    runner,
	}, func(s string) bool {
		return strings.Contains(s, "node1: ") && strings.Contains(s, "node2: ")
	})

	assert.Regexp(t, `node1: \d{4}-\d\d-\d\dT\d\d:\d\d:\d\dZ -  10:00:01 up 3 days`, out)
	assert.Regexp(t, `node2: \S+Z - Failed to connect: connection refused`, out)
	assert.NotContains(t, out, "node3")
	assert.NotContains(t, runner.Hosts(), "10.0.0.3")
}

func TestWatch_UnresolvableTargetReported(t *testing.T) {
	runner := &scriptedRunner{outputs: map[string]string{"10.0.0.1": "ok\n"}}

	out := runWatch(t, WatchOptions{
		Command:   "uptime",
		Selection: "node1,node4",
		Config:    testConfig(),
		Fs:        testFs(t),
		Runner:    runner,
	}, func(s string) bool {
		return strings.Contains(s, "node1: ") && strings.Contains(s, "node4: ")
	})

	assert.Contains(t, out, "node4: ")
	assert.Contains(t, out, "Failed to resolve configuration: No IdentityFile configured for 'node4'")
}

func TestWatch_SelectionErrors(t *testing.T) {
	for _, sel := range []string{"0", "5", "node9", ","} {
		t.Run(sel, func(t *testing.T) {
			runner := &scriptedRunner{}
			err := Watch(context.Background(), WatchOptions{
				Command:   "uptime",
				Selection: sel,
				Config:    testConfig(),
				Fs:        testFs(t),
				Runner:    runner,
				Out:       &lockedBuffer{},
			})
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
			assert.Empty(t, runner.Hosts(), "nothing polled")
		})
	}
}

func TestWatch_MissingSSHConfig(t *testing.T) {
	cfg := testConfig()
	cfg.SSHConfig = "/nope"

	err := Watch(context.Background(), WatchOptions{
		Command: "uptime",
		Config:  cfg,
		Fs:      testFs(t),
		Runner:  &scriptedRunner{},
		Out:     &lockedBuffer{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SSH config not found at /nope")
}

func TestWatch_NothingPollable(t *testing.T) {
	out := &lockedBuffer{}
	err := Watch(context.Background(), WatchOptions{
		Command:   "uptime",
		Selection: "node4",
		Config:    testConfig(),
		Fs:        testFs(t),
		Runner:    &scriptedRunner{},
		Out:       out,
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, out.String(), "node4: ")
}

func TestNewExecutor_RejectsBadPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.HostKeyPolicy = "nah"
	_, err := newExecutor(cfg, nil)
	require.Error(t, err)
}

func TestRunPrefix(t *testing.T) {
	assert.Regexp(t, `^\[nodebeat [0-9a-f]{8}\]$`, runPrefix())
	assert.NotEqual(t, runPrefix(), runPrefix())
}
