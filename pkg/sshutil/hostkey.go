package sshutil

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rileyhilliard/nodebeat/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// HostKeyPolicy selects how server host keys are verified.
type HostKeyPolicy string

const (
	// HostKeyStrict accepts only keys already present in known_hosts.
	HostKeyStrict HostKeyPolicy = "strict"
	// HostKeyAcceptNew records unknown hosts in known_hosts on first contact
	// and rejects keys that differ from a recorded one.
	HostKeyAcceptNew HostKeyPolicy = "accept-new"
	// HostKeyOff skips verification entirely.
	HostKeyOff HostKeyPolicy = "off"
)

// HostKeyPolicies lists the valid policies, default first.
var HostKeyPolicies = []HostKeyPolicy{HostKeyAcceptNew, HostKeyStrict, HostKeyOff}

// ParseHostKeyPolicy validates a policy name.
func ParseHostKeyPolicy(s string) (HostKeyPolicy, error) {
	for _, p := range HostKeyPolicies {
		if string(p) == s {
			return p, nil
		}
	}
	names := make([]string, len(HostKeyPolicies))
	for i, p := range HostKeyPolicies {
		names[i] = string(p)
	}
	return "", errors.New(errors.ErrConfig,
		fmt.Sprintf("Unknown host key policy '%s'", s),
		"Use one of: "+strings.Join(names, ", "))
}

// HostKeyCallback builds the ssh callback implementing the policy.
// knownHostsPath is created (empty) if it doesn't exist yet.
func (p HostKeyPolicy) HostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	switch p {
	case HostKeyOff:
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // operator explicitly disabled host key checking
	case HostKeyStrict:
		return createHostKeyCallback(knownHostsPath)
	case HostKeyAcceptNew:
		return createAcceptNewCallback(knownHostsPath)
	default:
		_, err := ParseHostKeyPolicy(string(p))
		return nil, err
	}
}

// HostKeyMismatchError provides helpful context when known_hosts verification fails.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns actionable steps to fix the host key mismatch.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	var wantTypes []string
	for _, k := range e.Want {
		wantTypes = append(wantTypes, k.Key.Type())
	}
	wantStr := "unknown"
	if len(wantTypes) > 0 {
		wantStr = strings.Join(wantTypes, ", ")
	}

	return fmt.Sprintf(
		"The server's host key doesn't match what's in known_hosts.\n"+
			"  Known types: %s\n"+
			"  Server sent: %s\n\n"+
			"  If the host was rebuilt, remove the old entry:\n"+
			"    ssh-keygen -R %s",
		wantStr, e.ReceivedType, host)
}

// ensureKnownHosts creates the known_hosts file (and its directory) if missing.
func ensureKnownHosts(knownHostsPath string) error {
	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0o700); err != nil {
			return fmt.Errorf("failed to create known_hosts directory: %w", err)
		}
		if err := os.WriteFile(knownHostsPath, []byte{}, 0o600); err != nil {
			return fmt.Errorf("failed to create known_hosts: %w", err)
		}
	}
	return nil
}

// createHostKeyCallback wraps the knownhosts callback to provide better error messages.
func createHostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if err := ensureKnownHosts(knownHostsPath); err != nil {
		return nil, err
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		if err != nil {
			var keyErr *knownhosts.KeyError
			if stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
				return &HostKeyMismatchError{
					Hostname:     hostname,
					ReceivedType: key.Type(),
					KnownHosts:   knownHostsPath,
					Want:         keyErr.Want,
				}
			}
		}
		return err
	}, nil
}

// acceptNew remembers keys it has appended, because the knownhosts database
// is loaded once and never sees later writes.
type acceptNew struct {
	path     string
	strict   ssh.HostKeyCallback
	mu       sync.Mutex
	accepted map[string]ssh.PublicKey
}

func createAcceptNewCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	strict, err := createHostKeyCallback(knownHostsPath)
	if err != nil {
		return nil, err
	}
	a := &acceptNew{
		path:     knownHostsPath,
		strict:   strict,
		accepted: make(map[string]ssh.PublicKey),
	}
	return a.check, nil
}

func (a *acceptNew) check(hostname string, remote net.Addr, key ssh.PublicKey) error {
	err := a.strict(hostname, remote, key)
	if err == nil {
		return nil
	}

	var keyErr *knownhosts.KeyError
	if !stderrors.As(err, &keyErr) || len(keyErr.Want) > 0 {
		return err
	}

	// Unknown host: trust on first use.
	addr := knownhosts.Normalize(hostname)

	a.mu.Lock()
	defer a.mu.Unlock()

	if prev, ok := a.accepted[addr]; ok {
		if bytes.Equal(prev.Marshal(), key.Marshal()) {
			return nil
		}
		return &HostKeyMismatchError{
			Hostname:     hostname,
			ReceivedType: key.Type(),
			KnownHosts:   a.path,
			Want:         []knownhosts.KnownKey{{Key: prev, Filename: a.path}},
		}
	}

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to record host key: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(knownhosts.Line([]string{addr}, key) + "\n"); err != nil {
		return fmt.Errorf("failed to record host key: %w", err)
	}
	a.accepted[addr] = key
	return nil
}
