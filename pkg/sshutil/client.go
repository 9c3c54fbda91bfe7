package sshutil

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// Executor runs one command per Attempt over a fresh SSH connection.
// It holds no connection between attempts and is safe for concurrent use.
type Executor struct {
	// HostKeyCallback verifies server keys. Required.
	HostKeyCallback ssh.HostKeyCallback

	// ShutdownWait bounds how long the orderly close waits for the channel
	// after output is read. Zero means one second.
	ShutdownWait time.Duration
}

// NewExecutor creates an executor with the given host key verification.
func NewExecutor(hostKeyCallback ssh.HostKeyCallback) *Executor {
	return &Executor{HostKeyCallback: hostKeyCallback}
}

// dial covers the network-bound stages: connect, handshake and authenticate.
// The whole exchange is bounded by timeout.
func (e *Executor) dial(ctx context.Context, params Params, timeout time.Duration) (*ssh.Client, error) {
	address := params.Address()

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fail(StageConnect, err)
	}

	// The deadline stands in for socket read/write timeouts while the
	// handshake and auth exchange run; it is cleared before exec.
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		conn.Close()
		return nil, fail(StageConnect, err)
	}

	auth, err := keyFileAuth(params.IdentityFile)
	if err != nil {
		conn.Close()
		return nil, fail(StageAuthenticate, err)
	}

	config := &ssh.ClientConfig{
		User:            params.User,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: e.HostKeyCallback,
		Timeout:         timeout,
	}

	// Closing the conn aborts the handshake if the caller gives up first.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	stop()
	if err != nil {
		conn.Close()
		return nil, fail(classifyHandshakeError(err), err)
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		sshConn.Close()
		return nil, fail(StageHandshake, err)
	}

	return ssh.NewClient(sshConn, chans, reqs), nil
}

// classifyHandshakeError splits the combined handshake+auth error of
// ssh.NewClientConn into the two stages.
func classifyHandshakeError(err error) Stage {
	errStr := err.Error()
	if strings.Contains(errStr, "unable to authenticate") || strings.Contains(errStr, "no supported methods") {
		return StageAuthenticate
	}
	return StageHandshake
}

// keyFileAuth returns an auth method using a private key file.
func keyFileAuth(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		var passErr *ssh.PassphraseMissingError
		if stderrors.As(err, &passErr) {
			return nil, fmt.Errorf("key %s is passphrase protected; nodebeat needs an unencrypted key", keyPath)
		}
		return nil, fmt.Errorf("parse key %s: %w", keyPath, err)
	}

	return ssh.PublicKeys(signer), nil
}
