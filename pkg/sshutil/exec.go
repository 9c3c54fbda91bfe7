package sshutil

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/ssh"
)

// DefaultTimeout bounds each network stage when a caller passes zero.
const DefaultTimeout = 10 * time.Second

// Attempt connects to params, runs command verbatim and returns its stdout.
//
// Each stage short-circuits into an *AttemptError naming the stage. Connect,
// handshake and authentication are bounded by timeout, and so is reading the
// output: a command that keeps its stdout open longer than timeout fails with
// StageReadOutputTimeout. A non-zero exit status is not a failure, and errors
// while closing the session after the output was read are ignored.
func (e *Executor) Attempt(ctx context.Context, command string, params Params, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client, err := e.dial(ctx, params, timeout)
	if err != nil {
		return "", err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", fail(StageOpenChannel, err)
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return "", fail(StageOpenChannel, err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		return "", fail(StageOpenChannel, err)
	}

	if err := session.Start(command); err != nil {
		return "", fail(StageRun, err)
	}

	output, err := readOutput(ctx, client, stdout, timeout)
	if err != nil {
		return "", err
	}

	e.shutdown(stdin, session)
	return output, nil
}

// readOutput reads stdout to EOF. On timeout or cancellation it closes the
// connection, which also unblocks the pending read.
func readOutput(ctx context.Context, conn io.Closer, stdout io.Reader, timeout time.Duration) (string, error) {
	type result struct {
		output []byte
		err    error
	}
	resultCh := make(chan result, 1)

	go func() {
		out, err := io.ReadAll(stdout)
		resultCh <- result{out, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-resultCh:
		if r.err != nil {
			return "", fail(StageReadOutput, r.err)
		}
		return string(r.output), nil
	case <-timer.C:
		_ = conn.Close()
		return "", fail(StageReadOutputTimeout, fmt.Errorf("output still open after %s", timeout))
	case <-ctx.Done():
		_ = conn.Close()
		return "", fail(StageReadOutput, ctx.Err())
	}
}

// shutdown sends EOF and waits briefly for the remote side to close the
// channel. The output is already captured, so every error here is dropped.
func (e *Executor) shutdown(stdin io.WriteCloser, session *ssh.Session) {
	_ = stdin.Close()

	wait := e.ShutdownWait
	if wait <= 0 {
		wait = time.Second
	}

	done := make(chan struct{})
	go func() {
		_ = session.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(wait):
	}
}
