package sshutil

import "fmt"

// Stage names the step of a remote execution attempt that failed.
type Stage string

const (
	StageConnect           Stage = "connect"
	StageHandshake         Stage = "handshake"
	StageAuthenticate      Stage = "authenticate"
	StageOpenChannel       Stage = "open-channel"
	StageRun               Stage = "run"
	StageReadOutput        Stage = "read-output"
	StageReadOutputTimeout Stage = "read-output-timeout"
)

// Description returns the verb phrase used in "Failed to <description>".
func (s Stage) Description() string {
	switch s {
	case StageConnect:
		return "connect"
	case StageHandshake:
		return "handshake"
	case StageAuthenticate:
		return "authenticate"
	case StageOpenChannel:
		return "open channel"
	case StageRun:
		return "execute command"
	case StageReadOutput:
		return "read output"
	case StageReadOutputTimeout:
		return "read output before timeout"
	default:
		return string(s)
	}
}

// AttemptError is the failure of one remote execution attempt.
type AttemptError struct {
	Stage Stage
	Cause error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Stage.Description(), e.Cause)
}

func (e *AttemptError) Unwrap() error {
	return e.Cause
}

func fail(stage Stage, cause error) *AttemptError {
	return &AttemptError{Stage: stage, Cause: cause}
}
