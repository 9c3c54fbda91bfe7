package sshutil

import (
	"context"
	"time"
)

// Runner performs remote execution attempts.
// *Executor implements it; tests substitute scripted fakes.
type Runner interface {
	// Attempt runs command once against params. A failure is always an
	// *AttemptError carrying the stage that failed.
	Attempt(ctx context.Context, command string, params Params, timeout time.Duration) (string, error)
}

// Resolver maps a target alias to its connection Params.
// *ConfigResolver implements it.
type Resolver interface {
	Resolve(alias string) (Params, error)
}

var (
	_ Runner   = (*Executor)(nil)
	_ Resolver = (*ConfigResolver)(nil)
)
