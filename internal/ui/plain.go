package ui

import (
	"context"
	"fmt"
	"io"

	"github.com/rileyhilliard/nodebeat/internal/status"
)

// Plain writes every update as "<target>: <line>" lines. It is used when
// stdout is not a terminal or the dashboard is disabled.
type Plain struct {
	out     io.Writer
	board   *status.Board
	updates <-chan status.Update
}

// NewPlain subscribes to board immediately so no update published after
// this call is missed.
func NewPlain(out io.Writer, board *status.Board) *Plain {
	return &Plain{out: out, board: board, updates: board.Subscribe()}
}

// Run writes updates until ctx is done, flushes what is already queued,
// then releases the subscription.
func (p *Plain) Run(ctx context.Context) error {
	defer p.board.Unsubscribe(p.updates)

	for {
		select {
		case <-ctx.Done():
			return p.drain()
		case u, ok := <-p.updates:
			if !ok {
				return nil
			}
			if err := p.write(u); err != nil {
				return err
			}
		}
	}
}

func (p *Plain) write(u status.Update) error {
	for _, line := range bodyLines(u) {
		if _, err := fmt.Fprintf(p.out, "%s: %s\n", u.Target, line); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plain) drain() error {
	for {
		select {
		case u, ok := <-p.updates:
			if !ok {
				return nil
			}
			if err := p.write(u); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}
