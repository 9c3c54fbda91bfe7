package status

import "strings"

// Line is the formatted result of one attempt against a target.
// Every entry in Lines already carries the "<Timestamp> - " prefix.
type Line struct {
	Timestamp string
	Lines     []string
	Failed    bool
}

// Text joins the prefixed lines with newlines. An attempt that produced no
// output yields an empty string.
func (l Line) Text() string {
	return strings.Join(l.Lines, "\n")
}

// Empty reports whether the line has no body.
func (l Line) Empty() bool {
	return len(l.Lines) == 0
}

// Update is a status line published for one target at one tick.
type Update struct {
	Target string
	Line   Line
	// Tick counts attempts for the target, starting at 1. Renderers use it
	// only as a liveness signal.
	Tick uint64
}
