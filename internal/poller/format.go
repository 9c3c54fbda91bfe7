package poller

import (
	stderrors "errors"
	"strings"
	"time"

	"github.com/rileyhilliard/nodebeat/internal/errors"
	"github.com/rileyhilliard/nodebeat/internal/status"
	"github.com/rileyhilliard/nodebeat/pkg/sshutil"
)

// FormatTimestamp renders t as RFC3339 with second precision.
// Local time is used unless utc is set.
func FormatTimestamp(t time.Time, utc bool) string {
	if utc {
		t = t.UTC()
	} else {
		t = t.Local()
	}
	return t.Format(time.RFC3339)
}

// FormatOutput prefixes every line of a successful attempt's output with
// "<stamp> - ". Empty output produces an empty body.
func FormatOutput(stamp, output string) status.Line {
	lines := splitLines(output)
	body := make([]string, len(lines))
	for i, l := range lines {
		body[i] = stamp + " - " + l
	}
	return status.Line{Timestamp: stamp, Lines: body}
}

// FormatFailure renders an attempt failure as a single line:
// "<stamp> - Failed to <stage>: <cause>".
func FormatFailure(stamp string, err error) status.Line {
	desc := sshutil.StageRun.Description()
	cause := err

	var attemptErr *sshutil.AttemptError
	if stderrors.As(err, &attemptErr) {
		desc = attemptErr.Stage.Description()
		if attemptErr.Cause != nil {
			cause = attemptErr.Cause
		}
	}

	return failureLine(stamp, desc, errors.SummaryOf(cause))
}

// FormatResolveFailure renders a configuration error for a target that
// never got a poller.
func FormatResolveFailure(stamp string, err error) status.Line {
	return failureLine(stamp, "resolve configuration", errors.SummaryOf(err))
}

func failureLine(stamp, desc, cause string) status.Line {
	return status.Line{
		Timestamp: stamp,
		Lines:     []string{stamp + " - Failed to " + desc + ": " + cause},
		Failed:    true,
	}
}

// splitLines breaks output on "\n", dropping one trailing newline and the
// "\r" of "\r\n" endings.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	parts := strings.Split(s, "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}
