// Package target defines the remote nodes nodebeat polls.
//
// A Target is identified by its canonical name, which is also the ssh config
// alias it resolves through. The configured targets form an ordered Set, and
// users may refer to a target either by name or by its 1-based position.
package target

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rileyhilliard/nodebeat/internal/errors"
	"github.com/samber/lo"
)

// DefaultNames is the target list used when no configuration names one.
var DefaultNames = []string{"node1", "node2", "node3", "node4"}

// Target is the canonical name of a configured remote node.
type Target string

// String returns the display form, which is the canonical name.
func (t Target) String() string {
	return string(t)
}

// Set is the ordered list of configured targets.
type Set struct {
	targets []Target
	index   map[Target]int
}

// NewSet builds a Set from canonical names, preserving order.
// Names must be non-empty, unique, and must not be purely numeric
// (a numeric name would be ambiguous with positional shorthand).
func NewSet(names []string) (*Set, error) {
	if len(names) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"No targets configured",
			"List at least one ssh config alias under 'targets' in .nodebeat.yaml")
	}

	s := &Set{
		targets: make([]Target, 0, len(names)),
		index:   make(map[Target]int, len(names)),
	}
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			return nil, errors.New(errors.ErrConfig,
				"Empty target name in configuration",
				"Remove the blank entry from 'targets'")
		}
		if _, err := strconv.Atoi(name); err == nil {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("Target name '%s' is numeric", name),
				"Numbers select targets by position; give the host an alias like node"+name)
		}
		t := Target(name)
		if _, dup := s.index[t]; dup {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("Target '%s' is listed twice", name),
				"Each target may appear only once in 'targets'")
		}
		s.index[t] = len(s.targets)
		s.targets = append(s.targets, t)
	}
	return s, nil
}

// Len returns the number of configured targets.
func (s *Set) Len() int {
	return len(s.targets)
}

// All returns the configured targets in order.
func (s *Set) All() []Target {
	out := make([]Target, len(s.targets))
	copy(out, s.targets)
	return out
}

// Names returns the canonical names in order.
func (s *Set) Names() []string {
	return Names(s.targets)
}

// Index returns the 1-based position of t, or 0 if t is not in the set.
func (s *Set) Index(t Target) int {
	i, ok := s.index[t]
	if !ok {
		return 0
	}
	return i + 1
}

// Parse resolves a canonical name or a 1-based index to a Target.
func (s *Set) Parse(input string) (Target, error) {
	in := strings.TrimSpace(input)

	if n, err := strconv.Atoi(in); err == nil {
		if n < 1 || n > len(s.targets) {
			return "", errors.New(errors.ErrConfig,
				fmt.Sprintf("Target index %d is out of range", n),
				fmt.Sprintf("Use 1 to %d, or one of: %s", len(s.targets), strings.Join(s.Names(), ", ")))
		}
		return s.targets[n-1], nil
	}

	t := Target(in)
	if _, ok := s.index[t]; !ok {
		return "", errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown target '%s'", in),
			fmt.Sprintf("Configured targets: %s", strings.Join(s.Names(), ", ")))
	}
	return t, nil
}

// ParseList parses a comma-separated selection such as "1,node3".
// An empty selection means every configured target. Duplicates collapse to
// their first occurrence.
func (s *Set) ParseList(csv string) ([]Target, error) {
	if strings.TrimSpace(csv) == "" {
		return s.All(), nil
	}

	var selected []Target
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, err := s.Parse(part)
		if err != nil {
			return nil, err
		}
		selected = append(selected, t)
	}
	if len(selected) == 0 {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("No targets in selection '%s'", csv),
			"Pass names or numbers separated by commas, e.g. --nodes 1,node3")
	}
	return lo.Uniq(selected), nil
}

// Names converts targets to their canonical names.
func Names(targets []Target) []string {
	return lo.Map(targets, func(t Target, _ int) string { return t.String() })
}
