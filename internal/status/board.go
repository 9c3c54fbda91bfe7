// Package status holds the latest status line for every polled target.
//
// Board is the single shared object between pollers (writers) and renderers
// (readers). Each target has exactly one slot; a publish overwrites it.
// Renderers either read snapshots or subscribe to a stream of updates.
package status

import (
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// subscriberBuffer is the channel capacity handed to each subscriber.
const subscriberBuffer = 64

// Board stores the latest Update per target in configuration order.
type Board struct {
	mu    sync.RWMutex
	slots *orderedmap.OrderedMap[string, Update]

	subMu       sync.RWMutex
	subscribers map[chan Update]struct{}
}

// NewBoard creates a board with one empty slot per target name.
func NewBoard(targets []string) *Board {
	slots := orderedmap.New[string, Update]()
	for _, name := range targets {
		slots.Set(name, Update{Target: name})
	}
	return &Board{
		slots:       slots,
		subscribers: make(map[chan Update]struct{}),
	}
}

// Publish overwrites the target's slot and notifies subscribers.
// Updates for targets the board was not created with are dropped.
func (b *Board) Publish(u Update) {
	b.mu.Lock()
	if _, ok := b.slots.Get(u.Target); !ok {
		b.mu.Unlock()
		return
	}
	b.slots.Set(u.Target, u)
	b.mu.Unlock()

	b.notify(u)
}

// Get returns the latest update for a target. The bool is false if the
// target is unknown.
func (b *Board) Get(target string) (Update, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.slots.Get(target)
}

// Targets returns the target names in configuration order.
func (b *Board) Targets() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, b.slots.Len())
	for pair := b.slots.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Snapshot returns every slot in configuration order. Targets that have not
// reported yet have a zero Tick.
func (b *Board) Snapshot() []Update {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Update, 0, b.slots.Len())
	for pair := b.slots.Oldest(); pair != nil; pair = pair.Next() {
		u := pair.Value
		u.Line.Lines = append([]string(nil), u.Line.Lines...)
		out = append(out, u)
	}
	return out
}

// Subscribe returns a channel receiving every subsequent update.
// Slow subscribers miss updates instead of blocking publishers; Snapshot
// recovers the current state. Call Unsubscribe when done.
func (b *Board) Subscribe() <-chan Update {
	ch := make(chan Update, subscriberBuffer)

	b.subMu.Lock()
	b.subscribers[ch] = struct{}{}
	b.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call more than once.
func (b *Board) Unsubscribe(ch <-chan Update) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	for sub := range b.subscribers {
		if sub == ch {
			delete(b.subscribers, sub)
			close(sub)
			return
		}
	}
}

func (b *Board) notify(u Update) {
	b.subMu.RLock()
	defer b.subMu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- u:
		default:
		}
	}
}
