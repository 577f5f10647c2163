// Package bus provides a small in-process publish/subscribe broker with
// wildcard pattern subscriptions. It satisfies the core.EventBus port.
package bus

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/telmoq/stickysync/pkg/core"
)

// Broker dispatches events synchronously, in subscription order. Topics are
// dot-separated (e.g. "note.saved"); patterns support glob wildcards, so
// "note.*" matches every note topic and "**" matches everything.
type Broker struct {
	mu     sync.RWMutex
	next   int
	subs   map[int]*subscription
	order  []int
	logger *slog.Logger
}

type subscription struct {
	pattern string
	handler core.Handler
}

// New creates a Broker. logger may be nil.
func New(logger *slog.Logger) *Broker {
	return &Broker{
		subs:   make(map[int]*subscription),
		logger: logger,
	}
}

// Subscribe registers h for every topic matching pattern and returns an
// unsubscribe function. Unsubscribing twice is a no-op.
func (b *Broker) Subscribe(pattern string, h core.Handler) (func(), error) {
	if !doublestar.ValidatePattern(toPath(pattern)) {
		return nil, fmt.Errorf("invalid subscription pattern %q", pattern)
	}

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = &subscription{pattern: pattern, handler: h}
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}, nil
}

// Emit delivers payload to every matching subscriber. A panicking handler is
// logged and does not prevent delivery to the remaining subscribers.
func (b *Broker) Emit(topic string, payload any) {
	b.mu.RLock()
	matched := make([]core.Handler, 0, len(b.order))
	for _, id := range b.order {
		sub, ok := b.subs[id]
		if !ok {
			continue
		}
		if match, err := doublestar.Match(toPath(sub.pattern), toPath(topic)); err == nil && match {
			matched = append(matched, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range matched {
		b.dispatch(topic, payload, h)
	}
}

func (b *Broker) dispatch(topic string, payload any, h core.Handler) {
	defer func() {
		if r := recover(); r != nil && b.logger != nil {
			b.logger.Error("event handler panic", "topic", topic, "error", r)
		}
	}()
	h(topic, payload)
}

// toPath maps dot-separated topics onto the path separator doublestar
// understands, so "note.*" does not cross segment boundaries.
func toPath(topic string) string {
	return strings.ReplaceAll(topic, ".", "/")
}

var _ core.EventBus = (*Broker)(nil)
