package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Strob0t/StudyMate/internal/port/messagequeue"
)

var _ messagequeue.Queue = (*LocalQueue)(nil)

// LocalQueue is an in-process messagequeue.Queue used when NATS is
// disabled. Publish validates the payload and calls matching handlers
// synchronously; messages with no subscriber are discarded.
type LocalQueue struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]localSub
	closed bool
}

type localSub struct {
	pattern string
	handler messagequeue.Handler
}

// NewLocalQueue returns an empty in-process queue.
func NewLocalQueue() *LocalQueue {
	return &LocalQueue{subs: make(map[int]localSub)}
}

// Publish implements messagequeue.Queue. Handler errors are logged, not
// returned, mirroring asynchronous delivery.
func (q *LocalQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := messagequeue.Validate(subject, data); err != nil {
		return fmt.Errorf("local publish %s: %w", subject, err)
	}

	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("local publish %s: queue closed", subject)
	}
	var handlers []messagequeue.Handler
	for _, s := range q.subs {
		if subjectMatches(s.pattern, subject) {
			handlers = append(handlers, s.handler)
		}
	}
	q.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, subject, data); err != nil {
			slog.Error("message handler failed", "subject", subject, "error", err)
		}
	}
	return nil
}

// Subscribe implements messagequeue.Queue.
func (q *LocalQueue) Subscribe(_ context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := q.nextID
	q.nextID++
	q.subs[id] = localSub{pattern: subject, handler: handler}

	return func() {
		q.mu.Lock()
		delete(q.subs, id)
		q.mu.Unlock()
	}, nil
}

// Drain implements messagequeue.Queue.
func (q *LocalQueue) Drain() error { return q.Close() }

// Close implements messagequeue.Queue.
func (q *LocalQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.subs = make(map[int]localSub)
	q.mu.Unlock()
	return nil
}

// IsConnected always reports true until Close.
func (q *LocalQueue) IsConnected() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return !q.closed
}

// subjectMatches applies NATS wildcard rules: "*" matches one token and a
// trailing ">" matches one or more.
func subjectMatches(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")
	for i, p := range pt {
		if p == ">" {
			return i == len(pt)-1 && len(st) > i
		}
		if i >= len(st) {
			return false
		}
		if p != "*" && p != st[i] {
			return false
		}
	}
	return len(pt) == len(st)
}
