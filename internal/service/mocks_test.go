package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Strob0t/StudyMate/internal/domain"
	"github.com/Strob0t/StudyMate/internal/domain/record"
	"github.com/Strob0t/StudyMate/internal/domain/user"
	"github.com/Strob0t/StudyMate/internal/port/llm"
	"github.com/Strob0t/StudyMate/internal/port/messagequeue"
	"github.com/Strob0t/StudyMate/internal/temporal"
)

// colombo mirrors Asia/Colombo without depending on the host tz database.
var colombo = time.FixedZone("Asia/Colombo", 5*3600+30*60)

// friday is 2025-11-14 10:00 in Colombo.
var friday = time.Date(2025, 11, 14, 10, 0, 0, 0, colombo)

func testResolver() *temporal.Resolver {
	return temporal.NewResolverIn(colombo)
}

// mockGenerator returns queued responses in order and records every request.
type mockGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	requests  []llm.Request
}

func (g *mockGenerator) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	if len(g.responses) == 0 {
		return nil, fmt.Errorf("mock generator: no response queued")
	}
	content := g.responses[0]
	g.responses = g.responses[1:]
	return &llm.Response{Content: content, Model: req.Model}, nil
}

// mockStore implements database.Store in memory.
type mockStore struct {
	mu       sync.Mutex
	users    map[string]*user.User
	tasks    map[string]*record.Task
	quizzes  []record.QuizAttempt
	err      error // returned by every call when set
	getCalls int
}

func newMockStore() *mockStore {
	return &mockStore{users: map[string]*user.User{}, tasks: map[string]*record.Task{}}
}

func (s *mockStore) GetUser(_ context.Context, id string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *mockStore) UpsertUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *mockStore) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *mockStore) CreateTask(_ context.Context, t *record.Task) (*record.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if t.ID == "" {
		t.ID = fmt.Sprintf("task-%d", len(s.tasks)+1)
	}
	if _, dup := s.tasks[t.ID]; dup {
		return nil, fmt.Errorf("task %s: %w", t.ID, domain.ErrConflict)
	}
	cp := *t
	s.tasks[t.ID] = &cp
	return &cp, nil
}

func (s *mockStore) GetTask(_ context.Context, userID, id string) (*record.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (s *mockStore) ListTasks(_ context.Context, userID string, limit int) ([]record.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []record.Task
	for _, t := range s.tasks {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *mockStore) UpdateTask(_ context.Context, userID, id string, u *record.Update) (*record.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	u.Apply(t)
	cp := *t
	return &cp, nil
}

func (s *mockStore) DeleteTask(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	delete(s.tasks, id)
	return nil
}

func (s *mockStore) ListQuizAttempts(_ context.Context, userID string, limit int) ([]record.QuizAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []record.QuizAttempt
	for _, q := range s.quizzes {
		if q.UserID == userID {
			out = append(out, q)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *mockStore) Ping(_ context.Context) error { return s.err }

// mockQueue implements messagequeue.Queue for testing.
type mockQueue struct {
	mu         sync.Mutex
	published  []publishedMsg
	publishErr error
}

type publishedMsg struct {
	subject string
	data    []byte
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, publishedMsg{subject, data})
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, _ string, _ messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

func (q *mockQueue) Subjects() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.published))
	for _, m := range q.published {
		out = append(out, m.subject)
	}
	return out
}

// mapCache implements cache.Cache without expiry.
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}
