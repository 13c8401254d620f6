// Package scheduler keeps a table of named one-shot callbacks with cancel
// support, driven by an injectable clock.
package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coneflip/overlay-server-go/internal/clock"
)

type task struct {
	deadline time.Time
	timer    clock.Timer
}

type Scheduler struct {
	clock  clock.Clock
	mu     sync.Mutex
	tasks  map[string]*task
	closed bool
}

func New(c clock.Clock) *Scheduler {
	if c == nil {
		c = clock.Real()
	}
	return &Scheduler{
		clock: c,
		tasks: make(map[string]*task),
	}
}

// Schedule runs fn after d under the given id. An existing task with the
// same id is replaced. Returns false once the scheduler is stopped.
func (s *Scheduler) Schedule(id string, d time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if existing, ok := s.tasks[id]; ok {
		existing.timer.Stop()
	}

	t := &task{deadline: s.clock.Now().Add(d)}
	t.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		current, ok := s.tasks[id]
		if !ok || current != t {
			s.mu.Unlock()
			return
		}
		delete(s.tasks, id)
		s.mu.Unlock()

		defer func() {
			if p := recover(); p != nil {
				log.Error().Interface("panic", p).Str("taskId", id).Msg("scheduled task panicked")
			}
		}()
		fn()
	})
	s.tasks[id] = t
	return true
}

// Cancel stops the task with the given id. Returns false if no such task is
// pending (it already ran, was cancelled, or never existed).
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return false
	}
	delete(s.tasks, id)
	t.timer.Stop()
	return true
}

// Deadline returns when the task with the given id is due.
func (s *Scheduler) Deadline(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return time.Time{}, false
	}
	return t.deadline, true
}

func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// Stop cancels every pending task and rejects new ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.tasks {
		t.timer.Stop()
		delete(s.tasks, id)
	}
	s.closed = true
}
