package services

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// RunState tracks the (image × breakpoint) tasks of a single run and
// fires its completion hook exactly once: after the last expected task
// completes, or on the first failure, whichever comes first.
type RunState struct {
	ID       uuid.UUID
	expected int

	mu        sync.Mutex
	completed int
	skipped   int
	fallbacks int
	finished  bool
	err       error

	once   sync.Once
	onDone func(ok bool)
}

func newRunState(expected int, onDone func(ok bool)) *RunState {
	return &RunState{
		ID:       uuid.New(),
		expected: expected,
		onDone:   onDone,
	}
}

// Complete credits one finished task. Reaching the expected count
// signals success.
func (s *RunState) Complete(keptNative bool) {
	s.mu.Lock()
	s.completed++
	if keptNative {
		s.fallbacks++
	}
	allDone := s.completed == s.expected
	s.mu.Unlock()

	if allDone {
		s.finish(nil)
	}
}

// Skip records a task that produced no output and earns no credit.
func (s *RunState) Skip() {
	s.mu.Lock()
	s.skipped++
	s.mu.Unlock()
}

// Fail signals failure. It has no effect once the run finished.
func (s *RunState) Fail(err error) {
	s.finish(errors.Join(ErrRunFailed, err))
}

func (s *RunState) finish(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.finished = true
		s.err = err
		s.mu.Unlock()

		if s.onDone != nil {
			s.onDone(err == nil)
		}
	})
}

func (s *RunState) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Err returns the error the run finished with, nil on success or while
// the run is still in progress.
func (s *RunState) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *RunState) counts() (completed, skipped, fallbacks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed, s.skipped, s.fallbacks
}
