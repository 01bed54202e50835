package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunState_SignalsSuccessOnce(t *testing.T) {
	var signals []bool
	state := newRunState(3, func(ok bool) { signals = append(signals, ok) })

	state.Complete(false)
	state.Complete(true)
	assert.False(t, state.Finished())

	state.Complete(false)
	assert.True(t, state.Finished())
	assert.NoError(t, state.Err())

	// Late failures are ignored
	state.Fail(errors.New("late"))
	assert.NoError(t, state.Err())
	assert.Equal(t, []bool{true}, signals)

	completed, skipped, fallbacks := state.counts()
	assert.Equal(t, 3, completed)
	assert.Zero(t, skipped)
	assert.Equal(t, 1, fallbacks)
}

func TestRunState_FirstFailureWins(t *testing.T) {
	var signals []bool
	state := newRunState(2, func(ok bool) { signals = append(signals, ok) })

	first := errors.New("first")
	state.Fail(first)
	state.Fail(errors.New("second"))
	state.Complete(false)
	state.Complete(false)

	assert.ErrorIs(t, state.Err(), first)
	assert.ErrorIs(t, state.Err(), ErrRunFailed)
	assert.Equal(t, []bool{false}, signals)
}

func TestRunState_ConcurrentCompletion(t *testing.T) {
	const tasks = 200

	var (
		mu      sync.Mutex
		signals int
	)
	state := newRunState(tasks, func(bool) {
		mu.Lock()
		signals++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < tasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state.Complete(false)
		}()
	}
	wg.Wait()

	assert.True(t, state.Finished())
	assert.Equal(t, 1, signals)
	assert.NotEqual(t, [16]byte{}, [16]byte(state.ID))
}
