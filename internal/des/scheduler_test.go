package des

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonotonicTime(t *testing.T) {
	s := New()
	var times []float64
	record := func(delay float64) Action {
		return func(s *Scheduler) error {
			times = append(times, s.CurrentTime())
			return nil
		}
	}
	require.NoError(t, s.Schedule(3.0, record(3.0)))
	require.NoError(t, s.Schedule(1.0, record(1.0)))
	require.NoError(t, s.Schedule(2.0, record(2.0)))

	require.NoError(t, s.Run())
	assert.Equal(t, []float64{1.0, 2.0, 3.0}, times)
	for i := 1; i < len(times); i++ {
		assert.GreaterOrEqual(t, times[i], times[i-1])
	}
}

func TestFIFOTieBreak(t *testing.T) {
	s := New()
	var order []int
	require.NoError(t, s.Schedule(5.0, func(s *Scheduler) error {
		order = append(order, 1)
		return nil
	}))
	require.NoError(t, s.Schedule(5.0, func(s *Scheduler) error {
		order = append(order, 2)
		return nil
	}))
	require.NoError(t, s.Schedule(5.0, func(s *Scheduler) error {
		order = append(order, 3)
		return nil
	}))
	require.NoError(t, s.Run())
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestSameTimeReschedulingExecutesAfterAlreadyQueued(t *testing.T) {
	s := New()
	var order []string
	require.NoError(t, s.Schedule(1.0, func(s *Scheduler) error {
		order = append(order, "first")
		// scheduling more work at the current time; it must run after
		// any other event already queued for this same timestamp.
		require.NoError(t, s.Schedule(0.0, func(s *Scheduler) error {
			order = append(order, "reentrant")
			return nil
		}))
		return nil
	}))
	require.NoError(t, s.Schedule(1.0, func(s *Scheduler) error {
		order = append(order, "second")
		return nil
	}))
	require.NoError(t, s.Run())
	assert.Equal(t, []string{"first", "second", "reentrant"}, order)
}

func TestNegativeDelayRejected(t *testing.T) {
	s := New()
	err := s.Schedule(-1.0, func(s *Scheduler) error { return nil })
	assert.Error(t, err)
}

func TestRunPropagatesActionError(t *testing.T) {
	s := New()
	require.NoError(t, s.Schedule(0.0, func(s *Scheduler) error {
		return assert.AnError
	}))
	err := s.Run()
	assert.Error(t, err)
}

func TestRunCompletesOnEmptyQueue(t *testing.T) {
	s := New()
	assert.NoError(t, s.Run())
	assert.Equal(t, 0.0, s.CurrentTime())
}
