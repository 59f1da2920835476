package shared

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fnRunnable func()

func (f fnRunnable) Run() { f() }

func TestScheduleThenWaitRuns(t *testing.T) {
	s := New()
	ran := make(chan struct{}, 1)
	require.NoError(t, s.Schedule(fnRunnable(func() { ran <- struct{}{} })))

	a := s.Wait()
	require.Equal(t, ActionRun, a.Kind)
	a.Task.Run()

	select {
	case <-ran:
	default:
		t.Fatal("task was not run")
	}
}

func TestWaitBlocksUntilScheduled(t *testing.T) {
	s := New()
	got := make(chan Action, 1)
	go func() { got <- s.Wait() }()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-got:
		t.Fatal("Wait returned before anything was scheduled")
	default:
	}

	require.NoError(t, s.Schedule(fnRunnable(func() {})))

	select {
	case a := <-got:
		assert.Equal(t, ActionRun, a.Kind)
	case <-time.After(time.Second):
		t.Fatal("Wait never returned after Schedule")
	}
}

func TestShutdownWakesAllWaiters(t *testing.T) {
	s := New()
	const n = 8
	var wg sync.WaitGroup
	results := make([]ActionKind, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Wait().Kind
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	s.Shutdown()
	wg.Wait()

	for _, k := range results {
		assert.Equal(t, ActionExit, k)
	}
}

func TestScheduleAfterShutdownReturnsErrClosed(t *testing.T) {
	s := New()
	s.Shutdown()
	err := s.Schedule(fnRunnable(func() {}))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDrainReturnsQueuedTasks(t *testing.T) {
	s := New()
	require.NoError(t, s.Schedule(fnRunnable(func() {})))
	require.NoError(t, s.Schedule(fnRunnable(func() {})))
	s.Shutdown()

	remaining := s.Drain()
	assert.Len(t, remaining, 2)
	assert.Equal(t, 0, s.Len())
}

func TestFIFOOrdering(t *testing.T) {
	s := New()
	var mu sync.Mutex
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, s.Schedule(fnRunnable(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})))
	}

	for i := 0; i < 5; i++ {
		a := s.Wait()
		require.Equal(t, ActionRun, a.Kind)
		a.Task.Run()
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}
