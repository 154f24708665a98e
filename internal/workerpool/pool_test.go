package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"docskew/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPool(t *testing.T, n int) *Pool {
	t.Helper()
	p, err := New(n, logger.NewNop())
	require.NoError(t, err)
	return p
}

func TestNewRejectsZero(t *testing.T) {
	_, err := New(0, nil)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestSetMaxWorkersRejectsZero(t *testing.T) {
	p := newPool(t, 2)
	assert.ErrorIs(t, p.SetMaxWorkers(0), ErrInvalidSize)
	assert.Equal(t, 2, p.MaxWorkers())
}

func TestRunsEveryJobOnce(t *testing.T) {
	p := newPool(t, 3)

	const jobs = 200
	var counts [jobs]int32
	for i := 0; i < jobs; i++ {
		i := i
		require.NoError(t, p.SubmitFunc(func() {
			atomic.AddInt32(&counts[i], 1)
		}))
	}
	p.Wait()

	for i := range counts {
		assert.Equal(t, int32(1), counts[i], "job %d", i)
	}
	s := p.Stats()
	assert.Equal(t, uint64(jobs), s.Submitted)
	assert.Equal(t, uint64(jobs), s.Completed)
	assert.Zero(t, s.Running)
	assert.Zero(t, s.Queued)
}

func TestRunningNeverExceedsMax(t *testing.T) {
	p := newPool(t, 4)

	var current, peak int32
	for i := 0; i < 64; i++ {
		require.NoError(t, p.SubmitFunc(func() {
			n := atomic.AddInt32(&current, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&current, -1)
		}))
		s := p.Stats()
		assert.LessOrEqual(t, s.Running, s.MaxWorkers)
	}
	p.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(4))
	assert.Greater(t, atomic.LoadInt32(&peak), int32(0))
}

func TestQueuedJobsRunInFIFOOrder(t *testing.T) {
	p := newPool(t, 1)

	gate := make(chan struct{})
	require.NoError(t, p.SubmitFunc(func() { <-gate }))

	var (
		mu    sync.Mutex
		order []string
	)
	for _, name := range []string{"A", "B", "C"} {
		name := name
		require.NoError(t, p.SubmitFunc(func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}))
	}
	assert.Equal(t, 3, p.Stats().Queued)

	close(gate)
	p.Wait()
	assert.Equal(t, []string{"A", "B", "C"}, order)
}

func TestRaisingMaxDrainsQueue(t *testing.T) {
	p := newPool(t, 1)

	release := make(chan struct{})
	started := make(chan struct{}, 4)
	for i := 0; i < 4; i++ {
		require.NoError(t, p.SubmitFunc(func() {
			started <- struct{}{}
			<-release
		}))
	}

	<-started
	assert.Equal(t, 3, p.Stats().Queued)

	require.NoError(t, p.SetMaxWorkers(4))
	for i := 0; i < 3; i++ {
		select {
		case <-started:
		case <-time.After(5 * time.Second):
			t.Fatal("queued job was not admitted after raising the limit")
		}
	}

	s := p.Stats()
	assert.Equal(t, 4, s.Running)
	assert.Zero(t, s.Queued)

	close(release)
	p.Wait()
}

func TestLoweringMaxDoesNotPreempt(t *testing.T) {
	p := newPool(t, 3)

	release := make(chan struct{})
	started := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, p.SubmitFunc(func() {
			started <- struct{}{}
			<-release
		}))
	}
	for i := 0; i < 3; i++ {
		<-started
	}

	require.NoError(t, p.SetMaxWorkers(1))
	var late int32
	require.NoError(t, p.SubmitFunc(func() { atomic.StoreInt32(&late, 1) }))

	s := p.Stats()
	assert.Equal(t, 3, s.Running)
	assert.Equal(t, 1, s.Queued)

	close(release)
	p.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&late))
}

func TestPanickingJobDoesNotKillPool(t *testing.T) {
	p := newPool(t, 1)

	require.NoError(t, p.SubmitFunc(func() { panic("boom") }))
	var ran int32
	require.NoError(t, p.SubmitFunc(func() { atomic.StoreInt32(&ran, 1) }))
	p.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
	s := p.Stats()
	assert.Equal(t, uint64(1), s.Panicked)
	assert.Equal(t, uint64(2), s.Completed)
}

func TestNestedSubmitDoesNotDeadlock(t *testing.T) {
	p := newPool(t, 1)

	done := make(chan struct{})
	require.NoError(t, p.SubmitFunc(func() {
		require.NoError(t, p.SubmitFunc(func() { close(done) }))
	}))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job submitted from inside a job never ran")
	}
	p.Wait()
}

func TestShutdownRejectsNewJobs(t *testing.T) {
	p := newPool(t, 2)

	var ran int32
	require.NoError(t, p.SubmitFunc(func() {
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&ran, 1)
	}))
	p.Shutdown()

	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
	assert.ErrorIs(t, p.SubmitFunc(func() {}), ErrClosed)
	assert.Error(t, p.Submit(nil))
}
