package shutdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"docskew/internal/logger"

	"github.com/stretchr/testify/assert"
)

func TestShutdownReverseOrder(t *testing.T) {
	m := NewManager(logger.NewNop(), time.Second)

	var (
		mu    sync.Mutex
		order []string
	)
	for _, name := range []string{"bus", "pool", "server"} {
		name := name
		m.Register(name, Func(func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}))
	}

	m.Shutdown()
	assert.Equal(t, []string{"server", "pool", "bus"}, order)
	assert.Error(t, m.Context().Err())

	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestShutdownRunsOnce(t *testing.T) {
	m := NewManager(nil, time.Second)

	calls := 0
	m.Register("c", Func(func(context.Context) error {
		calls++
		return nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Shutdown()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, calls)
}

func TestShutdownContinuesAfterError(t *testing.T) {
	m := NewManager(logger.NewNop(), time.Second)

	reached := false
	m.Register("first", Func(func(context.Context) error {
		reached = true
		return nil
	}))
	m.Register("failing", Func(func(context.Context) error {
		return errors.New("stuck")
	}))

	m.Shutdown()
	assert.True(t, reached)
}

func TestShutdownPassesDeadline(t *testing.T) {
	m := NewManager(logger.NewNop(), 20*time.Millisecond)

	var got error
	m.Register("slow", Func(func(ctx context.Context) error {
		<-ctx.Done()
		got = ctx.Err()
		return got
	}))

	m.Shutdown()
	assert.ErrorIs(t, got, context.DeadlineExceeded)
}
