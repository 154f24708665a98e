// Package shutdown stops registered components in reverse registration
// order when the process is asked to exit.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"docskew/internal/logger"
)

const DefaultTimeout = 30 * time.Second

type Shutdownable interface {
	Shutdown(ctx context.Context) error
}

// Func adapts a plain function to Shutdownable.
type Func func(ctx context.Context) error

func (f Func) Shutdown(ctx context.Context) error { return f(ctx) }

type component struct {
	name string
	c    Shutdownable
}

type Manager struct {
	components []component
	logger     logger.Logger
	timeout    time.Duration
	mu         sync.Mutex
	once       sync.Once
	done       chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewManager returns a manager that gives each component up to timeout to
// stop. A non-positive timeout selects DefaultTimeout.
func NewManager(log logger.Logger, timeout time.Duration) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		logger:  log,
		timeout: timeout,
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (m *Manager) Register(name string, c Shutdownable) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.components = append(m.components, component{name: name, c: c})
}

// Listen triggers Shutdown on SIGINT or SIGTERM.
func (m *Manager) Listen() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			m.logger.Info("shutdown", "signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			m.Shutdown()
		case <-m.done:
		}
	}()
}

// Shutdown runs once; later calls wait for the first to finish.
func (m *Manager) Shutdown() {
	m.once.Do(m.run)
	<-m.done
}

func (m *Manager) run() {
	defer close(m.done)

	m.mu.Lock()
	components := append([]component(nil), m.components...)
	m.mu.Unlock()

	m.logger.Info("shutdown", "shutdown sequence initiated", map[string]interface{}{
		"components": len(components),
	})
	m.cancel()

	for i := len(components) - 1; i >= 0; i-- {
		comp := components[i]

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		err := comp.c.Shutdown(ctx)
		cancel()

		if err != nil {
			m.logger.Error("shutdown", err, map[string]interface{}{
				"component": comp.name,
			})
			continue
		}
		m.logger.Debug("shutdown", "component stopped", map[string]interface{}{
			"component": comp.name,
		})
	}

	m.logger.Info("shutdown", "shutdown sequence completed", nil)
}

// Context is cancelled as soon as shutdown starts.
func (m *Manager) Context() context.Context {
	return m.ctx
}

func (m *Manager) Done() <-chan struct{} {
	return m.done
}
