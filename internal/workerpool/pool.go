// Package workerpool runs submitted jobs with a bounded, resizable number of
// concurrent workers. Jobs beyond the bound wait in FIFO order.
package workerpool

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"docskew/internal/logger"
)

var (
	ErrInvalidSize = errors.New("max workers must be at least 1")
	ErrClosed      = errors.New("worker pool is shut down")
)

// Job is a one-shot unit of work. Run is called exactly once.
type Job interface {
	Run()
}

// JobFunc adapts a plain function to Job.
type JobFunc func()

func (f JobFunc) Run() { f() }

// Stats is a consistent snapshot of the pool counters.
type Stats struct {
	MaxWorkers int    `json:"max_workers"`
	Running    int    `json:"running"`
	Queued     int    `json:"queued"`
	Submitted  uint64 `json:"submitted"`
	Completed  uint64 `json:"completed"`
	Panicked   uint64 `json:"panicked"`
}

// Pool is safe for concurrent use. Every change of running happens under mu
// together with the queue check, so running never exceeds maxWorkers except
// transiently after SetMaxWorkers lowers the bound below the current load.
type Pool struct {
	mu         sync.Mutex
	idle       *sync.Cond
	maxWorkers int
	running    int
	queue      []Job
	closed     bool

	submitted uint64
	completed uint64
	panicked  uint64

	log logger.Logger
}

func New(maxWorkers int, log logger.Logger) (*Pool, error) {
	if maxWorkers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, maxWorkers)
	}
	if log == nil {
		log = logger.NewNop()
	}

	p := &Pool{maxWorkers: maxWorkers, log: log}
	p.idle = sync.NewCond(&p.mu)
	return p, nil
}

// Submit starts job immediately when a slot is free and queues it otherwise.
func (p *Pool) Submit(job Job) error {
	if job == nil {
		return errors.New("nil job")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	p.submitted++
	if p.running < p.maxWorkers {
		p.running++
		go p.execute(job)
		return nil
	}

	p.queue = append(p.queue, job)
	p.log.Debug("workerpool", "job queued", map[string]interface{}{
		"queued":  len(p.queue),
		"running": p.running,
	})
	return nil
}

// SubmitFunc is shorthand for Submit(JobFunc(fn)).
func (p *Pool) SubmitFunc(fn func()) error {
	if fn == nil {
		return errors.New("nil job")
	}
	return p.Submit(JobFunc(fn))
}

// SetMaxWorkers changes the bound. Raising it admits queued jobs right away;
// lowering it only throttles future admissions.
func (p *Pool) SetMaxWorkers(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidSize, n)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	old := p.maxWorkers
	p.maxWorkers = n
	p.admitLocked()

	p.log.Info("workerpool", "max workers changed", map[string]interface{}{
		"from":    old,
		"to":      n,
		"running": p.running,
		"queued":  len(p.queue),
	})
	return nil
}

func (p *Pool) MaxWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxWorkers
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		MaxWorkers: p.maxWorkers,
		Running:    p.running,
		Queued:     len(p.queue),
		Submitted:  p.submitted,
		Completed:  p.completed,
		Panicked:   p.panicked,
	}
}

// Wait blocks until no job is running or queued.
func (p *Pool) Wait() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.running > 0 || len(p.queue) > 0 {
		p.idle.Wait()
	}
}

// Shutdown rejects further submissions and waits for every accepted job,
// queued ones included, to finish. There is no way to cancel a running job.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.Wait()
}

func (p *Pool) execute(job Job) {
	for job != nil {
		p.runOne(job)
		job = p.finish()
	}
}

func (p *Pool) runOne(job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.mu.Lock()
			p.panicked++
			p.mu.Unlock()

			p.log.Error("workerpool", fmt.Errorf("job panicked: %v", r), map[string]interface{}{
				"stack": string(debug.Stack()),
			})
		}
	}()
	job.Run()
}

// finish releases the slot of a completed job and admits waiting jobs. The
// first admitted job is handed back so the current goroutine can run it.
func (p *Pool) finish() Job {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed++
	p.running--

	var next Job
	if p.running < p.maxWorkers && len(p.queue) > 0 {
		next = p.popLocked()
		p.running++
	}
	p.admitLocked()

	if p.running == 0 && len(p.queue) == 0 {
		p.idle.Broadcast()
	}
	return next
}

func (p *Pool) admitLocked() {
	for p.running < p.maxWorkers && len(p.queue) > 0 {
		job := p.popLocked()
		p.running++
		go p.execute(job)
	}
}

func (p *Pool) popLocked() Job {
	job := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	return job
}
