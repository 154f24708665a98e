// Package timing records wall-clock durations per named operation.
package timing

import (
	"sort"
	"sync"
	"time"
)

// Tracker is safe for concurrent use. A nil *Tracker records nothing, so
// callers can pass one around unconditionally.
type Tracker struct {
	timings map[string][]time.Duration
	mu      sync.RWMutex
	enabled bool
	now     func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		timings: make(map[string][]time.Duration),
		enabled: true,
		now:     time.Now,
	}
}

// Start begins timing operation. The returned func stops the clock, records
// the sample and returns it.
func (tt *Tracker) Start(operation string) func() time.Duration {
	if tt == nil {
		start := time.Now()
		return func() time.Duration { return time.Since(start) }
	}

	start := tt.now()
	return func() time.Duration {
		d := tt.now().Sub(start)
		tt.Record(operation, d)
		return d
	}
}

func (tt *Tracker) Record(operation string, d time.Duration) {
	if tt == nil {
		return
	}

	tt.mu.Lock()
	defer tt.mu.Unlock()
	if !tt.enabled {
		return
	}
	tt.timings[operation] = append(tt.timings[operation], d)
}

func (tt *Tracker) Timings(operation string) []time.Duration {
	if tt == nil {
		return nil
	}

	tt.mu.RLock()
	defer tt.mu.RUnlock()

	timings := tt.timings[operation]
	if timings == nil {
		return nil
	}

	result := make([]time.Duration, len(timings))
	copy(result, timings)
	return result
}

func (tt *Tracker) Count(operation string) int {
	if tt == nil {
		return 0
	}
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	return len(tt.timings[operation])
}

func (tt *Tracker) Average(operation string) time.Duration {
	timings := tt.Timings(operation)
	if len(timings) == 0 {
		return 0
	}

	var total time.Duration
	for _, duration := range timings {
		total += duration
	}

	return total / time.Duration(len(timings))
}

// Summary aggregates the samples of one operation.
type Summary struct {
	Operation string        `json:"operation"`
	Count     int           `json:"count"`
	Total     time.Duration `json:"total"`
	Average   time.Duration `json:"average"`
	Max       time.Duration `json:"max"`
}

// Snapshot returns one summary per operation, sorted by name.
func (tt *Tracker) Snapshot() []Summary {
	if tt == nil {
		return nil
	}

	tt.mu.RLock()
	defer tt.mu.RUnlock()

	out := make([]Summary, 0, len(tt.timings))
	for operation, timings := range tt.timings {
		s := Summary{Operation: operation, Count: len(timings)}
		for _, d := range timings {
			s.Total += d
			if d > s.Max {
				s.Max = d
			}
		}
		if s.Count > 0 {
			s.Average = s.Total / time.Duration(s.Count)
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}

func (tt *Tracker) SetEnabled(enabled bool) {
	if tt == nil {
		return
	}
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.enabled = enabled
}

// Reset drops the samples of operation, or of every operation when it is empty.
func (tt *Tracker) Reset(operation string) {
	if tt == nil {
		return
	}

	tt.mu.Lock()
	defer tt.mu.Unlock()

	if operation == "" {
		tt.timings = make(map[string][]time.Duration)
	} else {
		delete(tt.timings, operation)
	}
}
