package models

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"docskew/internal/skew"
)

// TaskState tracks one correction job from submission to its terminal state.
type TaskState string

const (
	TaskQueued    TaskState = "queued"
	TaskRunning   TaskState = "running"
	TaskFinished  TaskState = "finished"
	TaskDebatable TaskState = "debatable"
	TaskError     TaskState = "error"
)

// Terminal reports whether no further transition can happen.
func (s TaskState) Terminal() bool {
	return s == TaskFinished || s == TaskDebatable || s == TaskError
}

// TaskRecord is the stored view of a correction job.
type TaskRecord struct {
	ID        string        `json:"id"`
	Seq       uint64        `json:"seq"`
	Input     string        `json:"input"`
	Output    string        `json:"output"`
	Params    skew.Params   `json:"params"`
	State     TaskState     `json:"state"`
	Outcome   *skew.Outcome `json:"outcome,omitempty"`
	Error     string        `json:"error,omitempty"`
	Submitted time.Time     `json:"submitted"`
	Started   time.Time     `json:"started,omitempty"`
	Completed time.Time     `json:"completed,omitempty"`
	// Reviewed is set once a person has replaced the estimated angle.
	Reviewed bool `json:"reviewed"`
}

// TaskRepository keeps every task of the process in memory.
type TaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*TaskRecord
	seq   uint64
}

func NewTaskRepository() *TaskRepository {
	return &TaskRepository{tasks: make(map[string]*TaskRecord)}
}

// Add stores rec in the queued state and assigns its sequence number.
func (r *TaskRepository) Add(rec TaskRecord) (TaskRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		return TaskRecord{}, fmt.Errorf("task id is required")
	}
	if _, exists := r.tasks[rec.ID]; exists {
		return TaskRecord{}, fmt.Errorf("task %s already exists", rec.ID)
	}

	r.seq++
	rec.Seq = r.seq
	rec.State = TaskQueued
	stored := rec
	r.tasks[rec.ID] = &stored
	return stored, nil
}

func (r *TaskRepository) Get(id string) (TaskRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.tasks[id]
	if !ok {
		return TaskRecord{}, false
	}
	return *rec, true
}

// List returns every task in submission order.
func (r *TaskRepository) List() []TaskRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]TaskRecord, 0, len(r.tasks))
	for _, rec := range r.tasks {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// MarkRunning moves a queued task to running.
func (r *TaskRepository) MarkRunning(id string, at time.Time) (TaskRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.tasks[id]
	if !ok {
		return TaskRecord{}, fmt.Errorf("task %s not found", id)
	}
	if rec.State != TaskQueued {
		return TaskRecord{}, fmt.Errorf("task %s is %s, not queued", id, rec.State)
	}
	rec.State = TaskRunning
	rec.Started = at
	return *rec, nil
}

// Complete records the result of a running task. A nil err with a flagged
// outcome ends in TaskDebatable.
func (r *TaskRepository) Complete(id string, outcome *skew.Outcome, err error, at time.Time) (TaskRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.tasks[id]
	if !ok {
		return TaskRecord{}, fmt.Errorf("task %s not found", id)
	}
	if rec.State != TaskRunning {
		return TaskRecord{}, fmt.Errorf("task %s is %s, not running", id, rec.State)
	}

	rec.Completed = at
	switch {
	case err != nil:
		rec.State = TaskError
		rec.Error = err.Error()
	case outcome != nil && outcome.NeedsCheck:
		rec.State = TaskDebatable
		rec.Outcome = outcome
	default:
		rec.State = TaskFinished
		rec.Outcome = outcome
	}
	return *rec, nil
}

// Review replaces the angle of a task that has reached a terminal state with
// one picked by hand. The task ends finished and no longer needs a check.
func (r *TaskRepository) Review(id string, angle float64, at time.Time) (TaskRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.tasks[id]
	if !ok {
		return TaskRecord{}, fmt.Errorf("task %s not found", id)
	}
	if !rec.State.Terminal() {
		return TaskRecord{}, fmt.Errorf("task %s is %s, not done", id, rec.State)
	}

	outcome := skew.Outcome{Method: rec.Params.Method}
	if rec.Outcome != nil {
		outcome = *rec.Outcome
	}
	outcome.Angle = angle
	outcome.NeedsCheck = false

	rec.Outcome = &outcome
	rec.State = TaskFinished
	rec.Error = ""
	rec.Completed = at
	rec.Reviewed = true
	return *rec, nil
}

// Counts returns the number of tasks per state.
func (r *TaskRepository) Counts() map[TaskState]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[TaskState]int)
	for _, rec := range r.tasks {
		counts[rec.State]++
	}
	return counts
}

var csvHeader = []string{"id", "input", "output", "state", "angle", "needs_check", "method", "error", "elapsed_ms", "reviewed"}

// WriteCSV exports the task log in submission order.
func (r *TaskRepository) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, rec := range r.List() {
		angle, needsCheck, elapsed := "", "", ""
		if rec.Outcome != nil {
			angle = strconv.FormatFloat(rec.Outcome.Angle, 'f', 2, 64)
			needsCheck = strconv.FormatBool(rec.Outcome.NeedsCheck)
			elapsed = strconv.FormatInt(rec.Outcome.Elapsed.Milliseconds(), 10)
		}
		row := []string{
			rec.ID, rec.Input, rec.Output, string(rec.State),
			angle, needsCheck, rec.Params.Method.String(), rec.Error, elapsed,
			strconv.FormatBool(rec.Reviewed),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
