// Package tasks turns correction requests into pool jobs and reports their
// lifecycle on the event bus.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docskew/internal/eventbus"
	"docskew/internal/logger"
	"docskew/internal/models"
	"docskew/internal/opencv/codec"
	"docskew/internal/skew"
	"docskew/internal/workerpool"

	"github.com/google/uuid"
)

// Corrector is the part of skew.Corrector a task needs.
type Corrector interface {
	Correct(ctx context.Context, input, output string, params skew.Params) (skew.Outcome, error)
	Rotate(ctx context.Context, input, output string, angle float64, quality int) error
}

var (
	ErrTaskNotFound = errors.New("task not found")
	// ErrNotReviewable is returned when a task is still queued or running.
	ErrNotReviewable = errors.New("task cannot be reviewed yet")
)

// Request is one image to correct.
type Request struct {
	Input  string      `json:"input"`
	Output string      `json:"output"`
	Params skew.Params `json:"params"`
}

type Manager struct {
	pool      *workerpool.Pool
	repo      *models.TaskRepository
	corrector Corrector
	bus       *eventbus.Bus
	log       logger.Logger
	now       func() time.Time
}

// NewManager wires a manager. bus may be nil when nobody listens for events.
func NewManager(pool *workerpool.Pool, repo *models.TaskRepository, corrector Corrector, bus *eventbus.Bus, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		pool:      pool,
		repo:      repo,
		corrector: corrector,
		bus:       bus,
		log:       log,
		now:       time.Now,
	}
}

// Submit validates req and schedules it. Configuration errors are returned
// here and never reach the pool.
func (m *Manager) Submit(req Request) (string, error) {
	if err := skew.ValidatePaths(req.Input, req.Output); err != nil {
		return "", err
	}
	if err := req.Params.Validate(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	if _, err := m.repo.Add(models.TaskRecord{
		ID:        id,
		Input:     req.Input,
		Output:    req.Output,
		Params:    req.Params,
		Submitted: m.now(),
	}); err != nil {
		return "", err
	}

	if err := m.pool.SubmitFunc(func() { m.run(id, req) }); err != nil {
		// Accepted by the repository but never scheduled.
		m.repo.MarkRunning(id, m.now())
		m.repo.Complete(id, nil, err, m.now())
		return "", fmt.Errorf("schedule task %s: %w", id, err)
	}

	m.log.Debug("tasks", "task submitted", map[string]interface{}{
		"task_id": id,
		"input":   req.Input,
		"method":  req.Params.Method.String(),
	})
	return id, nil
}

// SubmitDirectory submits every image under inDir whose header can be read,
// mirroring the directory layout under outDir. Output files keep the input extension
// unless it cannot be encoded, in which case PNG is used.
func (m *Manager) SubmitDirectory(inDir, outDir string, params skew.Params) ([]string, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if outDir == "" {
		return nil, skew.NewValidationError("output", outDir, "directory is required")
	}

	info, err := os.Stat(inDir)
	if err != nil {
		return nil, skew.NewValidationError("input", inDir, err.Error())
	}
	if !info.IsDir() {
		return nil, skew.NewValidationError("input", inDir, "not a directory")
	}

	var reqs []Request
	err = filepath.WalkDir(inDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !codec.IsImagePath(path) {
			return nil
		}
		if _, err := codec.ProbeFile(path); err != nil {
			m.log.Warning("tasks", "skipping unreadable image", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			return nil
		}
		rel, err := filepath.Rel(inDir, path)
		if err != nil {
			return err
		}
		reqs = append(reqs, Request{
			Input:  path,
			Output: OutputPath(outDir, rel),
			Params: params,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", inDir, err)
	}

	ids := make([]string, 0, len(reqs))
	for _, req := range reqs {
		id, err := m.Submit(req)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// OutputPath joins rel under outDir, switching to .png when the extension of
// rel has no encoder.
func OutputPath(outDir, rel string) string {
	out := filepath.Join(outDir, rel)
	if _, err := codec.FormatFromPath(out); err != nil {
		out = strings.TrimSuffix(out, filepath.Ext(out)) + ".png"
	}
	return out
}

// Review rewrites the output of a done task by rotating its input by a
// hand-picked angle, then records the angle. It runs on the caller's
// goroutine and the stored task is left untouched if the rotation fails.
func (m *Manager) Review(ctx context.Context, id string, angle float64) (models.TaskRecord, error) {
	rec, ok := m.repo.Get(id)
	if !ok {
		return models.TaskRecord{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if !rec.State.Terminal() {
		return models.TaskRecord{}, fmt.Errorf("%w: task %s is %s", ErrNotReviewable, id, rec.State)
	}
	if err := skew.ValidateManualAngle(angle); err != nil {
		return models.TaskRecord{}, err
	}

	if err := m.corrector.Rotate(ctx, rec.Input, rec.Output, angle, rec.Params.Quality); err != nil {
		m.log.Error("tasks", err, map[string]interface{}{"task_id": id, "angle": angle})
		return models.TaskRecord{}, err
	}

	rec, err := m.repo.Review(id, angle, m.now())
	if err != nil {
		return models.TaskRecord{}, err
	}

	m.log.Info("tasks", "task reviewed", map[string]interface{}{
		"task_id": id,
		"angle":   angle,
	})
	m.publish(eventbus.TypeReviewed, rec)
	return rec, nil
}

func (m *Manager) SetMaxWorkers(n int) error {
	if err := m.pool.SetMaxWorkers(n); err != nil {
		return skew.NewValidationError("max_workers", n, err.Error())
	}
	return nil
}

func (m *Manager) Stats() workerpool.Stats {
	return m.pool.Stats()
}

func (m *Manager) Get(id string) (models.TaskRecord, bool) {
	return m.repo.Get(id)
}

func (m *Manager) List() []models.TaskRecord {
	return m.repo.List()
}

func (m *Manager) Repository() *models.TaskRepository {
	return m.repo
}

// Wait blocks until every submitted task has completed.
func (m *Manager) Wait() {
	m.pool.Wait()
}

// Shutdown stops accepting tasks, finishes the accepted ones and flushes
// pending events.
func (m *Manager) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.pool.Shutdown()
		if m.bus != nil {
			m.bus.Shutdown()
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) run(id string, req Request) {
	rec, err := m.repo.MarkRunning(id, m.now())
	if err != nil {
		m.log.Error("tasks", err, map[string]interface{}{"task_id": id})
		return
	}
	m.publish(eventbus.TypeStarted, rec)

	// Running corrections are never cancelled.
	outcome, err := m.corrector.Correct(context.Background(), req.Input, req.Output, req.Params)

	var result *skew.Outcome
	if err == nil {
		result = &outcome
	}
	rec, cerr := m.repo.Complete(id, result, err, m.now())
	if cerr != nil {
		m.log.Error("tasks", cerr, map[string]interface{}{"task_id": id})
		return
	}

	if err != nil {
		m.log.Error("tasks", err, map[string]interface{}{"task_id": id, "input": req.Input})
	} else {
		m.log.Info("tasks", "task completed", map[string]interface{}{
			"task_id": id,
			"state":   string(rec.State),
			"angle":   outcome.Angle,
		})
	}
	m.publish(eventbus.TypeCompleted, rec)
}

func (m *Manager) publish(eventType string, rec models.TaskRecord) {
	if m.bus == nil {
		return
	}

	data := map[string]interface{}{
		"input":  rec.Input,
		"output": rec.Output,
		"status": string(rec.State),
	}
	if rec.Outcome != nil {
		data["angle"] = rec.Outcome.Angle
		data["needs_check"] = rec.Outcome.NeedsCheck
	}
	if rec.Error != "" {
		data["error"] = rec.Error
	}

	m.bus.Publish(eventbus.Event{Type: eventType, TaskID: rec.ID, Data: data})
}
