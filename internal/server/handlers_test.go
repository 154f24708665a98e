package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"docskew/internal/logger"
	"docskew/internal/models"
	"docskew/internal/skew"
	"docskew/internal/tasks"
	"docskew/internal/workerpool"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	submitted []tasks.Request
	records   map[string]models.TaskRecord
	reviewErr error
	max       int
}

func newFakeService() *fakeService {
	return &fakeService{records: map[string]models.TaskRecord{}, max: 2}
}

func (f *fakeService) Submit(req tasks.Request) (string, error) {
	if err := skew.ValidatePaths(req.Input, req.Output); err != nil {
		return "", err
	}
	if err := req.Params.Validate(); err != nil {
		return "", err
	}
	f.submitted = append(f.submitted, req)
	id := "task-1"
	f.records[id] = models.TaskRecord{ID: id, Input: req.Input, Output: req.Output, State: models.TaskQueued}
	return id, nil
}

func (f *fakeService) SubmitDirectory(inDir, outDir string, _ skew.Params) ([]string, error) {
	if inDir == "" || outDir == "" {
		return nil, skew.NewValidationError("input", inDir, "directory is required")
	}
	return []string{"a", "b"}, nil
}

func (f *fakeService) Get(id string) (models.TaskRecord, bool) {
	rec, ok := f.records[id]
	return rec, ok
}

func (f *fakeService) List() []models.TaskRecord {
	out := make([]models.TaskRecord, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r)
	}
	return out
}

func (f *fakeService) Review(_ context.Context, id string, angle float64) (models.TaskRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return models.TaskRecord{}, tasks.ErrTaskNotFound
	}
	if err := skew.ValidateManualAngle(angle); err != nil {
		return models.TaskRecord{}, err
	}
	if f.reviewErr != nil {
		return models.TaskRecord{}, f.reviewErr
	}
	rec.State = models.TaskFinished
	rec.Reviewed = true
	rec.Outcome = &skew.Outcome{Angle: angle}
	f.records[id] = rec
	return rec, nil
}

func (f *fakeService) SetMaxWorkers(n int) error {
	if n < 1 {
		return skew.NewValidationError("max_workers", n, "must be at least 1")
	}
	f.max = n
	return nil
}

func (f *fakeService) Stats() workerpool.Stats {
	return workerpool.Stats{MaxWorkers: f.max}
}

func setupRouter(svc TaskService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(svc, skew.DefaultParams(), logger.NewNop())
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealth(t *testing.T) {
	resp := do(t, setupRouter(newFakeService()), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok"}`, resp.Body.String())
}

func TestSubmitTaskAppliesDefaults(t *testing.T) {
	svc := newFakeService()
	router := setupRouter(svc)

	resp := do(t, router, http.MethodPost, "/tasks", map[string]interface{}{
		"input":  "scan.jpg",
		"output": "out/scan.png",
		"params": map[string]interface{}{
			"method":     "projection",
			"projection": map[string]interface{}{"max_resolution": "800x600"},
		},
	})
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())
	assert.JSONEq(t, `{"id":"task-1"}`, resp.Body.String())

	require.Len(t, svc.submitted, 1)
	p := svc.submitted[0].Params
	assert.Equal(t, skew.MethodProjectionOnly, p.Method)
	assert.Equal(t, skew.Resolution{Width: 800, Height: 600}, p.Projection.MaxResolution)
	assert.Equal(t, 0.2, p.Projection.AngleStep)
	assert.Equal(t, 100, p.Quality)
}

func TestSubmitTaskRejectsInvalid(t *testing.T) {
	router := setupRouter(newFakeService())

	resp := do(t, router, http.MethodPost, "/tasks", map[string]interface{}{
		"input": "scan.jpg", "output": "scan.gif",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, router, http.MethodPost, "/tasks", map[string]interface{}{
		"input": "scan.jpg", "output": "scan.png",
		"params": map[string]interface{}{"projection": map[string]interface{}{"angle_step": 0}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, router, http.MethodPost, "/tasks", map[string]interface{}{
		"input": "scan.jpg", "output": "scan.png",
		"params": map[string]interface{}{"method": "magic"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSubmitBatch(t *testing.T) {
	router := setupRouter(newFakeService())

	resp := do(t, router, http.MethodPost, "/tasks/batch", map[string]interface{}{
		"input_dir": "scans", "output_dir": "out",
	})
	require.Equal(t, http.StatusAccepted, resp.Code)
	assert.JSONEq(t, `{"ids":["a","b"]}`, resp.Body.String())

	resp = do(t, router, http.MethodPost, "/tasks/batch", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetTask(t *testing.T) {
	svc := newFakeService()
	svc.records["abc"] = models.TaskRecord{ID: "abc", State: models.TaskDebatable}
	router := setupRouter(svc)

	resp := do(t, router, http.MethodGet, "/tasks/abc", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var rec models.TaskRecord
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &rec))
	assert.Equal(t, models.TaskDebatable, rec.State)

	resp = do(t, router, http.MethodGet, "/tasks/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = do(t, router, http.MethodGet, "/tasks", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"abc"`)
}

func TestRotateTask(t *testing.T) {
	svc := newFakeService()
	svc.records["abc"] = models.TaskRecord{ID: "abc", State: models.TaskDebatable}
	router := setupRouter(svc)

	resp := do(t, router, http.MethodPost, "/tasks/abc/rotate", map[string]float64{"angle": 0})
	require.Equal(t, http.StatusOK, resp.Code)

	var rec models.TaskRecord
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &rec))
	assert.Equal(t, models.TaskFinished, rec.State)
	assert.True(t, rec.Reviewed)
	require.NotNil(t, rec.Outcome)
	assert.Equal(t, 0.0, rec.Outcome.Angle)

	resp = do(t, router, http.MethodPost, "/tasks/abc/rotate", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, resp.Code, "angle is required")

	resp = do(t, router, http.MethodPost, "/tasks/abc/rotate", map[string]float64{"angle": 60})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, router, http.MethodPost, "/tasks/missing/rotate", map[string]float64{"angle": 1})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	svc.reviewErr = tasks.ErrNotReviewable
	resp = do(t, router, http.MethodPost, "/tasks/abc/rotate", map[string]float64{"angle": 1})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestWorkers(t *testing.T) {
	svc := newFakeService()
	router := setupRouter(svc)

	resp := do(t, router, http.MethodPut, "/workers", map[string]int{"max_workers": 6})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 6, svc.max)

	resp = do(t, router, http.MethodPut, "/workers", map[string]int{"max_workers": 0})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, 6, svc.max)

	resp = do(t, router, http.MethodGet, "/workers", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var stats workerpool.Stats
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &stats))
	assert.Equal(t, 6, stats.MaxWorkers)
}
