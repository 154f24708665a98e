package controllers

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"docskew/internal/eventbus"
	"docskew/internal/logger"
	"docskew/internal/models"
	"docskew/internal/tasks"
	"docskew/internal/views/components"
	"docskew/internal/workerpool"

	"github.com/disintegration/imaging"
)

// TaskService is the part of tasks.Manager the desktop drives.
type TaskService interface {
	Submit(req tasks.Request) (string, error)
	SetMaxWorkers(n int) error
	Stats() workerpool.Stats
	Get(id string) (models.TaskRecord, bool)
	Review(ctx context.Context, id string, angle float64) (models.TaskRecord, error)
	Repository() *models.TaskRepository
}

// View is what the controller updates; *views.MainView implements it.
type View interface {
	SetAddImageHandler(h func(path string))
	SetOutputHandler(h func(dir string))
	SetStartHandler(h func(values components.ParamValues))
	SetExportHandler(h func(path string))
	SetClearHandler(h func())
	SetSelectTaskHandler(h func(id string))
	SetReviewHandler(h func(id string, angle float64))

	SetSelection(inputs int, outputDir string)
	UpsertTask(id, line string)
	SetPreview(before, after image.Image, angle string)
	UpdateStatus(status string)
	SetPoolInfo(running, queued, max int)
	SetProgress(done, total int)
	Reset()
	ShowError(err error)
	ShowInfo(title, message string)
	ShowReview(id, name string, angle float64)
	HideReview()
}

const subscriberID = "desktop"

// MainController turns view actions into task submissions and task events
// into view updates.
type MainController struct {
	service TaskService
	bus     *eventbus.Bus
	log     logger.Logger
	view    View

	mu        sync.Mutex
	inputs    []string
	outputDir string
	// tracked holds the tasks submitted since the last Clear. Events for
	// any other task are ignored.
	tracked map[string]struct{}
	total   int
	done    int
}

func NewMainController(service TaskService, bus *eventbus.Bus, log logger.Logger) *MainController {
	if log == nil {
		log = logger.NewNop()
	}
	return &MainController{
		service: service,
		bus:     bus,
		log:     log,
		tracked: make(map[string]struct{}),
	}
}

// SetMainView connects the view handlers and starts listening for task events.
func (mc *MainController) SetMainView(view View) {
	mc.view = view

	view.SetAddImageHandler(mc.AddImage)
	view.SetOutputHandler(mc.SetOutputDir)
	view.SetStartHandler(mc.Start)
	view.SetExportHandler(mc.ExportLog)
	view.SetClearHandler(mc.Clear)
	view.SetSelectTaskHandler(mc.SelectTask)
	view.SetReviewHandler(mc.Review)

	if mc.bus != nil {
		mc.bus.Subscribe("", eventbus.HandlerFunc{ID: subscriberID, Fn: mc.HandleEvent})
	}
	mc.refreshSelection()
}

// AddImage queues path for the next start, ignoring duplicates.
func (mc *MainController) AddImage(path string) {
	mc.mu.Lock()
	for _, p := range mc.inputs {
		if p == path {
			mc.mu.Unlock()
			return
		}
	}
	mc.inputs = append(mc.inputs, path)
	mc.mu.Unlock()

	mc.refreshSelection()
}

func (mc *MainController) SetOutputDir(dir string) {
	mc.mu.Lock()
	mc.outputDir = dir
	mc.mu.Unlock()

	mc.refreshSelection()
}

func (mc *MainController) refreshSelection() {
	mc.mu.Lock()
	n, dir := len(mc.inputs), mc.outputDir
	mc.mu.Unlock()

	mc.view.SetSelection(n, dir)
}

// Start submits every selected input with the parameters in values.
func (mc *MainController) Start(values components.ParamValues) {
	params, workers, err := values.Build()
	if err != nil {
		mc.view.ShowError(err)
		return
	}
	if err := mc.service.SetMaxWorkers(workers); err != nil {
		mc.view.ShowError(err)
		return
	}

	mc.mu.Lock()
	inputs, outDir := mc.inputs, mc.outputDir
	if len(inputs) == 0 || outDir == "" {
		mc.mu.Unlock()
		mc.view.ShowError(errors.New("select at least one image and an output folder"))
		return
	}
	mc.inputs = nil
	mc.mu.Unlock()

	claimed := make(map[string]bool, len(inputs))
	var failed []string
	for _, in := range inputs {
		req := tasks.Request{
			Input:  in,
			Output: uniqueOutput(outDir, filepath.Base(in), claimed),
			Params: params,
		}

		// Submit and track under the lock so that HandleEvent cannot see
		// the task before its queued line is shown.
		mc.mu.Lock()
		id, err := mc.service.Submit(req)
		if err == nil {
			mc.tracked[id] = struct{}{}
			mc.total++
			mc.view.UpsertTask(id, fmt.Sprintf("%s  queued", filepath.Base(in)))
		}
		mc.mu.Unlock()

		if err != nil {
			mc.log.Error("controller", err, map[string]interface{}{"input": in})
			failed = append(failed, fmt.Sprintf("%s: %v", filepath.Base(in), err))
		}
	}

	mc.refreshSelection()
	mc.refreshProgress()
	if len(failed) > 0 {
		mc.view.ShowError(errors.New(strings.Join(failed, "\n")))
	}
}

// uniqueOutput maps name into outDir, numbering the result when an earlier
// input of the same batch already claimed that path.
func uniqueOutput(outDir, name string, claimed map[string]bool) string {
	out := tasks.OutputPath(outDir, name)
	ext := filepath.Ext(out)
	stem := strings.TrimSuffix(out, ext)
	for n := 2; claimed[out]; n++ {
		out = fmt.Sprintf("%s-%d%s", stem, n, ext)
	}
	claimed[out] = true
	return out
}

// HandleEvent updates the view for one task event. It runs on the bus
// dispatcher goroutine.
func (mc *MainController) HandleEvent(event eventbus.Event) {
	mc.mu.Lock()
	_, tracked := mc.tracked[event.TaskID]
	mc.mu.Unlock()
	if !tracked {
		return
	}

	rec, ok := mc.service.Get(event.TaskID)
	if !ok {
		return
	}

	mc.view.UpsertTask(rec.ID, FormatTaskLine(rec))

	stats := mc.service.Stats()
	mc.view.SetPoolInfo(stats.Running, stats.Queued, stats.MaxWorkers)

	switch event.Type {
	case eventbus.TypeStarted:
		mc.view.UpdateStatus("Correcting " + filepath.Base(rec.Input))
	case eventbus.TypeCompleted:
		mc.completed(rec)
	}
}

func (mc *MainController) completed(rec models.TaskRecord) {
	mc.mu.Lock()
	mc.done++
	mc.mu.Unlock()
	mc.refreshProgress()

	if rec.State == models.TaskError {
		mc.view.UpdateStatus("Failed " + filepath.Base(rec.Input))
		return
	}
	mc.view.UpdateStatus("Corrected " + filepath.Base(rec.Input))
	mc.showPreview(rec)
}

// SelectTask offers a done task for review and previews it.
func (mc *MainController) SelectTask(id string) {
	rec, ok := mc.service.Get(id)
	if !ok || rec.Outcome == nil || (rec.State != models.TaskFinished && rec.State != models.TaskDebatable) {
		mc.view.HideReview()
		return
	}

	mc.view.ShowReview(rec.ID, filepath.Base(rec.Input), rec.Outcome.Angle)
	mc.showPreview(rec)
}

// Review rotates the input of task id by a hand-picked angle and replaces
// its output. It blocks until the image is written.
func (mc *MainController) Review(id string, angle float64) {
	rec, err := mc.service.Review(context.Background(), id, angle)
	if err != nil {
		mc.log.Error("controller", err, map[string]interface{}{"task_id": id, "angle": angle})
		mc.view.ShowError(fmt.Errorf("review: %w", err))
		return
	}

	mc.view.UpsertTask(rec.ID, FormatTaskLine(rec))
	mc.view.UpdateStatus("Reviewed " + filepath.Base(rec.Input))
	mc.view.HideReview()
	mc.showPreview(rec)
}

func (mc *MainController) showPreview(rec models.TaskRecord) {
	before, err := Thumbnail(rec.Input, components.PreviewWidth, components.PreviewHeight)
	if err != nil {
		mc.log.Warning("controller", "preview unavailable", map[string]interface{}{"path": rec.Input, "error": err.Error()})
		return
	}
	after, err := Thumbnail(rec.Output, components.PreviewWidth, components.PreviewHeight)
	if err != nil {
		mc.log.Warning("controller", "preview unavailable", map[string]interface{}{"path": rec.Output, "error": err.Error()})
		return
	}
	mc.view.SetPreview(before, after, fmt.Sprintf("%.2f°", rec.Outcome.Angle))
}

func (mc *MainController) refreshProgress() {
	mc.mu.Lock()
	done, total := mc.done, mc.total
	mc.mu.Unlock()

	mc.view.SetProgress(done, total)
}

// ExportLog writes the task log to path: CSV for a .csv name, otherwise
// one appended text line per task.
func (mc *MainController) ExportLog(path string) {
	var err error
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		err = writeCSV(path, mc.service.Repository())
	} else {
		err = AppendLog(path, mc.service.Repository().List())
	}
	if err != nil {
		mc.view.ShowError(fmt.Errorf("export log: %w", err))
		return
	}
	mc.view.ShowInfo("Export", "Task log written to "+path)
}

// Clear forgets the selection and the displayed tasks. Tasks already
// submitted keep running but no longer count towards progress.
func (mc *MainController) Clear() {
	mc.mu.Lock()
	mc.inputs = nil
	mc.tracked = make(map[string]struct{})
	mc.total = 0
	mc.done = 0
	mc.mu.Unlock()

	mc.view.Reset()
	mc.view.HideReview()
	mc.refreshSelection()
}

// Shutdown stops listening for task events.
func (mc *MainController) Shutdown() {
	if mc.bus != nil {
		mc.bus.Unsubscribe("", eventbus.HandlerFunc{ID: subscriberID})
	}
}

// FormatTaskLine renders rec as a single log line.
func FormatTaskLine(rec models.TaskRecord) string {
	name := filepath.Base(rec.Input)
	switch {
	case rec.State == models.TaskError:
		return fmt.Sprintf("%s  error: %s", name, rec.Error)
	case rec.Outcome != nil:
		line := fmt.Sprintf("%s  %s  angle %.2f  (%s, %dms)", name, rec.State, rec.Outcome.Angle,
			rec.Outcome.Method, rec.Outcome.Elapsed.Milliseconds())
		if rec.Outcome.NeedsCheck {
			line += "  needs check"
		}
		if rec.Reviewed {
			line += "  reviewed"
		}
		return line
	default:
		return fmt.Sprintf("%s  %s", name, rec.State)
	}
}

// AppendLog appends one line per record to path, creating it if needed.
func AppendLog(path string, records []models.TaskRecord) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, rec := range records {
		b.WriteString(FormatTaskLine(rec))
		b.WriteByte('\n')
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCSV(path string, repo *models.TaskRepository) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := repo.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Thumbnail loads path and fits it inside w x h.
func Thumbnail(path string, w, h int) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	return imaging.Fit(img, w, h, imaging.Lanczos), nil
}
