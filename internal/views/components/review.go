package components

import (
	"fmt"
	"math"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// Bounds of the review slider, in degrees.
const (
	ReviewMaxAngle = 45.0
	ReviewStep     = 0.1
)

const reviewIdle = "Select a finished task to review"

// ReviewPanel lets a person replace the angle of a finished or debatable
// task and re-render its output.
type ReviewPanel struct {
	container *fyne.Container
	title     *widget.Label
	slider    *widget.Slider
	value     *widget.Label
	apply     *widget.Button

	mu      sync.Mutex
	taskID  string
	onApply func(id string, angle float64)
}

func NewReviewPanel() *ReviewPanel {
	rp := &ReviewPanel{
		title: widget.NewLabel(reviewIdle),
		value: widget.NewLabel(FormatAngle(0)),
	}

	rp.slider = widget.NewSlider(-ReviewMaxAngle, ReviewMaxAngle)
	rp.slider.Step = ReviewStep
	rp.slider.OnChanged = func(v float64) {
		rp.value.SetText(FormatAngle(SnapAngle(v)))
	}

	rp.apply = widget.NewButtonWithIcon("Apply", theme.ConfirmIcon(), rp.applyClicked)
	rp.apply.Importance = widget.HighImportance
	rp.apply.Disable()

	rp.container = container.NewBorder(nil, nil, rp.title, container.NewHBox(rp.value, rp.apply), rp.slider)
	return rp
}

func (rp *ReviewPanel) SetApplyHandler(h func(id string, angle float64)) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.onApply = h
}

// Show loads task id into the panel with the slider at its current angle.
func (rp *ReviewPanel) Show(id, name string, angle float64) {
	rp.mu.Lock()
	rp.taskID = id
	rp.mu.Unlock()

	fyne.Do(func() {
		rp.title.SetText("Review " + name)
		rp.slider.SetValue(SnapAngle(angle))
		rp.value.SetText(FormatAngle(SnapAngle(angle)))
		rp.apply.Enable()
	})
}

// Hide forgets the loaded task.
func (rp *ReviewPanel) Hide() {
	rp.mu.Lock()
	rp.taskID = ""
	rp.mu.Unlock()

	fyne.Do(func() {
		rp.title.SetText(reviewIdle)
		rp.apply.Disable()
	})
}

func (rp *ReviewPanel) applyClicked() {
	rp.mu.Lock()
	id, h := rp.taskID, rp.onApply
	rp.mu.Unlock()
	if id == "" || h == nil {
		return
	}

	angle := SnapAngle(rp.slider.Value)
	rp.apply.Disable()
	// Rotating a full page takes a while; keep it off the UI goroutine.
	go h(id, angle)
}

func (rp *ReviewPanel) GetContainer() fyne.CanvasObject {
	return rp.container
}

// SnapAngle rounds v to the slider step and clamps it to the slider range.
func SnapAngle(v float64) float64 {
	v = math.Round(v/ReviewStep) * ReviewStep
	v = math.Max(-ReviewMaxAngle, math.Min(ReviewMaxAngle, v))
	// Avoid printing -0.0.
	if v == 0 {
		return 0
	}
	return v
}

func FormatAngle(v float64) string {
	return fmt.Sprintf("%+.1f°", v)
}
