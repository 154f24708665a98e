package components

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// StatusBar displays the last status message and the pool load.
type StatusBar struct {
	container   *fyne.Container
	statusLabel *widget.Label
	poolLabel   *widget.Label
}

// NewStatusBar creates a new status bar component
func NewStatusBar() *StatusBar {
	sb := &StatusBar{
		statusLabel: widget.NewLabel("Ready"),
		poolLabel:   widget.NewLabel("Workers: --"),
	}
	sb.container = container.NewHBox(sb.statusLabel, widget.NewSeparator(), sb.poolLabel)
	return sb
}

// SetStatus updates the main status message
func (sb *StatusBar) SetStatus(status string) {
	fyne.Do(func() {
		sb.statusLabel.SetText(status)
	})
}

// GetStatus returns the current status message
func (sb *StatusBar) GetStatus() string {
	return sb.statusLabel.Text
}

// SetPoolInfo shows running, queued and maximum workers.
func (sb *StatusBar) SetPoolInfo(running, queued, max int) {
	fyne.Do(func() {
		sb.poolLabel.SetText(fmt.Sprintf("Workers: %d/%d running, %d queued", running, max, queued))
	})
}

// GetContainer returns the status bar container
func (sb *StatusBar) GetContainer() *fyne.Container {
	return sb.container
}

// ProgressBar tracks completed tasks out of the submitted batch.
type ProgressBar struct {
	container   *fyne.Container
	progressBar *widget.ProgressBar
	stageLabel  *widget.Label
}

// NewProgressBar creates a new progress bar component
func NewProgressBar() *ProgressBar {
	pb := &ProgressBar{
		progressBar: widget.NewProgressBar(),
		stageLabel:  widget.NewLabel("Idle"),
	}
	pb.container = container.NewVBox(pb.stageLabel, pb.progressBar)
	return pb
}

// SetCounts updates the bar to done out of total tasks.
func (pb *ProgressBar) SetCounts(done, total int) {
	fyne.Do(func() {
		if total <= 0 {
			pb.progressBar.SetValue(0)
			pb.stageLabel.SetText("Idle")
			return
		}
		pb.progressBar.SetValue(float64(done) / float64(total))
		pb.stageLabel.SetText(fmt.Sprintf("%d of %d corrected", done, total))
	})
}

// GetContainer returns the progress bar container
func (pb *ProgressBar) GetContainer() *fyne.Container {
	return pb.container
}
