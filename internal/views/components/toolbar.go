package components

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Toolbar holds the file selection and run buttons.
type Toolbar struct {
	container    *fyne.Container
	addButton    *widget.Button
	outputButton *widget.Button
	startButton  *widget.Button
	exportButton *widget.Button
	clearButton  *widget.Button
	inputLabel   *widget.Label
	outputLabel  *widget.Label

	addHandler    func()
	outputHandler func()
	startHandler  func()
	exportHandler func()
	clearHandler  func()
}

// NewToolbar creates a new toolbar component
func NewToolbar() *Toolbar {
	t := &Toolbar{}
	t.createComponents()
	t.buildLayout()
	return t
}

func (t *Toolbar) createComponents() {
	t.addButton = widget.NewButton("Add Images", func() { call(t.addHandler) })
	t.addButton.Importance = widget.HighImportance

	t.outputButton = widget.NewButton("Output Folder", func() { call(t.outputHandler) })

	t.startButton = widget.NewButton("Correct", func() { call(t.startHandler) })
	t.startButton.Importance = widget.HighImportance
	t.startButton.Disable()

	t.exportButton = widget.NewButton("Export Log", func() { call(t.exportHandler) })
	t.clearButton = widget.NewButton("Clear", func() { call(t.clearHandler) })

	t.inputLabel = widget.NewLabel("No images selected")
	t.outputLabel = widget.NewLabel("No output folder")
}

func (t *Toolbar) buildLayout() {
	t.container = container.NewVBox(
		container.NewHBox(
			t.addButton,
			t.outputButton,
			widget.NewSeparator(),
			t.startButton,
			widget.NewSeparator(),
			t.exportButton,
			t.clearButton,
		),
		container.NewHBox(t.inputLabel, widget.NewSeparator(), t.outputLabel),
	)
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

func (t *Toolbar) SetAddHandler(h func()) { t.addHandler = h }
func (t *Toolbar) SetOutputHandler(h func()) { t.outputHandler = h }
func (t *Toolbar) SetStartHandler(h func()) { t.startHandler = h }
func (t *Toolbar) SetExportHandler(h func()) { t.exportHandler = h }
func (t *Toolbar) SetClearHandler(h func()) { t.clearHandler = h }

// SetSelection shows how many inputs are queued for correction and where
// results go, and enables Correct once both are set.
func (t *Toolbar) SetSelection(inputs int, outputDir string) {
	fyne.Do(func() {
		if inputs == 0 {
			t.inputLabel.SetText("No images selected")
		} else {
			t.inputLabel.SetText(fmt.Sprintf("%d image(s) selected", inputs))
		}
		if outputDir == "" {
			t.outputLabel.SetText("No output folder")
		} else {
			t.outputLabel.SetText("Output: " + outputDir)
		}

		if inputs > 0 && outputDir != "" {
			t.startButton.Enable()
		} else {
			t.startButton.Disable()
		}
	})
}

// GetContainer returns the toolbar container
func (t *Toolbar) GetContainer() *fyne.Container {
	return t.container
}
