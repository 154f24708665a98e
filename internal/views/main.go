package views

import (
	"image"

	"docskew/internal/views/components"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
)

// MainView is the desktop window: toolbar and progress on top, parameters
// on the left, the task list and preview in the middle, status at the bottom.
type MainView struct {
	window        fyne.Window
	mainContainer *fyne.Container
	toolbar       *components.Toolbar
	paramPanel    *components.ParameterPanel
	taskList      *components.TaskList
	reviewPanel   *components.ReviewPanel
	imageDisplay  *components.ImageDisplay
	statusBar     *components.StatusBar
	progressBar   *components.ProgressBar

	addImageHandler func(path string)
	outputHandler   func(dir string)
	startHandler    func(values components.ParamValues)
	exportHandler   func(path string)
	clearHandler    func()
}

// NewMainView builds the window content with the given parameter defaults.
func NewMainView(window fyne.Window, defaults components.ParamValues) *MainView {
	mv := &MainView{window: window}

	mv.toolbar = components.NewToolbar()
	mv.paramPanel = components.NewParameterPanel(defaults)
	mv.taskList = components.NewTaskList()
	mv.reviewPanel = components.NewReviewPanel()
	mv.imageDisplay = components.NewImageDisplay()
	mv.statusBar = components.NewStatusBar()
	mv.progressBar = components.NewProgressBar()

	mv.buildLayout()
	mv.setupEventHandlers()
	return mv
}

func (mv *MainView) buildLayout() {
	tasks := container.NewBorder(mv.reviewPanel.GetContainer(), nil, nil, nil, mv.taskList.GetContainer())
	center := container.NewVSplit(mv.imageDisplay.GetContainer(), tasks)
	center.SetOffset(0.6)

	left := container.NewVScroll(mv.paramPanel.GetContainer())
	left.SetMinSize(fyne.NewSize(320, 0))

	mv.mainContainer = container.NewBorder(
		container.NewVBox(mv.toolbar.GetContainer(), mv.progressBar.GetContainer()),
		mv.statusBar.GetContainer(),
		left,
		nil,
		center,
	)
	mv.window.SetContent(mv.mainContainer)
}

func (mv *MainView) setupEventHandlers() {
	mv.toolbar.SetAddHandler(mv.showAddDialog)
	mv.toolbar.SetOutputHandler(mv.showOutputDialog)
	mv.toolbar.SetExportHandler(mv.showExportDialog)

	mv.toolbar.SetStartHandler(func() {
		if mv.startHandler != nil {
			mv.startHandler(mv.paramPanel.Values())
		}
	})
	mv.toolbar.SetClearHandler(func() {
		if mv.clearHandler != nil {
			mv.clearHandler()
		}
	})
}

func (mv *MainView) showAddDialog() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			mv.ShowError(err)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		if mv.addImageHandler != nil {
			mv.addImageHandler(path)
		}
	}, mv.window)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".webp"}))
	d.Show()
}

func (mv *MainView) showOutputDialog() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			mv.ShowError(err)
			return
		}
		if uri != nil && mv.outputHandler != nil {
			mv.outputHandler(uri.Path())
		}
	}, mv.window)
}

func (mv *MainView) showExportDialog() {
	d := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			mv.ShowError(err)
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()
		// The controller opens the file itself to append.
		writer.Close()

		if mv.exportHandler != nil {
			mv.exportHandler(path)
		}
	}, mv.window)
	d.SetFileName("docskew.log")
	d.Show()
}

func (mv *MainView) SetAddImageHandler(h func(path string)) { mv.addImageHandler = h }
func (mv *MainView) SetOutputHandler(h func(dir string)) { mv.outputHandler = h }
func (mv *MainView) SetStartHandler(h func(values components.ParamValues)) { mv.startHandler = h }
func (mv *MainView) SetExportHandler(h func(path string)) { mv.exportHandler = h }
func (mv *MainView) SetClearHandler(h func()) { mv.clearHandler = h }
func (mv *MainView) SetSelectTaskHandler(h func(id string)) { mv.taskList.SetSelectedHandler(h) }
func (mv *MainView) SetReviewHandler(h func(id string, angle float64)) { mv.reviewPanel.SetApplyHandler(h) }

// SetSelection shows how many inputs are queued for the next start.
func (mv *MainView) SetSelection(inputs int, outputDir string) {
	fyne.Do(func() {
		mv.toolbar.SetSelection(inputs, outputDir)
	})
}

func (mv *MainView) UpsertTask(id, line string) {
	mv.taskList.Upsert(id, line)
}

func (mv *MainView) SetPreview(before, after image.Image, angle string) {
	mv.imageDisplay.SetPreview(before, after, angle)
}

func (mv *MainView) UpdateStatus(status string) {
	mv.statusBar.SetStatus(status)
}

func (mv *MainView) SetPoolInfo(running, queued, max int) {
	mv.statusBar.SetPoolInfo(running, queued, max)
}

func (mv *MainView) SetProgress(done, total int) {
	mv.progressBar.SetCounts(done, total)
}

// ShowReview loads task id into the review panel.
func (mv *MainView) ShowReview(id, name string, angle float64) {
	mv.reviewPanel.Show(id, name, angle)
}

func (mv *MainView) HideReview() {
	mv.reviewPanel.Hide()
}

// Reset empties the task list and the preview.
func (mv *MainView) Reset() {
	mv.taskList.Clear()
	mv.imageDisplay.Clear()
	mv.progressBar.SetCounts(0, 0)
	mv.statusBar.SetStatus("Ready")
}

// ShowError displays an error dialog
func (mv *MainView) ShowError(err error) {
	fyne.Do(func() {
		dialog.ShowError(err, mv.window)
	})
}

// ShowInfo displays an information dialog
func (mv *MainView) ShowInfo(title, message string) {
	fyne.Do(func() {
		dialog.ShowInformation(title, message, mv.window)
	})
}

// GetWindow returns the main window
func (mv *MainView) GetWindow() fyne.Window {
	return mv.window
}
