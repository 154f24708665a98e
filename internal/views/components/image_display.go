package components

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/disintegration/imaging"
)

const (
	PreviewWidth  = 480
	PreviewHeight = 360
)

// ImageDisplay shows the input and the corrected output of the last
// finished task side by side.
type ImageDisplay struct {
	splitView   *container.Split
	before      *canvas.Image
	after       *canvas.Image
	angleLabel  *widget.Label
	placeholder image.Image
}

// NewImageDisplay creates a new image display component
func NewImageDisplay() *ImageDisplay {
	id := &ImageDisplay{
		placeholder: imaging.New(PreviewWidth, PreviewHeight, color.NRGBA{R: 240, G: 240, B: 240, A: 255}),
		angleLabel:  widget.NewLabel("Angle: --"),
	}
	id.before = id.newCanvas()
	id.after = id.newCanvas()

	id.splitView = container.NewHSplit(
		container.NewBorder(widget.NewRichTextFromMarkdown("**Input**"), nil, nil, nil, id.before),
		container.NewBorder(container.NewHBox(widget.NewRichTextFromMarkdown("**Corrected**"), id.angleLabel), nil, nil, nil, id.after),
	)
	id.splitView.SetOffset(0.5)
	return id
}

func (id *ImageDisplay) newCanvas() *canvas.Image {
	img := canvas.NewImageFromImage(id.placeholder)
	img.FillMode = canvas.ImageFillContain
	img.ScaleMode = canvas.ImageScaleSmooth
	img.SetMinSize(fyne.NewSize(PreviewWidth, PreviewHeight))
	return img
}

// SetPreview replaces both previews. A nil image restores the placeholder.
func (id *ImageDisplay) SetPreview(before, after image.Image, angle string) {
	fyne.Do(func() {
		id.before.Image = orDefault(before, id.placeholder)
		id.after.Image = orDefault(after, id.placeholder)
		id.angleLabel.SetText("Angle: " + angle)
		id.before.Refresh()
		id.after.Refresh()
	})
}

// Clear restores the placeholders.
func (id *ImageDisplay) Clear() {
	id.SetPreview(nil, nil, "--")
}

func orDefault(img, fallback image.Image) image.Image {
	if img == nil {
		return fallback
	}
	return img
}

// GetContainer returns the split view holding both previews
func (id *ImageDisplay) GetContainer() fyne.CanvasObject {
	return id.splitView
}
