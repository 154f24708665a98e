package components

import (
	"strconv"
	"strings"

	"docskew/internal/skew"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// ParamValues is the raw text of every parameter field.
type ParamValues struct {
	Method        string
	MaxAngle      string
	AngleStep     string
	MaxResolution string
	Threads       string
	LineLength    string
	LineGap       string
	FourierLength string
	FourierGap    string
	Quality       string
	Workers       string
}

// DefaultParamValues renders skew.DefaultParams plus a worker count as text.
func DefaultParamValues(workers int) ParamValues {
	p := skew.DefaultParams()
	return ParamValues{
		Method:        p.Method.String(),
		MaxAngle:      strconv.Itoa(int(p.Projection.MaxAngle)),
		AngleStep:     strconv.FormatFloat(p.Projection.AngleStep, 'f', -1, 64),
		MaxResolution: p.Projection.MaxResolution.String(),
		Threads:       strconv.Itoa(p.Projection.Threads),
		LineLength:    strconv.FormatFloat(p.Lines.MinLineLength, 'f', -1, 64),
		LineGap:       strconv.FormatFloat(p.Lines.MaxLineGap, 'f', -1, 64),
		FourierLength: strconv.FormatFloat(p.Spectral.MinLineLength, 'f', -1, 64),
		FourierGap:    strconv.FormatFloat(p.Spectral.MaxLineGap, 'f', -1, 64),
		Quality:       strconv.Itoa(p.Quality),
		Workers:       strconv.Itoa(workers),
	}
}

// Build parses v into validated parameters and a worker count.
func (v ParamValues) Build() (skew.Params, int, error) {
	p := skew.DefaultParams()

	method, err := skew.ParseMethod(v.Method)
	if err != nil {
		return skew.Params{}, 0, err
	}
	p.Method = method

	maxAngle, err := parseInt("max angle", v.MaxAngle)
	if err != nil {
		return skew.Params{}, 0, err
	}
	if maxAngle < 0 || maxAngle > 90 {
		return skew.Params{}, 0, skew.NewValidationError("max_angle", v.MaxAngle, "must be within [0, 90]")
	}
	p.Projection.MaxAngle = uint16(maxAngle)

	floats := []struct {
		name string
		text string
		dst  *float64
	}{
		{"angle step", v.AngleStep, &p.Projection.AngleStep},
		{"line length", v.LineLength, &p.Lines.MinLineLength},
		{"line gap", v.LineGap, &p.Lines.MaxLineGap},
		{"fourier line length", v.FourierLength, &p.Spectral.MinLineLength},
		{"fourier line gap", v.FourierGap, &p.Spectral.MaxLineGap},
	}
	for _, f := range floats {
		x, err := strconv.ParseFloat(strings.TrimSpace(f.text), 64)
		if err != nil {
			return skew.Params{}, 0, skew.NewValidationError(f.name, f.text, "not a number")
		}
		*f.dst = x
	}

	if p.Projection.MaxResolution, err = skew.ParseResolution(v.MaxResolution); err != nil {
		return skew.Params{}, 0, err
	}
	if p.Projection.Threads, err = parseInt("threads", v.Threads); err != nil {
		return skew.Params{}, 0, err
	}
	if p.Quality, err = parseInt("quality", v.Quality); err != nil {
		return skew.Params{}, 0, err
	}

	workers, err := parseInt("workers", v.Workers)
	if err != nil {
		return skew.Params{}, 0, err
	}
	if workers < 1 {
		return skew.Params{}, 0, skew.NewValidationError("workers", v.Workers, "must be at least 1")
	}

	if err := p.Validate(); err != nil {
		return skew.Params{}, 0, err
	}
	return p, workers, nil
}

func parseInt(name, text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, skew.NewValidationError(name, text, "not an integer")
	}
	return n, nil
}

// ParameterPanel is the form editing ParamValues.
type ParameterPanel struct {
	container *fyne.Container
	method    *widget.Select
	entries   map[string]*widget.Entry
}

var panelFields = []struct {
	key   string
	label string
}{
	{"max_angle", "Max angle (deg)"},
	{"angle_step", "Angle step (deg)"},
	{"max_resolution", "Max resolution (WxH)"},
	{"threads", "Sweep threads"},
	{"line_length", "Edge min line length"},
	{"line_gap", "Edge max line gap"},
	{"fourier_length", "Fourier min line length"},
	{"fourier_gap", "Fourier max line gap"},
	{"quality", "Output quality"},
	{"workers", "Workers"},
}

// NewParameterPanel creates the form filled with defaults.
func NewParameterPanel(defaults ParamValues) *ParameterPanel {
	pp := &ParameterPanel{entries: make(map[string]*widget.Entry)}
	pp.method = widget.NewSelect([]string{"default", "projection", "edges", "fourier"}, nil)

	form := widget.NewForm(widget.NewFormItem("Method", pp.method))
	for _, f := range panelFields {
		e := widget.NewEntry()
		pp.entries[f.key] = e
		form.Append(f.label, e)
	}
	pp.SetValues(defaults)

	pp.container = container.NewVBox(widget.NewRichTextFromMarkdown("**Parameters**"), form)
	return pp
}

// Values reads the current text of every field.
func (pp *ParameterPanel) Values() ParamValues {
	return ParamValues{
		Method:        pp.method.Selected,
		MaxAngle:      pp.entries["max_angle"].Text,
		AngleStep:     pp.entries["angle_step"].Text,
		MaxResolution: pp.entries["max_resolution"].Text,
		Threads:       pp.entries["threads"].Text,
		LineLength:    pp.entries["line_length"].Text,
		LineGap:       pp.entries["line_gap"].Text,
		FourierLength: pp.entries["fourier_length"].Text,
		FourierGap:    pp.entries["fourier_gap"].Text,
		Quality:       pp.entries["quality"].Text,
		Workers:       pp.entries["workers"].Text,
	}
}

// SetValues overwrites every field.
func (pp *ParameterPanel) SetValues(v ParamValues) {
	pp.method.SetSelected(v.Method)
	set := map[string]string{
		"max_angle":      v.MaxAngle,
		"angle_step":     v.AngleStep,
		"max_resolution": v.MaxResolution,
		"threads":        v.Threads,
		"line_length":    v.LineLength,
		"line_gap":       v.LineGap,
		"fourier_length": v.FourierLength,
		"fourier_gap":    v.FourierGap,
		"quality":        v.Quality,
		"workers":        v.Workers,
	}
	for key, text := range set {
		pp.entries[key].SetText(text)
	}
}

// GetContainer returns the panel container
func (pp *ParameterPanel) GetContainer() *fyne.Container {
	return pp.container
}
