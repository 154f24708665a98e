package components

import (
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
)

// TaskList renders one line per task, most recent last.
type TaskList struct {
	mu         sync.RWMutex
	rows       []string
	ids        []string
	index      map[string]int
	onSelected func(id string)
	list       *widget.List
}

func NewTaskList() *TaskList {
	tl := &TaskList{index: make(map[string]int)}
	tl.list = widget.NewList(
		tl.length,
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			tl.mu.RLock()
			defer tl.mu.RUnlock()
			if i < len(tl.rows) {
				o.(*widget.Label).SetText(tl.rows[i])
			}
		},
	)
	tl.list.OnSelected = func(i widget.ListItemID) {
		tl.mu.RLock()
		h := tl.onSelected
		var id string
		if i >= 0 && i < len(tl.ids) {
			id = tl.ids[i]
		}
		tl.mu.RUnlock()

		if id != "" && h != nil {
			h(id)
		}
	}
	return tl
}

// SetSelectedHandler is called with the task id of a clicked row.
func (tl *TaskList) SetSelectedHandler(h func(id string)) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.onSelected = h
}

func (tl *TaskList) length() int {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return len(tl.rows)
}

// Upsert sets the line of task id, appending it when new.
func (tl *TaskList) Upsert(id, line string) {
	tl.mu.Lock()
	if i, ok := tl.index[id]; ok {
		tl.rows[i] = line
	} else {
		tl.index[id] = len(tl.rows)
		tl.rows = append(tl.rows, line)
		tl.ids = append(tl.ids, id)
	}
	tl.mu.Unlock()

	fyne.Do(tl.list.Refresh)
}

func (tl *TaskList) Clear() {
	tl.mu.Lock()
	tl.rows = nil
	tl.ids = nil
	tl.index = make(map[string]int)
	tl.mu.Unlock()

	fyne.Do(func() {
		tl.list.UnselectAll()
		tl.list.Refresh()
	})
}

// GetContainer returns the list widget
func (tl *TaskList) GetContainer() fyne.CanvasObject {
	return tl.list
}
