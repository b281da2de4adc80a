package tui

import (
	"fmt"

	"trading-platform-client/internal/schema"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
)

// FormView projects a schema surface into a selectable list. One input is
// highlighted at a time; edit mode rewrites its textual value in place.
type FormView struct {
	surface *schema.Surface
	list    *widgets.List

	selected int
	editing  bool
	draft    string
}

func NewFormView(title string, surface *schema.Surface) *FormView {
	list := widgets.NewList()
	list.Title = title
	list.SelectedRowStyle = ui.NewStyle(ui.ColorBlack, ui.ColorYellow)
	return &FormView{surface: surface, list: list}
}

func (f *FormView) refresh() {
	ids := f.surface.IDs()
	if f.selected >= len(ids) {
		f.selected = 0
	}

	rows := make([]string, 0, len(ids))
	for i, id := range ids {
		in, ok := f.surface.Get(id)
		if !ok {
			continue
		}
		value := in.Value
		if f.editing && i == f.selected {
			value = f.draft + "_"
		}
		label := in.Parameter
		if in.Kind != schema.KindValue {
			label = fmt.Sprintf("%s.%s", in.Parameter, in.Kind)
		}
		rows = append(rows, fmt.Sprintf("%-28s %s", label, value))
	}
	f.list.Rows = rows
	f.list.SelectedRow = f.selected
}

func (f *FormView) Next() {
	if n := len(f.surface.IDs()); n > 0 {
		f.selected = (f.selected + 1) % n
	}
	f.editing = false
}

func (f *FormView) Prev() {
	if n := len(f.surface.IDs()); n > 0 {
		f.selected = (f.selected - 1 + n) % n
	}
	f.editing = false
}

func (f *FormView) Editing() bool {
	return f.editing
}

// BeginEdit seeds the draft with the current value.
func (f *FormView) BeginEdit() {
	ids := f.surface.IDs()
	if f.selected >= len(ids) {
		return
	}
	if in, ok := f.surface.Get(ids[f.selected]); ok {
		f.draft = in.Value
		f.editing = true
	}
}

func (f *FormView) CancelEdit() {
	f.editing = false
	f.draft = ""
}

// CommitEdit writes the draft back to the surface.
func (f *FormView) CommitEdit() {
	if !f.editing {
		return
	}
	ids := f.surface.IDs()
	if f.selected < len(ids) {
		_ = f.surface.SetValue(ids[f.selected], f.draft)
	}
	f.editing = false
	f.draft = ""
}

// Type appends a keystroke to the draft; Backspace trims it.
func (f *FormView) Type(key string) {
	if !f.editing {
		return
	}
	switch key {
	case "<Backspace>":
		if len(f.draft) > 0 {
			f.draft = f.draft[:len(f.draft)-1]
		}
	case "<Space>":
		f.draft += " "
	default:
		if len(key) == 1 {
			f.draft += key
		}
	}
}

func (f *FormView) layout(x1, y1, x2, y2 int) []ui.Drawable {
	f.refresh()
	f.list.SetRect(x1, y1, x2, y2)
	return []ui.Drawable{f.list}
}
