package service

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tabworks/tabula/model"
	"github.com/tabworks/tabula/utils"
)

// RenderFunc turns one cell value into display text.
type RenderFunc func(rec model.Record, col model.ColumnDescriptor) string

// RenderRegistry resolves column renderers by name at render time. A column
// without a renderer, or with an unregistered one, falls back to plain
// formatting of the accessor value.
type RenderRegistry struct {
	mu    sync.RWMutex
	funcs map[string]RenderFunc
}

func NewRenderRegistry() *RenderRegistry {
	reg := &RenderRegistry{funcs: make(map[string]RenderFunc)}
	reg.Register("datetime", renderDateTime)
	reg.Register("bool", renderBool)
	return reg
}

func (r *RenderRegistry) Register(name string, fn RenderFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

func (r *RenderRegistry) Render(rec model.Record, col model.ColumnDescriptor) string {
	if col.Renderer != "" {
		r.mu.RLock()
		fn, ok := r.funcs[col.Renderer]
		r.mu.RUnlock()
		if ok {
			return fn(rec, col)
		}
	}
	return renderPlain(rec, col)
}

func renderPlain(rec model.Record, col model.ColumnDescriptor) string {
	value, ok := rec.Get(col.Field)
	if !ok || value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}

func renderDateTime(rec model.Record, col model.ColumnDescriptor) string {
	value, ok := rec.Get(col.Field)
	if !ok || value == nil {
		return ""
	}
	format := "2006-01-02 15:04"
	if f, ok := col.Extra["format"].(string); ok && f != "" {
		format = f
	}
	return utils.FormatTime(value, format)
}

func renderBool(rec model.Record, col model.ColumnDescriptor) string {
	value, ok := rec.Get(col.Field)
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case bool:
		if v {
			return "yes"
		}
		return "no"
	default:
		s := strings.ToLower(fmt.Sprint(v))
		if s == "1" || s == "true" || s == "on" {
			return "yes"
		}
		return "no"
	}
}

// RenderText prints the page as a plain text table using the state's
// visible columns. Used by the CLI; has no styling ambitions.
func (r *RenderRegistry) RenderText(cfg *model.TableConfig, state model.TableState, page *model.RecordPage) string {
	if page == nil {
		return "(no data)\n"
	}

	visible := state.VisibleColumns
	if len(visible) == 0 {
		visible = cfg.ColumnFields()
	}

	var columns []model.ColumnDescriptor
	for _, field := range visible {
		if col, ok := cfg.Column(field); ok {
			columns = append(columns, col)
		}
	}

	rows := make([][]string, 0, len(page.Records)+1)
	header := make([]string, len(columns))
	widths := make([]int, len(columns))
	for i, col := range columns {
		header[i] = col.Title
		widths[i] = len(col.Title)
	}
	rows = append(rows, header)

	for _, rec := range page.Records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = r.Render(rec, col)
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
		rows = append(rows, row)
	}

	var out strings.Builder
	for rowIdx, row := range rows {
		for i, cell := range row {
			out.WriteString(cell)
			out.WriteString(strings.Repeat(" ", widths[i]-len(cell)))
			if i < len(row)-1 {
				out.WriteString("  ")
			}
		}
		out.WriteString("\n")
		if rowIdx == 0 {
			for i, w := range widths {
				out.WriteString(strings.Repeat("-", w))
				if i < len(widths)-1 {
					out.WriteString("  ")
				}
			}
			out.WriteString("\n")
		}
	}
	out.WriteString(fmt.Sprintf("(%d of %d records)\n", len(page.Records), page.Count))
	return out.String()
}
