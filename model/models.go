package model

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPageSize is used when neither the table config nor the caller
// supplies a page size.
const DefaultPageSize = 25

// ActiveFilter is one user-applied filter on a table: an operator from the
// filter's declared operator set plus the value to compare against.
type ActiveFilter struct {
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// TableState holds everything one table instance needs to reproduce its
// current view: pagination, sort, selection and active filters. All
// transitions return a copy; nobody mutates a TableState in place.
type TableState struct {
	Name           string
	Page           int
	PageSize       int
	SortColumn     string
	SortDescending bool
	VisibleColumns []string
	Selection      map[int64]struct{}
	Filters        map[string]ActiveFilter
}

func NewTableState(name string) TableState {
	return TableState{
		Name:      name,
		Page:      1,
		PageSize:  DefaultPageSize,
		Selection: make(map[int64]struct{}),
		Filters:   make(map[string]ActiveFilter),
	}
}

func (s TableState) clone() TableState {
	out := s
	out.VisibleColumns = append([]string(nil), s.VisibleColumns...)
	out.Selection = make(map[int64]struct{}, len(s.Selection))
	for id := range s.Selection {
		out.Selection[id] = struct{}{}
	}
	out.Filters = make(map[string]ActiveFilter, len(s.Filters))
	for name, f := range s.Filters {
		out.Filters[name] = f
	}
	return out
}

func (s TableState) WithPage(page int) TableState {
	if page < 1 {
		page = 1
	}
	out := s.clone()
	out.Page = page
	return out
}

func (s TableState) WithPageSize(size int) TableState {
	if size < 1 {
		size = DefaultPageSize
	}
	out := s.clone()
	out.PageSize = size
	return out
}

func (s TableState) WithSort(column string, descending bool) TableState {
	out := s.clone()
	out.SortColumn = column
	out.SortDescending = descending
	return out
}

func (s TableState) WithVisibleColumns(columns []string) TableState {
	out := s.clone()
	out.VisibleColumns = append([]string(nil), columns...)
	return out
}

func (s TableState) WithFilter(name, operator, value string) TableState {
	out := s.clone()
	out.Filters[name] = ActiveFilter{Operator: operator, Value: value}
	return out
}

func (s TableState) WithoutFilter(name string) TableState {
	out := s.clone()
	delete(out.Filters, name)
	return out
}

func (s TableState) WithoutFilters() TableState {
	out := s.clone()
	out.Filters = make(map[string]ActiveFilter)
	return out
}

func (s TableState) ToggleSelection(id int64) TableState {
	out := s.clone()
	if _, ok := out.Selection[id]; ok {
		delete(out.Selection, id)
	} else {
		out.Selection[id] = struct{}{}
	}
	return out
}

func (s TableState) SelectAll(ids []int64) TableState {
	out := s.clone()
	for _, id := range ids {
		out.Selection[id] = struct{}{}
	}
	return out
}

func (s TableState) ClearSelection() TableState {
	out := s.clone()
	out.Selection = make(map[int64]struct{})
	return out
}

// PruneSelection drops every selected id that is not part of ids. Called
// after each page replacement so the selection never references records
// the current page does not contain.
func (s TableState) PruneSelection(ids []int64) TableState {
	present := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		present[id] = struct{}{}
	}
	out := s.clone()
	for id := range out.Selection {
		if _, ok := present[id]; !ok {
			delete(out.Selection, id)
		}
	}
	return out
}

func (s TableState) IsSelected(id int64) bool {
	_, ok := s.Selection[id]
	return ok
}

// SelectedIDs returns the selection in ascending order.
func (s TableState) SelectedIDs() []int64 {
	ids := make([]int64, 0, len(s.Selection))
	for id := range s.Selection {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Record is one row as returned by the remote endpoint.
type Record map[string]any

// Get resolves a dotted accessor path ("part.name") into the record.
func (r Record) Get(path string) (any, bool) {
	cur := any(map[string]any(r))
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// RecordPage is the materialized result of one list fetch. It is replaced
// wholesale on every successful fetch and only patched for confirmed
// single-record mutations.
type RecordPage struct {
	Count    int64
	Next     string
	Previous string
	Records  []Record
}

// FilterChoice is one entry of a static choice list on a filter.
type FilterChoice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FilterDescriptor declares a named filter and the closed set of operators
// it supports. Descriptors are immutable once loaded.
type FilterDescriptor struct {
	Name        string         `json:"name"`
	Label       string         `json:"label"`
	Description string         `json:"description"`
	Operators   []string       `json:"operators"`
	Choices     []FilterChoice `json:"choices,omitempty"`
	LookupPath  string         `json:"lookupPath,omitempty"`
}

// ColumnDescriptor declares one column of a table definition.
type ColumnDescriptor struct {
	Field      string         `json:"field"`
	Title      string         `json:"title"`
	Sortable   bool           `json:"sortable"`
	Switchable bool           `json:"switchable"`
	Renderer   string         `json:"renderer,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

type MutationKind string

const (
	MutationCreate MutationKind = "create"
	MutationUpdate MutationKind = "update"
	MutationDelete MutationKind = "delete"
)

// PendingMutation tracks one in-flight create/update/delete so a second
// submission for the same record is rejected before it hits the network.
type PendingMutation struct {
	Token     uuid.UUID
	Table     string
	RecordID  int64
	Kind      MutationKind
	StartedAt time.Time
}
