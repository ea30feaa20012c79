package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tabworks/tabula/model"
)

var (
	ErrMutationPending = errors.New("mutation already in flight for record")
	ErrNotPermitted    = errors.New("action not permitted")
)

// RowAction is one operation offered on a single rendered row. Capability
// names what the session must be allowed to do on the table ("change",
// "delete", "add", or a custom verb); Guard is an optional per-record
// predicate. An action whose checks fail is omitted from the computed list,
// never shown disabled.
type RowAction struct {
	Name       string
	Label      string
	Capability string
	Guard      func(ctx context.Context, rec model.Record) bool
	Handler    func(ctx context.Context, t *Table, rec model.Record) error
}

// BulkAction operates on the current selection.
type BulkAction struct {
	Name       string
	Label      string
	Capability string
	Guard      func(ctx context.Context, ids []int64) bool
	Handler    func(ctx context.Context, t *Table, ids []int64) error
}

type pendingKey struct {
	table  string
	record int64
}

// PendingSet enforces at most one in-flight mutation per (table, record).
// A duplicate submission is rejected locally before any request is made.
type PendingSet struct {
	mu      sync.Mutex
	entries map[pendingKey]model.PendingMutation
}

func NewPendingSet() *PendingSet {
	return &PendingSet{entries: make(map[pendingKey]model.PendingMutation)}
}

// Begin registers a mutation for (table, record) and returns its tracking
// entry, or ErrMutationPending when one is already in flight.
func (p *PendingSet) Begin(table string, record int64, kind model.MutationKind) (model.PendingMutation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := pendingKey{table: table, record: record}
	if existing, ok := p.entries[key]; ok {
		return existing, fmt.Errorf("%w: %s/%d (%s)", ErrMutationPending, table, record, existing.Kind)
	}

	entry := model.PendingMutation{
		Token:     uuid.New(),
		Table:     table,
		RecordID:  record,
		Kind:      kind,
		StartedAt: time.Now(),
	}
	p.entries[key] = entry
	return entry, nil
}

// End clears the entry for (table, record) regardless of outcome.
func (p *PendingSet) End(table string, record int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, pendingKey{table: table, record: record})
}

// Pending reports whether a mutation is in flight for (table, record).
func (p *PendingSet) Pending(table string, record int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.entries[pendingKey{table: table, record: record}]
	return ok
}

// VisibleRowActions computes the ordered action list for one row. Actions
// whose capability or guard check fails are left out entirely.
func (t *Table) VisibleRowActions(ctx context.Context, rec model.Record) []RowAction {
	var visible []RowAction
	for _, action := range t.rowActions {
		if action.Capability != "" && !t.svc.can(ctx, t.config.TableName, action.Capability) {
			continue
		}
		if action.Guard != nil && !action.Guard(ctx, rec) {
			continue
		}
		visible = append(visible, action)
	}
	return visible
}

// VisibleBulkActions computes the action list for the current selection.
func (t *Table) VisibleBulkActions(ctx context.Context) []BulkAction {
	ids := t.State().SelectedIDs()
	var visible []BulkAction
	for _, action := range t.bulkActions {
		if action.Capability != "" && !t.svc.can(ctx, t.config.TableName, action.Capability) {
			continue
		}
		if action.Guard != nil && !action.Guard(ctx, ids) {
			continue
		}
		visible = append(visible, action)
	}
	return visible
}

// AddRowAction appends a custom row action.
func (t *Table) AddRowAction(action RowAction) {
	t.rowActions = append(t.rowActions, action)
}

// AddBulkAction appends a custom bulk action.
func (t *Table) AddBulkAction(action BulkAction) {
	t.bulkActions = append(t.bulkActions, action)
}

// InvokeRowAction runs a named row action against a record, re-checking its
// visibility first.
func (t *Table) InvokeRowAction(ctx context.Context, name string, rec model.Record) error {
	for _, action := range t.VisibleRowActions(ctx, rec) {
		if action.Name != name {
			continue
		}
		if action.Handler == nil {
			return fmt.Errorf("row action %s has no handler", name)
		}
		return action.Handler(ctx, t, rec)
	}
	return fmt.Errorf("%w: row action %s", ErrNotPermitted, name)
}

// InvokeBulkAction runs a named bulk action against the current selection.
func (t *Table) InvokeBulkAction(ctx context.Context, name string) error {
	ids := t.State().SelectedIDs()
	for _, action := range t.VisibleBulkActions(ctx) {
		if action.Name != name {
			continue
		}
		if action.Handler == nil {
			return fmt.Errorf("bulk action %s has no handler", name)
		}
		return action.Handler(ctx, t, ids)
	}
	return fmt.Errorf("%w: bulk action %s", ErrNotPermitted, name)
}

func defaultRowActions() []RowAction {
	return []RowAction{
		{
			Name:       "edit",
			Label:      "Edit",
			Capability: "change",
		},
		{
			Name:       "duplicate",
			Label:      "Duplicate",
			Capability: "add",
			Handler: func(ctx context.Context, t *Table, rec model.Record) error {
				_, err := t.Duplicate(ctx, t.RecordID(rec))
				return err
			},
		},
		{
			Name:       "delete",
			Label:      "Delete",
			Capability: "delete",
			Handler: func(ctx context.Context, t *Table, rec model.Record) error {
				return t.Delete(ctx, t.RecordID(rec))
			},
		},
	}
}

func defaultBulkActions() []BulkAction {
	return []BulkAction{
		{
			Name:       "delete",
			Label:      "Delete Selected",
			Capability: "delete",
			Guard: func(ctx context.Context, ids []int64) bool {
				return len(ids) > 0
			},
			Handler: func(ctx context.Context, t *Table, ids []int64) error {
				return t.DeleteSelected(ctx)
			},
		},
	}
}
