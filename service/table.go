package service

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/tabworks/tabula/model"
	"github.com/tabworks/tabula/utils"
)

// Table is one live view of a remote collection: its own state, its own
// binder, its own action set. Two Tables opened for the same table name are
// fully independent and must be refreshed independently; there is no shared
// cache between them.
type Table struct {
	svc      *Service
	config   *model.TableConfig
	registry *FilterRegistry
	binder   *Binder
	pending  *PendingSet
	stateKey string

	rowActions  []RowAction
	bulkActions []BulkAction
}

// OpenTable loads the table definition and returns a fresh instance. Close
// releases its state when the owning view unmounts.
func (s *Service) OpenTable(name string) (*Table, error) {
	cfg, err := s.LoadTableConfig(name)
	if err != nil {
		return nil, err
	}

	registry, err := NewFilterRegistry(name, cfg.Filters)
	if err != nil {
		return nil, err
	}

	stateKey := s.States.Create(name, cfg.PageSize, cfg.ColumnFields())

	// A configured default order becomes the instance's initial sort, with a
	// leading "-" for descending.
	if cfg.OrderBy != "" {
		column := strings.TrimPrefix(cfg.OrderBy, "-")
		s.States.SetSort(stateKey, column, strings.HasPrefix(cfg.OrderBy, "-"))
	}

	return &Table{
		svc:         s,
		config:      cfg,
		registry:    registry,
		binder:      NewBinder(cfg.Endpoint, cfg.PrimaryKey, s.Client, s.Log),
		pending:     NewPendingSet(),
		stateKey:    stateKey,
		rowActions:  defaultRowActions(),
		bulkActions: defaultBulkActions(),
	}, nil
}

// Close releases the instance state.
func (t *Table) Close() {
	t.svc.States.Release(t.stateKey)
}

// Config returns the immutable table definition.
func (t *Table) Config() *model.TableConfig {
	return t.config
}

// Registry returns the filter registry of this table.
func (t *Table) Registry() *FilterRegistry {
	return t.registry
}

// State returns the current table state.
func (t *Table) State() model.TableState {
	return t.svc.States.Get(t.stateKey)
}

// Page returns the last successfully fetched page, nil before the first
// success.
func (t *Table) Page() *model.RecordPage {
	return t.binder.Page()
}

// FetchState returns the binder's fetch state.
func (t *Table) FetchState() FetchState {
	return t.binder.State()
}

// FetchErr returns the error of the most recent failed fetch.
func (t *Table) FetchErr() error {
	return t.binder.Err()
}

// RecordID extracts the primary key from a record of this table.
func (t *Table) RecordID(rec model.Record) int64 {
	return utils.ExtractInt64(rec[t.config.PrimaryKey])
}

// ComposeQuery builds the parameter set the next fetch would use.
func (t *Table) ComposeQuery() (url.Values, error) {
	return ComposeQuery(t.State(), t.config.StaticParams, t.registry, t.config.DisableCustomFilters)
}

// Fetch composes the query from the current state and loads one page.
// After a successful replacement the selection is pruned to the ids present
// on the new page.
func (t *Table) Fetch(ctx context.Context) (*model.RecordPage, error) {
	query, err := ComposeQuery(t.State(), t.config.StaticParams, t.registry, t.config.DisableCustomFilters)
	if err != nil {
		return nil, err
	}

	page, err := t.binder.Fetch(ctx, query)
	if err != nil {
		return nil, err
	}
	if page == nil {
		// Superseded by a newer fetch; that fetch prunes the selection.
		return nil, nil
	}

	t.svc.States.Prune(t.stateKey, t.binder.PKs())
	return page, nil
}

// Refresh is an explicit re-fetch with unchanged parameters.
func (t *Table) Refresh(ctx context.Context) (*model.RecordPage, error) {
	return t.Fetch(ctx)
}

// refetch runs a fetch when the applied transition affects the result set.
func (t *Table) refetch(ctx context.Context, needed bool) error {
	if !needed {
		return nil
	}
	_, err := t.Fetch(ctx)
	return err
}

func (t *Table) SetPage(ctx context.Context, page int) error {
	_, needed := t.svc.States.SetPage(t.stateKey, page)
	return t.refetch(ctx, needed)
}

func (t *Table) SetPageSize(ctx context.Context, size int) error {
	_, needed := t.svc.States.SetPageSize(t.stateKey, size)
	return t.refetch(ctx, needed)
}

func (t *Table) SetSort(ctx context.Context, column string, descending bool) error {
	if col, ok := t.config.Column(column); ok && !col.Sortable {
		return fmt.Errorf("column %s is not sortable", column)
	}
	_, needed := t.svc.States.SetSort(t.stateKey, column, descending)
	return t.refetch(ctx, needed)
}

func (t *Table) SetFilter(ctx context.Context, name, operator, value string) error {
	// Validate before touching state so an invalid filter leaves the
	// current view intact and never reaches the network.
	if _, err := t.registry.Resolve(name, operator, value); err != nil {
		return err
	}
	_, needed := t.svc.States.SetFilter(t.stateKey, name, operator, value)
	return t.refetch(ctx, needed)
}

// SetFilters applies a batch of filters as one transition and fetches once.
// All filters are validated up front; an invalid entry leaves state and
// network untouched.
func (t *Table) SetFilters(ctx context.Context, filters map[string]model.ActiveFilter) error {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := filters[name]
		if _, err := t.registry.Resolve(name, f.Operator, f.Value); err != nil {
			return err
		}
	}
	for _, name := range names {
		f := filters[name]
		t.svc.States.SetFilter(t.stateKey, name, f.Operator, f.Value)
	}
	_, err := t.Fetch(ctx)
	return err
}

func (t *Table) ClearFilter(ctx context.Context, name string) error {
	_, needed := t.svc.States.ClearFilter(t.stateKey, name)
	return t.refetch(ctx, needed)
}

func (t *Table) ClearFilters(ctx context.Context) error {
	_, needed := t.svc.States.ClearFilters(t.stateKey)
	return t.refetch(ctx, needed)
}

// Selection transitions never trigger a fetch.

func (t *Table) ToggleSelection(id int64) model.TableState {
	state, _ := t.svc.States.ToggleSelection(t.stateKey, id)
	return state
}

// SelectAll selects every record on the current page.
func (t *Table) SelectAll() model.TableState {
	state, _ := t.svc.States.SelectAll(t.stateKey, t.binder.PKs())
	return state
}

func (t *Table) ClearSelection() model.TableState {
	state, _ := t.svc.States.ClearSelection(t.stateKey)
	return state
}

func (t *Table) SetVisibleColumns(columns []string) model.TableState {
	state, _ := t.svc.States.SetVisibleColumns(t.stateKey, columns)
	return state
}

// Create submits a new record and returns it as confirmed by the server,
// with its assigned primary key. The held page is left untouched: the new
// record may not belong to the current page, scope or filter set, so the
// caller decides whether to refresh.
func (t *Table) Create(ctx context.Context, fields map[string]any) (model.Record, error) {
	if !t.svc.can(ctx, t.config.TableName, "add") {
		return nil, fmt.Errorf("%w: add on %s", ErrNotPermitted, t.config.TableName)
	}

	if _, err := t.pending.Begin(t.config.TableName, 0, model.MutationCreate); err != nil {
		return nil, err
	}
	defer t.pending.End(t.config.TableName, 0)

	// The mutation response wraps the confirmed record in an envelope.
	var resp struct {
		Success bool         `json:"success"`
		Record  model.Record `json:"record"`
	}
	if err := t.svc.Client.PostJSON(ctx, t.config.Endpoint, fields, &resp); err != nil {
		return nil, err
	}
	return resp.Record, nil
}

// Update submits confirmed field changes for one record. Local state is
// only patched after the server acknowledges, so a failure needs no
// rollback.
func (t *Table) Update(ctx context.Context, id int64, fields map[string]any) error {
	if !t.svc.can(ctx, t.config.TableName, "change") {
		return fmt.Errorf("%w: change on %s", ErrNotPermitted, t.config.TableName)
	}

	if _, err := t.pending.Begin(t.config.TableName, id, model.MutationUpdate); err != nil {
		return err
	}
	defer t.pending.End(t.config.TableName, id)

	path := t.config.Endpoint + "/" + strconv.FormatInt(id, 10)
	if err := t.svc.Client.PatchJSON(ctx, path, fields, nil); err != nil {
		return err
	}

	t.binder.PatchLocal(id, fields)
	return nil
}

// Delete removes one record. On success the record leaves the held page
// and the selection without a re-fetch.
func (t *Table) Delete(ctx context.Context, id int64) error {
	if !t.svc.can(ctx, t.config.TableName, "delete") {
		return fmt.Errorf("%w: delete on %s", ErrNotPermitted, t.config.TableName)
	}

	if _, err := t.pending.Begin(t.config.TableName, id, model.MutationDelete); err != nil {
		return err
	}
	defer t.pending.End(t.config.TableName, id)

	path := t.config.Endpoint + "/" + strconv.FormatInt(id, 10)
	if err := t.svc.Client.Delete(ctx, path); err != nil {
		return err
	}

	t.binder.RemoveLocal(id)
	t.svc.States.Deselect(t.stateKey, id)
	return nil
}

// Duplicate creates a copy of an on-page record without its primary key.
func (t *Table) Duplicate(ctx context.Context, id int64) (model.Record, error) {
	rec, ok := t.binder.Record(id)
	if !ok {
		return nil, fmt.Errorf("record %d is not on the current page", id)
	}

	fields := make(map[string]any, len(rec))
	for key, value := range rec {
		if key == t.config.PrimaryKey {
			continue
		}
		fields[key] = value
	}
	return t.Create(ctx, fields)
}

// DeleteSelected deletes every selected record, collecting per-record
// failures. Successfully deleted records leave the page and selection even
// when a later one fails.
func (t *Table) DeleteSelected(ctx context.Context) error {
	var errs []error
	for _, id := range t.State().SelectedIDs() {
		if err := t.Delete(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("delete %d: %w", id, err))
		}
	}
	return joinErrors(errs)
}

func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return fmt.Errorf("%d of the selected deletions failed: %w", len(errs), errs[0])
	}
}
