package service

import (
	"testing"

	"github.com/tabworks/tabula/model"
)

// memPrefs is a test preference store.
type memPrefs struct {
	values map[string]string
}

func newMemPrefs() *memPrefs {
	return &memPrefs{values: make(map[string]string)}
}

func (m *memPrefs) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *memPrefs) Set(key, value string) error {
	m.values[key] = value
	return nil
}

func TestStateStoreInstancesAreIndependent(t *testing.T) {
	store := NewStateStore(nil)

	a := store.Create("stock_items", 25, nil)
	b := store.Create("stock_items", 25, nil)
	if a == b {
		t.Fatalf("two instances share a key: %s", a)
	}

	store.SetFilter(a, "status", "=", "60")
	if len(store.Get(b).Filters) != 0 {
		t.Error("filter on instance a leaked into instance b")
	}
}

func TestStateStoreRefetchFlags(t *testing.T) {
	store := NewStateStore(nil)
	key := store.Create("stock_items", 25, nil)

	if _, refetch := store.SetPage(key, 2); !refetch {
		t.Error("page change must require a re-fetch")
	}
	if _, refetch := store.SetSort(key, "quantity", true); !refetch {
		t.Error("sort change must require a re-fetch")
	}
	if _, refetch := store.SetFilter(key, "status", "=", "60"); !refetch {
		t.Error("filter change must require a re-fetch")
	}
	if _, refetch := store.ClearFilter(key, "status"); !refetch {
		t.Error("filter removal must require a re-fetch")
	}
	if _, refetch := store.ToggleSelection(key, 1); refetch {
		t.Error("selection change must not require a re-fetch")
	}
	if _, refetch := store.SelectAll(key, []int64{1, 2}); refetch {
		t.Error("select all must not require a re-fetch")
	}
	if _, refetch := store.ClearSelection(key); refetch {
		t.Error("clear selection must not require a re-fetch")
	}
}

func TestStateStorePruneKeepsSelectionSubset(t *testing.T) {
	store := NewStateStore(nil)
	key := store.Create("stock_items", 25, nil)

	store.SelectAll(key, []int64{1, 2, 3})
	state := store.Prune(key, []int64{2, 4})

	if state.IsSelected(1) || state.IsSelected(3) {
		t.Error("ids absent from the new page survived the prune")
	}
	if !state.IsSelected(2) {
		t.Error("id present on the new page was dropped")
	}
}

func TestStateStoreAppliesPersistedPreferences(t *testing.T) {
	prefs := newMemPrefs()
	prefs.values[prefKey("stock_items", "pageSize")] = "100"
	prefs.values[prefKey("stock_items", "columns")] = `["status","quantity"]`

	store := NewStateStore(prefs)
	key := store.Create("stock_items", 25, []string{"status", "quantity", "location"})

	state := store.Get(key)
	if state.PageSize != 100 {
		t.Errorf("persisted page size not applied, got %d", state.PageSize)
	}
	if len(state.VisibleColumns) != 2 {
		t.Errorf("persisted columns not applied, got %v", state.VisibleColumns)
	}
}

func TestStateStorePersistsPreferences(t *testing.T) {
	prefs := newMemPrefs()
	store := NewStateStore(prefs)
	key := store.Create("stock_items", 25, nil)

	store.SetPageSize(key, 50)
	if got := prefs.values[prefKey("stock_items", "pageSize")]; got != "50" {
		t.Errorf("page size not persisted, got %q", got)
	}

	store.SetVisibleColumns(key, []string{"status"})
	if got := prefs.values[prefKey("stock_items", "columns")]; got != `["status"]` {
		t.Errorf("columns not persisted, got %q", got)
	}
}

func TestStateStoreRelease(t *testing.T) {
	store := NewStateStore(nil)
	key := store.Create("stock_items", 25, nil)
	store.Release(key)

	if got := store.Get(key); got.Name != "" {
		t.Errorf("released state still present: %+v", got)
	}
}

func TestStateStorePageSizeChangeResetsPage(t *testing.T) {
	store := NewStateStore(nil)
	key := store.Create("stock_items", 25, nil)

	store.SetPage(key, 4)
	state, _ := store.SetPageSize(key, 50)
	if state.Page != 1 {
		t.Errorf("page size change should reset to page 1, got %d", state.Page)
	}
}

func TestTableStateTransitionsArePure(t *testing.T) {
	original := model.NewTableState("stock_items")
	_ = original.WithFilter("status", "=", "60").ToggleSelection(7).WithPage(3)

	if len(original.Filters) != 0 || len(original.Selection) != 0 || original.Page != 1 {
		t.Errorf("transition mutated the original state: %+v", original)
	}
}
