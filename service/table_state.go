package service

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/tabworks/tabula/model"
)

// StateStore owns one TableState per open table instance. Two instances of
// the same table get independent states; the store never shares a state
// between views. Every transition reports whether the displayed result set
// is affected and a re-fetch is therefore required: page, sort and filter
// changes are, selection changes never are.
type StateStore struct {
	mu     sync.Mutex
	seq    uint64
	states map[string]model.TableState
	prefs  model.PreferenceStore
}

func NewStateStore(prefs model.PreferenceStore) *StateStore {
	return &StateStore{
		states: make(map[string]model.TableState),
		prefs:  prefs,
	}
}

// Create registers a fresh state for one instance of table and returns the
// instance key. Persisted page-size and column-visibility preferences, if
// any, are applied on top of the defaults.
func (st *StateStore) Create(table string, pageSize int, columns []string) string {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.seq++
	key := table + "#" + strconv.FormatUint(st.seq, 10)

	state := model.NewTableState(table)
	if pageSize > 0 {
		state = state.WithPageSize(pageSize)
	}
	state = state.WithVisibleColumns(columns)

	if st.prefs != nil {
		if raw, ok := st.prefs.Get(prefKey(table, "pageSize")); ok {
			if size, err := strconv.Atoi(raw); err == nil {
				state = state.WithPageSize(size)
			}
		}
		if raw, ok := st.prefs.Get(prefKey(table, "columns")); ok {
			var cols []string
			if err := json.Unmarshal([]byte(raw), &cols); err == nil && len(cols) > 0 {
				state = state.WithVisibleColumns(cols)
			}
		}
	}

	st.states[key] = state
	return key
}

// Get returns the current state for an instance key. A released or unknown
// key yields a zero-value state.
func (st *StateStore) Get(key string) model.TableState {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.states[key]
}

// Release discards the state of an unmounted instance.
func (st *StateStore) Release(key string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.states, key)
}

func (st *StateStore) apply(key string, transition func(model.TableState) model.TableState) model.TableState {
	st.mu.Lock()
	defer st.mu.Unlock()
	next := transition(st.states[key])
	st.states[key] = next
	return next
}

func (st *StateStore) SetPage(key string, page int) (model.TableState, bool) {
	return st.apply(key, func(s model.TableState) model.TableState {
		return s.WithPage(page)
	}), true
}

func (st *StateStore) SetPageSize(key string, size int) (model.TableState, bool) {
	next := st.apply(key, func(s model.TableState) model.TableState {
		return s.WithPageSize(size).WithPage(1)
	})
	st.persist(next.Name, "pageSize", strconv.Itoa(next.PageSize))
	return next, true
}

func (st *StateStore) SetSort(key, column string, descending bool) (model.TableState, bool) {
	return st.apply(key, func(s model.TableState) model.TableState {
		return s.WithSort(column, descending)
	}), true
}

func (st *StateStore) SetFilter(key, name, operator, value string) (model.TableState, bool) {
	return st.apply(key, func(s model.TableState) model.TableState {
		return s.WithFilter(name, operator, value)
	}), true
}

func (st *StateStore) ClearFilter(key, name string) (model.TableState, bool) {
	return st.apply(key, func(s model.TableState) model.TableState {
		return s.WithoutFilter(name)
	}), true
}

func (st *StateStore) ClearFilters(key string) (model.TableState, bool) {
	return st.apply(key, func(s model.TableState) model.TableState {
		return s.WithoutFilters()
	}), true
}

func (st *StateStore) ToggleSelection(key string, id int64) (model.TableState, bool) {
	return st.apply(key, func(s model.TableState) model.TableState {
		return s.ToggleSelection(id)
	}), false
}

func (st *StateStore) SelectAll(key string, ids []int64) (model.TableState, bool) {
	return st.apply(key, func(s model.TableState) model.TableState {
		return s.SelectAll(ids)
	}), false
}

func (st *StateStore) ClearSelection(key string) (model.TableState, bool) {
	return st.apply(key, func(s model.TableState) model.TableState {
		return s.ClearSelection()
	}), false
}

func (st *StateStore) SetVisibleColumns(key string, columns []string) (model.TableState, bool) {
	next := st.apply(key, func(s model.TableState) model.TableState {
		return s.WithVisibleColumns(columns)
	})
	if encoded, err := json.Marshal(next.VisibleColumns); err == nil {
		st.persist(next.Name, "columns", string(encoded))
	}
	return next, false
}

// Prune drops selected ids absent from ids. Called after every page
// replacement; never triggers a re-fetch.
func (st *StateStore) Prune(key string, ids []int64) model.TableState {
	return st.apply(key, func(s model.TableState) model.TableState {
		return s.PruneSelection(ids)
	})
}

// Deselect removes one id from the selection, used after a confirmed
// delete.
func (st *StateStore) Deselect(key string, id int64) model.TableState {
	return st.apply(key, func(s model.TableState) model.TableState {
		if !s.IsSelected(id) {
			return s
		}
		return s.ToggleSelection(id)
	})
}

// persist is best effort: preference writes never fail a transition.
func (st *StateStore) persist(table, name, value string) {
	if st.prefs == nil {
		return
	}
	_ = st.prefs.Set(prefKey(table, name), value)
}
