package service

import (
	"net/url"
	"sort"
	"strconv"

	"github.com/tabworks/tabula/model"
)

// ComposeQuery flattens the table state, the caller-supplied static
// parameters and the active filters into the parameter set for the next
// fetch.
//
// Precedence: static parameters are written first, then active filters
// override them on key collision. With disableCustomFilters set the filter
// contribution is suppressed entirely and only static parameters remain:
// that is how an embedded, scope-locked table keeps a user filter from
// widening its scope. Pagination and ordering are appended last under their
// reserved keys.
//
// Output is deterministic: identical state and static parameters produce
// url.Values whose Encode() result is byte-identical.
func ComposeQuery(state model.TableState, static map[string]string, registry *FilterRegistry, disableCustomFilters bool) (url.Values, error) {
	params := url.Values{}

	for key, value := range static {
		params.Set(key, value)
	}

	if !disableCustomFilters {
		names := make([]string, 0, len(state.Filters))
		for name := range state.Filters {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			active := state.Filters[name]
			fragments, err := registry.Resolve(name, active.Operator, active.Value)
			if err != nil {
				return nil, err
			}
			for _, fragment := range fragments {
				params.Set(fragment.Key, fragment.Value)
			}
		}
	}

	pageSize := state.PageSize
	if pageSize < 1 {
		pageSize = model.DefaultPageSize
	}
	page := state.Page
	if page < 1 {
		page = 1
	}
	params.Set("limit", strconv.Itoa(pageSize))
	params.Set("offset", strconv.Itoa((page-1)*pageSize))

	if state.SortColumn != "" {
		ordering := state.SortColumn
		if state.SortDescending {
			ordering = "-" + ordering
		}
		params.Set("ordering", ordering)
	}

	return params, nil
}
