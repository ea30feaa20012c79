package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tabworks/tabula/model"
)

var (
	ErrUnknownFilter       = errors.New("unknown filter")
	ErrUnsupportedOperator = errors.New("unsupported operator for filter")
	ErrMalformedRangeValue = errors.New("range value must be <low>..<high>")
	ErrDuplicateFilter     = errors.New("duplicate filter declaration")
	ErrUnknownOperator     = errors.New("operator not in suffix table")
)

// operatorSuffix maps a filter operator to the query-parameter suffix the
// backend understands. "range" is special-cased in Resolve since it expands
// to two parameters.
var operatorSuffix = map[string]string{
	"=":        "",
	"!=":       "__ne",
	">":        "__gt",
	">=":       "__gte",
	"<":        "__lt",
	"<=":       "__lte",
	"contains": "__icontains",
	"in":       "__in",
}

// QueryFragment is one normalized query parameter produced by resolving a
// filter.
type QueryFragment struct {
	Key   string
	Value string
}

// FilterRegistry holds the closed set of filters declared for one table.
// Unknown names and undeclared operators are rejected here, before any
// request is composed.
type FilterRegistry struct {
	table   string
	filters map[string]model.FilterDescriptor
}

func NewFilterRegistry(table string, descriptors []model.FilterDescriptor) (*FilterRegistry, error) {
	reg := &FilterRegistry{
		table:   table,
		filters: make(map[string]model.FilterDescriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		if _, exists := reg.filters[d.Name]; exists {
			return nil, fmt.Errorf("%w: %s on table %s", ErrDuplicateFilter, d.Name, table)
		}
		for _, op := range d.Operators {
			if _, ok := operatorSuffix[op]; !ok && op != "range" {
				return nil, fmt.Errorf("%w: %q on filter %s", ErrUnknownOperator, op, d.Name)
			}
		}
		reg.filters[d.Name] = d
	}
	return reg, nil
}

func (r *FilterRegistry) Descriptor(name string) (model.FilterDescriptor, bool) {
	d, ok := r.filters[name]
	return d, ok
}

// Names returns the declared filter names, unordered.
func (r *FilterRegistry) Names() []string {
	names := make([]string, 0, len(r.filters))
	for name := range r.filters {
		names = append(names, name)
	}
	return names
}

// Resolve validates that name is a declared filter and operator is in its
// operator set, then returns the normalized query parameters. Most
// operators produce a single fragment; "range" expands a "<low>..<high>"
// value into a __gte and a __lte fragment.
func (r *FilterRegistry) Resolve(name, operator, value string) ([]QueryFragment, error) {
	descriptor, ok := r.filters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s on table %s", ErrUnknownFilter, name, r.table)
	}

	declared := false
	for _, op := range descriptor.Operators {
		if op == operator {
			declared = true
			break
		}
	}
	if !declared {
		return nil, fmt.Errorf("%w: %q on filter %s", ErrUnsupportedOperator, operator, name)
	}

	if operator == "range" {
		low, high, ok := strings.Cut(value, "..")
		if !ok || low == "" || high == "" {
			return nil, fmt.Errorf("%w: got %q", ErrMalformedRangeValue, value)
		}
		return []QueryFragment{
			{Key: name + "__gte", Value: low},
			{Key: name + "__lte", Value: high},
		}, nil
	}

	return []QueryFragment{{Key: name + operatorSuffix[operator], Value: value}}, nil
}
