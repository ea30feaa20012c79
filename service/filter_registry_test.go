package service

import (
	"errors"
	"testing"

	"github.com/tabworks/tabula/model"
)

func stockFilters() []model.FilterDescriptor {
	return []model.FilterDescriptor{
		{Name: "status", Label: "Status", Operators: []string{"=", "!=", "in"}},
		{Name: "quantity", Label: "Quantity", Operators: []string{"=", ">", ">=", "<", "<=", "range"}},
		{Name: "location", Label: "Location", Operators: []string{"=", "contains"}},
	}
}

func mustRegistry(t *testing.T) *FilterRegistry {
	t.Helper()
	reg, err := NewFilterRegistry("stock_items", stockFilters())
	if err != nil {
		t.Fatalf("NewFilterRegistry failed: %v", err)
	}
	return reg
}

func TestResolveSuffixMapping(t *testing.T) {
	reg := mustRegistry(t)

	cases := []struct {
		name, operator, value string
		wantKey               string
	}{
		{"status", "=", "60", "status"},
		{"status", "!=", "60", "status__ne"},
		{"status", "in", "10,60", "status__in"},
		{"quantity", ">", "5", "quantity__gt"},
		{"quantity", ">=", "5", "quantity__gte"},
		{"quantity", "<", "5", "quantity__lt"},
		{"quantity", "<=", "5", "quantity__lte"},
		{"location", "contains", "A1", "location__icontains"},
	}

	for _, tc := range cases {
		fragments, err := reg.Resolve(tc.name, tc.operator, tc.value)
		if err != nil {
			t.Errorf("Resolve(%s, %s) failed: %v", tc.name, tc.operator, err)
			continue
		}
		if len(fragments) != 1 {
			t.Errorf("Resolve(%s, %s) returned %d fragments", tc.name, tc.operator, len(fragments))
			continue
		}
		if fragments[0].Key != tc.wantKey || fragments[0].Value != tc.value {
			t.Errorf("Resolve(%s, %s) = %s=%s, want %s=%s",
				tc.name, tc.operator, fragments[0].Key, fragments[0].Value, tc.wantKey, tc.value)
		}
	}
}

func TestResolveRange(t *testing.T) {
	reg := mustRegistry(t)

	fragments, err := reg.Resolve("quantity", "range", "5..10")
	if err != nil {
		t.Fatalf("Resolve range failed: %v", err)
	}
	if len(fragments) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(fragments))
	}
	if fragments[0].Key != "quantity__gte" || fragments[0].Value != "5" {
		t.Errorf("low fragment = %+v", fragments[0])
	}
	if fragments[1].Key != "quantity__lte" || fragments[1].Value != "10" {
		t.Errorf("high fragment = %+v", fragments[1])
	}

	if _, err := reg.Resolve("quantity", "range", "5"); !errors.Is(err, ErrMalformedRangeValue) {
		t.Errorf("malformed range error = %v", err)
	}
}

func TestResolveRejectsUnknownFilter(t *testing.T) {
	reg := mustRegistry(t)

	if _, err := reg.Resolve("nope", "=", "1"); !errors.Is(err, ErrUnknownFilter) {
		t.Errorf("unknown filter error = %v", err)
	}
}

func TestResolveRejectsUndeclaredOperator(t *testing.T) {
	reg := mustRegistry(t)

	// ">" is valid in the suffix table but not declared for status.
	if _, err := reg.Resolve("status", ">", "1"); !errors.Is(err, ErrUnsupportedOperator) {
		t.Errorf("undeclared operator error = %v", err)
	}
}

func TestNewFilterRegistryRejectsBadDeclarations(t *testing.T) {
	_, err := NewFilterRegistry("t", []model.FilterDescriptor{
		{Name: "a", Operators: []string{"="}},
		{Name: "a", Operators: []string{"="}},
	})
	if !errors.Is(err, ErrDuplicateFilter) {
		t.Errorf("duplicate declaration error = %v", err)
	}

	_, err = NewFilterRegistry("t", []model.FilterDescriptor{
		{Name: "a", Operators: []string{"~="}},
	})
	if !errors.Is(err, ErrUnknownOperator) {
		t.Errorf("unknown operator declaration error = %v", err)
	}
}
