package service

import (
	"testing"

	"github.com/tabworks/tabula/model"
)

func TestComposeQueryFilterPrecedence(t *testing.T) {
	reg := mustRegistry(t)
	static := map[string]string{"status": "10", "part": "12"}

	state := model.NewTableState("stock_items").WithFilter("status", "=", "60")

	params, err := ComposeQuery(state, static, reg, false)
	if err != nil {
		t.Fatalf("ComposeQuery failed: %v", err)
	}
	if got := params.Get("status"); got != "60" {
		t.Errorf("active filter must override static param, status = %q", got)
	}
	if got := params.Get("part"); got != "12" {
		t.Errorf("uncontested static param lost, part = %q", got)
	}

	// With custom filters disabled only static params remain, whatever the
	// state holds.
	params, err = ComposeQuery(state, static, reg, true)
	if err != nil {
		t.Fatalf("ComposeQuery failed: %v", err)
	}
	if got := params.Get("status"); got != "10" {
		t.Errorf("disabled filters must leave static param, status = %q", got)
	}
}

func TestComposeQueryDeterminism(t *testing.T) {
	reg := mustRegistry(t)
	static := map[string]string{"part": "12", "location": "A1"}

	state := model.NewTableState("stock_items").
		WithFilter("status", "in", "10,60").
		WithFilter("quantity", ">", "5").
		WithSort("quantity", true).
		WithPage(3)

	first, err := ComposeQuery(state, static, reg, false)
	if err != nil {
		t.Fatalf("ComposeQuery failed: %v", err)
	}
	second, err := ComposeQuery(state, static, reg, false)
	if err != nil {
		t.Fatalf("ComposeQuery failed: %v", err)
	}
	if first.Encode() != second.Encode() {
		t.Errorf("composition is not deterministic:\n%s\n%s", first.Encode(), second.Encode())
	}
}

func TestComposeQueryPaginationAndOrdering(t *testing.T) {
	reg := mustRegistry(t)

	state := model.NewTableState("stock_items").WithPage(3).WithPageSize(50).WithSort("quantity", true)

	params, err := ComposeQuery(state, nil, reg, false)
	if err != nil {
		t.Fatalf("ComposeQuery failed: %v", err)
	}
	if got := params.Get("limit"); got != "50" {
		t.Errorf("limit = %q", got)
	}
	if got := params.Get("offset"); got != "100" {
		t.Errorf("offset = %q", got)
	}
	if got := params.Get("ordering"); got != "-quantity" {
		t.Errorf("ordering = %q", got)
	}

	state = state.WithSort("quantity", false)
	params, _ = ComposeQuery(state, nil, reg, false)
	if got := params.Get("ordering"); got != "quantity" {
		t.Errorf("ascending ordering = %q", got)
	}
}

// The documented composition example: page 1 with the default page size,
// one equality filter and one static scope parameter.
func TestComposeQueryScenario(t *testing.T) {
	reg := mustRegistry(t)

	state := model.NewTableState("stock_items").WithFilter("status", "=", "60")
	params, err := ComposeQuery(state, map[string]string{"part": "12"}, reg, false)
	if err != nil {
		t.Fatalf("ComposeQuery failed: %v", err)
	}

	want := map[string]string{
		"part":   "12",
		"status": "60",
		"limit":  "25",
		"offset": "0",
	}
	if len(params) != len(want) {
		t.Errorf("parameter count = %d, want %d (%v)", len(params), len(want), params)
	}
	for key, value := range want {
		if got := params.Get(key); got != value {
			t.Errorf("%s = %q, want %q", key, got, value)
		}
	}
}

func TestComposeQueryRejectsInvalidFilter(t *testing.T) {
	reg := mustRegistry(t)

	state := model.NewTableState("stock_items").WithFilter("bogus", "=", "1")
	if _, err := ComposeQuery(state, nil, reg, false); err == nil {
		t.Error("expected error for unknown filter in state")
	}
}
