package planning

import (
	"context"
	"strings"
	"testing"

	"guardkit/pkg/knowledge"
)

func archFacts() []knowledge.Fact {
	return []knowledge.Fact{
		{Name: "System Context: Order Platform", Fact: "methodology: modular. name: Order Platform. purpose: Sell things online.", Score: 0.9},
		{Name: "Component: Order Management", Fact: "Owns the order lifecycle", Score: 0.8},
		{Name: "Component: Inventory", Fact: "Tracks stock levels", Score: 0.7},
		{Name: "ADR-SP-001: Use PostgreSQL", Fact: "status: accepted. decision: Use PostgreSQL for all persistent state.", Score: 0.6},
		{Name: "Crosscutting: Observability", Fact: "Structured logging and metrics", Score: 0.5},
	}
}

func TestExtractEntityType(t *testing.T) {
	tests := []struct {
		name string
		fact string
		want string
	}{
		{"Component: Orders", "", "component"},
		{"component: lowercase", "", "component"},
		{"ADR-SP-001: Use PostgreSQL", "", "architecture_decision"},
		{"adr-001-repo-pattern", "", "architecture_decision"},
		{"Crosscutting: Observability", "", "crosscutting_concern"},
		{"System Context: Platform", "", "system_context"},
		{"Random name", "handles cross-cutting logging", "crosscutting_concern"},
		{"Random name", "crosscutting: auth everywhere", "crosscutting_concern"},
		// Unrecognized facts default to system context, never dropped.
		{"Something else", "free text", "system_context"},
	}

	for _, tt := range tests {
		if got := extractEntityType(tt.name, tt.fact); got != tt.want {
			t.Errorf("extractEntityType(%q, %q) = %q, want %q", tt.name, tt.fact, got, tt.want)
		}
	}
}

func TestGetSystemOverview(t *testing.T) {
	client := &mockClient{enabled: true, searchHits: archFacts()}
	sp := NewSystemPlan(client, "test")

	ov := GetSystemOverview(context.Background(), sp)
	if ov.Status != StatusOK {
		t.Fatalf("status = %q", ov.Status)
	}
	if ov.System == nil || ov.System.Name != "Order Platform" {
		t.Fatalf("system = %+v", ov.System)
	}
	if ov.System.Methodology != "modular" {
		t.Errorf("methodology = %q", ov.System.Methodology)
	}
	if len(ov.Components) != 2 {
		t.Errorf("components = %d", len(ov.Components))
	}
	if len(ov.Decisions) != 1 || ov.Decisions[0].ID != "ADR-SP-001" {
		t.Errorf("decisions = %+v", ov.Decisions)
	}
	if ov.Decisions[0].Title != "Use PostgreSQL" {
		t.Errorf("decision title = %q", ov.Decisions[0].Title)
	}
	if len(ov.Concerns) != 1 || ov.Concerns[0].Name != "Observability" {
		t.Errorf("concerns = %+v", ov.Concerns)
	}
}

func TestGetSystemOverviewNoContext(t *testing.T) {
	sp := NewSystemPlan(&mockClient{enabled: true}, "test")
	if ov := GetSystemOverview(context.Background(), sp); ov.Status != StatusNoContext {
		t.Errorf("status = %q", ov.Status)
	}

	sp = NewSystemPlan(nil, "test")
	if ov := GetSystemOverview(context.Background(), sp); ov.Status != StatusNoContext {
		t.Errorf("status = %q", ov.Status)
	}
}

func TestCondenseForInjectionPriorityOrder(t *testing.T) {
	client := &mockClient{enabled: true, searchHits: archFacts()}
	sp := NewSystemPlan(client, "test")
	ov := GetSystemOverview(context.Background(), sp)

	out := CondenseForInjection(ov, 1000)
	if !strings.HasPrefix(out, "Methodology: modular") {
		t.Errorf("methodology must come first: %q", out)
	}
	for _, want := range []string{
		"System: Order Platform",
		"Components: Order Management, Inventory",
		"Decisions: ADR-SP-001: Use PostgreSQL",
		"Crosscutting Concerns: Observability",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing fragment %q in %q", want, out)
		}
	}

	methIdx := strings.Index(out, "Methodology:")
	compIdx := strings.Index(out, "Components:")
	decIdx := strings.Index(out, "Decisions:")
	if !(methIdx < compIdx && compIdx < decIdx) {
		t.Errorf("fragments out of priority order: %q", out)
	}
}

func TestCondenseForInjectionRespectsBudget(t *testing.T) {
	client := &mockClient{enabled: true, searchHits: archFacts()}
	sp := NewSystemPlan(client, "test")
	ov := GetSystemOverview(context.Background(), sp)

	for _, budget := range []int{0, 3, 10, 30, 100, 1000} {
		out := CondenseForInjection(ov, budget)
		if got := knowledge.EstimateTokens(out); got > budget {
			t.Errorf("budget %d exceeded: estimate %d for %q", budget, got, out)
		}
	}
}

func TestCondenseForInjectionNoContext(t *testing.T) {
	if out := CondenseForInjection(&SystemOverview{Status: StatusNoContext}, 1000); out != "" {
		t.Errorf("expected empty string, got %q", out)
	}
	if out := CondenseForInjection(nil, 1000); out != "" {
		t.Errorf("expected empty string for nil, got %q", out)
	}
}

func TestFormatOverviewDisplay(t *testing.T) {
	client := &mockClient{enabled: true, searchHits: archFacts()}
	sp := NewSystemPlan(client, "test")
	ov := GetSystemOverview(context.Background(), sp)

	text := FormatOverviewDisplay(ov, "text", "all")
	for _, want := range []string{
		"System Context", "Name: Order Platform",
		"Components", "- Order Management",
		"Architecture Decisions", "- ADR-SP-001: Use PostgreSQL", "  Status: accepted",
		"Crosscutting Concerns", "- Observability",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("text display missing %q:\n%s", want, text)
		}
	}

	md := FormatOverviewDisplay(ov, "markdown", "all")
	if !strings.Contains(md, "## System Context") {
		t.Error("markdown display must prefix headers with ##")
	}

	jsonOut := FormatOverviewDisplay(ov, "json", "all")
	if !strings.Contains(jsonOut, `"status": "ok"`) {
		t.Errorf("json display malformed:\n%s", jsonOut)
	}

	onlyComponents := FormatOverviewDisplay(ov, "text", "components")
	if strings.Contains(onlyComponents, "Architecture Decisions") {
		t.Error("section filter leaked decisions into components view")
	}

	if got := FormatOverviewDisplay(&SystemOverview{Status: StatusNoContext}, "text", "all"); got != "no context available" {
		t.Errorf("no-context display = %q", got)
	}
}
