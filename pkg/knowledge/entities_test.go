package knowledge

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"simple", "Order Management", 30, "order-management"},
		{"punctuation collapses", "Order -- Management!!", 30, "order-management"},
		{"edge hyphens stripped", "  --Payments-- ", 30, "payments"},
		{"truncated", "a very long component name that keeps going", 10, "a-very-lon"},
		{"already clean", "payments", 30, "payments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("Slugify(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestComponentEntityIDDependsOnlyOnName(t *testing.T) {
	a := ComponentDef{Name: "Order Management", Description: "v1"}
	b := ComponentDef{Name: "Order Management", Description: "completely different"}

	if a.EntityID() != b.EntityID() {
		t.Errorf("entity IDs differ for same name: %q vs %q", a.EntityID(), b.EntityID())
	}
	if a.EntityID() != "COMP-order-management" {
		t.Errorf("unexpected entity ID %q", a.EntityID())
	}
}

func TestSystemContextEntityID(t *testing.T) {
	s := SystemContextDef{Name: "E-Commerce Platform"}
	if got := s.EntityID(); got != "SYS-e-commerce-platform" {
		t.Errorf("EntityID() = %q", got)
	}
}

func TestCrosscuttingEntityID(t *testing.T) {
	x := CrosscuttingConcernDef{Name: "Observability"}
	if got := x.EntityID(); got != "XC-observability" {
		t.Errorf("EntityID() = %q", got)
	}
}

func TestADREntityIDFromNumberOnly(t *testing.T) {
	tests := []struct {
		number int
		want   string
	}{
		{1, "ADR-SP-001"},
		{42, "ADR-SP-042"},
		{123, "ADR-SP-123"},
	}

	for _, tt := range tests {
		a := ArchitectureDecision{Number: tt.number, Title: "anything"}
		b := ArchitectureDecision{Number: tt.number, Title: "something else", Status: "deprecated"}
		if a.EntityID() != tt.want {
			t.Errorf("EntityID() = %q, want %q", a.EntityID(), tt.want)
		}
		if a.EntityID() != b.EntityID() {
			t.Errorf("same number yields different IDs: %q vs %q", a.EntityID(), b.EntityID())
		}
	}
}

func TestComponentEntityTypeByMethodology(t *testing.T) {
	ddd := ComponentDef{Name: "Orders", Methodology: "ddd"}
	if ddd.EntityType() != "bounded_context" {
		t.Errorf("ddd component type = %q", ddd.EntityType())
	}
	plain := ComponentDef{Name: "Orders", Methodology: "modular"}
	if plain.EntityType() != "component" {
		t.Errorf("modular component type = %q", plain.EntityType())
	}
}

func TestComponentEpisodeBodyOmitsDDDFieldsUnlessDDD(t *testing.T) {
	c := ComponentDef{
		Name:           "Orders",
		Methodology:    "modular",
		AggregateRoots: []string{"Order"},
		DomainEvents:   []string{"OrderPlaced"},
		ContextMapping: "upstream of billing",
	}

	body := c.EpisodeBody()
	for _, key := range []string{"aggregate_roots", "domain_events", "context_mapping"} {
		if _, ok := body[key]; ok {
			t.Errorf("non-ddd body should omit %q", key)
		}
	}

	c.Methodology = "ddd"
	body = c.EpisodeBody()
	for _, key := range []string{"aggregate_roots", "domain_events", "context_mapping"} {
		if _, ok := body[key]; !ok {
			t.Errorf("ddd body should include %q", key)
		}
	}
}

func TestEpisodeBodiesCarryNoMetadata(t *testing.T) {
	bodies := []map[string]any{
		SystemContextDef{Name: "Shop"}.EpisodeBody(),
		ComponentDef{Name: "Orders"}.EpisodeBody(),
		CrosscuttingConcernDef{Name: "Auth"}.EpisodeBody(),
		ArchitectureDecision{Number: 1, Title: "Use Postgres"}.EpisodeBody(),
	}

	for _, body := range bodies {
		for _, forbidden := range []string{"entity_type", "entity_id", "created_at", "metadata"} {
			if _, ok := body[forbidden]; ok {
				t.Errorf("episode body must not carry %q", forbidden)
			}
		}
	}
}

func TestFormatForPromptFiltersLowScoreFacts(t *testing.T) {
	ac := ArchitectureContext{
		RetrievedFacts: []Fact{
			{Name: "hi", Fact: "high relevance fact", Score: 0.9},
			{Name: "lo", Fact: "barely related noise", Score: 0.3},
			{Name: "edge", Fact: "exactly at threshold", Score: 0.5},
		},
	}

	out := ac.FormatForPrompt(1000)
	if !strings.Contains(out, "high relevance fact") {
		t.Error("high-score fact missing from prompt")
	}
	if strings.Contains(out, "barely related noise") {
		t.Error("low-score fact leaked into prompt")
	}
	if strings.Contains(out, "exactly at threshold") {
		t.Error("threshold is exclusive; score 0.5 must be filtered")
	}
}

func TestFormatForPromptRespectsBudget(t *testing.T) {
	ac := ArchitectureContext{
		SystemContext: &SystemContextDef{Name: "Shop", Methodology: "modular", Purpose: "sell things online"},
		Components: []ComponentDef{
			{Name: "Orders", Description: "order lifecycle management and fulfilment tracking"},
			{Name: "Billing", Description: "invoicing payment collection and refunds handling"},
		},
	}

	for _, budget := range []int{5, 10, 50, 1000} {
		out := ac.FormatForPrompt(budget)
		if got := EstimateTokens(out); got > budget {
			t.Errorf("budget %d exceeded: estimated %d tokens", budget, got)
		}
	}

	if out := ac.FormatForPrompt(0); out != "" {
		t.Errorf("zero budget should produce empty output, got %q", out)
	}
}

func TestEmptyArchitectureContext(t *testing.T) {
	ac := EmptyArchitectureContext()
	if !ac.IsEmpty() {
		t.Error("EmptyArchitectureContext() should be empty")
	}
	if out := ac.FormatForPrompt(1000); out != "" {
		t.Errorf("empty context should format to empty string, got %q", out)
	}
}
