package planning

import (
	"context"
	"strings"
	"testing"
)

func TestBuildCoachContextLowComplexityShortCircuits(t *testing.T) {
	client := &mockClient{enabled: true, searchHits: archFacts()}
	sp := NewSystemPlan(client, "test")

	out := BuildCoachContext(context.Background(), sp, CoachTask{ID: "TASK-X-1", Complexity: 2})
	if out != "" {
		t.Errorf("expected empty context, got %q", out)
	}
	if client.searchCalls != 0 || client.upsertCalls != 0 || client.addCalls != 0 {
		t.Errorf("zero budget must make no store calls, got %d searches", client.searchCalls)
	}
}

func TestBuildCoachContextOverviewOnly(t *testing.T) {
	client := &mockClient{enabled: true, searchHits: archFacts()}
	sp := NewSystemPlan(client, "test")

	out := BuildCoachContext(context.Background(), sp, CoachTask{ID: "TASK-X-1", Complexity: 5})
	if !strings.HasPrefix(out, "## Architecture Context") {
		t.Fatalf("missing overview header: %q", out)
	}
	if strings.Contains(out, "## Task Impact") {
		t.Error("complexity 5 must not trigger impact analysis")
	}
	if !strings.Contains(out, "Methodology: modular") {
		t.Errorf("overview content missing: %q", out)
	}
}

func TestBuildCoachContextDefaultComplexity(t *testing.T) {
	client := &mockClient{enabled: true, searchHits: archFacts()}
	sp := NewSystemPlan(client, "test")

	// Unset complexity defaults to 5: overview, no impact.
	out := BuildCoachContext(context.Background(), sp, CoachTask{ID: "TASK-X-1"})
	if out == "" || strings.Contains(out, "## Task Impact") {
		t.Errorf("default complexity context wrong: %q", out)
	}
}

func TestBuildCoachContextHighComplexityAddsImpact(t *testing.T) {
	client := impactClient()
	sp := NewSystemPlan(client, "test")

	out := BuildCoachContext(context.Background(), sp, CoachTask{ID: "TASK-ORD-1", Complexity: 9})
	if !strings.Contains(out, "## Architecture Context") {
		t.Fatalf("missing overview header: %q", out)
	}
	if !strings.Contains(out, "## Task Impact") {
		t.Fatalf("complexity 9 must include impact: %q", out)
	}
	if !strings.Contains(out, "Risk: ") {
		t.Errorf("impact section missing risk line: %q", out)
	}
}

func TestBuildCoachContextImpactFailurePreservesOverview(t *testing.T) {
	// The first search serves the overview; later searches fail, so the
	// impact stage degrades while the overview survives.
	client := &mockClient{enabled: true, searchHits: archFacts(), errAfterSearches: 1}
	sp := NewSystemPlan(client, "test")

	out := BuildCoachContext(context.Background(), sp, CoachTask{ID: "TASK-ORD-1", Complexity: 9})
	if !strings.Contains(out, "## Architecture Context") {
		t.Fatalf("overview discarded on impact failure: %q", out)
	}
	if strings.Contains(out, "## Task Impact") {
		t.Errorf("failed impact must not emit a section: %q", out)
	}
}

func TestBuildCoachContextUnavailableStore(t *testing.T) {
	if out := BuildCoachContext(context.Background(), NewSystemPlan(nil, "test"), CoachTask{Complexity: 8}); out != "" {
		t.Errorf("expected empty context, got %q", out)
	}

	sp := NewSystemPlan(&mockClient{enabled: false}, "test")
	if out := BuildCoachContext(context.Background(), sp, CoachTask{Complexity: 8}); out != "" {
		t.Errorf("expected empty context with disabled store, got %q", out)
	}
}

func TestBuildCoachContextEmptyOverview(t *testing.T) {
	// Store reachable but holding nothing: no lone section header.
	sp := NewSystemPlan(&mockClient{enabled: true}, "test")
	if out := BuildCoachContext(context.Background(), sp, CoachTask{Complexity: 8}); out != "" {
		t.Errorf("expected empty context, got %q", out)
	}
}
