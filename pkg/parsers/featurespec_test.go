package parsers

import (
	"strings"
	"testing"
)

const featureSpecContent = `---
feature_name: Dark Mode Support
---

# Feature Specification: Dark Mode Support

> **Status**: Ready

## Feature Overview

Add a dark color scheme selectable by the user.

### Phase 1: Foundation (27h)

| Task | Description | Estimate |
|------|-------------|----------|
| DM-001-A | Add theme registry | 2h |
| DM-001-B | Persist theme choice | 3h |

### Phase 2: Rollout (10h)

| Task | Description | Estimate |
|------|-------------|----------|
| DM-002-A | Apply palette to widgets | 5h |
`

func TestFeatureSpecCanParse(t *testing.T) {
	p := NewFeatureSpecParser()

	tests := []struct {
		path string
		want bool
	}{
		{"feature-spec-dark-mode.md", true},
		{"specs/FEATURE-SPEC-login.md", true},
		{"feature-spec.md", true},
		{"feature-specification.txt", false},
		{"dark-mode-feature-spec.md", false},
		{"readme.md", false},
	}

	for _, tt := range tests {
		if got := p.CanParse("irrelevant", tt.path); got != tt.want {
			t.Errorf("CanParse(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestFeatureSpecParse(t *testing.T) {
	p := NewFeatureSpecParser()
	result := p.Parse(featureSpecContent, "feature-spec-dark-mode.md")

	if !result.Success {
		t.Fatalf("parse failed: %v", result.Warnings)
	}
	// Overview plus three tasks.
	if len(result.Episodes) != 4 {
		t.Fatalf("expected 4 episodes, got %d", len(result.Episodes))
	}

	overview := result.Episodes[0]
	if overview.EntityID != "dark-mode-support-overview" {
		t.Errorf("overview entity id = %q", overview.EntityID)
	}
	if overview.GroupID != "dark-mode-support" {
		t.Errorf("overview group = %q", overview.GroupID)
	}
	if overview.EntityType != "feature-spec" {
		t.Errorf("entity type = %q", overview.EntityType)
	}
	if !strings.Contains(overview.Content, "dark color scheme") {
		t.Error("overview content missing")
	}
	if overview.Metadata["feature_name"] != "Dark Mode Support" {
		t.Errorf("frontmatter feature_name not propagated: %v", overview.Metadata)
	}

	task := result.Episodes[1]
	if task.EntityID != "dark-mode-support-dm-001-a" {
		t.Errorf("task entity id = %q", task.EntityID)
	}
	if !strings.Contains(task.Content, "Phase: Phase 1: Foundation") {
		t.Errorf("task content missing phase: %q", task.Content)
	}
	if task.Metadata["estimate"] != "2h" {
		t.Errorf("task estimate = %q", task.Metadata["estimate"])
	}
}

func TestFeatureSpecMalformedRowWarnsButParses(t *testing.T) {
	content := `# Feature Specification: Audit Log

### Phase 1: Core (5h)

| Task | Description | Estimate |
|------|-------------|----------|
| AL-001 | Write events |
`
	p := NewFeatureSpecParser()
	result := p.Parse(content, "feature-spec-audit.md")

	if !result.Success {
		t.Fatal("mismatched row must not fail the parse")
	}
	warned := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "Malformed table row") {
			warned = true
		}
	}
	if !warned {
		t.Errorf("expected malformed-row warning, got %v", result.Warnings)
	}
	// The short row still yields a task episode.
	if len(result.Episodes) != 2 {
		t.Errorf("expected overview + 1 task, got %d episodes", len(result.Episodes))
	}
}

func TestFeatureSpecBlankLineResetsTableState(t *testing.T) {
	content := `# Feature Specification: Search

### Phase 1: Index (8h)

| Task | Description | Estimate |
|------|-------------|----------|
| SR-001 | Build index | 4h |

| Task | Description | Estimate |
|------|-------------|----------|
| SR-002 | Query API | 4h |
`
	p := NewFeatureSpecParser()
	result := p.Parse(content, "feature-spec-search.md")

	if !result.Success {
		t.Fatal("parse failed")
	}
	// Overview plus one task from each table.
	if len(result.Episodes) != 3 {
		t.Errorf("expected 3 episodes, got %d", len(result.Episodes))
	}
}

func TestFeatureSpecInvalidContent(t *testing.T) {
	p := NewFeatureSpecParser()
	result := p.Parse("# Just Notes\n\nNothing here.", "feature-spec-x.md")

	if result.Success {
		t.Error("content without a feature title must fail")
	}
	if len(result.Warnings) == 0 {
		t.Error("failure must carry a warning")
	}
}

func TestFeatureSpecNameFromFrontmatterOnly(t *testing.T) {
	content := "---\nfeature_name: Exports\n---\n\n# Feature Specification: \n"
	p := NewFeatureSpecParser()
	result := p.Parse(content, "feature-spec-exports.md")

	if !result.Success {
		t.Fatalf("parse failed: %v", result.Warnings)
	}
	if result.Episodes[0].EntityID != "exports-overview" {
		t.Errorf("entity id = %q", result.Episodes[0].EntityID)
	}
}
